package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/synergy-api/internal/auth"
	"github.com/yukikurage/synergy-api/internal/models"
)

type UserServiceTestSuite struct {
	serviceSuite
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func (s *UserServiceTestSuite) TestEnsureUser_ProvisionsOnce() {
	identity := auth.Identity{SubjectID: "sub-1", Email: "Alice@Example.com"}

	first, err := s.users.EnsureUser(s.ctx, identity)
	s.Require().NoError(err)
	s.NotZero(first.ID)
	s.Equal("Alice", first.Name)
	s.Equal("alice@example.com", first.EmailOrEmpty())

	second, err := s.users.EnsureUser(s.ctx, identity)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)

	var count int64
	s.db.Model(&models.User{}).Count(&count)
	s.Equal(int64(1), count)

	got, err := s.users.GetUser(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal("sub-1", got.ExternalUID)
}

func (s *UserServiceTestSuite) TestEnsureUser_RequiresSubject() {
	_, err := s.users.EnsureUser(s.ctx, auth.Identity{SubjectID: "  "})
	s.True(errors.Is(err, auth.ErrUnauthenticated))

	_, err = s.users.GetUser(s.ctx, 999)
	s.True(errors.Is(err, ErrUserNotFound))
}

func (s *UserServiceTestSuite) TestEnsureUser_EmailHeldByAnotherSubject() {
	first, err := s.users.EnsureUser(s.ctx, auth.Identity{SubjectID: "sub-a", Email: "same@example.com"})
	s.Require().NoError(err)

	second, err := s.users.EnsureUser(s.ctx, auth.Identity{SubjectID: "sub-b", Email: "Same@Example.com", DisplayName: "B"})
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)
	s.Nil(second.Email)
	s.Equal("B", second.Name)

	again, err := s.users.EnsureUser(s.ctx, auth.Identity{SubjectID: "sub-b", Email: "same@example.com"})
	s.Require().NoError(err)
	s.Equal(second.ID, again.ID)

	owner, err := s.users.GetUser(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal("same@example.com", owner.EmailOrEmpty())
}
