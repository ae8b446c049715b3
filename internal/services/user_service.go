package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/synergy-api/internal/auth"
	"github.com/yukikurage/synergy-api/internal/models"
	"github.com/yukikurage/synergy-api/internal/repository"
	"gorm.io/gorm"
)

// UserService provisions users from verified identities.
type UserService struct {
	users repository.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// EnsureUser returns the user for the identity's subject, creating it on the
// first verified request. An email already held by another subject is not
// copied onto the new user, which is provisioned without one.
func (s *UserService) EnsureUser(ctx context.Context, identity auth.Identity) (*models.User, error) {
	subject := strings.TrimSpace(identity.SubjectID)
	if subject == "" {
		return nil, auth.ErrUnauthenticated
	}

	user := &models.User{
		ExternalUID: subject,
		Name:        strings.TrimSpace(identity.DisplayName),
	}
	if email := strings.ToLower(strings.TrimSpace(identity.Email)); email != "" {
		user.Email = &email
	}
	if user.Name == "" {
		user.Name = defaultDisplayName(identity)
	}

	if user.Email != nil {
		taken, err := s.emailHeldByOther(ctx, *user.Email, subject)
		if err != nil {
			return nil, err
		}
		if taken {
			user.Email = nil
		}
	}

	err := s.users.FirstOrCreateByExternalUID(ctx, user)
	if err != nil && user.Email != nil {
		// The email may have been claimed between the check and the insert.
		if taken, lookupErr := s.emailHeldByOther(ctx, *user.Email, subject); lookupErr == nil && taken {
			user.ID = 0
			user.Email = nil
			err = s.users.FirstOrCreateByExternalUID(ctx, user)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}
	return user, nil
}

func (s *UserService) emailHeldByOther(ctx context.Context, email, subject string) (bool, error) {
	owner, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up email: %w", err)
	}
	return owner.ExternalUID != subject, nil
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func defaultDisplayName(identity auth.Identity) string {
	if at := strings.Index(identity.Email, "@"); at > 0 {
		return identity.Email[:at]
	}
	return identity.SubjectID
}
