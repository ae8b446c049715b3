package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/synergy-api/internal/events"
	"github.com/yukikurage/synergy-api/internal/models"
	"github.com/yukikurage/synergy-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MembershipService decides who may act on a project and manages its members.
type MembershipService struct {
	store         *repository.Store
	publisher     events.Publisher
	lookupTimeout time.Duration
	logger        *zap.Logger
}

// NewMembershipService creates a new MembershipService
func NewMembershipService(store *repository.Store, publisher events.Publisher, lookupTimeout time.Duration, logger *zap.Logger) *MembershipService {
	return &MembershipService{
		store:         store,
		publisher:     publisher,
		lookupTimeout: lookupTimeout,
		logger:        logger,
	}
}

// Authorize returns the actor's membership in the project. It fails with
// ErrProjectNotFound or ErrNotProjectMember.
func (s *MembershipService) Authorize(ctx context.Context, projectID, actorID uint64) (*models.ProjectMember, error) {
	if _, err := s.store.Projects.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	member, err := s.store.Projects.FindMember(ctx, projectID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotProjectMember
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	if !member.Role.Valid() {
		return nil, ErrNotProjectMember
	}
	return member, nil
}

// AuthorizeOwner is Authorize restricted to roles that may manage the project.
func (s *MembershipService) AuthorizeOwner(ctx context.Context, projectID, actorID uint64) (*models.ProjectMember, error) {
	member, err := s.Authorize(ctx, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !member.Role.CanManageProject() {
		return nil, ErrOwnerRequired
	}
	return member, nil
}

// AddMemberInput represents input for adding a member to a project
type AddMemberInput struct {
	ProjectID uint64
	ActorID   uint64
	Email     string
	Role      models.ProjectRole
}

// AddMember adds the registered user with the given email to the project.
func (s *MembershipService) AddMember(ctx context.Context, input AddMemberInput) (*models.ProjectMember, error) {
	if _, err := s.AuthorizeOwner(ctx, input.ProjectID, input.ActorID); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, ErrUserNotFound
	}

	user, err := s.findUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Projects.FindMember(ctx, input.ProjectID, user.ID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID:   input.ProjectID,
		UserID:      user.ID,
		Role:        role,
		DisplayName: user.Name,
		Email:       user.EmailOrEmpty(),
		JoinedAt:    time.Now(),
	}
	if err := s.store.Projects.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	s.publishMembership(ctx, models.NotificationMemberAdded, input.ProjectID, input.ActorID, user.ID)
	return member, nil
}

// RemoveMember removes a member from the project. Owners cannot remove themselves.
func (s *MembershipService) RemoveMember(ctx context.Context, projectID, actorID, userID uint64) error {
	if _, err := s.AuthorizeOwner(ctx, projectID, actorID); err != nil {
		return err
	}
	if userID == actorID {
		return ErrCannotRemoveSelf
	}

	removed, err := s.store.Projects.RemoveMember(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if !removed {
		return ErrMemberNotFound
	}

	s.publishMembership(ctx, models.NotificationMemberRemoved, projectID, actorID, userID)
	return nil
}

// findUserByEmail resolves a user within the lookup timeout. A lookup that
// times out is reported as ErrUserNotFound rather than hanging the request.
func (s *MembershipService) findUserByEmail(ctx context.Context, email string) (*models.User, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	user, err := s.store.Users.FindByEmail(lookupCtx, email)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, context.DeadlineExceeded):
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
}

func (s *MembershipService) publishMembership(ctx context.Context, eventType models.NotificationType, projectID, actorID, memberID uint64) {
	event := events.NewEvent(eventType)
	event.ProjectID = projectID
	event.ActorID = actorID
	event.MemberID = memberID

	if project, err := s.store.Projects.FindByID(ctx, projectID); err == nil {
		event.ProjectName = project.Name
	} else {
		s.logger.Warn("Failed to load project name for event", zap.Uint64("project_id", projectID), zap.Error(err))
	}

	s.publisher.Publish(ctx, event)
}
