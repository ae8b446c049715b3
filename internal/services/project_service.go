package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/synergy-api/internal/models"
	"github.com/yukikurage/synergy-api/internal/repository"
	"gorm.io/gorm"
)

// ProjectService handles project business logic
type ProjectService struct {
	store      *repository.Store
	membership *MembershipService
}

// NewProjectService creates a new ProjectService
func NewProjectService(store *repository.Store, membership *MembershipService) *ProjectService {
	return &ProjectService{
		store:      store,
		membership: membership,
	}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	ActorID     uint64
	Name        string
	Description string
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Name        *string
	Description *string
}

// ProjectDetail is a project with its members and derived overdue count.
type ProjectDetail struct {
	Project      *models.Project
	OverdueCount int64
}

// CreateProject creates a project whose creator is its sole owner.
func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProjectNameEmpty
	}

	creator, err := s.store.Users.FindByID(ctx, input.ActorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load creator: %w", err)
	}

	project := &models.Project{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CreatedBy:   creator.ID,
	}
	owner := &models.ProjectMember{
		UserID:      creator.ID,
		Role:        models.RoleOwner,
		DisplayName: creator.Name,
		Email:       creator.EmailOrEmpty(),
		JoinedAt:    time.Now(),
	}

	if err := s.store.Projects.Create(ctx, project, owner); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// ListProjects lists the projects the user is a member of
func (s *ProjectService) ListProjects(ctx context.Context, userID uint64) ([]models.Project, error) {
	projects, err := s.store.Projects.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject returns a project the actor is a member of.
func (s *ProjectService) GetProject(ctx context.Context, projectID, actorID uint64) (*ProjectDetail, error) {
	if _, err := s.membership.Authorize(ctx, projectID, actorID); err != nil {
		return nil, err
	}

	project, err := s.store.Projects.FindWithMembers(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	overdue, err := s.store.Tasks.CountOverdue(ctx, projectID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	return &ProjectDetail{Project: project, OverdueCount: overdue}, nil
}

// UpdateProject renames or re-describes a project. Owner only; a name that
// trims to empty is ignored.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID, actorID uint64, input UpdateProjectInput) (*ProjectDetail, error) {
	if _, err := s.membership.AuthorizeOwner(ctx, projectID, actorID); err != nil {
		return nil, err
	}

	project, err := s.store.Projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" {
			project.Name = name
		}
	}
	if input.Description != nil {
		project.Description = strings.TrimSpace(*input.Description)
	}
	project.UpdatedAt = time.Now()

	if err := s.store.Projects.UpdateDetails(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return s.GetProject(ctx, projectID, actorID)
}
