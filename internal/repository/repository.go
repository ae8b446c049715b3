package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/synergy-api/internal/models"
)

// ErrVersionConflict is returned when a compare-and-swap write finds the row
// at a different version than the one it was read at.
var ErrVersionConflict = errors.New("repository: version conflict")

// UserRepository defines the interface for user data access
type UserRepository interface {
	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by lower-cased email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FirstOrCreateByExternalUID returns the user keyed by user.ExternalUID,
	// inserting user when no such record exists yet.
	FirstOrCreateByExternalUID(ctx context.Context, user *models.User) error

	// Exists reports whether a user with the given ID exists
	Exists(ctx context.Context, id uint64) (bool, error)

	// AdjustOpenTasks adds delta to the user's open task counter
	AdjustOpenTasks(ctx context.Context, id uint64, delta int64) error

	// ListOpenTaskCounts returns the stored open task counter of every user
	ListOpenTaskCounts(ctx context.Context) (map[uint64]int64, error)

	// SetOpenTasksCount overwrites the counter (reconciliation only)
	SetOpenTasksCount(ctx context.Context, id uint64, count int64) error
}

// ProjectRepository defines the interface for project and membership data access
type ProjectRepository interface {
	// Create creates a project together with its owner membership
	Create(ctx context.Context, project *models.Project, owner *models.ProjectMember) error

	// FindByID finds a project by ID
	FindByID(ctx context.Context, id uint64) (*models.Project, error)

	// FindWithMembers finds a project and preloads its members ordered by join time
	FindWithMembers(ctx context.Context, id uint64) (*models.Project, error)

	// UpdateDetails writes name and description
	UpdateDetails(ctx context.Context, project *models.Project) error

	// ListForUser lists projects the user is a member of
	ListForUser(ctx context.Context, userID uint64) ([]models.Project, error)

	// AddMember adds a member to a project
	AddMember(ctx context.Context, member *models.ProjectMember) error

	// RemoveMember removes a member, returning whether a row was deleted
	RemoveMember(ctx context.Context, projectID, userID uint64) (bool, error)

	// FindMember finds a specific project member
	FindMember(ctx context.Context, projectID, userID uint64) (*models.ProjectMember, error)

	// AdjustTotalTasks adds delta to the project's task counter
	AdjustTotalTasks(ctx context.Context, id uint64, delta int64) error

	// ListTaskTotals returns the stored task counter of every project
	ListTaskTotals(ctx context.Context) (map[uint64]int64, error)

	// SetTotalTasks overwrites the counter (reconciliation only)
	SetTotalTasks(ctx context.Context, id uint64, total int64) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindInProject finds a task scoped to its project with optional preloading
	FindInProject(ctx context.Context, projectID, taskID uint64, preload ...string) (*models.Task, error)

	// ListByProject lists a project's tasks, newest first
	ListByProject(ctx context.Context, projectID uint64) ([]models.Task, error)

	// UpdateFields applies fields if the task is still at version, bumping it
	UpdateFields(ctx context.Context, taskID, version uint64, fields map[string]any) error

	// Touch sets updated_at without taking part in versioning
	Touch(ctx context.Context, taskID uint64, at time.Time) error

	// AddAttachment appends an attachment row
	AddAttachment(ctx context.Context, attachment *models.Attachment) error

	// Delete removes the task at version together with its attachments and comments
	Delete(ctx context.Context, taskID, version uint64) error

	// CountByProject counts task rows per project
	CountByProject(ctx context.Context) (map[uint64]int64, error)

	// CountOpenByAssignee counts tasks not done per assignee
	CountOpenByAssignee(ctx context.Context) (map[uint64]int64, error)

	// CountOverdue counts open tasks in a project whose due date is before now
	CountOverdue(ctx context.Context, projectID uint64, now time.Time) (int64, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Create creates a new comment
	Create(ctx context.Context, comment *models.Comment) error

	// FindInTask finds a comment that belongs to the given task
	FindInTask(ctx context.Context, taskID, commentID uint64) (*models.Comment, error)

	// ListByTask lists a task's comments in creation order
	ListByTask(ctx context.Context, taskID uint64) ([]models.Comment, error)
}

// NotificationFilter holds filtering options for listing notifications
type NotificationFilter struct {
	UnreadOnly bool
	Offset     int
	Limit      int
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	// Create appends a notification
	Create(ctx context.Context, notification *models.Notification) error

	// ListByRecipient lists a recipient's notifications, newest first
	ListByRecipient(ctx context.Context, recipientID uint64, filter NotificationFilter) ([]models.Notification, int64, error)

	// MarkRead flags the recipient's notifications among ids as read
	MarkRead(ctx context.Context, recipientID uint64, ids []uint64) (int64, error)
}
