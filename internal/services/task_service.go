package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/yukikurage/synergy-api/internal/constants"
	"github.com/yukikurage/synergy-api/internal/events"
	"github.com/yukikurage/synergy-api/internal/metrics"
	"github.com/yukikurage/synergy-api/internal/models"
	"github.com/yukikurage/synergy-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskServiceOptions tunes the lifecycle engine.
type TaskServiceOptions struct {
	// LookupTimeout bounds assignee resolution.
	LookupTimeout time.Duration
	// UpdateRetries is how many times a mutation that lost an optimistic
	// version race is replayed before ErrTaskUpdateConflict is returned.
	UpdateRetries int
}

// TaskService applies task mutations atomically together with the counters
// they affect: Project.TotalTasks and User.OpenTasksCount.
type TaskService struct {
	store      *repository.Store
	membership *MembershipService
	publisher  events.Publisher
	logger     *zap.Logger
	opts       TaskServiceOptions

	// txHook, when set, sees every transaction-bound Store before use.
	txHook func(tx *repository.Store)
}

// NewTaskService creates a new TaskService
func NewTaskService(store *repository.Store, membership *MembershipService, publisher events.Publisher, logger *zap.Logger, opts TaskServiceOptions) *TaskService {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 3 * time.Second
	}
	if opts.UpdateRetries < 0 {
		opts.UpdateRetries = 0
	}
	return &TaskService{
		store:      store,
		membership: membership,
		publisher:  publisher,
		logger:     logger,
		opts:       opts,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID   uint64
	ActorID     uint64
	Title       string
	Description string
	AssigneeID  *uint64
	DueDate     *time.Time
}

// UpdateTaskInput is a patch. Nil fields are left untouched; the Clear flags
// set the corresponding field to null.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Status        *models.TaskStatus
	DueDate       *time.Time
	ClearDueDate  bool
	AssigneeID    *uint64
	ClearAssignee bool
}

// AttachmentInput is a finished object storage descriptor.
type AttachmentInput struct {
	URL        string
	ExternalID string
	Name       string
	Size       int64
	Mime       string
}

// ListTasks returns the project's tasks, newest first
func (s *TaskService) ListTasks(ctx context.Context, projectID, actorID uint64) ([]models.Task, error) {
	if _, err := s.membership.Authorize(ctx, projectID, actorID); err != nil {
		return nil, err
	}

	tasks, err := s.store.Tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns a single task with its assignee and attachments
func (s *TaskService) GetTask(ctx context.Context, projectID, taskID, actorID uint64) (*models.Task, error) {
	if _, err := s.membership.Authorize(ctx, projectID, actorID); err != nil {
		return nil, err
	}
	return s.reload(ctx, projectID, taskID)
}

// CreateTask inserts a todo task and counts it against its project and, if
// set, its assignee.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if _, err := s.membership.Authorize(ctx, input.ProjectID, input.ActorID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	task := &models.Task{
		ProjectID:   input.ProjectID,
		Title:       title,
		Description: input.Description,
		AssigneeID:  input.AssigneeID,
		Status:      models.TaskStatusTodo,
		DueDate:     input.DueDate,
		Version:     1,
	}

	err := s.mutate(ctx, "create", func(tx *repository.Store) error {
		task.ID = 0
		if task.AssigneeID != nil {
			if err := s.ensureUserExists(ctx, tx, *task.AssigneeID); err != nil {
				return err
			}
		}

		if err := tx.Tasks.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		if err := tx.Projects.AdjustTotalTasks(ctx, task.ProjectID, 1); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return fmt.Errorf("failed to count task: %w", err)
		}

		after := taskState{assignee: task.AssigneeID, status: task.Status}
		return applyOpenDeltas(ctx, tx, openTaskDeltas(nil, &after))
	})
	if err != nil {
		return nil, err
	}

	if task.AssigneeID != nil && *task.AssigneeID != input.ActorID {
		s.publishAssigned(ctx, task, input.ActorID)
	}

	return s.reload(ctx, task.ProjectID, task.ID)
}

// UpdateTask applies every field of the patch and the resulting counter
// adjustments as one unit. A title that trims to empty is ignored and
// updated_at is always refreshed.
func (s *TaskService) UpdateTask(ctx context.Context, projectID, taskID, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	if _, err := s.membership.Authorize(ctx, projectID, actorID); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	var (
		newlyAssigned *uint64
		title         string
	)

	err := s.mutate(ctx, "update", func(tx *repository.Store) error {
		newlyAssigned = nil

		task, err := findTask(ctx, tx, projectID, taskID)
		if err != nil {
			return err
		}

		before := taskState{assignee: task.AssigneeID, status: task.Status}
		after := before
		title = task.Title

		fields := map[string]any{"updated_at": time.Now()}

		if input.Title != nil {
			if trimmed := strings.TrimSpace(*input.Title); trimmed != "" {
				fields["title"] = trimmed
				title = trimmed
			}
		}
		if input.Description != nil {
			fields["description"] = *input.Description
		}
		if input.ClearDueDate {
			fields["due_date"] = nil
		} else if input.DueDate != nil {
			fields["due_date"] = *input.DueDate
		}

		if input.ClearAssignee {
			after.assignee = nil
			fields["assignee_id"] = nil
		} else if input.AssigneeID != nil {
			if err := s.ensureUserExists(ctx, tx, *input.AssigneeID); err != nil {
				return err
			}
			assignee := *input.AssigneeID
			after.assignee = &assignee
			fields["assignee_id"] = assignee
		}

		if input.Status != nil {
			after.status = *input.Status
			fields["status"] = *input.Status
		}

		if err := tx.Tasks.UpdateFields(ctx, task.ID, task.Version, fields); err != nil {
			return err
		}
		if err := applyOpenDeltas(ctx, tx, openTaskDeltas(&before, &after)); err != nil {
			return err
		}

		if after.assignee != nil && (before.assignee == nil || *before.assignee != *after.assignee) {
			newlyAssigned = after.assignee
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newlyAssigned != nil && *newlyAssigned != actorID {
		s.publishAssigned(ctx, &models.Task{ID: taskID, ProjectID: projectID, Title: title, AssigneeID: newlyAssigned}, actorID)
	}

	return s.reload(ctx, projectID, taskID)
}

// AddAttachment appends an attachment to the task. Counters are unaffected.
func (s *TaskService) AddAttachment(ctx context.Context, projectID, taskID, actorID uint64, input AttachmentInput) (*models.Task, error) {
	if _, err := s.membership.Authorize(ctx, projectID, actorID); err != nil {
		return nil, err
	}

	url := strings.TrimSpace(input.URL)
	if url == "" {
		return nil, ErrAttachmentURL
	}
	externalID := strings.TrimSpace(input.ExternalID)
	if externalID == "" {
		return nil, ErrAttachmentID
	}

	attachment := &models.Attachment{
		URL:        url,
		ExternalID: externalID,
		Name:       strings.TrimSpace(input.Name),
		Size:       input.Size,
		Mime:       strings.TrimSpace(input.Mime),
		UploaderID: actorID,
	}
	if attachment.Name == "" {
		attachment.Name = constants.DefaultAttachmentName
	}
	if attachment.Mime == "" {
		attachment.Mime = constants.DefaultAttachmentMime
	}
	if uploader, err := s.store.Users.FindByID(ctx, actorID); err == nil {
		attachment.UploaderName = uploader.Name
	}

	err := s.mutate(ctx, "attach", func(tx *repository.Store) error {
		attachment.ID = 0

		task, err := findTask(ctx, tx, projectID, taskID)
		if err != nil {
			return err
		}

		now := time.Now()
		attachment.TaskID = task.ID
		attachment.UploadedAt = now

		if err := tx.Tasks.AddAttachment(ctx, attachment); err != nil {
			return fmt.Errorf("failed to add attachment: %w", err)
		}
		return tx.Tasks.Touch(ctx, task.ID, now)
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, projectID, taskID)
}

// DeleteTask removes the task with its attachments and comments and takes
// it off the counters.
func (s *TaskService) DeleteTask(ctx context.Context, projectID, taskID, actorID uint64) error {
	if _, err := s.membership.Authorize(ctx, projectID, actorID); err != nil {
		return err
	}

	return s.mutate(ctx, "delete", func(tx *repository.Store) error {
		task, err := findTask(ctx, tx, projectID, taskID)
		if err != nil {
			return err
		}

		if err := tx.Tasks.Delete(ctx, task.ID, task.Version); err != nil {
			return err
		}
		if err := tx.Projects.AdjustTotalTasks(ctx, task.ProjectID, -1); err != nil {
			return fmt.Errorf("failed to uncount task: %w", err)
		}

		before := taskState{assignee: task.AssigneeID, status: task.Status}
		return applyOpenDeltas(ctx, tx, openTaskDeltas(&before, nil))
	})
}

// mutate runs fn in a transaction, replaying it from a fresh read whenever
// the task version moved underneath it.
func (s *TaskService) mutate(ctx context.Context, operation string, fn func(tx *repository.Store) error) error {
	for attempt := 0; ; attempt++ {
		err := s.store.Transaction(ctx, func(tx *repository.Store) error {
			if s.txHook != nil {
				s.txHook(tx)
			}
			return fn(tx)
		})
		if err == nil {
			metrics.IncTaskMutation(operation, "ok")
			return nil
		}

		if !errors.Is(err, repository.ErrVersionConflict) {
			metrics.IncTaskMutation(operation, "error")
			return err
		}

		metrics.IncVersionConflict(operation)
		if attempt >= s.opts.UpdateRetries {
			metrics.IncTaskMutation(operation, "conflict")
			s.logger.Warn("Task mutation gave up after version conflicts",
				zap.String("operation", operation),
				zap.Int("attempts", attempt+1),
			)
			return ErrTaskUpdateConflict
		}
	}
}

// ensureUserExists resolves an assignee within the lookup timeout.
func (s *TaskService) ensureUserExists(ctx context.Context, tx *repository.Store, userID uint64) error {
	lookupCtx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
	defer cancel()

	exists, err := tx.Users.Exists(lookupCtx, userID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrInvalidAssignee
		}
		return fmt.Errorf("failed to resolve assignee: %w", err)
	}
	if !exists {
		return ErrInvalidAssignee
	}
	return nil
}

func (s *TaskService) reload(ctx context.Context, projectID, taskID uint64) (*models.Task, error) {
	task, err := s.store.Tasks.FindInProject(ctx, projectID, taskID, "Assignee", "Attachments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (s *TaskService) publishAssigned(ctx context.Context, task *models.Task, actorID uint64) {
	event := events.NewEvent(models.NotificationTaskAssigned)
	event.ActorID = actorID
	event.ProjectID = task.ProjectID
	event.TaskID = task.ID
	event.TaskTitle = task.Title
	event.AssigneeID = *task.AssigneeID
	s.publisher.Publish(ctx, event)
}

func findTask(ctx context.Context, tx *repository.Store, projectID, taskID uint64) (*models.Task, error) {
	task, err := tx.Tasks.FindInProject(ctx, projectID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// applyOpenDeltas writes counter adjustments in ascending user order so that
// concurrent transactions lock user rows in the same order.
func applyOpenDeltas(ctx context.Context, tx *repository.Store, deltas map[uint64]int64) error {
	ids := make([]uint64, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if err := tx.Users.AdjustOpenTasks(ctx, id, deltas[id]); err != nil {
			return fmt.Errorf("failed to adjust open tasks for user %d: %w", id, err)
		}
	}
	return nil
}
