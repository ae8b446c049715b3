package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yukikurage/synergy-api/internal/events"
	"github.com/yukikurage/synergy-api/internal/metrics"
	"github.com/yukikurage/synergy-api/internal/models"
	"github.com/yukikurage/synergy-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// NotificationService turns domain events into per-recipient notifications
// and serves them back to their recipients.
type NotificationService struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifications repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		logger:        logger,
	}
}

type notificationMeta struct {
	EventID   string `json:"eventId"`
	ActorID   uint64 `json:"actorId,omitempty"`
	ProjectID uint64 `json:"projectId"`
	TaskID    uint64 `json:"taskId,omitempty"`
	CommentID uint64 `json:"commentId,omitempty"`
}

// Handle appends the one notification an event produces. It is an
// events.Handler.
func (s *NotificationService) Handle(ctx context.Context, e events.Event) error {
	var (
		recipient uint64
		text      string
	)

	switch e.Type {
	case models.NotificationTaskAssigned:
		recipient = e.AssigneeID
		text = fmt.Sprintf("You were assigned to task %q", e.TaskTitle)
	case models.NotificationCommentAdded:
		recipient = e.AssigneeID
		text = fmt.Sprintf("New comment on task: %q", e.TaskTitle)
	case models.NotificationMemberAdded:
		recipient = e.MemberID
		text = fmt.Sprintf("You were added to project %q", e.ProjectName)
	case models.NotificationMemberRemoved:
		recipient = e.MemberID
		text = fmt.Sprintf("You were removed from project %q", e.ProjectName)
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}

	if recipient == 0 {
		return fmt.Errorf("event %s of type %s has no recipient", e.ID, e.Type)
	}

	meta, err := json.Marshal(notificationMeta{
		EventID:   e.ID,
		ActorID:   e.ActorID,
		ProjectID: e.ProjectID,
		TaskID:    e.TaskID,
		CommentID: e.CommentID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification meta: %w", err)
	}

	notification := &models.Notification{
		RecipientID: recipient,
		Type:        e.Type,
		Text:        text,
		Meta:        datatypes.JSON(meta),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Warn("Failed to write notification",
			zap.String("event_id", e.ID),
			zap.String("type", string(e.Type)),
			zap.Uint64("recipient_id", recipient),
			zap.Error(err),
		)
		return fmt.Errorf("failed to write notification: %w", err)
	}

	metrics.IncNotificationWritten(string(e.Type))
	return nil
}

// ListNotificationsInput represents filters for listing notifications
type ListNotificationsInput struct {
	RecipientID uint64
	UnreadOnly  bool
	Offset      int
	Limit       int
}

// ListNotifications returns the caller's notifications, newest first
func (s *NotificationService) ListNotifications(ctx context.Context, input ListNotificationsInput) ([]models.Notification, int64, error) {
	notifications, total, err := s.notifications.ListByRecipient(ctx, input.RecipientID, repository.NotificationFilter{
		UnreadOnly: input.UnreadOnly,
		Offset:     input.Offset,
		Limit:      input.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead flags the caller's notifications among ids as read. Ids that do
// not exist or belong to someone else are ignored; an empty list is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID uint64, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	seen := make(map[uint64]struct{}, len(ids))
	unique := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	updated, err := s.notifications.MarkRead(ctx, recipientID, unique)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return updated, nil
}
