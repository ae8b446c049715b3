package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/synergy-api/internal/models"
)

// Event is a domain event emitted after a lifecycle, comment or membership
// mutation has committed. Fan-out derives exactly one recipient from it.
type Event struct {
	ID          string                  `json:"id"`
	Type        models.NotificationType `json:"type"`
	ActorID     uint64                  `json:"actor_id"`
	ProjectID   uint64                  `json:"project_id"`
	ProjectName string                  `json:"project_name,omitempty"`
	TaskID      uint64                  `json:"task_id,omitempty"`
	TaskTitle   string                  `json:"task_title,omitempty"`
	CommentID   uint64                  `json:"comment_id,omitempty"`
	AssigneeID  uint64                  `json:"assignee_id,omitempty"`
	MemberID    uint64                  `json:"member_id,omitempty"`
	OccurredAt  time.Time               `json:"occurred_at"`
}

// NewEvent stamps a fresh id and timestamp.
func NewEvent(eventType models.NotificationType) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}

// RoutingKey is the topic routing key used on the message broker.
func (e Event) RoutingKey() string {
	return "notification." + string(e.Type)
}

// Publisher accepts events without blocking the caller on delivery. Delivery
// failures never reach the publisher's caller.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Handler consumes one event.
type Handler func(ctx context.Context, e Event) error
