package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationTaskAssigned  NotificationType = "task_assigned"
	NotificationCommentAdded  NotificationType = "comment_added"
	NotificationMemberAdded   NotificationType = "member_added"
	NotificationMemberRemoved NotificationType = "member_removed"
)

type Notification struct {
	ID          uint64           `gorm:"primarykey" json:"id"`
	RecipientID uint64           `gorm:"not null;index" json:"recipient_id"`
	Type        NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Text        string           `gorm:"type:text" json:"text"`
	Meta        datatypes.JSON   `json:"meta"`
	Read        bool             `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}
