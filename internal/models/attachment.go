package models

import "time"

// Attachment describes a file held by external object storage. Rows are only
// ever inserted, so concurrent uploads never overwrite one another.
type Attachment struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	TaskID       uint64    `gorm:"not null;index" json:"task_id"`
	URL          string    `gorm:"type:varchar(2048);not null" json:"url"`
	ExternalID   string    `gorm:"type:varchar(255);not null" json:"external_id"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	Size         int64     `json:"size"`
	Mime         string    `gorm:"type:varchar(255)" json:"mime"`
	UploaderID   uint64    `gorm:"not null" json:"uploader_id"`
	UploaderName string    `gorm:"type:varchar(255)" json:"uploader_name"`
	UploadedAt   time.Time `gorm:"not null" json:"uploaded_at"`
}

func (Attachment) TableName() string {
	return "task_attachments"
}
