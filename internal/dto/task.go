package dto

import (
	"time"

	"github.com/yukikurage/synergy-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	OpenTasksCount int64  `json:"openTasksCount"`
}

// AttachmentDTO represents a task attachment in API responses
type AttachmentDTO struct {
	ID           uint64    `json:"id"`
	URL          string    `json:"url"`
	ExternalID   string    `json:"externalId"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	Mime         string    `json:"mime"`
	UploaderID   uint64    `json:"uploaderId"`
	UploaderName string    `json:"uploaderName"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID           uint64            `json:"id"`
	ProjectID    uint64            `json:"projectId"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Assignee     *uint64           `json:"assignee"`
	AssigneeUser *UserDTO          `json:"assigneeUser,omitempty"`
	Status       models.TaskStatus `json:"status"`
	DueDate      *time.Time        `json:"dueDate"`
	Attachments  []AttachmentDTO   `json:"attachments"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.EmailOrEmpty(),
		OpenTasksCount: user.OpenTasksCount,
	}
}

// ToAttachmentDTO converts an Attachment model to AttachmentDTO
func ToAttachmentDTO(a models.Attachment) AttachmentDTO {
	return AttachmentDTO{
		ID:           a.ID,
		URL:          a.URL,
		ExternalID:   a.ExternalID,
		Name:         a.Name,
		Size:         a.Size,
		Mime:         a.Mime,
		UploaderID:   a.UploaderID,
		UploaderName: a.UploaderName,
		UploadedAt:   a.UploadedAt,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		ProjectID:   task.ProjectID,
		Title:       task.Title,
		Description: task.Description,
		Assignee:    task.AssigneeID,
		Status:      task.Status,
		DueDate:     task.DueDate,
		Attachments: make([]AttachmentDTO, len(task.Attachments)),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	// Include assignee if preloaded
	if task.Assignee != nil && task.Assignee.ID != 0 {
		assignee := ToUserDTO(*task.Assignee)
		dto.AssigneeUser = &assignee
	}

	for i, a := range task.Attachments {
		dto.Attachments[i] = ToAttachmentDTO(a)
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return items
}
