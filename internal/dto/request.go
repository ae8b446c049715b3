package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Nullable distinguishes an absent JSON field (Set false) from an explicit
// null (Set true, Value nil).
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Date accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// Ptr returns the date as a *time.Time, nil for a nil receiver.
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// CreateTaskRequest is the body of POST /projects/{pid}/tasks
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Assignee    *uint64 `json:"assignee"`
	DueDate     *Date   `json:"dueDate"`
}

// UpdateTaskRequest is the body of PATCH /projects/{pid}/tasks/{tid}
type UpdateTaskRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Assignee    Nullable[uint64] `json:"assignee"`
	DueDate     Nullable[Date]   `json:"dueDate"`
	Status      *string          `json:"status"`
}

// AttachmentRequest is the body of PATCH /projects/{pid}/tasks/{tid}/attachments
type AttachmentRequest struct {
	Attachment *struct {
		URL        string `json:"url"`
		ExternalID string `json:"externalId"`
		Name       string `json:"name"`
		Size       int64  `json:"size"`
		Mime       string `json:"mime"`
	} `json:"attachment" binding:"required"`
}

// CreateCommentRequest is the body of POST /projects/{pid}/tasks/{tid}/comments
type CreateCommentRequest struct {
	Text    string  `json:"text"`
	ReplyTo *uint64 `json:"replyTo"`
}

// MarkReadRequest is the body of POST /notifications/mark-read
type MarkReadRequest struct {
	IDs []uint64 `json:"ids" binding:"required"`
}

// CreateProjectRequest is the body of POST /projects
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateProjectRequest is the body of PATCH /projects/{pid}
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// AddMemberRequest is the body of POST /projects/{pid}/members
type AddMemberRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role"`
}
