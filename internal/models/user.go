package models

import "time"

// User is provisioned lazily from a verified identity. OpenTasksCount is a
// ledger field maintained by the task lifecycle engine only.
type User struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	ExternalUID    string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`
	Name           string    `gorm:"type:varchar(255)" json:"name"`
	Email          *string   `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	OpenTasksCount int64     `gorm:"not null;default:0" json:"open_tasks_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EmailOrEmpty returns the user's email or "" when none is known.
func (u User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
