package models

import "time"

type ProjectRole string

const (
	RoleOwner  ProjectRole = "owner"
	RoleMember ProjectRole = "member"
)

// Valid reports whether r is one of the known roles.
func (r ProjectRole) Valid() bool {
	switch r {
	case RoleOwner, RoleMember:
		return true
	default:
		return false
	}
}

// CanManageProject reports whether the role may rename the project and
// add or remove members. Unknown roles are never privileged.
func (r ProjectRole) CanManageProject() bool {
	switch r {
	case RoleOwner:
		return true
	case RoleMember:
		return false
	default:
		return false
	}
}

type ProjectMember struct {
	ProjectID   uint64      `gorm:"primarykey" json:"project_id"`
	UserID      uint64      `gorm:"primarykey" json:"user_id"`
	Role        ProjectRole `gorm:"type:varchar(20);not null" json:"role"`
	DisplayName string      `gorm:"type:varchar(255)" json:"display_name"`
	Email       string      `gorm:"type:varchar(255)" json:"email"`
	JoinedAt    time.Time   `json:"joined_at"`
}
