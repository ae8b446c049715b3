package dto

import (
	"time"

	"github.com/yukikurage/synergy-api/internal/models"
)

// MemberDTO represents a project member in API responses
type MemberDTO struct {
	UserID      uint64             `json:"userId"`
	Role        models.ProjectRole `json:"role"`
	DisplayName string             `json:"displayName"`
	Email       string             `json:"email"`
	JoinedAt    time.Time          `json:"joinedAt"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID           uint64      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	CreatedBy    uint64      `json:"createdBy"`
	TotalTasks   int64       `json:"totalTasks"`
	OverdueCount *int64      `json:"overdueCount,omitempty"`
	Members      []MemberDTO `json:"members,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// ToMemberDTO converts a ProjectMember model to MemberDTO
func ToMemberDTO(m models.ProjectMember) MemberDTO {
	return MemberDTO{
		UserID:      m.UserID,
		Role:        m.Role,
		DisplayName: m.DisplayName,
		Email:       m.Email,
		JoinedAt:    m.JoinedAt,
	}
}

// ToProjectDTO converts a Project model to ProjectDTO. Members are included
// when preloaded.
func ToProjectDTO(p models.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   p.CreatedBy,
		TotalTasks:  p.TotalTasks,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	if len(p.Members) > 0 {
		dto.Members = make([]MemberDTO, len(p.Members))
		for i, m := range p.Members {
			dto.Members[i] = ToMemberDTO(m)
		}
	}
	return dto
}

// ToProjectDetailDTO adds the derived overdue count
func ToProjectDetailDTO(p models.Project, overdue int64) ProjectDTO {
	dto := ToProjectDTO(p)
	dto.OverdueCount = &overdue
	return dto
}
