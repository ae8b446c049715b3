package dto

import (
	"time"

	"github.com/yukikurage/synergy-api/internal/models"
	"github.com/yukikurage/synergy-api/internal/services"
)

// CommentDTO represents a comment in API responses
type CommentDTO struct {
	ID        uint64    `json:"id"`
	ProjectID uint64    `json:"projectId"`
	TaskID    uint64    `json:"taskId"`
	AuthorID  uint64    `json:"authorId"`
	Author    *UserDTO  `json:"author,omitempty"`
	Text      string    `json:"text"`
	ReplyTo   *uint64   `json:"replyTo"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentNodeDTO is a comment with its replies, nested to any depth
type CommentNodeDTO struct {
	CommentDTO
	Replies []CommentNodeDTO `json:"replies"`
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(c models.Comment) CommentDTO {
	dto := CommentDTO{
		ID:        c.ID,
		ProjectID: c.ProjectID,
		TaskID:    c.TaskID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		ReplyTo:   c.ReplyToID,
		CreatedAt: c.CreatedAt,
	}
	if c.Author != nil && c.Author.ID != 0 {
		author := ToUserDTO(*c.Author)
		dto.Author = &author
	}
	return dto
}

// ToCommentTree converts a comment forest
func ToCommentTree(nodes []*services.CommentNode) []CommentNodeDTO {
	tree := make([]CommentNodeDTO, len(nodes))
	for i, n := range nodes {
		tree[i] = CommentNodeDTO{
			CommentDTO: ToCommentDTO(n.Comment),
			Replies:    ToCommentTree(n.Replies),
		}
	}
	return tree
}
