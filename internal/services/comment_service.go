package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/synergy-api/internal/events"
	"github.com/yukikurage/synergy-api/internal/models"
	"github.com/yukikurage/synergy-api/internal/repository"
	"gorm.io/gorm"
)

// CommentService stores flat comments and rebuilds their reply tree on read.
type CommentService struct {
	store      *repository.Store
	membership *MembershipService
	publisher  events.Publisher
}

// NewCommentService creates a new CommentService
func NewCommentService(store *repository.Store, membership *MembershipService, publisher events.Publisher) *CommentService {
	return &CommentService{
		store:      store,
		membership: membership,
		publisher:  publisher,
	}
}

// AddCommentInput represents input for adding a comment
type AddCommentInput struct {
	ProjectID uint64
	TaskID    uint64
	AuthorID  uint64
	Text      string
	ReplyTo   *uint64
}

// CommentNode is a comment together with its direct replies.
type CommentNode struct {
	Comment models.Comment
	Replies []*CommentNode
}

// AddComment adds a comment to a task, optionally replying to an earlier
// comment on the same task.
func (s *CommentService) AddComment(ctx context.Context, input AddCommentInput) (*models.Comment, error) {
	if _, err := s.membership.Authorize(ctx, input.ProjectID, input.AuthorID); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, ErrTextRequired
	}

	task, err := findTask(ctx, s.store, input.ProjectID, input.TaskID)
	if err != nil {
		return nil, err
	}

	if input.ReplyTo != nil {
		if _, err := s.store.Comments.FindInTask(ctx, task.ID, *input.ReplyTo); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrReplyTargetMissing
			}
			return nil, fmt.Errorf("failed to load reply target: %w", err)
		}
	}

	comment := &models.Comment{
		ProjectID: task.ProjectID,
		TaskID:    task.ID,
		AuthorID:  input.AuthorID,
		Text:      text,
		ReplyToID: input.ReplyTo,
	}
	if err := s.store.Comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if author, err := s.store.Users.FindByID(ctx, input.AuthorID); err == nil {
		comment.Author = author
	}

	if task.AssigneeID != nil && *task.AssigneeID != input.AuthorID {
		event := events.NewEvent(models.NotificationCommentAdded)
		event.ActorID = input.AuthorID
		event.ProjectID = task.ProjectID
		event.TaskID = task.ID
		event.TaskTitle = task.Title
		event.CommentID = comment.ID
		event.AssigneeID = *task.AssigneeID
		s.publisher.Publish(ctx, event)
	}

	return comment, nil
}

// ListComments returns the task's comment tree. Each level is ordered by
// creation time.
func (s *CommentService) ListComments(ctx context.Context, projectID, taskID, actorID uint64) ([]*CommentNode, error) {
	if _, err := s.membership.Authorize(ctx, projectID, actorID); err != nil {
		return nil, err
	}

	task, err := findTask(ctx, s.store, projectID, taskID)
	if err != nil {
		return nil, err
	}

	comments, err := s.store.Comments.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return buildCommentTree(comments), nil
}

// buildCommentTree links flat comments, given in creation order, into a
// forest keyed by reply target. A comment whose target is absent is a root.
func buildCommentTree(comments []models.Comment) []*CommentNode {
	nodes := make(map[uint64]*CommentNode, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &CommentNode{Comment: c, Replies: []*CommentNode{}}
	}

	roots := make([]*CommentNode, 0)
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ReplyToID != nil {
			if parent, ok := nodes[*c.ReplyToID]; ok && parent != node {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
