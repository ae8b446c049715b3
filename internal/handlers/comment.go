package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/synergy-api/internal/dto"
	apierrors "github.com/yukikurage/synergy-api/internal/errors"
	"github.com/yukikurage/synergy-api/internal/middleware"
	"github.com/yukikurage/synergy-api/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// AddComment posts a comment, optionally as a reply
func (h *CommentHandler) AddComment(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	taskID, ok := idParam(c, "tid")
	if !ok {
		return
	}

	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(c.Request.Context(), services.AddCommentInput{
		ProjectID: projectID,
		TaskID:    taskID,
		AuthorID:  userID,
		Text:      req.Text,
		ReplyTo:   req.ReplyTo,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

// ListComments returns the task's comment tree
func (h *CommentHandler) ListComments(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	taskID, ok := idParam(c, "tid")
	if !ok {
		return
	}

	tree, err := h.commentService.ListComments(c.Request.Context(), projectID, taskID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCommentTree(tree))
}
