package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/synergy-api/internal/dto"
	apierrors "github.com/yukikurage/synergy-api/internal/errors"
	"github.com/yukikurage/synergy-api/internal/middleware"
	"github.com/yukikurage/synergy-api/internal/models"
	"github.com/yukikurage/synergy-api/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the tasks of a project
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), projectID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks))
}

// GetTask returns a specific task
func (h *TaskHandler) GetTask(c *gin.Context) {
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

	task, err := h.taskService.GetTask(c.Request.Context(), projectID, taskID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		ProjectID:   projectID,
		ActorID:     userID,
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.Assignee,
		DueDate:     req.DueDate.Ptr(),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update. An explicit null assignee or dueDate
// clears the field.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
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

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		input.Status = &status
	}
	if req.Assignee.Set {
		input.AssigneeID = req.Assignee.Value
		input.ClearAssignee = req.Assignee.Value == nil
	}
	if req.DueDate.Set {
		input.DueDate = req.DueDate.Value.Ptr()
		input.ClearDueDate = req.DueDate.Value == nil
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), projectID, taskID, userID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// AddAttachment appends an uploaded file's descriptor to a task
func (h *TaskHandler) AddAttachment(c *gin.Context) {
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

	var req dto.AttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Attachment == nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.AddAttachment(c.Request.Context(), projectID, taskID, userID, services.AttachmentInput{
		URL:        req.Attachment.URL,
		ExternalID: req.Attachment.ExternalID,
		Name:       req.Attachment.Name,
		Size:       req.Attachment.Size,
		Mime:       req.Attachment.Mime,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
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

	if err := h.taskService.DeleteTask(c.Request.Context(), projectID, taskID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}
