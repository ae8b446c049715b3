package repository

import (
	"context"
	"time"

	"github.com/yukikurage/synergy-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindInProject finds a task by ID within a project with optional preloading
func (r *GormTaskRepository) FindInProject(ctx context.Context, projectID, taskID uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	for _, p := range preload {
		if p == "Attachments" {
			query = query.Preload(p, func(db *gorm.DB) *gorm.DB {
				return db.Order("uploaded_at ASC, id ASC")
			})
			continue
		}
		query = query.Preload(p)
	}

	if err := query.Where("id = ? AND project_id = ?", taskID, projectID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *GormTaskRepository) ListByProject(ctx context.Context, projectID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Preload("Assignee").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at ASC, id ASC")
		}).
		Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateFields is a compare-and-swap on the task's version column.
func (r *GormTaskRepository) UpdateFields(ctx context.Context, taskID, version uint64, fields map[string]any) error {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	result := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND version = ?", taskID, version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *GormTaskRepository) Touch(ctx context.Context, taskID uint64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", taskID).
		UpdateColumn("updated_at", at).Error
}

func (r *GormTaskRepository) AddAttachment(ctx context.Context, attachment *models.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *GormTaskRepository) Delete(ctx context.Context, taskID, version uint64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND version = ?", taskID, version).
		Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&models.Attachment{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&models.Comment{}).Error
}

func (r *GormTaskRepository) CountByProject(ctx context.Context) (map[uint64]int64, error) {
	var rows []countRow
	if err := r.db.WithContext(ctx).Model(&models.Task{}).
		Select("project_id AS ref_id, COUNT(*) AS total").
		Group("project_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toCountMap(rows), nil
}

func (r *GormTaskRepository) CountOpenByAssignee(ctx context.Context) (map[uint64]int64, error) {
	var rows []countRow
	if err := r.db.WithContext(ctx).Model(&models.Task{}).
		Select("assignee_id AS ref_id, COUNT(*) AS total").
		Where("assignee_id IS NOT NULL AND status <> ?", models.TaskStatusDone).
		Group("assignee_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toCountMap(rows), nil
}

func (r *GormTaskRepository) CountOverdue(ctx context.Context, projectID uint64, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("project_id = ? AND due_date IS NOT NULL AND due_date < ? AND status <> ?", projectID, now, models.TaskStatusDone).
		Count(&count).Error
	return count, err
}
