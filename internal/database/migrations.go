package database

import (
	"fmt"

	"github.com/yukikurage/synergy-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type compositeIndex struct {
	model   any
	name    string
	columns string
	table   string
}

// AddIndexes adds the composite indexes the hot queries rely on.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []compositeIndex{
		// Task list per project, newest first
		{&models.Task{}, "idx_tasks_project_created", "project_id, created_at", "tasks"},
		// Open-task reconciliation and assignee lookups
		{&models.Task{}, "idx_tasks_assignee_status", "assignee_id, status", "tasks"},
		// Comment thread reads
		{&models.Comment{}, "idx_comments_task_created", "task_id, created_at", "comments"},
		// Inbox reads
		{&models.Notification{}, "idx_notifications_recipient_read", "recipient_id, is_read", "notifications"},
		// Membership lookups by user
		{&models.ProjectMember{}, "idx_project_members_user", "user_id", "project_members"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			log.Debug("Index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("Created index", zap.String("index", idx.name), zap.String("table", idx.table))
	}

	return nil
}
