package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories bound to one database handle, which is either
// the connection pool or a single transaction.
type Store struct {
	db *gorm.DB

	Users         UserRepository
	Projects      ProjectRepository
	Tasks         TaskRepository
	Comments      CommentRepository
	Notifications NotificationRepository
}

// NewStore creates a Store on top of db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepository(db),
		Projects:      NewProjectRepository(db),
		Tasks:         NewTaskRepository(db),
		Comments:      NewCommentRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// Transaction runs fn with a Store bound to a single transaction. Returning an
// error from fn rolls every write back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

type countRow struct {
	RefID uint64
	Total int64
}

func toCountMap(rows []countRow) map[uint64]int64 {
	counts := make(map[uint64]int64, len(rows))
	for _, row := range rows {
		counts[row.RefID] = row.Total
	}
	return counts
}
