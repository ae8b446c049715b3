package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/yukikurage/synergy-api/internal/metrics"
	"github.com/yukikurage/synergy-api/internal/repository"
	"go.uber.org/zap"
)

const (
	CounterTotalTasks     = "total_tasks"
	CounterOpenTasksCount = "open_tasks_count"
)

// Drift is a counter whose stored value disagrees with the task rows.
type Drift struct {
	Counter string `json:"counter"`
	ID      uint64 `json:"id"`
	Stored  int64  `json:"stored"`
	Actual  int64  `json:"actual"`
}

// ReconcileReport lists every drifted counter found by a reconciliation pass.
type ReconcileReport struct {
	Drifts []Drift `json:"drifts"`
	Fixed  bool    `json:"fixed"`
}

// LedgerService recomputes the counters from scratch and compares them with
// the incrementally maintained values.
type LedgerService struct {
	store  *repository.Store
	logger *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(store *repository.Store, logger *zap.Logger) *LedgerService {
	return &LedgerService{store: store, logger: logger}
}

// Reconcile reports counter drift. With fix set, drifted counters are
// overwritten with the recomputed values in the same transaction.
func (s *LedgerService) Reconcile(ctx context.Context, fix bool) (*ReconcileReport, error) {
	report := &ReconcileReport{Drifts: []Drift{}}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		projectDrift, err := projectDrifts(ctx, tx)
		if err != nil {
			return err
		}
		userDrift, err := userDrifts(ctx, tx)
		if err != nil {
			return err
		}
		report.Drifts = append(projectDrift, userDrift...)

		metrics.SetLedgerDrift(CounterTotalTasks, len(projectDrift))
		metrics.SetLedgerDrift(CounterOpenTasksCount, len(userDrift))

		if !fix {
			return nil
		}

		for _, d := range report.Drifts {
			var err error
			switch d.Counter {
			case CounterTotalTasks:
				err = tx.Projects.SetTotalTasks(ctx, d.ID, d.Actual)
			case CounterOpenTasksCount:
				err = tx.Users.SetOpenTasksCount(ctx, d.ID, d.Actual)
			}
			if err != nil {
				return fmt.Errorf("failed to fix %s for %d: %w", d.Counter, d.ID, err)
			}
		}
		report.Fixed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(report.Drifts) > 0 {
		s.logger.Warn("Counter drift detected", zap.Int("drifts", len(report.Drifts)), zap.Bool("fixed", report.Fixed))
	}
	return report, nil
}

func projectDrifts(ctx context.Context, tx *repository.Store) ([]Drift, error) {
	stored, err := tx.Projects.ListTaskTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read task totals: %w", err)
	}
	actual, err := tx.Tasks.CountByProject(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	return diffCounts(CounterTotalTasks, stored, actual), nil
}

func userDrifts(ctx context.Context, tx *repository.Store) ([]Drift, error) {
	stored, err := tx.Users.ListOpenTaskCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read open task counts: %w", err)
	}
	actual, err := tx.Tasks.CountOpenByAssignee(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count open tasks: %w", err)
	}
	return diffCounts(CounterOpenTasksCount, stored, actual), nil
}

// diffCounts compares every stored counter with its recomputed value. Rows
// without a stored counter (e.g. tasks assigned to a deleted user) are skipped.
func diffCounts(counter string, stored, actual map[uint64]int64) []Drift {
	drifts := make([]Drift, 0)
	for id, value := range stored {
		if value != actual[id] {
			drifts = append(drifts, Drift{Counter: counter, ID: id, Stored: value, Actual: actual[id]})
		}
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].ID < drifts[j].ID })
	return drifts
}
