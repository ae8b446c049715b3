package services

import "github.com/yukikurage/synergy-api/internal/models"

// taskState is the part of a task that the counter ledger depends on.
type taskState struct {
	assignee *uint64
	status   models.TaskStatus
}

// openContribution is the open-task count a state adds to its assignee.
func (s taskState) openContribution() (uint64, int64) {
	if s.assignee == nil || !s.status.IsOpen() {
		return 0, 0
	}
	return *s.assignee, 1
}

// openTaskDeltas returns the openTasksCount adjustment per user for a task
// moving from before to after. Users whose count does not change are absent.
// A nil before means the task is being created, a nil after that it is removed.
func openTaskDeltas(before, after *taskState) map[uint64]int64 {
	deltas := make(map[uint64]int64, 2)
	if before != nil {
		if id, n := before.openContribution(); n != 0 {
			deltas[id] -= n
		}
	}
	if after != nil {
		if id, n := after.openContribution(); n != 0 {
			deltas[id] += n
		}
	}
	for id, d := range deltas {
		if d == 0 {
			delete(deltas, id)
		}
	}
	return deltas
}
