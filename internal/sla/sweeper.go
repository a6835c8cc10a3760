package sla

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsdeskhq/opsdesk/internal/event"
	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/store"
)

// Sweeper is the batch breach detector. It runs as a scheduled job and
// is safe to overlap: each alerted task is stamped so a concurrent or
// retried sweep will not alert it again.
type Sweeper struct {
	store  store.Store
	bus    *event.Bus
	logger *slog.Logger

	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// NewSweeper creates a Sweeper publishing breach events on the bus.
func NewSweeper(s store.Store, bus *event.Bus, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:  s,
		bus:    bus,
		logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run performs one breach sweep: for every non-completed task past its
// due date, resolve the assignee's department head and raise a breach
// alert. Tasks whose head cannot be resolved (no assignee, assignee
// without a department, department without a head) are skipped.
// Returns the number of alerts raised.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	now := s.Now()

	tasks, err := s.store.GetBreachCandidates(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("breach sweep: %w", err)
	}

	alerted := 0
	for i := range tasks {
		task := &tasks[i]

		headID, ok := s.resolveHead(ctx, task)
		if !ok {
			s.logger.Debug("breach sweep: no resolvable department head",
				"task_id", task.ID)
			continue
		}

		s.bus.Publish(ctx, event.TaskEvent{
			Kind:        event.KindBreached,
			Task:        *task,
			RecipientID: headID,
		})

		if err := s.store.SetBreachNotified(ctx, task.ID, now); err != nil {
			s.logger.Warn("breach sweep: stamping task failed",
				"task_id", task.ID, "error", err)
			continue
		}
		alerted++
	}

	return alerted, nil
}

// resolveHead walks assignee -> department -> head.
func (s *Sweeper) resolveHead(ctx context.Context, task *model.Task) (int64, bool) {
	if task.AssigneeID == nil {
		return 0, false
	}

	assignee, err := s.store.GetUserByID(ctx, *task.AssigneeID)
	if err != nil || assignee.DepartmentID == nil {
		return 0, false
	}

	dept, err := s.store.GetDepartmentByID(ctx, *assignee.DepartmentID)
	if err != nil || dept.HeadID == nil {
		return 0, false
	}

	return *dept.HeadID, true
}
