// Package notify fans lifecycle events out to users as notifications.
// Delivery is best-effort: a failed write is logged and swallowed, and
// the mutation that triggered it never observes the failure.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsdeskhq/opsdesk/internal/event"
	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/store"
)

// Dispatcher creates notification rows. It is the only component that
// does so; everything else raises events and lets the dispatcher react.
type Dispatcher struct {
	store  store.Store
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher backed by the given store.
func NewDispatcher(s store.Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: s, logger: logger}
}

// Subscribe wires the dispatcher onto the event bus.
func (d *Dispatcher) Subscribe(bus *event.Bus) {
	bus.Subscribe(event.KindStatusChanged, d.onStatusChanged)
	bus.Subscribe(event.KindAssigned, d.onAssigned)
	bus.Subscribe(event.KindPaused, d.onPaused)
	bus.Subscribe(event.KindCommented, d.onCommented)
	bus.Subscribe(event.KindAutoWatched, d.onAutoWatched)
	bus.Subscribe(event.KindBreached, d.onBreached)
}

// Notify writes a single notification for a user. Failures are logged
// and swallowed; the returned notification is nil in that case.
func (d *Dispatcher) Notify(
	ctx context.Context,
	userID int64,
	content string,
	ntype model.NotificationType,
	link string,
) *model.Notification {
	n := model.Notification{
		UserID:  userID,
		Content: content,
		Type:    ntype,
		Link:    link,
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		d.logger.Warn("notification write failed",
			"user_id", userID,
			"type", string(ntype),
			"error", err,
		)
		return nil
	}
	return &n
}

// NotifyWatchers sends one notification to each watcher of a task.
// Watcher rows are unique per (user, task), so each watcher is reached
// exactly once.
func (d *Dispatcher) NotifyWatchers(
	ctx context.Context,
	taskID int64,
	content string,
	ntype model.NotificationType,
) {
	watchers, err := d.store.GetWatchers(ctx, taskID)
	if err != nil {
		d.logger.Warn("loading watchers for fan-out failed",
			"task_id", taskID,
			"error", err,
		)
		return
	}

	link := taskLink(taskID)
	for _, w := range watchers {
		d.Notify(ctx, w.UserID, content, ntype, link)
	}
}

func (d *Dispatcher) onStatusChanged(ctx context.Context, ev event.TaskEvent) error {
	if ev.NewStatus != model.StatusReview {
		return nil
	}
	d.NotifyWatchers(ctx, ev.Task.ID,
		fmt.Sprintf("Task %q is ready for review", ev.Task.Title),
		model.NotifyReviewReady,
	)
	return nil
}

func (d *Dispatcher) onAssigned(ctx context.Context, ev event.TaskEvent) error {
	d.Notify(ctx, ev.AssigneeID,
		fmt.Sprintf("You have been assigned task %q", ev.Task.Title),
		model.NotifyAssignment,
		taskLink(ev.Task.ID),
	)
	return nil
}

func (d *Dispatcher) onPaused(ctx context.Context, ev event.TaskEvent) error {
	d.Notify(ctx, ev.Task.ReporterID,
		fmt.Sprintf("Task %q is awaiting info: %s", ev.Task.Title, ev.Reason),
		model.NotifyTaskPaused,
		taskLink(ev.Task.ID),
	)
	return nil
}

func (d *Dispatcher) onCommented(ctx context.Context, ev event.TaskEvent) error {
	d.NotifyWatchers(ctx, ev.Task.ID,
		fmt.Sprintf("New comment on task %q", ev.Task.Title),
		model.NotifyComment,
	)
	return nil
}

func (d *Dispatcher) onAutoWatched(ctx context.Context, ev event.TaskEvent) error {
	d.Notify(ctx, ev.RecipientID,
		fmt.Sprintf("You are now watching task %q (department escalation)", ev.Task.Title),
		model.NotifyAutoWatcher,
		taskLink(ev.Task.ID),
	)
	return nil
}

func (d *Dispatcher) onBreached(ctx context.Context, ev event.TaskEvent) error {
	d.Notify(ctx, ev.RecipientID,
		fmt.Sprintf("SLA breached on task %q", ev.Task.Title),
		model.NotifyBreachAlert,
		taskLink(ev.Task.ID),
	)
	return nil
}

func taskLink(taskID int64) string {
	return fmt.Sprintf("/tasks/%d", taskID)
}
