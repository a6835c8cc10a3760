package lifecycle

import (
	"context"

	"github.com/opsdeskhq/opsdesk/internal/event"
	"github.com/opsdeskhq/opsdesk/internal/model"
)

// attachAutoWatcher subscribes the assignee's department head to the
// task. No-op when the assignee has no department or the department has
// no head. The watcher upsert is idempotent, so repeat assignments
// never duplicate the row. Runs best-effort: failures are logged, never
// surfaced to the assignment path.
func (e *Engine) attachAutoWatcher(ctx context.Context, task *model.Task, assigneeID int64) {
	assignee, err := e.store.GetUserByID(ctx, assigneeID)
	if err != nil {
		e.logger.Warn("auto-watcher: loading assignee failed",
			"task_id", task.ID, "assignee_id", assigneeID, "error", err)
		return
	}
	if assignee.DepartmentID == nil {
		return
	}

	dept, err := e.store.GetDepartmentByID(ctx, *assignee.DepartmentID)
	if err != nil {
		e.logger.Warn("auto-watcher: loading department failed",
			"task_id", task.ID, "department_id", *assignee.DepartmentID, "error", err)
		return
	}
	if dept.HeadID == nil {
		return
	}

	if err := e.store.UpsertWatcher(ctx, *dept.HeadID, task.ID); err != nil {
		e.logger.Warn("auto-watcher: upsert failed",
			"task_id", task.ID, "head_id", *dept.HeadID, "error", err)
		return
	}

	e.bus.Publish(ctx, event.TaskEvent{
		Kind:        event.KindAutoWatched,
		Task:        *task,
		RecipientID: *dept.HeadID,
	})
}
