// Package lifecycle implements the task state machine: guarded status
// transitions, ticket processing, pause handling, and the assignment
// side effects (auto-watcher escalation, events for notification
// fan-out).
//
// Concurrency: mutations follow a single-writer-per-request model. Two
// concurrent calls on the same task race at the storage layer and the
// last write wins; the loser's audit entry may record a stale old
// value. This is an accepted weak-consistency design.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsdeskhq/opsdesk/internal/event"
	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/sla"
	"github.com/opsdeskhq/opsdesk/internal/store"
)

// Engine validates and applies task lifecycle mutations. All
// operations take the acting principal explicitly; nothing is read
// from ambient state.
type Engine struct {
	store        store.Store
	bus          *event.Bus
	logger       *slog.Logger
	defaultSLAID int64

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewEngine creates an Engine. defaultSLAID is applied when ticket
// processing supplies neither an SLA nor a manual due date.
func NewEngine(s store.Store, bus *event.Bus, defaultSLAID int64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:        s,
		bus:          bus,
		logger:       logger,
		defaultSLAID: defaultSLAID,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Advance requests a status transition on a task. Guards are evaluated
// in precedence order; the first matching rule governs:
//
//  1. Privileged roles (super-admin, admin, client-service) bypass all
//     per-user guards.
//  2. Into RECEIVED or IN_PROGRESS: only the current assignee.
//  3. Into COMPLETED: privileged roles only, even for the assignee.
//  4. Anything else: the actor must be the current assignee.
//
// Re-requesting the current status is a legal no-op transition and
// still records an audit entry. Terminal states permit no transition.
func (e *Engine) Advance(
	ctx context.Context,
	taskID int64,
	target model.Status,
	actor model.Principal,
) (*model.Task, error) {
	if !target.Valid() {
		return nil, validationErr("unknown status %q", target)
	}

	task, err := e.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status.Terminal() {
		return nil, validationErr(
			"task %d is %s and permits no further transitions", taskID, task.Status,
		)
	}

	if err := e.checkAdvanceGuards(task, target, actor); err != nil {
		return nil, err
	}

	old := task.Status
	e.applyStatus(task, target)

	entry := &model.AuditEntry{
		ActorID:  actor.UserID,
		Action:   model.AuditStatusChange,
		OldValue: string(old),
		NewValue: string(target),
	}
	if err := e.store.UpdateTaskWithAudit(ctx, task, entry); err != nil {
		return nil, fmt.Errorf("advancing task %d: %w", taskID, err)
	}

	e.bus.Publish(ctx, event.TaskEvent{
		Kind:      event.KindStatusChanged,
		Task:      *task,
		ActorID:   actor.UserID,
		OldStatus: old,
		NewStatus: target,
	})

	return task, nil
}

// checkAdvanceGuards applies the role/relationship rules for a status
// transition. Precedence matters: privileged bypass first, then the
// target-specific rules.
func (e *Engine) checkAdvanceGuards(
	task *model.Task,
	target model.Status,
	actor model.Principal,
) error {
	if actor.Privileged() {
		return nil
	}

	isAssignee := task.AssigneeID != nil && *task.AssigneeID == actor.UserID

	switch target {
	case model.StatusReceived, model.StatusInProgress:
		if !isAssignee {
			return guardErr(GuardLockViolation,
				"only the assignee may move task %d into %s", task.ID, target)
		}
	case model.StatusCompleted:
		return guardErr(GuardOperationalBarrier,
			"completing task %d requires an admin or client-service role", task.ID)
	default:
		if !isAssignee {
			return guardErr(GuardIdentityMismatch,
				"user %d is not the assignee of task %d", actor.UserID, task.ID)
		}
	}

	return nil
}

// applyStatus sets the new status and its timestamp side effects.
func (e *Engine) applyStatus(task *model.Task, target model.Status) {
	now := e.now()

	if target == model.StatusInProgress {
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
		// Resuming from AWAITING_INFO clears the stored reason.
		task.PauseReason = ""
	}
	if target == model.StatusCompleted && task.CompletedAt == nil {
		task.CompletedAt = &now
	}

	task.Status = target
}

// CreateTaskInput carries the fields for manual task creation.
type CreateTaskInput struct {
	Title        string
	Description  string
	SLAID        int64 // 0 selects the default SLA
	DueAt        *time.Time
	ProjectID    *int64
	DepartmentID *int64
	AssigneeID   *int64
}

// CreateTask creates a task in PENDING. The due date comes from the SLA
// template unless a manual override is supplied; once set it is only
// changed by an explicit override. An initial assignee triggers the
// assignment side effects.
func (e *Engine) CreateTask(
	ctx context.Context,
	in CreateTaskInput,
	actor model.Principal,
) (*model.Task, error) {
	if in.Title == "" {
		return nil, validationErr("task title is required")
	}

	slaID := in.SLAID
	if slaID == 0 {
		slaID = e.defaultSLAID
	}
	tmpl, err := e.store.GetSLAByID(ctx, slaID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	dueAt := in.DueAt
	if dueAt == nil {
		d := sla.ComputeDueDate(tmpl.DurationHrs, now)
		dueAt = &d
	}

	task := &model.Task{
		Title:        in.Title,
		Description:  in.Description,
		Status:       model.StatusPending,
		DueAt:        dueAt,
		ProjectID:    in.ProjectID,
		SLAID:        slaID,
		DepartmentID: in.DepartmentID,
		AssigneeID:   in.AssigneeID,
		ReporterID:   actor.UserID,
		CreatedAt:    now,
	}

	entry := &model.AuditEntry{
		ActorID:  actor.UserID,
		Action:   model.AuditTaskCreated,
		NewValue: in.Title,
	}
	if err := e.store.CreateTaskWithAudit(ctx, task, entry); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	if in.AssigneeID != nil {
		e.afterAssignment(ctx, task, *in.AssigneeID, actor.UserID)
	}

	return task, nil
}

// Assign sets or changes a task's assignee. Restricted to privileged
// roles; records a TASK_ASSIGNED audit entry and runs the assignment
// side effects.
func (e *Engine) Assign(
	ctx context.Context,
	taskID, assigneeID int64,
	actor model.Principal,
) (*model.Task, error) {
	if !actor.Privileged() {
		return nil, guardErr(GuardPrivilegeRequired,
			"assigning tasks requires an admin or client-service role")
	}

	task, err := e.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, validationErr(
			"task %d is %s and cannot be reassigned", taskID, task.Status,
		)
	}
	if _, err := e.store.GetUserByID(ctx, assigneeID); err != nil {
		return nil, err
	}

	oldAssignee := ""
	if task.AssigneeID != nil {
		oldAssignee = fmt.Sprintf("%d", *task.AssigneeID)
	}
	task.AssigneeID = &assigneeID

	entry := &model.AuditEntry{
		ActorID:  actor.UserID,
		Action:   model.AuditTaskAssigned,
		OldValue: oldAssignee,
		NewValue: fmt.Sprintf("%d", assigneeID),
	}
	if err := e.store.UpdateTaskWithAudit(ctx, task, entry); err != nil {
		return nil, fmt.Errorf("assigning task %d: %w", taskID, err)
	}

	e.afterAssignment(ctx, task, assigneeID, actor.UserID)

	return task, nil
}

// PauseTask forces a task into AWAITING_INFO with a reason. Callable by
// any authenticated actor; the reporter is notified.
func (e *Engine) PauseTask(
	ctx context.Context,
	taskID int64,
	reason string,
	actor model.Principal,
) (*model.Task, error) {
	if reason == "" {
		return nil, validationErr("pause reason is required")
	}

	task, err := e.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, validationErr(
			"task %d is %s and cannot be paused", taskID, task.Status,
		)
	}

	old := task.Status
	task.Status = model.StatusAwaitingInfo
	task.PauseReason = reason

	entry := &model.AuditEntry{
		ActorID:  actor.UserID,
		Action:   model.AuditTaskPaused,
		OldValue: string(old),
		NewValue: reason,
	}
	if err := e.store.UpdateTaskWithAudit(ctx, task, entry); err != nil {
		return nil, fmt.Errorf("pausing task %d: %w", taskID, err)
	}

	e.bus.Publish(ctx, event.TaskEvent{
		Kind:    event.KindPaused,
		Task:    *task,
		ActorID: actor.UserID,
		Reason:  reason,
	})

	return task, nil
}

// AddComment appends a message to a task's conversation and notifies
// its watchers.
func (e *Engine) AddComment(
	ctx context.Context,
	taskID int64,
	body string,
	actor model.Principal,
) (*model.Message, error) {
	if body == "" {
		return nil, validationErr("comment body is required")
	}

	task, err := e.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		TaskID:   taskID,
		AuthorID: &actor.UserID,
		Body:     body,
	}
	entry := &model.AuditEntry{
		ActorID: actor.UserID,
		Action:  model.AuditCommentAdded,
	}
	if err := e.store.CreateMessageWithAudit(ctx, msg, entry); err != nil {
		return nil, fmt.Errorf("commenting on task %d: %w", taskID, err)
	}

	e.bus.Publish(ctx, event.TaskEvent{
		Kind:        event.KindCommented,
		Task:        *task,
		ActorID:     actor.UserID,
		CommentBody: body,
	})

	return msg, nil
}

// afterAssignment runs the fire-and-forget side effects of setting an
// assignee: the ASSIGNMENT notification and the auto-watcher
// escalation. Failures never affect the primary mutation.
func (e *Engine) afterAssignment(ctx context.Context, task *model.Task, assigneeID, actorID int64) {
	e.bus.Publish(ctx, event.TaskEvent{
		Kind:       event.KindAssigned,
		Task:       *task,
		ActorID:    actorID,
		AssigneeID: assigneeID,
	})

	e.attachAutoWatcher(ctx, task, assigneeID)
}
