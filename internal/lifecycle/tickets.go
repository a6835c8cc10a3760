package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeskhq/opsdesk/internal/event"
	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/sla"
)

// ProcessTicketInput carries the routing decisions for an intake ticket.
type ProcessTicketInput struct {
	DepartmentID int64
	SLAID        *int64
	AssigneeID   *int64
	Description  *string
	DueAt        *time.Time
}

// ProcessTicket routes an intake ticket: assigns its department and
// SLA, optionally an assignee and overrides, and moves it into
// IN_PROGRESS when an assignee was given (PENDING otherwise).
// Restricted to privileged roles. When neither an SLA nor a manual due
// date is supplied, the configured default SLA applies.
func (e *Engine) ProcessTicket(
	ctx context.Context,
	taskID int64,
	in ProcessTicketInput,
	actor model.Principal,
) (*model.Task, error) {
	if !actor.Privileged() {
		return nil, guardErr(GuardPrivilegeRequired,
			"processing tickets requires an admin or client-service role")
	}
	if in.DepartmentID == 0 {
		return nil, validationErr("ticket processing requires a department")
	}

	task, err := e.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, validationErr(
			"task %d is %s and cannot be processed", taskID, task.Status,
		)
	}

	if _, err := e.store.GetDepartmentByID(ctx, in.DepartmentID); err != nil {
		return nil, err
	}

	slaID := e.defaultSLAID
	if in.SLAID != nil {
		slaID = *in.SLAID
	}

	old := task.Status

	task.DepartmentID = &in.DepartmentID
	task.SLAID = slaID
	task.IsTicket = true
	if in.Description != nil {
		task.Description = *in.Description
	}

	switch {
	case in.DueAt != nil:
		task.DueAt = in.DueAt
	case task.DueAt == nil || in.SLAID != nil:
		tmpl, err := e.store.GetSLAByID(ctx, slaID)
		if err != nil {
			return nil, err
		}
		d := sla.ComputeDueDate(tmpl.DurationHrs, e.now())
		task.DueAt = &d
	}

	entry := &model.AuditEntry{
		ActorID:  actor.UserID,
		OldValue: string(old),
	}

	if in.AssigneeID != nil {
		if _, err := e.store.GetUserByID(ctx, *in.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = in.AssigneeID
		e.applyStatus(task, model.StatusInProgress)
		entry.Action = model.AuditTicketAssigned
		entry.NewValue = fmt.Sprintf("%d", *in.AssigneeID)
	} else {
		task.Status = model.StatusPending
		entry.Action = model.AuditStatusChange
		entry.NewValue = string(model.StatusPending)
	}

	if err := e.store.UpdateTaskWithAudit(ctx, task, entry); err != nil {
		return nil, fmt.Errorf("processing ticket %d: %w", taskID, err)
	}

	e.bus.Publish(ctx, event.TaskEvent{
		Kind:      event.KindStatusChanged,
		Task:      *task,
		ActorID:   actor.UserID,
		OldStatus: old,
		NewStatus: task.Status,
	})

	if in.AssigneeID != nil {
		e.afterAssignment(ctx, task, *in.AssigneeID, actor.UserID)
	}

	return task, nil
}

// DismissTicket rejects a ticket at the intake stage, transitioning it
// to DISMISSED regardless of its current non-terminal state. Restricted
// to privileged roles. Dismissal is a terminal status, not removal; the
// row and its audit trail remain.
func (e *Engine) DismissTicket(
	ctx context.Context,
	taskID int64,
	actor model.Principal,
) (*model.Task, error) {
	if !actor.Privileged() {
		return nil, guardErr(GuardPrivilegeRequired,
			"dismissing tickets requires an admin or client-service role")
	}

	task, err := e.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == model.StatusCompleted {
		return nil, validationErr("task %d is COMPLETED and cannot be dismissed", taskID)
	}

	old := task.Status
	task.Status = model.StatusDismissed

	entry := &model.AuditEntry{
		ActorID:  actor.UserID,
		Action:   model.AuditStatusChange,
		OldValue: string(old),
		NewValue: string(model.StatusDismissed),
	}
	if err := e.store.UpdateTaskWithAudit(ctx, task, entry); err != nil {
		return nil, fmt.Errorf("dismissing ticket %d: %w", taskID, err)
	}

	e.bus.Publish(ctx, event.TaskEvent{
		Kind:      event.KindStatusChanged,
		Task:      *task,
		ActorID:   actor.UserID,
		OldStatus: old,
		NewStatus: model.StatusDismissed,
	})

	return task, nil
}
