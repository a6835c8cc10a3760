package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeskhq/opsdesk/internal/lifecycle"
	"github.com/opsdeskhq/opsdesk/internal/model"
)

func TestProcessTicketRequiresPrivilege(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, nil)

	_, err := f.engine.ProcessTicket(context.Background(), task.ID,
		lifecycle.ProcessTicketInput{DepartmentID: f.dept.ID}, f.agentP)
	require.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	var guard *lifecycle.GuardError
	require.ErrorAs(t, err, &guard)
	assert.Equal(t, lifecycle.GuardPrivilegeRequired, guard.Kind)
}

func TestProcessTicketRequiresDepartment(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, nil)

	_, err := f.engine.ProcessTicket(context.Background(), task.ID,
		lifecycle.ProcessTicketInput{}, f.adminP)
	require.ErrorIs(t, err, lifecycle.ErrValidation)
}

func TestProcessTicketWithAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, nil)

	got, err := f.engine.ProcessTicket(ctx, task.ID, lifecycle.ProcessTicketInput{
		DepartmentID: f.dept.ID,
		AssigneeID:   &f.agent.ID,
	}, f.adminP)
	require.NoError(t, err)

	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.True(t, got.IsTicket)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.DepartmentID)
	assert.Equal(t, f.dept.ID, *got.DepartmentID)

	entries, err := f.store.GetAuditEntries(ctx, task.ID)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, model.AuditTicketAssigned, last.Action)

	// Assignment side effects ran: the assignee is notified and the
	// department head is auto-watching.
	assert.Len(t, f.unreadByType(t, f.agent.ID, model.NotifyAssignment), 1)

	watchers, err := f.store.GetWatchers(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, watchers, 1)
	assert.Equal(t, f.head.ID, watchers[0].UserID)
}

func TestProcessTicketWithoutAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, nil)

	got, err := f.engine.ProcessTicket(ctx, task.ID, lifecycle.ProcessTicketInput{
		DepartmentID: f.dept.ID,
	}, f.adminP)
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, got.Status)
	assert.Nil(t, got.AssigneeID)

	entries, err := f.store.GetAuditEntries(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AuditStatusChange, entries[len(entries)-1].Action)
}

func TestProcessTicketDueDateOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, nil)

	manual := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	got, err := f.engine.ProcessTicket(ctx, task.ID, lifecycle.ProcessTicketInput{
		DepartmentID: f.dept.ID,
		DueAt:        &manual,
	}, f.adminP)
	require.NoError(t, err)
	require.NotNil(t, got.DueAt)
	assert.True(t, got.DueAt.Equal(manual))
}

func TestProcessTicketRecomputesDueDateForExplicitSLA(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, nil)

	urgent := model.SLATemplate{Name: "urgent", Tier: model.SLATierUrgent, DurationHrs: 4}
	require.NoError(t, f.store.CreateSLA(ctx, &urgent))

	got, err := f.engine.ProcessTicket(ctx, task.ID, lifecycle.ProcessTicketInput{
		DepartmentID: f.dept.ID,
		SLAID:        &urgent.ID,
	}, f.adminP)
	require.NoError(t, err)

	assert.Equal(t, urgent.ID, got.SLAID)
	require.NotNil(t, got.DueAt)
	assert.WithinDuration(t, time.Now().UTC().Add(4*time.Hour), *got.DueAt, time.Minute)
}

func TestDismissTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, nil)

	_, err := f.engine.DismissTicket(ctx, task.ID, f.agentP)
	require.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	got, err := f.engine.DismissTicket(ctx, task.ID, f.adminP)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDismissed, got.Status)

	// Dismissal is terminal.
	_, err = f.engine.Advance(ctx, task.ID, model.StatusInProgress, f.adminP)
	require.ErrorIs(t, err, lifecycle.ErrValidation)
}

func TestDismissTicketRejectsCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, &f.agent.ID)

	_, err := f.engine.Advance(ctx, task.ID, model.StatusCompleted, f.adminP)
	require.NoError(t, err)

	_, err = f.engine.DismissTicket(ctx, task.ID, f.adminP)
	require.ErrorIs(t, err, lifecycle.ErrValidation)
}
