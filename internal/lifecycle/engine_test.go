package lifecycle_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeskhq/opsdesk/internal/event"
	"github.com/opsdeskhq/opsdesk/internal/lifecycle"
	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/notify"
	"github.com/opsdeskhq/opsdesk/internal/store"
	"github.com/opsdeskhq/opsdesk/tests/testutil"
)

// fixture wires an engine against an in-memory store with the
// notification dispatcher subscribed, plus a seeded org: a department
// headed by head, an agent in that department, a second agent outside
// it, and an admin.
type fixture struct {
	store  *store.SQLiteStore
	engine *lifecycle.Engine
	sla    model.SLATemplate
	dept   model.Department

	admin model.User
	head  model.User
	agent model.User // in the headed department
	other model.User // agent with no department

	adminP model.Principal
	agentP model.Principal
	otherP model.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := testutil.NewTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bus := event.NewBus(logger)
	dispatcher := notify.NewDispatcher(s, logger)
	dispatcher.Subscribe(bus)

	sla := testutil.SeedSLA(t, s, "standard", model.SLATierStandard, 48)
	engine := lifecycle.NewEngine(s, bus, sla.ID, logger)

	f := &fixture{store: s, engine: engine, sla: sla}

	f.head = testutil.SeedUser(t, s, "head", model.RoleAgent, nil)
	f.dept = testutil.SeedDepartment(t, s, "support", &f.head.ID)
	f.admin = testutil.SeedUser(t, s, "admin", model.RoleAdmin, nil)
	f.agent = testutil.SeedUser(t, s, "agent", model.RoleAgent, &f.dept.ID)
	f.other = testutil.SeedUser(t, s, "other", model.RoleAgent, nil)

	f.adminP = principal(f.admin)
	f.agentP = principal(f.agent)
	f.otherP = principal(f.other)

	return f
}

func principal(u model.User) model.Principal {
	return model.Principal{UserID: u.ID, Role: u.Role, DepartmentID: u.DepartmentID}
}

func (f *fixture) createTask(t *testing.T, assignee *int64) *model.Task {
	t.Helper()

	task, err := f.engine.CreateTask(context.Background(), lifecycle.CreateTaskInput{
		Title:      "investigate outage",
		AssigneeID: assignee,
	}, f.adminP)
	require.NoError(t, err)
	return task
}

func (f *fixture) unreadByType(t *testing.T, userID int64, ntype model.NotificationType) []model.Notification {
	t.Helper()

	all, err := f.store.GetUnreadNotifications(context.Background(), userID)
	require.NoError(t, err)

	var matched []model.Notification
	for _, n := range all {
		if n.Type == ntype {
			matched = append(matched, n)
		}
	}
	return matched
}

func TestAdvanceByAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, &f.agent.ID)

	got, err := f.engine.Advance(ctx, task.ID, model.StatusReceived, f.agentP)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReceived, got.Status)

	entries, err := f.store.GetAuditEntries(ctx, task.ID)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, model.AuditStatusChange, last.Action)
	assert.Equal(t, string(model.StatusPending), last.OldValue)
	assert.Equal(t, string(model.StatusReceived), last.NewValue)
	assert.Equal(t, f.agent.ID, last.ActorID)
}

func TestAdvanceLockViolation(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, &f.agent.ID)

	_, err := f.engine.Advance(context.Background(), task.ID, model.StatusInProgress, f.otherP)
	require.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	var guard *lifecycle.GuardError
	require.ErrorAs(t, err, &guard)
	assert.Equal(t, lifecycle.GuardLockViolation, guard.Kind)
}

func TestAssigneeCannotSelfComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, &f.agent.ID)

	_, err := f.engine.Advance(ctx, task.ID, model.StatusReview, f.agentP)
	require.NoError(t, err)

	_, err = f.engine.Advance(ctx, task.ID, model.StatusCompleted, f.agentP)
	require.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	var guard *lifecycle.GuardError
	require.ErrorAs(t, err, &guard)
	assert.Equal(t, lifecycle.GuardOperationalBarrier, guard.Kind)
}

func TestAdvanceIdentityMismatch(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, &f.agent.ID)

	_, err := f.engine.Advance(context.Background(), task.ID, model.StatusReview, f.otherP)
	require.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	var guard *lifecycle.GuardError
	require.ErrorAs(t, err, &guard)
	assert.Equal(t, lifecycle.GuardIdentityMismatch, guard.Kind)
}

func TestCompleteByAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, &f.agent.ID)

	got, err := f.engine.Advance(ctx, task.ID, model.StatusCompleted, f.adminP)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	// COMPLETED is terminal: no subsequent call changes status.
	_, err = f.engine.Advance(ctx, task.ID, model.StatusInProgress, f.adminP)
	require.ErrorIs(t, err, lifecycle.ErrValidation)

	reloaded, err := f.store.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, reloaded.Status)
}

func TestReviewNotifiesEachWatcherOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Creation with an assignee auto-watches the department head.
	task := f.createTask(t, &f.agent.ID)
	require.NoError(t, f.store.UpsertWatcher(ctx, f.other.ID, task.ID))

	watchers, err := f.store.GetWatchers(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, watchers, 2)

	_, err = f.engine.Advance(ctx, task.ID, model.StatusReview, f.agentP)
	require.NoError(t, err)

	for _, w := range watchers {
		assert.Len(t, f.unreadByType(t, w.UserID, model.NotifyReviewReady), 1,
			"watcher %d should get exactly one review notification", w.UserID)
	}
}

func TestAdvanceSameStatusIsAuditedNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, &f.agent.ID)

	_, err := f.engine.Advance(ctx, task.ID, model.StatusReceived, f.agentP)
	require.NoError(t, err)
	_, err = f.engine.Advance(ctx, task.ID, model.StatusReceived, f.agentP)
	require.NoError(t, err)

	entries, err := f.store.GetAuditEntries(ctx, task.ID)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, string(model.StatusReceived), last.OldValue)
	assert.Equal(t, string(model.StatusReceived), last.NewValue)
}

func TestPrivilegedBackwardTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, &f.agent.ID)

	_, err := f.engine.Advance(ctx, task.ID, model.StatusReview, f.adminP)
	require.NoError(t, err)

	got, err := f.engine.Advance(ctx, task.ID, model.StatusInProgress, f.adminP)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.NotNil(t, got.StartedAt)
}

func TestAdvanceUnknownStatus(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, nil)

	_, err := f.engine.Advance(context.Background(), task.ID, model.Status("ARCHIVED"), f.adminP)
	require.ErrorIs(t, err, lifecycle.ErrValidation)
}

func TestAdvanceTaskNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Advance(context.Background(), 9999, model.StatusReceived, f.adminP)
	require.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCreateTaskComputesDueDateFromSLA(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, nil)

	require.NotNil(t, task.DueAt)
	want := task.CreatedAt.Add(time.Duration(f.sla.DurationHrs) * time.Hour)
	assert.WithinDuration(t, want, *task.DueAt, time.Second)
	assert.Equal(t, model.StatusPending, task.Status)
}

func TestPauseTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, &f.agent.ID)

	_, err := f.engine.PauseTask(ctx, task.ID, "", f.agentP)
	require.ErrorIs(t, err, lifecycle.ErrValidation)

	got, err := f.engine.PauseTask(ctx, task.ID, "blocked on customer", f.agentP)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitingInfo, got.Status)
	assert.Equal(t, "blocked on customer", got.PauseReason)

	// The reporter (the admin who created the task) is notified.
	assert.Len(t, f.unreadByType(t, f.admin.ID, model.NotifyTaskPaused), 1)

	entries, err := f.store.GetAuditEntries(ctx, task.ID)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, model.AuditTaskPaused, last.Action)
	assert.Equal(t, "blocked on customer", last.NewValue)

	// Resuming clears the stored reason.
	resumed, err := f.engine.Advance(ctx, task.ID, model.StatusInProgress, f.agentP)
	require.NoError(t, err)
	assert.Empty(t, resumed.PauseReason)
}

func TestAutoWatcherIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, nil)

	_, err := f.engine.Assign(ctx, task.ID, f.agent.ID, f.adminP)
	require.NoError(t, err)

	watchers, err := f.store.GetWatchers(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, watchers, 1)
	assert.Equal(t, f.head.ID, watchers[0].UserID)
	assert.Len(t, f.unreadByType(t, f.head.ID, model.NotifyAutoWatcher), 1)
	assert.Len(t, f.unreadByType(t, f.agent.ID, model.NotifyAssignment), 1)

	// Repeating the assignment never duplicates the watcher row.
	_, err = f.engine.Assign(ctx, task.ID, f.agent.ID, f.adminP)
	require.NoError(t, err)

	watchers, err = f.store.GetWatchers(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, watchers, 1)
}

func TestAutoWatcherSkipsAssigneeWithoutDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, nil)
	_, err := f.engine.Assign(ctx, task.ID, f.other.ID, f.adminP)
	require.NoError(t, err)

	watchers, err := f.store.GetWatchers(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, watchers)
}

func TestAssignRequiresPrivilege(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, nil)

	_, err := f.engine.Assign(context.Background(), task.ID, f.agent.ID, f.otherP)
	require.ErrorIs(t, err, lifecycle.ErrUnauthorized)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, &f.agent.ID)
	require.NoError(t, f.store.UpsertWatcher(ctx, f.other.ID, task.ID))

	msg, err := f.engine.AddComment(ctx, task.ID, "any update?", f.agentP)
	require.NoError(t, err)
	require.NotNil(t, msg.AuthorID)
	assert.Equal(t, f.agent.ID, *msg.AuthorID)

	entries, err := f.store.GetAuditEntries(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AuditCommentAdded, entries[len(entries)-1].Action)

	assert.Len(t, f.unreadByType(t, f.other.ID, model.NotifyComment), 1)
}
