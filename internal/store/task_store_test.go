package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/store"
	"github.com/opsdeskhq/opsdesk/tests/testutil"
)

type env struct {
	store *store.SQLiteStore
	sla   model.SLATemplate
	user  model.User
}

func newEnv(t *testing.T) *env {
	t.Helper()

	s := testutil.NewTestStore(t)
	return &env{
		store: s,
		sla:   testutil.SeedSLA(t, s, "standard", model.SLATierStandard, 48),
		user:  testutil.SeedUser(t, s, "reporter", model.RoleAdmin, nil),
	}
}

func (e *env) createTask(t *testing.T, mutate func(*model.Task)) *model.Task {
	t.Helper()

	task := &model.Task{
		Title:      "some work",
		Status:     model.StatusPending,
		SLAID:      e.sla.ID,
		ReporterID: e.user.ID,
	}
	if mutate != nil {
		mutate(task)
	}
	entry := &model.AuditEntry{ActorID: e.user.ID, Action: model.AuditTaskCreated}
	require.NoError(t, e.store.CreateTaskWithAudit(context.Background(), task, entry))
	return task
}

func TestCreateTaskAssignsIDAndTimestamps(t *testing.T) {
	e := newEnv(t)

	task := e.createTask(t, nil)
	assert.NotZero(t, task.ID)
	assert.False(t, task.CreatedAt.IsZero())
	assert.False(t, task.UpdatedAt.IsZero())

	got, err := e.store.GetTaskByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestGetTaskByIDNotFound(t *testing.T) {
	e := newEnv(t)

	_, err := e.store.GetTaskByID(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateTaskMissingRowIsNotFound(t *testing.T) {
	e := newEnv(t)

	task := &model.Task{ID: 404, Title: "ghost", Status: model.StatusPending, SLAID: e.sla.ID}
	entry := &model.AuditEntry{ActorID: e.user.ID, Action: model.AuditStatusChange}
	err := e.store.UpdateTaskWithAudit(context.Background(), task, entry)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetTaskByThreadID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	task := e.createTask(t, func(task *model.Task) {
		task.IsTicket = true
		task.ThreadID = "<abc123@mail.example.com>"
		task.SenderEmail = "customer@example.com"
	})

	got, err := e.store.GetTaskByThreadID(ctx, "<abc123@mail.example.com>")
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.True(t, got.IsTicket)

	_, err = e.store.GetTaskByThreadID(ctx, "<other@mail.example.com>")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The empty thread id never matches the non-ticket rows that share it.
	_, err = e.store.GetTaskByThreadID(ctx, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetTasksFilterAndSort(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	assignee := testutil.SeedUser(t, e.store, "worker", model.RoleAgent, nil)

	e.createTask(t, func(task *model.Task) {
		task.Title = "alpha"
		task.AssigneeID = &assignee.ID
	})
	e.createTask(t, func(task *model.Task) {
		task.Title = "bravo"
		task.Status = model.StatusInProgress
		task.AssigneeID = &assignee.ID
	})
	e.createTask(t, func(task *model.Task) {
		task.Title = "charlie"
	})

	inProgress := model.StatusInProgress
	got, err := e.store.GetTasks(ctx, store.TaskFilter{Status: &inProgress})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bravo", got[0].Title)

	got, err = e.store.GetTasks(ctx, store.TaskFilter{AssigneeID: &assignee.ID, SortBy: "title"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].Title)
	assert.Equal(t, "bravo", got[1].Title)

	q := "char"
	got, err = e.store.GetTasks(ctx, store.TaskFilter{Query: &q})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "charlie", got[0].Title)
}

func TestGetBreachCandidates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)

	overdue := e.createTask(t, func(task *model.Task) {
		task.Status = model.StatusInProgress
		task.DueAt = &past
	})
	e.createTask(t, func(task *model.Task) { // completed, excluded
		task.Status = model.StatusCompleted
		task.DueAt = &past
	})
	e.createTask(t, nil) // no due date, excluded

	got, err := e.store.GetBreachCandidates(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)

	require.NoError(t, e.store.SetBreachNotified(ctx, overdue.ID, now))

	got, err = e.store.GetBreachCandidates(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWatcherUpsertIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, nil)

	require.NoError(t, e.store.UpsertWatcher(ctx, e.user.ID, task.ID))
	require.NoError(t, e.store.UpsertWatcher(ctx, e.user.ID, task.ID))

	watchers, err := e.store.GetWatchers(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, watchers, 1)
	assert.Equal(t, e.user.ID, watchers[0].UserID)

	require.NoError(t, e.store.RemoveWatcher(ctx, e.user.ID, task.ID))

	watchers, err = e.store.GetWatchers(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, watchers)
}

func TestAuditTrailIsOrdered(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, nil)

	task.Status = model.StatusReceived
	entry := &model.AuditEntry{
		ActorID:  e.user.ID,
		Action:   model.AuditStatusChange,
		OldValue: string(model.StatusPending),
		NewValue: string(model.StatusReceived),
	}
	require.NoError(t, e.store.UpdateTaskWithAudit(ctx, task, entry))

	entries, err := e.store.GetAuditEntries(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.AuditTaskCreated, entries[0].Action)
	assert.Equal(t, model.AuditStatusChange, entries[1].Action)
	assert.NotEmpty(t, entries[1].ID)
}

func TestMessagesRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, nil)

	msg := &model.Message{
		TaskID:   task.ID,
		AuthorID: &e.user.ID,
		Body:     "first update",
	}
	entry := &model.AuditEntry{ActorID: e.user.ID, Action: model.AuditCommentAdded}
	require.NoError(t, e.store.CreateMessageWithAudit(ctx, msg, entry))
	assert.NotEmpty(t, msg.ID)

	external := &model.Message{
		TaskID:      task.ID,
		SenderEmail: "customer@example.com",
		Body:        "any news?",
		CreatedAt:   time.Now().UTC().Add(time.Second),
	}
	entry = &model.AuditEntry{ActorID: e.user.ID, Action: model.AuditCommentAdded}
	require.NoError(t, e.store.CreateMessageWithAudit(ctx, external, entry))

	messages, err := e.store.GetMessages(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first update", messages[0].Body)
	assert.Nil(t, messages[1].AuthorID)
	assert.Equal(t, "customer@example.com", messages[1].SenderEmail)
}

func TestNotificationLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	n := model.Notification{
		ID:      "n-1",
		UserID:  e.user.ID,
		Content: "hello",
		Type:    model.NotifyAssignment,
	}
	require.NoError(t, e.store.CreateNotification(ctx, n))
	require.NoError(t, e.store.CreateNotification(ctx, model.Notification{
		ID:      "n-2",
		UserID:  e.user.ID,
		Content: "world",
		Type:    model.NotifyComment,
	}))

	unread, err := e.store.GetUnreadNotifications(ctx, e.user.ID)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	require.NoError(t, e.store.MarkNotificationRead(ctx, "n-1"))

	unread, err = e.store.GetUnreadNotifications(ctx, e.user.ID)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "n-2", unread[0].ID)

	require.NoError(t, e.store.PurgeNotifications(ctx, e.user.ID))

	unread, err = e.store.GetUnreadNotifications(ctx, e.user.ID)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
