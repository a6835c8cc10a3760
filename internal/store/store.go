package store

import (
	"context"
	"errors"
	"time"

	"github.com/opsdeskhq/opsdesk/internal/model"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// TaskFilter controls filtering, sorting, and pagination for task queries.
type TaskFilter struct {
	Status       *model.Status
	AssigneeID   *int64
	DepartmentID *int64
	ProjectID    *int64
	IsTicket     *bool
	Query        *string // search title + description
	SortBy       string  // "created_at", "updated_at", "due_at", "status", "title"
	SortDesc     bool
	Limit        int
	Offset       int
}

// Store defines the persistence interface for tasks and their
// surrounding entities. Mutating lifecycle operations pair the primary
// write with its audit entry in a single transaction; notification and
// watcher writes are independent side effects.
type Store interface {
	// === Tasks ===

	// CreateTaskWithAudit inserts a task and its TASK_CREATED audit
	// entry atomically. The generated id is written back to task and
	// entry.TaskID.
	CreateTaskWithAudit(ctx context.Context, task *model.Task, entry *model.AuditEntry) error

	// UpdateTaskWithAudit persists a task mutation and its audit entry
	// atomically. If the audit write fails the task write rolls back.
	UpdateTaskWithAudit(ctx context.Context, task *model.Task, entry *model.AuditEntry) error

	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)
	GetTaskByThreadID(ctx context.Context, threadID string) (*model.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	// GetBreachCandidates returns non-completed tasks whose due date has
	// passed at the given instant and that have not yet been flagged by
	// a previous sweep.
	GetBreachCandidates(ctx context.Context, now time.Time) ([]model.Task, error)
	SetBreachNotified(ctx context.Context, taskID int64, at time.Time) error

	// === Messages ===

	// CreateMessageWithAudit appends a message and its COMMENT_ADDED
	// audit entry atomically.
	CreateMessageWithAudit(ctx context.Context, msg *model.Message, entry *model.AuditEntry) error
	GetMessages(ctx context.Context, taskID int64) ([]model.Message, error)

	// === Watchers ===

	// UpsertWatcher subscribes a user to a task. Inserting an existing
	// (user, task) pair is a no-op; at most one row ever exists per pair.
	UpsertWatcher(ctx context.Context, userID, taskID int64) error
	RemoveWatcher(ctx context.Context, userID, taskID int64) error
	GetWatchers(ctx context.Context, taskID int64) ([]model.Watcher, error)

	// === Audit log ===

	CreateAuditEntry(ctx context.Context, entry *model.AuditEntry) error
	GetAuditEntries(ctx context.Context, taskID int64) ([]model.AuditEntry, error)

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context, userID int64) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	PurgeNotifications(ctx context.Context, userID int64) error

	// === Users ===

	CreateUser(ctx context.Context, u *model.User) error
	UpdateUser(ctx context.Context, u model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUsers(ctx context.Context) ([]model.User, error)

	// === Departments ===

	CreateDepartment(ctx context.Context, d *model.Department) error
	UpdateDepartment(ctx context.Context, d model.Department) error
	GetDepartmentByID(ctx context.Context, id int64) (*model.Department, error)
	GetDepartments(ctx context.Context) ([]model.Department, error)

	// === Projects ===

	CreateProject(ctx context.Context, p *model.Project) error
	UpdateProject(ctx context.Context, p model.Project) error
	GetProjectByID(ctx context.Context, id int64) (*model.Project, error)
	GetProjects(ctx context.Context) ([]model.Project, error)

	// === SLA templates ===

	CreateSLA(ctx context.Context, s *model.SLATemplate) error
	UpdateSLA(ctx context.Context, s model.SLATemplate) error
	GetSLAByID(ctx context.Context, id int64) (*model.SLATemplate, error)
	GetSLAs(ctx context.Context) ([]model.SLATemplate, error)
}
