package model

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusReceived     Status = "RECEIVED"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusReview       Status = "REVIEW"
	StatusCompleted    Status = "COMPLETED"
	StatusAwaitingInfo Status = "AWAITING_INFO"
	StatusDismissed    Status = "DISMISSED"
)

// KnownStatuses lists every status value the store will ever hold.
var KnownStatuses = []Status{
	StatusPending,
	StatusReceived,
	StatusInProgress,
	StatusReview,
	StatusCompleted,
	StatusAwaitingInfo,
	StatusDismissed,
}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDismissed
}

// Task is the unit of trackable work. Tickets are tasks that originated
// from external intake (email); they carry the sender identity and an
// immutable thread id used for deduplication.
type Task struct {
	// ID is the internal unique identifier for this task.
	ID int64 `json:"id" db:"id"`

	// Title is the human-readable summary of the task.
	Title string `json:"title" db:"title"`

	// Description is the full body/description text.
	Description string `json:"description" db:"description"`

	// Status is the current lifecycle state (use Status* constants).
	Status Status `json:"status" db:"status"`

	// DueAt is the SLA deadline. Once set from an SLA template it is
	// immutable unless explicitly overridden.
	DueAt *time.Time `json:"due_at,omitempty" db:"due_at"`

	// PauseReason is set while the task sits in AWAITING_INFO.
	PauseReason string `json:"pause_reason,omitempty" db:"pause_reason"`

	// IsTicket marks tasks that originated from external intake.
	IsTicket bool `json:"is_ticket" db:"is_ticket"`

	// ThreadID is the external thread identifier for email-sourced
	// tickets. It is the deduplication key: repeat messages on the same
	// thread append a Message instead of creating a new task.
	ThreadID string `json:"thread_id,omitempty" db:"thread_id"`

	// SenderName and SenderEmail identify the external originator of a
	// ticket, parsed from the message origin header.
	SenderName  string `json:"sender_name,omitempty" db:"sender_name"`
	SenderEmail string `json:"sender_email,omitempty" db:"sender_email"`

	// ProjectID is the optional owning project.
	ProjectID *int64 `json:"project_id,omitempty" db:"project_id"`

	// SLAID references the SLA template that governs the due date.
	SLAID int64 `json:"sla_id" db:"sla_id"`

	// DepartmentID is the department the task is routed to.
	DepartmentID *int64 `json:"department_id,omitempty" db:"department_id"`

	// AssigneeID is the user currently responsible, if any.
	AssigneeID *int64 `json:"assignee_id,omitempty" db:"assignee_id"`

	// ReporterID is the user who created the task. Set once at creation.
	ReporterID int64 `json:"reporter_id" db:"reporter_id"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	// BreachNotifiedAt records when a breach alert went out for this
	// task, so overlapping sweeps do not alert twice.
	BreachNotifiedAt *time.Time `json:"breach_notified_at,omitempty" db:"breach_notified_at"`
}

// Overdue reports whether the task is past its due date and not yet
// completed at the given instant.
func (t *Task) Overdue(now time.Time) bool {
	return t.Status != StatusCompleted && t.DueAt != nil && now.After(*t.DueAt)
}

// Message is a chat entry or comment attached to a task. External
// senders (ticket replies arriving by email) have no AuthorID.
type Message struct {
	ID          string    `json:"id" db:"id"`
	TaskID      int64     `json:"task_id" db:"task_id"`
	AuthorID    *int64    `json:"author_id,omitempty" db:"author_id"`
	SenderEmail string    `json:"sender_email,omitempty" db:"sender_email"`
	Body        string    `json:"body" db:"body"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Watcher subscribes a user to notifications about a task. At most one
// row exists per (user, task) pair; all writers use upsert semantics.
type Watcher struct {
	UserID    int64     `json:"user_id" db:"user_id"`
	TaskID    int64     `json:"task_id" db:"task_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
