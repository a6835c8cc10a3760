package model

import "time"

// AuditAction identifies the kind of lifecycle mutation an audit entry
// records.
type AuditAction string

const (
	AuditTaskCreated    AuditAction = "TASK_CREATED"
	AuditTaskAssigned   AuditAction = "TASK_ASSIGNED"
	AuditTicketAssigned AuditAction = "TICKET_ASSIGNED"
	AuditStatusChange   AuditAction = "STATUS_CHANGE"
	AuditTaskPaused     AuditAction = "TASK_PAUSED"
	AuditCommentAdded   AuditAction = "COMMENT_ADDED"
)

// AuditEntry is an immutable record of a lifecycle-relevant mutation.
// Entries are append-only: no update or delete path exists.
type AuditEntry struct {
	ID        string      `json:"id" db:"id"`
	TaskID    int64       `json:"task_id" db:"task_id"`
	ActorID   int64       `json:"actor_id" db:"actor_id"`
	Action    AuditAction `json:"action" db:"action"`
	OldValue  string      `json:"old_value,omitempty" db:"old_value"`
	NewValue  string      `json:"new_value,omitempty" db:"new_value"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
