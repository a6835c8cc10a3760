package model

import "time"

// NotificationType classifies why a notification was sent.
type NotificationType string

const (
	NotifyAssignment  NotificationType = "ASSIGNMENT"
	NotifyAutoWatcher NotificationType = "AUTO_WATCHER"
	NotifyReviewReady NotificationType = "REVIEW_READY"
	NotifyTaskPaused  NotificationType = "TASK_PAUSED"
	NotifyBreachAlert NotificationType = "BREACH_ALERT"
	NotifyComment     NotificationType = "COMMENT"
)

// Notification is a directed message surfaced to a single user. Rows
// are created only by the dispatcher; the only permitted mutation is
// flipping IsRead, plus a bulk per-user purge.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// UserID is the recipient.
	UserID int64 `json:"user_id" db:"user_id"`

	// Content is the human-readable notification text.
	Content string `json:"content" db:"content"`

	// Type classifies the triggering event.
	Type NotificationType `json:"type" db:"type"`

	// IsRead indicates whether the user has seen this notification.
	IsRead bool `json:"is_read" db:"is_read"`

	// Link optionally points at the subject (e.g. a task URL/path).
	Link string `json:"link,omitempty" db:"link"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
