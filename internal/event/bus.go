// Package event carries lifecycle events from the task engine to
// interested subscribers. The engine publishes after its own writes
// commit; subscriber failures never propagate back to the publisher,
// which makes every downstream effect (notifications, escalation)
// structurally best-effort.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opsdeskhq/opsdesk/internal/model"
)

// TaskEvent describes a lifecycle mutation that already happened.
type TaskEvent struct {
	// Kind discriminates the event (use the Kind* constants).
	Kind Kind

	// Task is a snapshot of the task after the mutation.
	Task model.Task

	// ActorID is the user who triggered the mutation; zero for
	// system-originated events (breach sweep, intake).
	ActorID int64

	// OldStatus and NewStatus are set for KindStatusChanged.
	OldStatus model.Status
	NewStatus model.Status

	// AssigneeID is set for KindAssigned.
	AssigneeID int64

	// Reason is set for KindPaused.
	Reason string

	// CommentBody is set for KindCommented.
	CommentBody string

	// RecipientID is the resolved escalation target for
	// KindAutoWatched and KindBreached (the department head).
	RecipientID int64

	OccurredAt time.Time
}

// Kind identifies a task event type.
type Kind string

const (
	KindStatusChanged Kind = "task-status-changed"
	KindAssigned      Kind = "task-assigned"
	KindPaused        Kind = "task-paused"
	KindCommented     Kind = "task-commented"
	KindAutoWatched   Kind = "task-auto-watched"
	KindBreached      Kind = "sla-breached"
)

// Handler consumes a task event. Errors are logged by the bus and
// dropped; a handler must tolerate redelivery and partial upstream
// failure on its own.
type Handler func(ctx context.Context, ev TaskEvent) error

// Bus is a synchronous in-process fan-out of task events.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	logger   *slog.Logger
}

// NewBus creates an empty bus. A nil logger falls back to slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[Kind][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for one event kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Publish delivers the event to every subscriber of its kind, in
// registration order. Handler errors are logged and swallowed.
func (b *Bus) Publish(ctx context.Context, ev TaskEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := b.handlers[ev.Kind]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			b.logger.Warn("event handler failed",
				"kind", string(ev.Kind),
				"task_id", ev.Task.ID,
				"error", err,
			)
		}
	}
}
