// Package audit records lifecycle-relevant mutations. The log is
// append-only: entries are never updated or deleted.
package audit

import (
	"context"

	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/store"
)

// Recorder writes audit entries.
type Recorder struct {
	store store.Store
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(s store.Store) *Recorder {
	return &Recorder{store: s}
}

// Record appends an audit entry for a task mutation. Callers that need
// the entry to commit atomically with the mutation itself use the
// store's *WithAudit variants instead; Record is for entries that stand
// alone (e.g. watcher invitations).
func (r *Recorder) Record(
	ctx context.Context,
	taskID, actorID int64,
	action model.AuditAction,
	oldValue, newValue string,
) (*model.AuditEntry, error) {
	entry := &model.AuditEntry{
		TaskID:   taskID,
		ActorID:  actorID,
		Action:   action,
		OldValue: oldValue,
		NewValue: newValue,
	}
	if err := r.store.CreateAuditEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Trail returns the full audit history of a task.
func (r *Recorder) Trail(ctx context.Context, taskID int64) ([]model.AuditEntry, error) {
	return r.store.GetAuditEntries(ctx, taskID)
}
