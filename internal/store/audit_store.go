package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opsdeskhq/opsdesk/internal/model"
)

// insertAuditEntry writes an audit entry inside an existing transaction.
func insertAuditEntry(ctx context.Context, tx *sqlx.Tx, entry *model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_log (id, task_id, actor_id, action, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TaskID, entry.ActorID, string(entry.Action),
		entry.OldValue, entry.NewValue, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing audit entry for task %d: %w", entry.TaskID, err)
	}
	return nil
}

// CreateAuditEntry appends a standalone audit entry. The audit log is
// append-only: no update or delete path exists.
func (s *SQLiteStore) CreateAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, task_id, actor_id, action, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TaskID, entry.ActorID, string(entry.Action),
		entry.OldValue, entry.NewValue, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing audit entry for task %d: %w", entry.TaskID, err)
	}
	return nil
}

// GetAuditEntries retrieves the audit trail for a task in order.
func (s *SQLiteStore) GetAuditEntries(
	ctx context.Context,
	taskID int64,
) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, task_id, actor_id, action, old_value, new_value, created_at
		FROM audit_log WHERE task_id = ? ORDER BY created_at, id`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var (
			e      model.AuditEntry
			action string
		)
		err := rows.Scan(
			&e.ID, &e.TaskID, &e.ActorID, &action,
			&e.OldValue, &e.NewValue, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		e.Action = model.AuditAction(action)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// UpsertWatcher subscribes a user to a task. The (user, task) pair is
// the primary key; re-inserting an existing pair is a no-op.
func (s *SQLiteStore) UpsertWatcher(ctx context.Context, userID, taskID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchers (user_id, task_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, task_id) DO NOTHING`,
		userID, taskID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting watcher (%d, %d): %w", userID, taskID, err)
	}
	return nil
}

// RemoveWatcher unsubscribes a user from a task.
func (s *SQLiteStore) RemoveWatcher(ctx context.Context, userID, taskID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM watchers WHERE user_id = ? AND task_id = ?",
		userID, taskID,
	)
	if err != nil {
		return fmt.Errorf("removing watcher (%d, %d): %w", userID, taskID, err)
	}
	return nil
}

// GetWatchers retrieves all watchers of a task.
func (s *SQLiteStore) GetWatchers(
	ctx context.Context,
	taskID int64,
) ([]model.Watcher, error) {
	var watchers []model.Watcher
	err := s.db.SelectContext(ctx, &watchers, `
		SELECT user_id, task_id, created_at
		FROM watchers WHERE task_id = ? ORDER BY created_at`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying watchers for task %d: %w", taskID, err)
	}
	return watchers, nil
}
