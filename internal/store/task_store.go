package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opsdeskhq/opsdesk/internal/model"
)

// taskColumns is the canonical column list for task queries; scanTask
// must stay in sync with it.
const taskColumns = `id, title, description, status, due_at, pause_reason,
	is_ticket, thread_id, sender_name, sender_email,
	project_id, sla_id, department_id, assignee_id, reporter_id,
	created_at, started_at, completed_at, updated_at, breach_notified_at`

// CreateTaskWithAudit inserts a task and its creation audit entry in a
// single transaction. The generated id is written back to task and to
// entry.TaskID before the audit insert.
func (s *SQLiteStore) CreateTaskWithAudit(
	ctx context.Context,
	task *model.Task,
	entry *model.AuditEntry,
) error {
	if strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("task title must not be empty")
	}

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = model.StatusPending
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (
			title, description, status, due_at, pause_reason,
			is_ticket, thread_id, sender_name, sender_email,
			project_id, sla_id, department_id, assignee_id, reporter_id,
			created_at, started_at, completed_at, updated_at, breach_notified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.Title, task.Description, string(task.Status), task.DueAt, task.PauseReason,
		boolToInt(task.IsTicket), task.ThreadID, task.SenderName, task.SenderEmail,
		task.ProjectID, task.SLAID, task.DepartmentID, task.AssigneeID, task.ReporterID,
		task.CreatedAt, task.StartedAt, task.CompletedAt, task.UpdatedAt, task.BreachNotifiedAt,
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading task id: %w", err)
	}
	task.ID = id
	entry.TaskID = id

	if err := insertAuditEntry(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateTaskWithAudit persists a task mutation together with its audit
// entry. The two writes commit or roll back as one unit: an operation
// whose audit write fails is reported as failed.
func (s *SQLiteStore) UpdateTaskWithAudit(
	ctx context.Context,
	task *model.Task,
	entry *model.AuditEntry,
) error {
	task.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, status = ?, due_at = ?, pause_reason = ?,
			is_ticket = ?, project_id = ?, sla_id = ?, department_id = ?,
			assignee_id = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, task.Description, string(task.Status), task.DueAt, task.PauseReason,
		boolToInt(task.IsTicket), task.ProjectID, task.SLAID, task.DepartmentID,
		task.AssigneeID, task.StartedAt, task.CompletedAt, task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task %d: %w", task.ID, err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("updating task %d: %w", task.ID, ErrNotFound)
	}

	entry.TaskID = task.ID
	if err := insertAuditEntry(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// GetTaskByID retrieves a single task by its ID.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting task %d: %w", id, err)
		}
		return nil, fmt.Errorf("getting task %d: %w", id, ErrNotFound)
	}

	task, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTaskByThreadID looks up a ticket by its external thread identifier.
// Used by the intake adapter for deduplication.
func (s *SQLiteStore) GetTaskByThreadID(
	ctx context.Context,
	threadID string,
) (*model.Task, error) {
	if threadID == "" {
		return nil, fmt.Errorf("getting task by thread: %w", ErrNotFound)
	}

	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE thread_id = ?", threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting task by thread %q: %w", threadID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting task by thread %q: %w", threadID, err)
		}
		return nil, fmt.Errorf("getting task by thread %q: %w", threadID, ErrNotFound)
	}

	task, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTasks retrieves tasks matching the provided filter options.
func (s *SQLiteStore) GetTasks(
	ctx context.Context,
	filter TaskFilter,
) ([]model.Task, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.AssigneeID != nil {
		conditions = append(conditions, "assignee_id = ?")
		args = append(args, *filter.AssigneeID)
	}
	if filter.DepartmentID != nil {
		conditions = append(conditions, "department_id = ?")
		args = append(args, *filter.DepartmentID)
	}
	if filter.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.IsTicket != nil {
		conditions = append(conditions, "is_ticket = ?")
		args = append(args, boolToInt(*filter.IsTicket))
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Determine sort column.
	sortBy := "updated_at"
	if filter.SortBy != "" {
		allowedSorts := map[string]bool{
			"title":      true,
			"status":     true,
			"due_at":     true,
			"created_at": true,
			"updated_at": true,
		}
		if allowedSorts[filter.SortBy] {
			sortBy = filter.SortBy
		}
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// GetBreachCandidates returns non-completed tasks past their due date
// that no earlier sweep has already flagged.
func (s *SQLiteStore) GetBreachCandidates(
	ctx context.Context,
	now time.Time,
) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status != ?
		  AND due_at IS NOT NULL
		  AND due_at < ?
		  AND breach_notified_at IS NULL
		ORDER BY due_at`,
		string(model.StatusCompleted), now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying breach candidates: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// SetBreachNotified stamps a task as having been alerted by the breach
// sweep so overlapping sweeps do not alert twice.
func (s *SQLiteStore) SetBreachNotified(
	ctx context.Context,
	taskID int64,
	at time.Time,
) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET breach_notified_at = ? WHERE id = ?",
		at.UTC(), taskID,
	)
	if err != nil {
		return fmt.Errorf("stamping breach notification for task %d: %w", taskID, err)
	}
	return nil
}

// CreateMessageWithAudit appends a message to a task together with its
// COMMENT_ADDED audit entry in one transaction.
func (s *SQLiteStore) CreateMessageWithAudit(
	ctx context.Context,
	msg *model.Message,
	entry *model.AuditEntry,
) error {
	if strings.TrimSpace(msg.Body) == "" {
		return fmt.Errorf("message body must not be empty")
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, task_id, author_id, sender_email, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.TaskID, msg.AuthorID, msg.SenderEmail, msg.Body, msg.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating message for task %d: %w", msg.TaskID, err)
	}

	entry.TaskID = msg.TaskID
	if err := insertAuditEntry(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// GetMessages retrieves all messages for a task in creation order.
func (s *SQLiteStore) GetMessages(
	ctx context.Context,
	taskID int64,
) ([]model.Message, error) {
	var messages []model.Message
	err := s.db.SelectContext(ctx, &messages, `
		SELECT id, task_id, author_id, sender_email, body, created_at
		FROM messages WHERE task_id = ? ORDER BY created_at`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages for task %d: %w", taskID, err)
	}
	return messages, nil
}

// scanTask scans a task row from a sqlx.Rows result set.
func scanTask(rows *sqlx.Rows) (model.Task, error) {
	var (
		task     model.Task
		status   string
		isTicket int
	)

	err := rows.Scan(
		&task.ID, &task.Title, &task.Description, &status, &task.DueAt, &task.PauseReason,
		&isTicket, &task.ThreadID, &task.SenderName, &task.SenderEmail,
		&task.ProjectID, &task.SLAID, &task.DepartmentID, &task.AssigneeID, &task.ReporterID,
		&task.CreatedAt, &task.StartedAt, &task.CompletedAt, &task.UpdatedAt, &task.BreachNotifiedAt,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.Status = model.Status(status)
	task.IsTicket = isTicket != 0

	return task, nil
}
