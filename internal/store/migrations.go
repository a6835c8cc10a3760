package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS departments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	head_id    INTEGER,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	role          TEXT NOT NULL DEFAULT 'AGENT'
		CHECK(role IN ('SUPER_ADMIN', 'ADMIN', 'CLIENT_SERVICE', 'AGENT')),
	department_id INTEGER REFERENCES departments(id) ON DELETE SET NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS slas (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL,
	tier         TEXT NOT NULL DEFAULT 'STANDARD'
		CHECK(tier IN ('LOW', 'STANDARD', 'URGENT')),
	duration_hrs INTEGER NOT NULL CHECK(duration_hrs > 0)
);

CREATE TABLE IF NOT EXISTS tasks (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	title              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'PENDING'
		CHECK(status IN ('PENDING', 'RECEIVED', 'IN_PROGRESS', 'REVIEW',
			'COMPLETED', 'AWAITING_INFO', 'DISMISSED')),
	due_at             DATETIME,
	pause_reason       TEXT NOT NULL DEFAULT '',
	is_ticket          INTEGER NOT NULL DEFAULT 0 CHECK(is_ticket IN (0, 1)),
	thread_id          TEXT NOT NULL DEFAULT '',
	sender_name        TEXT NOT NULL DEFAULT '',
	sender_email       TEXT NOT NULL DEFAULT '',
	project_id         INTEGER REFERENCES projects(id) ON DELETE SET NULL,
	sla_id             INTEGER NOT NULL REFERENCES slas(id),
	department_id      INTEGER REFERENCES departments(id),
	assignee_id        INTEGER REFERENCES users(id),
	reporter_id        INTEGER NOT NULL REFERENCES users(id),
	created_at         DATETIME NOT NULL,
	started_at         DATETIME,
	completed_at       DATETIME,
	updated_at         DATETIME NOT NULL,
	breach_notified_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_thread_id
	ON tasks(thread_id) WHERE thread_id != '';

CREATE TABLE IF NOT EXISTS watchers (
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	task_id    INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, task_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id           TEXT PRIMARY KEY,
	task_id      INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	author_id    INTEGER REFERENCES users(id),
	sender_email TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS audit_log (
	id         TEXT PRIMARY KEY,
	task_id    INTEGER NOT NULL REFERENCES tasks(id),
	actor_id   INTEGER NOT NULL,
	action     TEXT NOT NULL
		CHECK(action IN ('TASK_CREATED', 'TASK_ASSIGNED', 'TICKET_ASSIGNED',
			'STATUS_CHANGE', 'TASK_PAUSED', 'COMMENT_ADDED')),
	old_value  TEXT NOT NULL DEFAULT '',
	new_value  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL,
	content    TEXT NOT NULL,
	type       TEXT NOT NULL,
	is_read    INTEGER NOT NULL DEFAULT 0 CHECK(is_read IN (0, 1)),
	link       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);
CREATE INDEX IF NOT EXISTS idx_tasks_department ON tasks(department_id);
CREATE INDEX IF NOT EXISTS idx_tasks_due_at ON tasks(due_at);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_audit_task ON audit_log(task_id);
CREATE INDEX IF NOT EXISTS idx_messages_task ON messages(task_id);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_tasks_breach_sweep
	ON tasks(due_at, status) WHERE breach_notified_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_notifications_created
	ON notifications(created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
