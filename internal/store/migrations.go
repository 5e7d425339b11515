package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration represents a schema migration step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationStatus reports the current and available migration versions.
type MigrationStatus struct {
	CurrentVersion   int             `json:"current_version"`
	AvailableVersion int             `json:"available_version"`
	Pending          []MigrationInfo `json:"pending"`
}

// MigrationInfo describes a single migration.
type MigrationInfo struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// migrations must be declared in ascending version order.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: lookups, users, tasks, files, task_files",
		SQL: `
CREATE TABLE IF NOT EXISTS departments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE COLLATE NOCASE
);

CREATE TABLE IF NOT EXISTS roles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE COLLATE NOCASE
);

CREATE TABLE IF NOT EXISTS task_statuses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE COLLATE NOCASE
);

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  first_name TEXT,
  last_name TEXT,
  department_id INTEGER,
  role_id INTEGER,
  password_hash TEXT NOT NULL,
  must_change_password INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  subject TEXT NOT NULL,
  action TEXT NOT NULL,
  due_date TEXT NOT NULL,
  completed_date TEXT,
  notes TEXT,
  department_id INTEGER NOT NULL,
  task_status_id INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  filename TEXT NOT NULL,
  file_path TEXT NOT NULL,
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS task_files (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  task_id INTEGER NOT NULL,
  file_id INTEGER NOT NULL UNIQUE,
  FOREIGN KEY (task_id) REFERENCES tasks(id),
  FOREIGN KEY (file_id) REFERENCES files(id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_department ON tasks(department_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(task_status_id);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_task_files_task ON task_files(task_id);
CREATE INDEX IF NOT EXISTS idx_users_department ON users(department_id);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role_id);

INSERT OR IGNORE INTO roles (name) VALUES ('Admin'), ('User');
`,
	},
	{
		Version:     2,
		Description: "browser sessions",
		SQL: `
CREATE TABLE IF NOT EXISTS sessions (
  token_hash TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  expires_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL,
  FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
`,
	},
}

// pendingMigrations ensures the bookkeeping table exists and returns the
// applied version together with the migrations above it.
func pendingMigrations(ctx context.Context, db *sql.DB) (int, []Migration, error) {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return 0, nil, fmt.Errorf("create migrations table: %w", err)
	}
	current, err := currentVersion(db)
	if err != nil {
		return 0, nil, fmt.Errorf("read schema version: %w", err)
	}
	at := sort.Search(len(migrations), func(i int) bool { return migrations[i].Version > current })
	return current, migrations[at:], nil
}

// currentVersion returns the highest applied migration version, or 0 if none.
func currentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// runMigrations applies each pending migration in its own transaction.
func runMigrations(db *sql.DB) error {
	ctx := context.Background()
	_, pending, err := pendingMigrations(ctx, db)
	if err != nil {
		return err
	}

	st := &Store{db: db}
	for _, m := range pending {
		err := st.WithTx(ctx, func(q Querier) error {
			if _, err := q.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
			}
			_, err := q.ExecContext(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				m.Version, formatTime(time.Now()))
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// MigrationPlan reports the schema state without applying anything.
func MigrationPlan(db *sql.DB) (*MigrationStatus, error) {
	current, pending, err := pendingMigrations(context.Background(), db)
	if err != nil {
		return nil, err
	}
	status := &MigrationStatus{CurrentVersion: current, AvailableVersion: migrations[len(migrations)-1].Version}
	for _, m := range pending {
		status.Pending = append(status.Pending, MigrationInfo{Version: m.Version, Description: m.Description})
	}
	return status, nil
}

func init() {
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			panic(fmt.Sprintf("store: migration %d declared out of order", migrations[i].Version))
		}
	}
}
