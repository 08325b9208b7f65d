package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a show or session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would violate a uniqueness rule:
	// a second session for the same show, or a duplicate show name.
	ErrConflict = errors.New("conflict")
)

// DB wraps the SQLite connection with initialization logic.
type DB struct {
	*sql.DB
}

// Open creates or opens the SQLite database at the given path, runs schema
// initialization, and configures WAL mode for concurrent reads.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection serializes every transaction, which is what gives each
	// session transition its load-compute-commit atomicity.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS shows (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  genre TEXT NOT NULL DEFAULT '',
  episode_counts TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  show_id INTEGER NOT NULL,
  season INTEGER NOT NULL DEFAULT 1 CHECK (season >= 1),
  episode INTEGER NOT NULL DEFAULT 1 CHECK (episode >= 1),
  state TEXT NOT NULL DEFAULT 'watching' CHECK (state IN ('watching', 'finished')),
  start_date INTEGER NOT NULL,
  end_date INTEGER,
  FOREIGN KEY (show_id) REFERENCES shows(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema changes. Each migration is
// idempotent so it is safe to call on every database open.
func runMigrations(db *sql.DB) error {
	// --- Migration v1: databases written by the first release used
	// "gender" and "episodes" columns and stored dates as datetime text.
	if err := runLegacyColumnMigration(db); err != nil {
		return err
	}

	// --- Migration v2: one session per show
	if err := runSessionUniquenessMigration(db); err != nil {
		return err
	}

	return nil
}

func runLegacyColumnMigration(db *sql.DB) error {
	renames := []struct{ from, to string }{
		{"gender", "genre"},
		{"episodes", "episode_counts"},
	}
	for _, r := range renames {
		legacy, err := columnExists(db, "shows", r.from)
		if err != nil {
			return fmt.Errorf("check %s column: %w", r.from, err)
		}
		if !legacy {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf(`ALTER TABLE shows RENAME COLUMN %s TO %s`, r.from, r.to)); err != nil {
			return fmt.Errorf("run migration v1: %w", err)
		}
	}

	dates := []string{
		`UPDATE sessions SET start_date = CAST(strftime('%s', start_date) AS INTEGER) WHERE typeof(start_date) = 'text'`,
		`UPDATE sessions SET start_date = CAST(strftime('%s', 'now') AS INTEGER) WHERE start_date IS NULL`,
		`UPDATE sessions SET end_date = CAST(strftime('%s', end_date) AS INTEGER) WHERE typeof(end_date) = 'text'`,
	}
	for _, m := range dates {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("run migration v1: %w", err)
		}
	}
	return nil
}

// runSessionUniquenessMigration enforces at most one session per show. Older
// databases may hold duplicates; the newest session per show is kept.
func runSessionUniquenessMigration(db *sql.DB) error {
	migrations := []string{
		`DELETE FROM sessions WHERE id NOT IN (SELECT MAX(id) FROM sessions GROUP BY show_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_show_unique ON sessions(show_id)`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("run migration v2: %w", err)
		}
	}
	return nil
}

// Counts returns the number of shows and sessions in the database.
func (db *DB) Counts(ctx context.Context) (shows, sessions int, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM shows), (SELECT COUNT(*) FROM sessions)
	`).Scan(&shows, &sessions)
	return shows, sessions, err
}

// columnExists checks if a column exists in a table. It properly closes the
// rows cursor before returning, avoiding deadlocks with MaxOpenConns(1).
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(
		fmt.Sprintf("SELECT name FROM pragma_table_info('%s') WHERE name = ?", table),
		column,
	)
	if err != nil {
		return false, err
	}
	found := rows.Next()
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}
	return found, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
