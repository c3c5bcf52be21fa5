// Package runlog persists a history of completed runs to a SQLite
// database, one row per child process execution.
//
// The store is append-mostly: the runner inserts a record when a run
// finishes, and the CLI reads recent records for display. SQLite keeps the
// history queryable across invocations without any server component.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

// Record is one completed run.
type Record struct {
	// ID uniquely identifies the run. Assigned by Append when empty.
	ID string
	// Command is the executable path or name that was run.
	Command string
	// Args are the arguments the command was invoked with.
	Args []string
	// StartedAt and FinishedAt bound the run, in UTC.
	StartedAt  time.Time
	FinishedAt time.Time
	// ExitCode is the process exit code; negative when signal-killed.
	ExitCode int
	// Signal is the terminating signal name, empty for a normal exit.
	Signal string
}

// Duration returns the wall-clock duration of the run.
func (r Record) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// argsSeparator joins argument lists for storage. A unit separator cannot
// appear in legitimate command arguments read from a shell.
const argsSeparator = "\x1f"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	command     TEXT NOT NULL,
	args        TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	exit_code   INTEGER NOT NULL,
	signal      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at DESC);
`

// Store is a SQLite-backed run history. Safe for concurrent use; the
// underlying database/sql pool serializes access as needed.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if necessary) the run history at path and ensures
// the schema exists. Parent directories are created as needed. If logger
// is nil, slog.Default() is used.
//
// The database is opened in WAL mode with a busy timeout so that a CLI
// reading history can coexist with a runner appending to it.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("run log path must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("run log: close after schema failure", "error", closeErr)
		}
		return nil, fmt.Errorf("ensure run log schema: %w", err)
	}

	return &Store{db: db, log: logger}, nil
}

// Append inserts rec into the history. When rec.ID is empty a fresh UUID
// is assigned. Timestamps are stored as Unix nanoseconds in UTC.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if rec.Command == "" {
		return fmt.Errorf("run log append: command must not be empty")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	const insert = `
		INSERT INTO runs (id, command, args, started_at, finished_at, exit_code, signal)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, insert,
		rec.ID,
		rec.Command,
		strings.Join(rec.Args, argsSeparator),
		rec.StartedAt.UTC().UnixNano(),
		rec.FinishedAt.UTC().UnixNano(),
		rec.ExitCode,
		rec.Signal,
	)
	if err != nil {
		return fmt.Errorf("append run %s: %w", rec.Command, err)
	}
	return nil
}

// Recent returns up to limit records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("run log limit must be positive, got %d", limit)
	}

	const query = `
		SELECT id, command, args, started_at, finished_at, exit_code, signal
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	var records []Record
	for rows.Next() {
		var (
			rec              Record
			args             string
			started, stopped int64
		)
		if err := rows.Scan(&rec.ID, &rec.Command, &args, &started, &stopped, &rec.ExitCode, &rec.Signal); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if args != "" {
			rec.Args = strings.Split(args, argsSeparator)
		}
		rec.StartedAt = time.Unix(0, started).UTC()
		rec.FinishedAt = time.Unix(0, stopped).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return records, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close run log: %w", err)
	}
	return nil
}
