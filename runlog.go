package childminder

import (
	"context"

	"github.com/tinkerbay/childminder/internal/runlog"
)

// RunRecord is one completed run in the history: command, arguments,
// start/finish times, exit code, and terminating signal if any.
type RunRecord = runlog.Record

// RunLog is a SQLite-backed history of completed runs. Wire it into Run
// with WithHistory; the CLI's history command reads the same database.
// Safe for concurrent use.
type RunLog struct {
	store *runlog.Store
}

// OpenRunLog opens (creating if necessary) the run history at path,
// creating parent directories as needed.
func OpenRunLog(path string) (*RunLog, error) {
	store, err := runlog.Open(path, nil)
	if err != nil {
		return nil, err
	}
	return &RunLog{store: store}, nil
}

// Recent returns up to limit records, most recent first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	return l.store.Recent(ctx, limit)
}

// Close closes the underlying database.
func (l *RunLog) Close() error {
	return l.store.Close()
}
