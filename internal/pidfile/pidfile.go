// Package pidfile records the pid of a detached child process on disk so
// that a later invocation can find and signal it.
//
// The pidfile is guarded by a flock-based lock file: writers take the lock
// exclusively, so two controllers detaching into the same path cannot
// interleave their writes, and readers can distinguish "stale file" from
// "write in progress".
package pidfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryInterval is the interval between consecutive attempts to
// acquire the pidfile lock. 50ms balances responsiveness against CPU
// overhead from busy-polling.
const lockRetryInterval = 50 * time.Millisecond

// File is a written pidfile together with its held lock. Callers keep the
// lock for as long as they consider themselves the owner of the record and
// call Release when done.
type File struct {
	path string
	fl   *flock.Flock
}

// Write records pid at path, creating parent directories as needed. The
// lock (path + ".lock") is acquired first and remains held by the returned
// File. Lock acquisition is retried at lockRetryInterval until successful
// or ctx is done.
func Write(ctx context.Context, path string, pid int) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("pidfile path must not be empty")
	}
	if pid <= 0 {
		return nil, fmt.Errorf("pid must be positive, got %d", pid)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create pidfile directory: %w", err)
	}

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquire pidfile lock %s: %w", fl.Path(), err)
	}
	if !locked {
		// TryLockContext should return an error when it fails; handle the
		// unexpected (false, nil) case anyway.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire pidfile lock %s: %w", fl.Path(), ctx.Err())
		}
		return nil, fmt.Errorf("acquire pidfile lock %s: lock not acquired", fl.Path())
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		if closeErr := fl.Close(); closeErr != nil {
			return nil, fmt.Errorf("write pidfile %s: %w (also failed to release lock: %v)", path, err, closeErr)
		}
		return nil, fmt.Errorf("write pidfile %s: %w", path, err)
	}

	return &File{path: path, fl: fl}, nil
}

// Path returns the pidfile path.
func (f *File) Path() string {
	return f.path
}

// Release releases the lock without removing the pidfile, leaving the pid
// on disk for other processes to read. The lock file itself is
// intentionally left in place: removing it could invalidate a lock
// concurrently acquired by another process. Errors are logged at debug
// level; this is best-effort cleanup.
func (f *File) Release(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if f.fl != nil {
		if err := f.fl.Close(); err != nil {
			logger.Debug("failed to release pidfile lock", "path", f.fl.Path(), "err", err)
		}
		f.fl = nil
	}
}

// Remove deletes the pidfile and releases the lock. Used when the recorded
// process is known to be gone.
func (f *File) Remove(logger *slog.Logger) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pidfile %s: %w", f.path, err)
	}
	f.Release(logger)
	return nil
}

// Read returns the pid recorded at path. A missing file is reported via
// os.IsNotExist on the returned error.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pidfile %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pidfile %s: %w", path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("parse pidfile %s: pid must be positive, got %d", path, pid)
	}
	return pid, nil
}
