package proc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LogFiles holds the stdout/stderr file handles for a child whose output
// goes to disk instead of pipes. Detachable children use this so their
// writes outlive the supervising process.
type LogFiles struct {
	stdout *os.File
	stderr *os.File
	dir    string
	name   string
}

// NewLogFiles creates <name>-stdout.log and <name>-stderr.log under dir,
// creating dir as needed. Both handles are assigned only after both
// creates succeed.
func NewLogFiles(dir, name string) (*LogFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	l := &LogFiles{dir: dir, name: name}
	stdout, err := os.Create(l.StdoutPath())
	if err != nil {
		return nil, fmt.Errorf("create stdout log: %w", err)
	}
	stderr, err := os.Create(l.StderrPath())
	if err != nil {
		_ = stdout.Close()
		return nil, fmt.Errorf("create stderr log: %w", err)
	}
	l.stdout = stdout
	l.stderr = stderr
	return l, nil
}

// Stdout returns the stdout file handle, to be wired as cmd.Stdout.
func (l *LogFiles) Stdout() *os.File {
	return l.stdout
}

// Stderr returns the stderr file handle, to be wired as cmd.Stderr.
func (l *LogFiles) Stderr() *os.File {
	return l.stderr
}

// StdoutPath returns the absolute path to the stdout log file.
func (l *LogFiles) StdoutPath() string {
	return filepath.Join(l.dir, l.name+"-stdout.log")
}

// StderrPath returns the absolute path to the stderr log file.
func (l *LogFiles) StderrPath() string {
	return filepath.Join(l.dir, l.name+"-stderr.log")
}

// Close closes both handles and nils them to prevent double-close. The
// child keeps its own duplicated descriptors, so closing the parent's
// handles does not disturb a still-running process.
func (l *LogFiles) Close() error {
	var errs []error
	if l.stdout != nil {
		if err := l.stdout.Close(); err != nil {
			errs = append(errs, err)
		}
		l.stdout = nil
	}
	if l.stderr != nil {
		if err := l.stderr.Close(); err != nil {
			errs = append(errs, err)
		}
		l.stderr = nil
	}
	return errors.Join(errs...)
}
