package core

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/tinkerbay/childminder/internal/sentinel"
)

// Sentinel errors for precondition failures. These carry no data and are
// matched with errors.Is.
const (
	// ErrNotRunning is returned by Stop, Join, and Detach when the
	// controller holds no process handle.
	ErrNotRunning = sentinel.Error("process is not running")

	// ErrAlreadyStarted is returned by Start while a handle is present.
	ErrAlreadyStarted = sentinel.Error("process already started")

	// ErrNotDetachable is returned by Detach on a controller that was not
	// configured as detachable.
	ErrNotDetachable = sentinel.Error("process was not spawned as detachable")

	// ErrOutputNotPiped is returned by Start when an output-inspecting
	// start detector is combined with a detachable controller, whose
	// streams go to log files rather than pipes.
	ErrOutputNotPiped = sentinel.Error("detachable processes do not pipe output; use AfterDelay or PollReady")
)

// CommandNotFoundError reports that the command's executable could not be
// located. SearchPath lists the directories that were consulted when the
// command was resolved through PATH.
type CommandNotFoundError struct {
	Command    string
	SearchPath []string
}

func (e *CommandNotFoundError) Error() string {
	if len(e.SearchPath) == 0 {
		return fmt.Sprintf("command %q not found", e.Command)
	}
	return fmt.Sprintf("command %q not found (searched: %s)", e.Command, strings.Join(e.SearchPath, ", "))
}

// Unwrap lets errors.Is(err, exec.ErrNotFound) match.
func (e *CommandNotFoundError) Unwrap() error {
	return exec.ErrNotFound
}

// SpawnError reports an OS-level start failure other than a missing
// executable, for example a permission error or fork failure.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// StartDetectorError reports that a start detector failed rather than
// declining: an output predicate returned an error, or a readiness poll
// aborted fatally.
type StartDetectorError struct {
	Command string
	Err     error
}

func (e *StartDetectorError) Error() string {
	return fmt.Sprintf("start detector for %q: %v", e.Command, e.Err)
}

func (e *StartDetectorError) Unwrap() error {
	return e.Err
}

// StartTimeoutError reports that the start detector was not satisfied
// within the start timeout. The process is left running; the caller must
// stop it explicitly.
type StartTimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *StartTimeoutError) Error() string {
	return fmt.Sprintf("start of %q timed out after %s (process left running)", e.Command, e.Timeout)
}

// StopTimeoutError reports that a stopped process did not terminate
// within the stop timeout. The signal has already been sent; escalation
// (for example SIGKILL) is the caller's decision.
type StopTimeoutError struct {
	Command    string
	Pid        int
	Signal     string
	Timeout    time.Duration
	StillAlive bool
}

func (e *StopTimeoutError) Error() string {
	return fmt.Sprintf("process %q (pid %d) didn't end within %s of %s (still alive: %v)",
		e.Command, e.Pid, e.Timeout, e.Signal, e.StillAlive)
}

// ExitCodeError reports a Join that observed an exit code outside the
// allowed set. For a signal-killed process Code is CodeSignaled and
// Signal names the signal.
type ExitCodeError struct {
	Command string
	Code    int
	Signal  string
	Allowed []int
}

func (e *ExitCodeError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("process %q was killed by %s (allowed exit codes %v)", e.Command, e.Signal, e.Allowed)
	}
	return fmt.Sprintf("process %q exited with unexpected code %d (allowed %v)", e.Command, e.Code, e.Allowed)
}

// ExitError reports a one-shot run that terminated with a non-zero exit
// code or a signal. Stdout and Stderr hold the output collected up to
// termination, subject to the configured byte caps.
type ExitError struct {
	Command string
	Code    int
	Signal  string
	Stdout  []byte
	Stderr  []byte
}

func (e *ExitError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("command %q was killed by %s", e.Command, e.Signal)
	}
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.Code)
}

// TimeoutError reports a one-shot run that exceeded its timeout. The kill
// signal has already been sent when this error is returned. Stdout and
// Stderr hold the output collected before the timeout.
type TimeoutError struct {
	Command string
	Timeout time.Duration
	Stdout  []byte
	Stderr  []byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s", e.Command, e.Timeout)
}

// StreamIOError reports a read failure on one of the child's output
// streams. For one-shot runs Stdout/Stderr carry the output collected
// before the failure; for controllers they are empty.
type StreamIOError struct {
	Stream string
	Err    error
	Stdout []byte
	Stderr []byte
}

func (e *StreamIOError) Error() string {
	return fmt.Sprintf("%s stream: %v", e.Stream, e.Err)
}

func (e *StreamIOError) Unwrap() error {
	return e.Err
}
