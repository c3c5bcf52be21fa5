package childminder

import (
	"github.com/tinkerbay/childminder/internal/core"
	"github.com/tinkerbay/childminder/internal/proc"
)

// Sentinel errors for precondition failures, matched with errors.Is.
const (
	// ErrNotRunning is returned by Stop, Join, and Detach when the
	// controller holds no process.
	ErrNotRunning = core.ErrNotRunning

	// ErrAlreadyStarted is returned by Start while a process is held.
	ErrAlreadyStarted = core.ErrAlreadyStarted

	// ErrNotDetachable is returned by Detach on a controller that was not
	// constructed with Detachable.
	ErrNotDetachable = core.ErrNotDetachable

	// ErrOutputNotPiped is returned by Start when an output-inspecting
	// detector is used with a detachable controller.
	ErrOutputNotPiped = core.ErrOutputNotPiped
)

// ErrExitedBeforeStart matches (via errors.Is) the Start error returned
// when the process terminates before its start detector is satisfied.
var ErrExitedBeforeStart = proc.ErrProcessExited

// CodeSignaled is the exit code reported for a process killed by a
// signal, which produced no exit code of its own. Join matches it only
// when the caller allows it explicitly.
const CodeSignaled = proc.CodeSignaled

// Data-carrying error types, matched with errors.As.
type (
	// CommandNotFoundError: the executable could not be located.
	CommandNotFoundError = core.CommandNotFoundError

	// SpawnError: an OS-level start failure other than a missing
	// executable.
	SpawnError = core.SpawnError

	// StartDetectorError: the start detector failed rather than declined.
	StartDetectorError = core.StartDetectorError

	// StartTimeoutError: the detector was not satisfied in time; the
	// process is left running.
	StartTimeoutError = core.StartTimeoutError

	// StopTimeoutError: the process did not terminate within the stop
	// timeout; the signal has been sent and StillAlive reports liveness.
	StopTimeoutError = core.StopTimeoutError

	// ExitCodeError: Join observed an exit code outside the allowed set.
	ExitCodeError = core.ExitCodeError

	// ExitError: a one-shot run terminated with a non-zero code or a
	// signal; carries the collected output.
	ExitError = core.ExitError

	// TimeoutError: a one-shot run exceeded its timeout; the kill signal
	// has been sent and the collected output is attached.
	TimeoutError = core.TimeoutError

	// StreamIOError: a read failure on one of the child's streams.
	StreamIOError = core.StreamIOError
)
