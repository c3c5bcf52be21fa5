package proc

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tinkerbay/childminder/internal/sentinel"
)

// ErrNilCmd is returned when Start is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when Start is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// CodeSignaled is the exit code recorded in Status when the process was
// killed by a signal and therefore produced no exit code of its own.
const CodeSignaled = -1

// Status describes how a child process terminated.
type Status struct {
	// Code is the process exit code, or CodeSignaled when the process was
	// killed by a signal.
	Code int
	// Signal is the name of the terminating signal (e.g. "SIGTERM"), or
	// empty for a normal exit.
	Signal string
}

// Signaled reports whether the process was killed by a signal rather than
// exiting on its own.
func (s Status) Signaled() bool {
	return s.Signal != ""
}

// Handle observes one started command. It owns the single cmd.Wait call:
// cmd.Wait must be called exactly once per started process, and calling it
// twice is undefined behavior, so Handle starts the Wait goroutine at
// construction and exposes its result through channels.
//
// Two channels are provided:
//   - Done (buffered 1): receives the cmd.Wait error exactly once; consume
//     it from a single place.
//   - Exited (closed on exit): broadcast signal safe to select on from any
//     number of goroutines.
type Handle struct {
	cmd    *exec.Cmd
	done   <-chan error
	exited <-chan struct{}
}

// Start starts cmd and begins observing it. The caller must have finished
// wiring cmd's Stdin/Stdout/Stderr before calling Start; assign *os.File
// pipe ends directly rather than using StdoutPipe, so that the internal
// Wait call cannot race reads of the stream data.
//
// The returned error is cmd.Start's error verbatim; classification (not
// found vs other spawn failures) is the caller's concern.
func Start(cmd *exec.Cmd) (*Handle, error) {
	if cmd == nil {
		return nil, ErrNilCmd
	}
	if cmd.Path == "" {
		return nil, ErrEmptyCmdPath
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()

	return &Handle{cmd: cmd, done: done, exited: exited}, nil
}

// Pid returns the OS process identifier of the child.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Signal sends sig to the child process. Signaling an already-exited
// process returns an error from the OS, which callers typically treat as
// "termination already underway".
func (h *Handle) Signal(sig os.Signal) error {
	return h.cmd.Process.Signal(sig)
}

// Done returns the channel carrying the single cmd.Wait result. Exactly
// one receive will ever succeed; use Exited for broadcast observation.
func (h *Handle) Done() <-chan error {
	return h.done
}

// Exited returns a channel closed when the process exits. Safe to select
// on from any number of goroutines.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// WaitStatus converts the error returned by cmd.Wait into a Status. A nil
// error is a clean zero exit. An *exec.ExitError yields either the exit
// code or, for a signal-killed process, CodeSignaled plus the signal name.
// Any other error (for example an I/O failure while waiting) is returned
// as-is with a zero Status.
func WaitStatus(err error) (Status, error) {
	if err == nil {
		return Status{Code: 0}, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Status{}, err
	}

	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return Status{Code: CodeSignaled, Signal: unix.SignalName(ws.Signal())}, nil
	}
	return Status{Code: exitErr.ExitCode()}, nil
}

// SignalName returns the conventional name of sig (e.g. "SIGTERM") when
// sig is a POSIX signal, falling back to sig.String() otherwise.
func SignalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		return unix.SignalName(s)
	}
	return sig.String()
}

// DrainDone reads from the done channel with timeout as a hard upper
// bound. Under normal conditions the channel delivers almost immediately
// after the process exits; the timeout is a safety net against a Wait that
// never returns due to stuck I/O.
//
// Returns true and the received error when the channel delivered in time,
// or false and nil when the timeout elapsed.
func DrainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}
