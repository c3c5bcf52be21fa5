package childminder

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/tinkerbay/childminder/internal/core"
)

// State is a controller's lifecycle state: idle, starting, or running.
type State = core.State

// Lifecycle states. A controller is Idle until Start, Starting until its
// start detector is satisfied, Running until termination is processed,
// and Idle again afterwards; a Stop in flight is carried by an internal
// flag rather than a distinct state.
const (
	StateIdle     = core.StateIdle
	StateStarting = core.StateStarting
	StateRunning  = core.StateRunning
)

// Controller owns at most one child process at a time. Its
// identity-bearing configuration is immutable, so a controller may be
// restarted after its previous process has terminated.
//
// All public operations block until resolved rather than running work in
// the background: Start until the detector fires, Stop until termination
// is observed, Join until natural exit. Event handlers registered with On
// run on a single internal dispatch goroutine.
type Controller struct {
	inner *core.Controller
}

// New constructs an idle controller for the given command. Command is
// resolved through PATH at start time when it contains no path
// separator.
//
// Returns an error for an inconsistent configuration (for example
// WithPidfile without WithDetachable). Individual options panic on
// programmer-error values; see their documentation.
func New(command string, opts ...Option) (*Controller, error) {
	cfg := core.ControllerConfig{Command: command}
	for _, opt := range opts {
		opt(&cfg)
	}
	inner, err := core.NewController(cfg)
	if err != nil {
		return nil, err
	}
	return &Controller{inner: inner}, nil
}

// On registers h for the named event; see the Event constants for names
// and payload types. Handlers run in registration order.
func (c *Controller) On(name string, h Handler) Subscription {
	return c.inner.On(name, h)
}

// Off removes a subscription returned by On.
func (c *Controller) Off(sub Subscription) {
	c.inner.Off(sub)
}

// Start spawns the process and blocks until the start detector declares
// it running, the start timeout fires, the process exits first, or ctx is
// canceled.
//
// A spawn failure (*CommandNotFoundError, *SpawnError) emits no events
// and leaves the controller idle. A start timeout returns a
// *StartTimeoutError and deliberately leaves the process running; the
// caller must Stop it. A process that exits before detection returns an
// error matching ErrExitedBeforeStart, after the termination events have
// been dispatched.
func (c *Controller) Start(ctx context.Context, opts ...StartOption) error {
	cfg := startConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return c.inner.Start(ctx, cfg.det, cfg.timeout)
}

// Stop sends sig to the process (nil means the configured stop signal,
// DefaultStopSignal unless overridden) and blocks until the termination
// has been observed and fully processed, or timeout expires
// (non-positive means DefaultStopTimeout).
//
// On expiry Stop returns a *StopTimeoutError: the signal has already
// been sent, the process may still be lingering, and escalation (for
// example SIGKILL) is the caller's decision. Returns ErrNotRunning when
// no process is held.
func (c *Controller) Stop(sig os.Signal, timeout time.Duration) error {
	return c.inner.Stop(sig, timeout)
}

// Join blocks until the process terminates naturally and returns its
// exit code when it is in allowed (empty means [0]); otherwise it
// returns the code together with a *ExitCodeError. A signal-killed
// process reports CodeSignaled, which matches only when allowed
// explicitly. Returns ErrNotRunning when no process is held.
func (c *Controller) Join(ctx context.Context, allowed ...int) (int, error) {
	return c.inner.Join(ctx, allowed)
}

// Detach releases the controller's hold on the child so it outlives the
// controller, recording its pid when WithPidfile was configured. Only
// valid on controllers constructed with WithDetachable; otherwise
// ErrNotDetachable. After Detach the controller is idle and dispatches
// no further events for the released process.
func (c *Controller) Detach(ctx context.Context) error {
	return c.inner.Detach(ctx)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.inner.State()
}

// IsRunning reports whether a process is held, in either the starting or
// running state.
func (c *Controller) IsRunning() bool {
	return c.inner.IsRunning()
}

// Pid returns the child's process id, or 0 when idle.
func (c *Controller) Pid() int {
	return c.inner.Pid()
}

// Stdin returns the write end of the child's standard input, or nil when
// idle or detachable.
func (c *Controller) Stdin() io.Writer {
	return c.inner.Stdin()
}
