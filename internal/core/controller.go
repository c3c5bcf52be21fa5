package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/transform"

	"github.com/tinkerbay/childminder/internal/events"
	"github.com/tinkerbay/childminder/internal/pidfile"
	"github.com/tinkerbay/childminder/internal/proc"
)

// State is the controller's lifecycle state.
type State int

const (
	// StateIdle means no process handle is held.
	StateIdle State = iota
	// StateStarting means the process is spawned but the start detector
	// has not yet been satisfied.
	StateStarting
	// StateRunning means the start detector has been satisfied and the
	// handle is still held.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type streamName string

const (
	streamStdout streamName = "stdout"
	streamStderr streamName = "stderr"
)

type msgKind int

const (
	msgChunk msgKind = iota
	msgStreamErr
	msgTerm
)

// loopMsg is one item on the controller's internal channel: a stream
// fragment, a stream read failure, or the termination notification.
type loopMsg struct {
	kind   msgKind
	stream streamName
	data   []byte
	err    error
	status proc.Status
}

// Controller owns at most one child process at a time. All stream data
// and the termination notification flow through a single loop goroutine,
// which is the only place event handlers run; EventExit is therefore
// always dispatched strictly before the classified termination event, and
// no two handlers for the same controller run concurrently.
//
// The identity-bearing configuration is immutable, so a controller may be
// restarted after its process has terminated.
type Controller struct {
	cfg ControllerConfig
	log *slog.Logger
	reg *events.Registry

	mu            sync.Mutex
	state         State
	handle        *proc.Handle
	stdin         io.WriteCloser
	expectingStop bool
	detachCh      chan struct{}
	finished      chan struct{}
	closers       []io.Closer
	lastStatus    proc.Status
	lastWaitErr   error
}

// NewController validates cfg and returns an idle controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("controller config: %w", err)
	}
	return &Controller{
		cfg: cfg,
		log: cfg.logger(),
		reg: events.NewRegistry(),
	}, nil
}

// On registers h for the named event; see the Event constants for names
// and payload types.
func (c *Controller) On(name string, h events.Handler) events.Subscription {
	return c.reg.On(name, h)
}

// Off removes a subscription returned by On.
func (c *Controller) Off(sub events.Subscription) {
	c.reg.Off(sub)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsRunning reports whether a process handle is held, in either the
// starting or running state.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

// Pid returns the child's process id, or 0 when idle.
func (c *Controller) Pid() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return 0
	}
	return c.handle.Pid()
}

// Stdin returns the write end of the child's standard input, or nil when
// idle or detachable. Write errors (for example a broken pipe after the
// child closed its end) surface directly on Write.
func (c *Controller) Stdin() io.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil || c.stdin == nil {
		return nil
	}
	return c.stdin
}

// spawned bundles everything a fresh spawn hands back to Start.
type spawned struct {
	handle   *proc.Handle
	stdin    io.WriteCloser
	detachCh chan struct{}
	finished chan struct{}
	started  chan error
}

// Start spawns the process and blocks until det declares it started, the
// timeout fires, the process exits first, or ctx is canceled. A nil det
// means AnyOutput; a non-positive timeout means DefaultStartTimeout.
//
// On a spawn failure no events are emitted and the handle stays absent.
// On a start timeout the process is left running and the controller stays
// in the starting state; the caller must Stop it.
func (c *Controller) Start(ctx context.Context, det Detector, timeout time.Duration) error {
	if det == nil {
		det = AnyOutput()
	}
	if timeout <= 0 {
		timeout = DefaultStartTimeout
	}
	if c.cfg.Detachable && inspectsOutput(det) {
		return fmt.Errorf("start %s: %w", c.cfg.Command, ErrOutputNotPiped)
	}

	c.mu.Lock()
	if c.handle != nil {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	sp, err := c.spawn(det)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.handle = sp.handle
	c.stdin = sp.stdin
	c.state = StateStarting
	c.expectingStop = false
	c.detachCh = sp.detachCh
	c.finished = sp.finished
	c.mu.Unlock()

	c.log.Debug("process started", "command", c.cfg.Command, "pid", sp.handle.Pid())
	return c.awaitStarted(ctx, sp, det, timeout)
}

func (c *Controller) spawn(det Detector) (*spawned, error) {
	cmd := buildCmd(c.cfg.Command, c.cfg.Args, c.cfg.Dir, c.cfg.Env, c.cfg.Shell)
	if c.cfg.Detachable {
		return c.spawnDetached(cmd, det)
	}
	return c.spawnPiped(cmd, det)
}

// spawnPiped wires manual pipes for all three streams. The pipe ends are
// assigned directly rather than via StdoutPipe so that the handle's
// single Wait goroutine cannot close them underneath a pump mid-read.
func (c *Controller) spawnPiped(cmd *exec.Cmd, det Detector) (*spawned, error) {
	proc.SetParentDeathSignal(cmd)

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Command: c.cfg.Command, Err: err}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		return nil, &SpawnError{Command: c.cfg.Command, Err: err}
	}
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		return nil, &SpawnError{Command: c.cfg.Command, Err: err}
	}
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	h, err := proc.Start(cmd)
	if err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW, stdinR, stdinW)
		return nil, classifySpawnError(c.cfg.Command, err)
	}
	// The child holds its own duplicated descriptors now.
	closeAll(stdoutW, stderrW, stdinR)

	var outR, errR io.Reader = stdoutR, stderrR
	if c.cfg.Encoding != nil {
		outR = transform.NewReader(stdoutR, c.cfg.Encoding.NewDecoder())
		errR = transform.NewReader(stderrR, c.cfg.Encoding.NewDecoder())
	}

	sp := &spawned{
		handle:   h,
		stdin:    stdinW,
		detachCh: make(chan struct{}),
		finished: make(chan struct{}),
		started:  make(chan error, 1),
	}
	c.closers = []io.Closer{stdoutR, stderrR}

	msgCh := make(chan loopMsg, 64)
	g := new(errgroup.Group)
	g.Go(func() error {
		c.pump(streamStdout, outR, msgCh, sp.detachCh)
		return nil
	})
	g.Go(func() error {
		c.pump(streamStderr, errR, msgCh, sp.detachCh)
		return nil
	})
	go func() {
		// Pumps drain first so every fragment precedes the termination
		// message on the channel.
		_ = g.Wait()
		waitErr := <-h.Done()
		status, statusErr := proc.WaitStatus(waitErr)
		select {
		case msgCh <- loopMsg{kind: msgTerm, status: status, err: statusErr}:
		case <-sp.detachCh:
		}
	}()
	go c.loop(msgCh, sp, det)

	return sp, nil
}

// spawnDetached writes the child's output to log files and puts it in its
// own session, so a later Detach can release it without breaking its
// streams. No pumps run; the loop only sees the termination message.
func (c *Controller) spawnDetached(cmd *exec.Cmd, det Detector) (*spawned, error) {
	proc.SetDetached(cmd)

	lf, err := proc.NewLogFiles(c.cfg.LogDir, filepath.Base(c.cfg.Command))
	if err != nil {
		return nil, &SpawnError{Command: c.cfg.Command, Err: err}
	}
	cmd.Stdout = lf.Stdout()
	cmd.Stderr = lf.Stderr()

	h, err := proc.Start(cmd)
	if err != nil {
		_ = lf.Close()
		return nil, classifySpawnError(c.cfg.Command, err)
	}

	sp := &spawned{
		handle:   h,
		detachCh: make(chan struct{}),
		finished: make(chan struct{}),
		started:  make(chan error, 1),
	}
	c.closers = []io.Closer{lf}

	msgCh := make(chan loopMsg, 1)
	go func() {
		select {
		case waitErr := <-h.Done():
			status, statusErr := proc.WaitStatus(waitErr)
			select {
			case msgCh <- loopMsg{kind: msgTerm, status: status, err: statusErr}:
			case <-sp.detachCh:
			}
		case <-sp.detachCh:
		}
	}()
	go c.loop(msgCh, sp, det)

	return sp, nil
}

// awaitStarted blocks the Start caller until the detector resolves.
func (c *Controller) awaitStarted(ctx context.Context, sp *spawned, det Detector, timeout time.Duration) error {
	overall := time.NewTimer(timeout)
	defer overall.Stop()

	switch d := det.(type) {
	case *delayDetector:
		delay := time.NewTimer(d.delay)
		defer delay.Stop()
		select {
		case <-delay.C:
			c.markRunning()
			return nil
		case <-overall.C:
			return &StartTimeoutError{Command: c.cfg.Command, Timeout: timeout}
		case <-sp.finished:
			return c.earlyExitError(sp)
		case <-ctx.Done():
			return fmt.Errorf("start %s: %w", c.cfg.Command, ctx.Err())
		}

	case *pollDetector:
		err := proc.WaitReady(ctx, proc.WaitReadyConfig{
			Interval:      d.interval,
			Timeout:       timeout,
			Name:          c.cfg.Command,
			Logger:        c.log,
			ProcessExited: sp.handle.Exited(),
		}, d.check)
		switch {
		case err == nil:
			c.markRunning()
			return nil
		case errors.Is(err, proc.ErrProcessExited):
			return c.earlyExitError(sp)
		case errors.Is(err, context.Canceled):
			return fmt.Errorf("start %s: %w", c.cfg.Command, err)
		case errors.Is(err, context.DeadlineExceeded):
			return &StartTimeoutError{Command: c.cfg.Command, Timeout: timeout}
		default:
			return &StartDetectorError{Command: c.cfg.Command, Err: err}
		}

	default: // output-inspecting detectors resolve on the loop goroutine
		select {
		case err := <-sp.started:
			if err != nil {
				return err
			}
			c.markRunning()
			return nil
		case <-overall.C:
			return &StartTimeoutError{Command: c.cfg.Command, Timeout: timeout}
		case <-sp.finished:
			// The detector may have fired in the same batch of output the
			// process emitted just before exiting.
			select {
			case err := <-sp.started:
				if err != nil {
					return err
				}
				c.markRunning()
				return nil
			default:
			}
			return c.earlyExitError(sp)
		case <-ctx.Done():
			return fmt.Errorf("start %s: %w", c.cfg.Command, ctx.Err())
		}
	}
}

func (c *Controller) markRunning() {
	c.mu.Lock()
	if c.handle != nil && c.state == StateStarting {
		c.state = StateRunning
	}
	c.mu.Unlock()
}

// earlyExitError reports a process that terminated before its start
// detector was satisfied. Termination classification has already run (or
// is about to); the error describes how the process ended.
func (c *Controller) earlyExitError(sp *spawned) error {
	<-sp.finished
	c.mu.Lock()
	status := c.lastStatus
	c.mu.Unlock()
	if status.Signaled() {
		return fmt.Errorf("start %s: %w (killed by %s)", c.cfg.Command, proc.ErrProcessExited, status.Signal)
	}
	return fmt.Errorf("start %s: %w (exit code %d)", c.cfg.Command, proc.ErrProcessExited, status.Code)
}

// pump reads one stream and forwards fragments to the loop. It exits on
// EOF, on a read error, or when the controller detaches.
func (c *Controller) pump(stream streamName, r io.Reader, msgCh chan<- loopMsg, detachCh <-chan struct{}) {
	buf := make([]byte, readBufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case msgCh <- loopMsg{kind: msgChunk, stream: stream, data: data}:
			case <-detachCh:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				select {
				case msgCh <- loopMsg{kind: msgStreamErr, stream: stream, err: err}:
				case <-detachCh:
				}
			}
			return
		}
	}
}

// loop is the controller's single dispatch goroutine. It owns the line
// splitters and the event registry dispatch; it exits after processing
// the termination message or when the controller detaches.
func (c *Controller) loop(msgCh <-chan loopMsg, sp *spawned, det Detector) {
	splitters := map[streamName]*lineSplitter{
		streamStdout: newLineSplitter(c.cfg.residueLimit()),
		streamStderr: newLineSplitter(c.cfg.residueLimit()),
	}

	var pending func(stdout, stderr []byte) (bool, error)
	switch d := det.(type) {
	case anyOutputDetector:
		pending = func(stdout, stderr []byte) (bool, error) {
			return len(stdout) > 0 || len(stderr) > 0, nil
		}
	case *outputDetector:
		pending = d.fn
	}

	for {
		select {
		case <-sp.detachCh:
			return
		case m := <-msgCh:
			switch m.kind {
			case msgChunk:
				var stdout, stderr []byte
				if m.stream == streamStdout {
					stdout = m.data
				} else {
					stderr = m.data
				}
				if pending != nil {
					ok, err := pending(stdout, stderr)
					switch {
					case err != nil:
						sp.started <- &StartDetectorError{Command: c.cfg.Command, Err: err}
						pending = nil
					case ok:
						sp.started <- nil
						pending = nil
					}
				}
				c.reg.Emit(EventOutput, OutputPayload{Stdout: stdout, Stderr: stderr})
				for _, line := range splitters[m.stream].feed(m.data) {
					c.emitLine(m.stream, line)
				}

			case msgStreamErr:
				serr := &StreamIOError{Stream: string(m.stream), Err: m.err}
				if pending != nil {
					sp.started <- serr
					pending = nil
				} else {
					c.log.Warn("stream read failed", "command", c.cfg.Command, "stream", m.stream, "err", m.err)
				}

			case msgTerm:
				if line, ok := splitters[streamStdout].flush(); ok {
					c.emitLine(streamStdout, line)
				}
				if line, ok := splitters[streamStderr].flush(); ok {
					c.emitLine(streamStderr, line)
				}
				if m.err != nil {
					c.log.Warn("wait failed", "command", c.cfg.Command, "err", m.err)
				}
				c.finalize(m, sp)
				return
			}
		}
	}
}

// finalize processes the termination: clear the handle, emit exit and
// exactly one classified event, release waiters.
func (c *Controller) finalize(m loopMsg, sp *spawned) {
	c.mu.Lock()
	expecting := c.expectingStop
	c.lastStatus = m.status
	c.lastWaitErr = m.err
	c.handle = nil
	c.state = StateIdle
	c.expectingStop = false
	stdin := c.stdin
	c.stdin = nil
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	for _, cl := range closers {
		_ = cl.Close()
	}

	c.log.Debug("process terminated",
		"command", c.cfg.Command, "code", m.status.Code, "signal", m.status.Signal, "expected", expecting)

	term := TerminationPayload{Code: m.status.Code, Signal: m.status.Signal}
	c.reg.Emit(EventExit, term)
	switch {
	case expecting:
		c.reg.Emit(EventStop, term)
	case m.status.Code == 0 && !m.status.Signaled() && m.err == nil:
		c.reg.Emit(EventEnd, term)
	default:
		c.reg.Emit(EventDie, term)
	}

	close(sp.finished)
}

func (c *Controller) emitLine(stream streamName, line string) {
	switch stream {
	case streamStdout:
		c.reg.Emit(EventLineStdout, line)
		c.reg.Emit(EventStreamLine, "[STDOUT] "+line)
	case streamStderr:
		c.reg.Emit(EventLineStderr, line)
		c.reg.Emit(EventStreamLine, "[STDERR] "+line)
	}
}

// Stop sends sig (nil means the configured stop signal) and waits up to
// timeout (non-positive means DefaultStopTimeout) for the termination to
// be observed and processed. On expiry the signal has already been sent
// and a *StopTimeoutError reports whether the process is still alive;
// escalation is the caller's decision.
func (c *Controller) Stop(sig os.Signal, timeout time.Duration) error {
	if sig == nil {
		sig = c.cfg.stopSignal()
	}
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	c.mu.Lock()
	h := c.handle
	fin := c.finished
	if h == nil {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.expectingStop = true
	pid := h.Pid()
	c.mu.Unlock()

	if err := h.Signal(sig); err != nil {
		// Signal delivery failing means the process already exited;
		// termination processing is in flight.
		c.log.Debug("stop signal not delivered", "command", c.cfg.Command, "pid", pid, "err", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-fin:
		return nil
	case <-timer.C:
		return &StopTimeoutError{
			Command:    c.cfg.Command,
			Pid:        pid,
			Signal:     proc.SignalName(sig),
			Timeout:    timeout,
			StillAlive: proc.Alive(pid),
		}
	}
}

// Join waits for natural termination and returns the exit code when it is
// in the allowed set (default [0]). A signal-killed process reports
// CodeSignaled, which matches only when the caller allowed it explicitly.
// Calling Join on an idle controller returns ErrNotRunning.
func (c *Controller) Join(ctx context.Context, allowed []int) (int, error) {
	c.mu.Lock()
	h := c.handle
	fin := c.finished
	c.mu.Unlock()
	if h == nil {
		return 0, ErrNotRunning
	}
	if len(allowed) == 0 {
		allowed = []int{0}
	}

	select {
	case <-fin:
	case <-ctx.Done():
		return 0, fmt.Errorf("join %s: %w", c.cfg.Command, ctx.Err())
	}

	c.mu.Lock()
	status := c.lastStatus
	waitErr := c.lastWaitErr
	c.mu.Unlock()
	if waitErr != nil {
		return 0, fmt.Errorf("join %s: %w", c.cfg.Command, waitErr)
	}

	for _, code := range allowed {
		if code == status.Code {
			return status.Code, nil
		}
	}
	return status.Code, &ExitCodeError{
		Command: c.cfg.Command,
		Code:    status.Code,
		Signal:  status.Signal,
		Allowed: allowed,
	}
}

// Detach releases the controller's hold on the child so it outlives the
// controller. Only valid on controllers configured Detachable; when a
// pidfile path is configured the child's pid is recorded under a file
// lock so another invocation can find it. After Detach the controller is
// idle and emits no further events for the released process.
func (c *Controller) Detach(ctx context.Context) error {
	c.mu.Lock()
	if !c.cfg.Detachable {
		c.mu.Unlock()
		return ErrNotDetachable
	}
	if c.handle == nil {
		c.mu.Unlock()
		return ErrNotRunning
	}
	pid := c.handle.Pid()
	detachCh := c.detachCh
	closers := c.closers
	c.handle = nil
	c.stdin = nil
	c.state = StateIdle
	c.expectingStop = false
	c.detachCh = nil
	c.finished = nil
	c.closers = nil
	c.mu.Unlock()

	close(detachCh)
	for _, cl := range closers {
		_ = cl.Close()
	}
	c.log.Debug("process detached", "command", c.cfg.Command, "pid", pid)

	if c.cfg.PidfilePath == "" {
		return nil
	}
	f, err := pidfile.Write(ctx, c.cfg.PidfilePath, pid)
	if err != nil {
		return fmt.Errorf("detached pid %d but could not record it: %w", pid, err)
	}
	f.Release(c.log)
	return nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
