package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/transform"

	"github.com/tinkerbay/childminder/internal/proc"
	"github.com/tinkerbay/childminder/internal/runlog"
	"github.com/tinkerbay/childminder/internal/tailbuf"
)

// killDrainGrace bounds the wait for the exit notification after the kill
// signal has been sent on the timeout path. Kept short so a timed-out Run
// still returns promptly; a child that ignores the signal is reaped by
// the background drain instead.
const killDrainGrace = 100 * time.Millisecond

// outputDrainGrace bounds the wait for stream EOF after the process has
// exited. EOF normally arrives immediately; the bound covers a grandchild
// that inherited the pipe's write end and kept it open.
const outputDrainGrace = 500 * time.Millisecond

// RunResult is the outcome of a successful one-shot run. Stdout and
// Stderr hold the most recent output per stream, subject to the
// configured byte caps; ExitCode is always 0 on the success path.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Run executes the command once and collects its output. Non-zero exits
// and signal kills return a *ExitError, a timeout returns a
// *TimeoutError with the kill signal already sent, and every failure
// carries the output collected so far.
func Run(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}
	log := cfg.logger()

	cmd := buildCmd(cfg.Command, cfg.Args, cfg.Dir, cfg.Env, cfg.Shell)
	proc.SetParentDeathSignal(cmd)

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Command: cfg.Command, Err: err}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		return nil, &SpawnError{Command: cfg.Command, Err: err}
	}
	if cfg.Stdin != nil {
		cmd.Stdin = cfg.Stdin
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	startedAt := time.Now()
	h, err := proc.Start(cmd)
	if err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		return nil, classifySpawnError(cfg.Command, err)
	}
	closeAll(stdoutW, stderrW)
	defer closeAll(stdoutR, stderrR)

	var outR, errR io.Reader = stdoutR, stderrR
	if cfg.Encoding != nil {
		outR = transform.NewReader(stdoutR, cfg.Encoding.NewDecoder())
		errR = transform.NewReader(stderrR, cfg.Encoding.NewDecoder())
	}

	stdout := newRunCollector("stdout", cfg.maxStdoutBytes(), cfg.IgnoreOutput)
	stderr := newRunCollector("stderr", cfg.maxStderrBytes(), cfg.IgnoreOutput)

	g := new(errgroup.Group)
	g.Go(func() error { return stdout.consume(outR) })
	g.Go(func() error { return stderr.consume(errR) })
	pumps := make(chan error, 1)
	go func() { pumps <- g.Wait() }()

	var timeoutC <-chan time.Time
	if cfg.Timeout > 0 {
		timer := time.NewTimer(cfg.Timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case waitErr := <-h.Done():
		// Collect whatever is still buffered in the pipes, with a bound
		// in case a grandchild kept a write end open.
		var pumpErr error
		select {
		case pumpErr = <-pumps:
		case <-time.After(outputDrainGrace):
			log.Warn("output drain timed out; a descendant may still hold the pipes", "command", cfg.Command)
		}

		status, statusErr := proc.WaitStatus(waitErr)
		if statusErr != nil {
			return nil, fmt.Errorf("run %s: %w", cfg.Command, statusErr)
		}
		cfg.record(ctx, log, startedAt, time.Now(), status)

		so, se := stdout.bytes(), stderr.bytes()
		if pumpErr != nil {
			var serr *StreamIOError
			if errors.As(pumpErr, &serr) {
				serr.Stdout = so
				serr.Stderr = se
			}
			return nil, pumpErr
		}
		if status.Code == 0 && !status.Signaled() {
			return &RunResult{Stdout: so, Stderr: se, ExitCode: 0}, nil
		}
		return nil, &ExitError{
			Command: cfg.Command,
			Code:    status.Code,
			Signal:  status.Signal,
			Stdout:  so,
			Stderr:  se,
		}

	case <-timeoutC:
		cfg.kill(h, log)
		if ok, waitErr := proc.DrainDone(h.Done(), killDrainGrace); ok {
			status, statusErr := proc.WaitStatus(waitErr)
			if statusErr == nil {
				cfg.record(ctx, log, startedAt, time.Now(), status)
			}
		} else {
			go reap(h, cfg.Command, log)
		}
		return nil, &TimeoutError{
			Command: cfg.Command,
			Timeout: cfg.Timeout,
			Stdout:  stdout.bytes(),
			Stderr:  stderr.bytes(),
		}

	case <-ctx.Done():
		cfg.kill(h, log)
		if ok, _ := proc.DrainDone(h.Done(), killDrainGrace); !ok {
			go reap(h, cfg.Command, log)
		}
		return nil, fmt.Errorf("run %s: %w", cfg.Command, ctx.Err())
	}
}

func (c RunConfig) kill(h *proc.Handle, log *slog.Logger) {
	sig := c.killSignal()
	if err := h.Signal(sig); err != nil {
		log.Debug("kill signal not delivered", "command", c.Command, "err", err)
	}
}

// reap consumes the exit notification of a child that outlived its run,
// so the wait goroutine does not linger past the child's lifetime.
func reap(h *proc.Handle, command string, log *slog.Logger) {
	<-h.Exited()
	log.Debug("timed-out process reaped", "command", command)
}

// record appends the run to the history store, best-effort. Uses a
// cancellation-free context so a timed-out run is still recorded.
func (c RunConfig) record(ctx context.Context, log *slog.Logger, startedAt, finishedAt time.Time, status proc.Status) {
	if c.RunLog == nil {
		return
	}
	rec := runlog.Record{
		Command:    c.Command,
		Args:       c.Args,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		ExitCode:   status.Code,
		Signal:     status.Signal,
	}
	if err := c.RunLog.Append(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("run log append failed", "command", c.Command, "err", err)
	}
}

// runCollector accumulates one stream into a bounded buffer. bytes may be
// called from the Run goroutine while consume is still reading, so the
// buffer is mutex-guarded.
type runCollector struct {
	stream string
	ignore bool

	mu  sync.Mutex
	buf *tailbuf.Buffer
}

func newRunCollector(stream string, max int, ignore bool) *runCollector {
	return &runCollector{stream: stream, ignore: ignore, buf: tailbuf.New(max)}
}

func (rc *runCollector) consume(r io.Reader) error {
	buf := make([]byte, readBufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 && !rc.ignore {
			data := make([]byte, n)
			copy(data, buf[:n])
			rc.mu.Lock()
			rc.buf.Add(data)
			rc.mu.Unlock()
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return &StreamIOError{Stream: rc.stream, Err: err}
		}
	}
}

func (rc *runCollector) bytes() []byte {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.buf.Value()
}
