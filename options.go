package childminder

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/text/encoding"

	"github.com/tinkerbay/childminder/internal/core"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("childminder: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("childminder: %s must not be empty", name))
	}
}

// Option configures a Controller during construction via New. Each With*
// function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (empty paths,
// non-positive durations, nil values). These panics are intentional:
// option values are typically compile-time constants, so an invalid value
// indicates a programmer error rather than a runtime condition. The
// pattern mirrors [regexp.MustCompile].
type Option func(*core.ControllerConfig)

// WithArgs sets the command's argument list.
func WithArgs(args ...string) Option {
	return func(c *core.ControllerConfig) {
		c.Args = args
	}
}

// WithDir sets the child's working directory.
// Panics if dir is empty.
func WithDir(dir string) Option {
	requireNonEmpty("working directory", dir)
	return func(c *core.ControllerConfig) {
		c.Dir = dir
	}
}

// WithEnv sets the child's environment in "KEY=value" form, replacing the
// inherited environment entirely.
func WithEnv(env []string) Option {
	return func(c *core.ControllerConfig) {
		c.Env = env
	}
}

// WithShell runs the command line through "sh -c" instead of executing
// the command directly. Quoting is the caller's responsibility.
func WithShell() Option {
	return func(c *core.ControllerConfig) {
		c.Shell = true
	}
}

// WithDetachable spawns the child in its own session with its output
// written to log files under logDir, so Detach can release it to outlive
// the controller. Detachable controllers do not pipe output and emit no
// output or line events; use AfterDelay or PollReady start detectors.
// Panics if logDir is empty.
func WithDetachable(logDir string) Option {
	requireNonEmpty("log directory", logDir)
	return func(c *core.ControllerConfig) {
		c.Detachable = true
		c.LogDir = logDir
	}
}

// WithPidfile makes Detach record the released child's pid at path,
// guarded by a file lock. Only valid together with WithDetachable.
// Panics if path is empty.
func WithPidfile(path string) Option {
	requireNonEmpty("pidfile path", path)
	return func(c *core.ControllerConfig) {
		c.PidfilePath = path
	}
}

// WithResidueLimit caps the unterminated-line residue kept per stream
// during line reassembly.
//
// Default: DefaultResidueLimit.
//
// Panics if n <= 0.
func WithResidueLimit(n int) Option {
	requirePositive("residue limit", n)
	return func(c *core.ControllerConfig) {
		c.ResidueLimit = n
	}
}

// WithStopSignal sets the signal Stop sends when its caller passes nil.
//
// Default: DefaultStopSignal.
//
// Panics if sig is nil.
func WithStopSignal(sig os.Signal) Option {
	if sig == nil {
		panic("childminder: stop signal must not be nil")
	}
	return func(c *core.ControllerConfig) {
		c.StopSignal = sig
	}
}

// WithOutputEncoding decodes stream bytes through enc before
// accumulation and line splitting, for children that emit something
// other than UTF-8.
// Panics if enc is nil.
func WithOutputEncoding(enc encoding.Encoding) Option {
	if enc == nil {
		panic("childminder: output encoding must not be nil")
	}
	return func(c *core.ControllerConfig) {
		c.Encoding = enc
	}
}

// WithLogger overrides the package logger for this controller.
// Panics if l is nil; use SetLogger(nil) to reset the package logger.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("childminder: logger must not be nil")
	}
	return func(c *core.ControllerConfig) {
		c.Logger = l
	}
}

// StartOption configures a single Start call.
type StartOption func(*startConfig)

type startConfig struct {
	det     Detector
	timeout time.Duration
}

// WithDetector sets the start detector for this Start call.
//
// Default: AnyOutput.
//
// Panics if det is nil.
func WithDetector(det Detector) StartOption {
	if det == nil {
		panic("childminder: start detector must not be nil")
	}
	return func(c *startConfig) {
		c.det = det
	}
}

// WithStartTimeout bounds the time Start may take to reach the running
// state. On expiry the process is left running and Start returns a
// *StartTimeoutError.
//
// Default: DefaultStartTimeout.
//
// Panics if d <= 0.
func WithStartTimeout(d time.Duration) StartOption {
	requirePositive("start timeout", d)
	return func(c *startConfig) {
		c.timeout = d
	}
}

// RunOption configures a one-shot Run or RunShell call.
type RunOption func(*core.RunConfig)

// WithRunDir sets the child's working directory.
// Panics if dir is empty.
func WithRunDir(dir string) RunOption {
	requireNonEmpty("working directory", dir)
	return func(c *core.RunConfig) {
		c.Dir = dir
	}
}

// WithRunEnv sets the child's environment, replacing the inherited one.
func WithRunEnv(env []string) RunOption {
	return func(c *core.RunConfig) {
		c.Env = env
	}
}

// WithTimeout bounds the run. On expiry the kill signal is sent and Run
// returns a *TimeoutError carrying the output collected so far.
//
// Default: no timeout.
//
// Panics if d <= 0.
func WithTimeout(d time.Duration) RunOption {
	requirePositive("timeout", d)
	return func(c *core.RunConfig) {
		c.Timeout = d
	}
}

// WithKillSignal sets the signal sent on timeout or context
// cancellation.
//
// Default: DefaultKillSignal.
//
// Panics if sig is nil.
func WithKillSignal(sig os.Signal) RunOption {
	if sig == nil {
		panic("childminder: kill signal must not be nil")
	}
	return func(c *core.RunConfig) {
		c.KillSignal = sig
	}
}

// WithIgnoreOutput discards stream data instead of collecting it.
func WithIgnoreOutput() RunOption {
	return func(c *core.RunConfig) {
		c.IgnoreOutput = true
	}
}

// WithStdoutLimit caps the retained stdout bytes, keeping the most
// recent output.
//
// Default: DefaultMaxOutputBytes.
//
// Panics if n <= 0.
func WithStdoutLimit(n int) RunOption {
	requirePositive("stdout limit", n)
	return func(c *core.RunConfig) {
		c.MaxStdoutBytes = n
	}
}

// WithStderrLimit caps the retained stderr bytes, keeping the most
// recent output.
//
// Default: DefaultMaxOutputBytes.
//
// Panics if n <= 0.
func WithStderrLimit(n int) RunOption {
	requirePositive("stderr limit", n)
	return func(c *core.RunConfig) {
		c.MaxStderrBytes = n
	}
}

// WithStdin feeds r to the child's standard input.
// Panics if r is nil.
func WithStdin(r io.Reader) RunOption {
	if r == nil {
		panic("childminder: stdin reader must not be nil")
	}
	return func(c *core.RunConfig) {
		c.Stdin = r
	}
}

// WithRunEncoding decodes stream bytes through enc before collection.
// Panics if enc is nil.
func WithRunEncoding(enc encoding.Encoding) RunOption {
	if enc == nil {
		panic("childminder: output encoding must not be nil")
	}
	return func(c *core.RunConfig) {
		c.Encoding = enc
	}
}

// WithHistory records the completed run in l. Append failures are
// logged, never returned.
// Panics if l is nil.
func WithHistory(l *RunLog) RunOption {
	if l == nil {
		panic("childminder: run log must not be nil")
	}
	return func(c *core.RunConfig) {
		c.RunLog = l.store
	}
}

// WithRunLogger overrides the package logger for this run.
// Panics if l is nil.
func WithRunLogger(l *slog.Logger) RunOption {
	if l == nil {
		panic("childminder: logger must not be nil")
	}
	return func(c *core.RunConfig) {
		c.Logger = l
	}
}
