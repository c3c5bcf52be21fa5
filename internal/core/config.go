package core

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/text/encoding"

	"github.com/tinkerbay/childminder/internal/runlog"
)

// Defaults applied when the corresponding config field is zero.
const (
	// DefaultMaxOutputBytes caps the bytes retained per output stream in
	// one-shot runs.
	DefaultMaxOutputBytes = 100 << 20 // 100 MiB

	// DefaultResidueLimit caps the unterminated-line residue kept per
	// stream during line reassembly.
	DefaultResidueLimit = 1 << 20 // 1 MiB

	// DefaultStartTimeout bounds the time a Start may take to reach the
	// running state.
	DefaultStartTimeout = 30 * time.Second

	// DefaultStopTimeout bounds the wait for termination after a Stop.
	DefaultStopTimeout = 10 * time.Second

	// DefaultPollInterval is the interval for PollReady start detectors.
	DefaultPollInterval = 100 * time.Millisecond
)

// DefaultStopSignal is sent by Stop when no signal is given. SIGTERM is
// the conventional graceful-termination request.
const DefaultStopSignal = syscall.SIGTERM

// DefaultKillSignal is sent to a one-shot child when its timeout fires.
const DefaultKillSignal = syscall.SIGTERM

// readBufSize is the per-read buffer for stream pumps.
const readBufSize = 32 << 10

// ControllerConfig configures a Controller. Command is required;
// everything else has a usable zero value.
type ControllerConfig struct {
	// Command is the executable path or name, resolved through PATH when
	// it contains no path separator.
	Command string

	// Args are passed to the command verbatim.
	Args []string

	// Dir is the child's working directory; empty means inherit.
	Dir string

	// Env is the child's environment; nil means inherit the parent's.
	Env []string

	// Shell runs the command line through "sh -c" instead of executing
	// Command directly.
	Shell bool

	// Detachable spawns the child in its own session with output written
	// to log files under LogDir, so Detach can release it to outlive the
	// controller. Detachable controllers do not pipe output and therefore
	// emit no output or line events.
	Detachable bool

	// LogDir receives <command>-stdout.log / <command>-stderr.log for
	// detachable children. Required when Detachable is set.
	LogDir string

	// PidfilePath, when non-empty, makes Detach record the child's pid in
	// a lock-guarded pidfile at this path. Requires Detachable.
	PidfilePath string

	// ResidueLimit caps the unterminated-line residue kept per stream; 0
	// means DefaultResidueLimit.
	ResidueLimit int

	// StopSignal is sent by Stop when the caller passes nil; nil here
	// means DefaultStopSignal.
	StopSignal os.Signal

	// Encoding, when non-nil, decodes stream bytes to UTF-8 before
	// accumulation and line splitting.
	Encoding encoding.Encoding

	// Logger overrides the package logger for this controller.
	Logger *slog.Logger
}

// Validate reports every violation, joined.
func (c ControllerConfig) Validate() error {
	var errs []error
	if c.Command == "" {
		errs = append(errs, errors.New("command must not be empty"))
	}
	if c.ResidueLimit < 0 {
		errs = append(errs, fmt.Errorf("residue limit must not be negative, got %d", c.ResidueLimit))
	}
	if c.Detachable && c.LogDir == "" {
		errs = append(errs, errors.New("detachable processes require a log directory"))
	}
	if !c.Detachable && c.PidfilePath != "" {
		errs = append(errs, errors.New("a pidfile path requires a detachable process"))
	}
	return errors.Join(errs...)
}

func (c ControllerConfig) residueLimit() int {
	if c.ResidueLimit == 0 {
		return DefaultResidueLimit
	}
	return c.ResidueLimit
}

func (c ControllerConfig) stopSignal() os.Signal {
	if c.StopSignal == nil {
		return DefaultStopSignal
	}
	return c.StopSignal
}

func (c ControllerConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return Logger()
}

// RunConfig configures a one-shot Run.
type RunConfig struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	Shell   bool

	// Timeout bounds the run; 0 means no timeout. On expiry KillSignal is
	// sent and Run returns a *TimeoutError.
	Timeout time.Duration

	// KillSignal is sent on timeout or context cancellation; nil means
	// DefaultKillSignal.
	KillSignal os.Signal

	// IgnoreOutput discards stream data instead of collecting it.
	IgnoreOutput bool

	// MaxStdoutBytes / MaxStderrBytes cap the retained bytes per stream,
	// keeping the most recent output; 0 means DefaultMaxOutputBytes.
	MaxStdoutBytes int
	MaxStderrBytes int

	// Encoding, when non-nil, decodes stream bytes to UTF-8 before
	// collection.
	Encoding encoding.Encoding

	// Stdin, when non-nil, is fed to the child's standard input.
	Stdin io.Reader

	// RunLog, when non-nil, receives a history record for the completed
	// run. Append failures are logged, not returned.
	RunLog *runlog.Store

	// Logger overrides the package logger for this run.
	Logger *slog.Logger
}

// Validate reports every violation, joined.
func (c RunConfig) Validate() error {
	var errs []error
	if c.Command == "" {
		errs = append(errs, errors.New("command must not be empty"))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.MaxStdoutBytes < 0 {
		errs = append(errs, fmt.Errorf("stdout byte cap must not be negative, got %d", c.MaxStdoutBytes))
	}
	if c.MaxStderrBytes < 0 {
		errs = append(errs, fmt.Errorf("stderr byte cap must not be negative, got %d", c.MaxStderrBytes))
	}
	return errors.Join(errs...)
}

func (c RunConfig) maxStdoutBytes() int {
	if c.MaxStdoutBytes == 0 {
		return DefaultMaxOutputBytes
	}
	return c.MaxStdoutBytes
}

func (c RunConfig) maxStderrBytes() int {
	if c.MaxStderrBytes == 0 {
		return DefaultMaxOutputBytes
	}
	return c.MaxStderrBytes
}

func (c RunConfig) killSignal() os.Signal {
	if c.KillSignal == nil {
		return DefaultKillSignal
	}
	return c.KillSignal
}

func (c RunConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return Logger()
}

// newCmd builds the exec.Cmd for a spawn. In shell mode the command and
// args are joined into a single line and handed to "sh -c"; quoting is
// the caller's responsibility.
func newCmd(command string, args []string, dir string, env []string) *exec.Cmd {
	cmd := exec.Command(command, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}
	return cmd
}

func newShellCmd(command string, args []string, dir string, env []string) *exec.Cmd {
	line := command
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	return newCmd("/bin/sh", []string{"-c", line}, dir, env)
}

func buildCmd(command string, args []string, dir string, env []string, shell bool) *exec.Cmd {
	if shell {
		return newShellCmd(command, args, dir, env)
	}
	return newCmd(command, args, dir, env)
}

// classifySpawnError maps a cmd.Start failure onto the error taxonomy:
// missing executables become *CommandNotFoundError (with the PATH search
// directories when the command was resolved through PATH), everything
// else becomes *SpawnError.
func classifySpawnError(command string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		var searched []string
		if !strings.ContainsRune(command, os.PathSeparator) {
			searched = filepath.SplitList(os.Getenv("PATH"))
		}
		return &CommandNotFoundError{Command: command, SearchPath: searched}
	}
	return &SpawnError{Command: command, Err: err}
}
