package childminder

import (
	"context"

	"github.com/tinkerbay/childminder/internal/core"
)

// Result is the outcome of a successful one-shot run. Stdout and Stderr
// hold the most recent output per stream under the configured byte caps;
// ExitCode is always 0 on the success path.
type Result = core.RunResult

// Run executes the command once, blocks until it terminates, and
// collects its output.
//
// A non-zero exit or signal kill returns a *ExitError, a timeout
// returns a *TimeoutError with the kill signal already sent, and both
// carry the output collected so far. A missing executable returns a
// *CommandNotFoundError.
func Run(ctx context.Context, command string, args []string, opts ...RunOption) (*Result, error) {
	cfg := core.RunConfig{Command: command, Args: args}
	for _, opt := range opts {
		opt(&cfg)
	}
	return core.Run(ctx, cfg)
}

// RunShell executes the command line through "sh -c". Quoting is the
// caller's responsibility. Otherwise identical to Run.
func RunShell(ctx context.Context, commandLine string, opts ...RunOption) (*Result, error) {
	cfg := core.RunConfig{Command: commandLine, Shell: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return core.Run(ctx, cfg)
}
