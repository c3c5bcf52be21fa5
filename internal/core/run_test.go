package core

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinkerbay/childminder/internal/proc"
	"github.com/tinkerbay/childminder/internal/runlog"
)

func TestRun_CleanExit(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), RunConfig{Command: "ls"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if len(res.Stdout) == 0 {
		t.Error("Stdout is empty, ls should list something")
	}
}

func TestRun_NonZeroExitKeepsOutput(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), RunConfig{
		Command: "/bin/sh",
		Args:    []string{"-c", "echo foo; echo bar >&2; exit 1"},
	})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run = %v, want *ExitError", err)
	}
	if exitErr.Code != 1 {
		t.Errorf("Code = %d, want 1", exitErr.Code)
	}
	if got := strings.TrimSpace(string(exitErr.Stdout)); got != "foo" {
		t.Errorf("Stdout = %q, want foo", got)
	}
	if got := strings.TrimSpace(string(exitErr.Stderr)); got != "bar" {
		t.Errorf("Stderr = %q, want bar", got)
	}
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	start := time.Now()
	_, err := Run(context.Background(), RunConfig{
		Command: "sleep",
		Args:    []string{"10"},
		Timeout: 500 * time.Millisecond,
	})
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Run = %v, want *TimeoutError", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error %q does not say timed out", err)
	}
	if !strings.Contains(err.Error(), "sleep") {
		t.Errorf("error %q does not name the command", err)
	}
	if elapsed > time.Second {
		t.Errorf("Run took %v, want prompt return after the 500ms timeout", elapsed)
	}
}

func TestRun_TimeoutKeepsPartialOutput(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), RunConfig{
		Command: "/bin/sh",
		Args:    []string{"-c", "echo partial; sleep 10"},
		Timeout: 300 * time.Millisecond,
	})
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Run = %v, want *TimeoutError", err)
	}
	if got := strings.TrimSpace(string(timeoutErr.Stdout)); got != "partial" {
		t.Errorf("Stdout = %q, want the output collected before the timeout", got)
	}
}

func TestRun_IgnoreOutput(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), RunConfig{
		Command:      "echo",
		Args:         []string{"discarded"},
		IgnoreOutput: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Stdout) != 0 {
		t.Errorf("Stdout = %q, want empty with IgnoreOutput", res.Stdout)
	}
}

func TestRun_StdoutByteCapKeepsTail(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), RunConfig{
		Command:        "/bin/sh",
		Args:           []string{"-c", `head -c 200 /dev/zero | tr '\0' x; printf 'TAIL'`},
		MaxStdoutBytes: 100,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Stdout) > 100 {
		t.Errorf("len(Stdout) = %d, want at most the 100-byte cap", len(res.Stdout))
	}
	if !bytes.HasSuffix(res.Stdout, []byte("TAIL")) {
		t.Errorf("Stdout = %q, want it to end with the most recent bytes", res.Stdout)
	}
}

func TestRun_Stdin(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), RunConfig{
		Command: "cat",
		Stdin:   strings.NewReader("ping\n"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := string(res.Stdout); got != "ping\n" {
		t.Errorf("Stdout = %q, want ping", got)
	}
}

func TestRun_ShellMode(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), RunConfig{
		Command: "echo",
		Args:    []string{"$((6*7))"},
		Shell:   true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(string(res.Stdout)); got != "42" {
		t.Errorf("Stdout = %q, want 42 via shell expansion", got)
	}
}

func TestRun_CommandNotFound(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), RunConfig{Command: "childminder-test-no-such-command"})
	var notFound *CommandNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Run = %v, want *CommandNotFoundError", err)
	}
}

func TestRun_SignalKilled(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), RunConfig{
		Command: "/bin/sh",
		Args:    []string{"-c", "kill -TERM $$"},
	})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run = %v, want *ExitError", err)
	}
	if exitErr.Code != proc.CodeSignaled {
		t.Errorf("Code = %d, want CodeSignaled", exitErr.Code)
	}
	if exitErr.Signal != "SIGTERM" {
		t.Errorf("Signal = %q, want SIGTERM", exitErr.Signal)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, RunConfig{Command: "sleep", Args: []string{"10"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v, want wrapped context.DeadlineExceeded", err)
	}
}

func TestRun_RecordsHistory(t *testing.T) {
	t.Parallel()

	store, err := runlog.Open(filepath.Join(t.TempDir(), "runs.db"), nil)
	if err != nil {
		t.Fatalf("runlog.Open: %v", err)
	}
	defer store.Close()

	if _, err := Run(context.Background(), RunConfig{Command: "true", RunLog: store}); err != nil {
		t.Fatalf("Run(true): %v", err)
	}
	_, err = Run(context.Background(), RunConfig{
		Command: "/bin/sh",
		Args:    []string{"-c", "exit 2"},
		RunLog:  store,
	})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run = %v, want *ExitError", err)
	}

	records, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	codes := map[int]bool{}
	for _, rec := range records {
		codes[rec.ExitCode] = true
	}
	if !codes[0] || !codes[2] {
		t.Errorf("recorded exit codes = %v, want 0 and 2", codes)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), RunConfig{Timeout: -time.Second})
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"command must not be empty", "timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
