package childminder

import (
	"strings"
	"testing"
	"time"
)

// mustPanic asserts that fn panics with a message containing want.
func mustPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic, got none")
		}
		msg, ok := r.(string)
		if !ok {
			t.Fatalf("panic value = %v, want string", r)
		}
		if !strings.Contains(msg, want) {
			t.Fatalf("panic %q does not mention %q", msg, want)
		}
	}()
	fn()
}

func TestOptions_PanicOnInvalid(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		wantMsg string
		fn      func()
	}{
		"empty working directory": {
			wantMsg: "working directory",
			fn:      func() { WithDir("") },
		},
		"empty log directory": {
			wantMsg: "log directory",
			fn:      func() { WithDetachable("") },
		},
		"empty pidfile path": {
			wantMsg: "pidfile path",
			fn:      func() { WithPidfile("") },
		},
		"zero residue limit": {
			wantMsg: "residue limit",
			fn:      func() { WithResidueLimit(0) },
		},
		"nil stop signal": {
			wantMsg: "stop signal",
			fn:      func() { WithStopSignal(nil) },
		},
		"nil output encoding": {
			wantMsg: "output encoding",
			fn:      func() { WithOutputEncoding(nil) },
		},
		"nil logger": {
			wantMsg: "logger",
			fn:      func() { WithLogger(nil) },
		},
		"nil detector": {
			wantMsg: "start detector",
			fn:      func() { WithDetector(nil) },
		},
		"zero start timeout": {
			wantMsg: "start timeout",
			fn:      func() { WithStartTimeout(0) },
		},
		"negative run timeout": {
			wantMsg: "timeout",
			fn:      func() { WithTimeout(-time.Second) },
		},
		"nil kill signal": {
			wantMsg: "kill signal",
			fn:      func() { WithKillSignal(nil) },
		},
		"zero stdout limit": {
			wantMsg: "stdout limit",
			fn:      func() { WithStdoutLimit(0) },
		},
		"zero stderr limit": {
			wantMsg: "stderr limit",
			fn:      func() { WithStderrLimit(0) },
		},
		"nil stdin": {
			wantMsg: "stdin",
			fn:      func() { WithStdin(nil) },
		},
		"nil history": {
			wantMsg: "run log",
			fn:      func() { WithHistory(nil) },
		},
		"negative start delay": {
			wantMsg: "start delay",
			fn:      func() { AfterDelay(-time.Second) },
		},
		"nil output detector": {
			wantMsg: "output detector",
			fn:      func() { OnOutput(nil) },
		},
		"nil readiness check": {
			wantMsg: "readiness check",
			fn:      func() { PollReady(time.Second, nil) },
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			mustPanic(t, tc.wantMsg, tc.fn)
		})
	}
}

func TestNew_ConfigValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Error("New with empty command should fail")
	}
	// A pidfile only makes sense for a detachable controller.
	if _, err := New("redis-server", WithPidfile("/tmp/redis.pid")); err == nil {
		t.Error("New with pidfile but not detachable should fail")
	}
	if _, err := New("redis-server", WithDetachable(t.TempDir()), WithPidfile("/tmp/redis.pid")); err != nil {
		t.Errorf("New detachable with pidfile: %v", err)
	}
}
