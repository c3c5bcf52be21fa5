package core

import (
	"strings"
	"testing"
	"time"
)

func TestControllerConfig_Validate(t *testing.T) {
	t.Parallel()

	type testCase struct {
		cfg      ControllerConfig
		wantMsgs []string
	}

	tests := map[string]testCase{
		"valid minimal": {
			cfg: ControllerConfig{Command: "ls"},
		},
		"valid detachable": {
			cfg: ControllerConfig{Command: "redis-server", Detachable: true, LogDir: "/tmp/logs"},
		},
		"all violations reported": {
			cfg:      ControllerConfig{ResidueLimit: -1, PidfilePath: "x.pid"},
			wantMsgs: []string{"command must not be empty", "residue limit", "pidfile path"},
		},
		"detachable without log dir": {
			cfg:      ControllerConfig{Command: "redis-server", Detachable: true},
			wantMsgs: []string{"log directory"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.cfg.Validate()
			if len(tc.wantMsgs) == 0 {
				if err != nil {
					t.Fatalf("Validate: %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, want := range tc.wantMsgs {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestRunConfig_Validate(t *testing.T) {
	t.Parallel()

	type testCase struct {
		cfg      RunConfig
		wantMsgs []string
	}

	tests := map[string]testCase{
		"valid": {
			cfg: RunConfig{Command: "ls", Timeout: time.Second},
		},
		"all violations reported": {
			cfg:      RunConfig{Timeout: -time.Second, MaxStdoutBytes: -1, MaxStderrBytes: -2},
			wantMsgs: []string{"command must not be empty", "timeout", "stdout byte cap", "stderr byte cap"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.cfg.Validate()
			if len(tc.wantMsgs) == 0 {
				if err != nil {
					t.Fatalf("Validate: %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, want := range tc.wantMsgs {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestControllerConfig_Defaults(t *testing.T) {
	t.Parallel()

	var cfg ControllerConfig
	if got := cfg.residueLimit(); got != DefaultResidueLimit {
		t.Errorf("residueLimit = %d, want %d", got, DefaultResidueLimit)
	}
	if got := cfg.stopSignal(); got != DefaultStopSignal {
		t.Errorf("stopSignal = %v, want %v", got, DefaultStopSignal)
	}

	var rc RunConfig
	if got := rc.maxStdoutBytes(); got != DefaultMaxOutputBytes {
		t.Errorf("maxStdoutBytes = %d, want %d", got, DefaultMaxOutputBytes)
	}
	if got := rc.killSignal(); got != DefaultKillSignal {
		t.Errorf("killSignal = %v, want %v", got, DefaultKillSignal)
	}
}

func TestBuildCmd_ShellMode(t *testing.T) {
	t.Parallel()

	cmd := buildCmd("echo", []string{"hello", "world"}, "", nil, true)
	if cmd.Args[0] != "/bin/sh" || cmd.Args[1] != "-c" {
		t.Fatalf("args = %v, want sh -c prefix", cmd.Args)
	}
	if cmd.Args[2] != "echo hello world" {
		t.Errorf("command line = %q, want %q", cmd.Args[2], "echo hello world")
	}
}
