package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
history_db = "/var/lib/childminder/runs.db"
timeout = "45s"
stdout_limit = 4096
stop_timeout = "3s"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HistoryDB != "/var/lib/childminder/runs.db" {
		t.Errorf("HistoryDB = %q", cfg.HistoryDB)
	}
	if cfg.Timeout != "45s" {
		t.Errorf("Timeout = %q, want 45s", cfg.Timeout)
	}
	if cfg.StdoutLimit != 4096 {
		t.Errorf("StdoutLimit = %d, want 4096", cfg.StdoutLimit)
	}
	if cfg.StderrLimit != 0 {
		t.Errorf("StderrLimit = %d, want 0 for an unset key", cfg.StderrLimit)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("loadConfig on a missing file: %v", err)
	}
	if cfg != (fileConfig{}) {
		t.Errorf("cfg = %+v, want zero value", cfg)
	}
}

func TestDuration(t *testing.T) {
	d, err := duration("", 10*time.Second)
	if err != nil || d != 10*time.Second {
		t.Errorf("duration(\"\") = (%v, %v), want fallback", d, err)
	}
	d, err = duration("250ms", 0)
	if err != nil || d != 250*time.Millisecond {
		t.Errorf("duration(250ms) = (%v, %v)", d, err)
	}
	if _, err := duration("nonsense", 0); err == nil {
		t.Error("expected parse error for nonsense")
	}
}
