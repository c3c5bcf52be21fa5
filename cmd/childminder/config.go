package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk configuration, read from
// ~/.config/childminder/config.toml. Every field is optional; flags
// override whatever the file sets.
type fileConfig struct {
	// HistoryDB is the SQLite run history path.
	HistoryDB string `toml:"history_db"`
	// Timeout is the default one-shot timeout, e.g. "30s". Empty means
	// no timeout.
	Timeout string `toml:"timeout"`
	// StdoutLimit / StderrLimit cap the retained bytes per stream.
	StdoutLimit int `toml:"stdout_limit"`
	StderrLimit int `toml:"stderr_limit"`
	// StopTimeout bounds the graceful stop when streaming is
	// interrupted, e.g. "10s".
	StopTimeout string `toml:"stop_timeout"`
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "childminder", "config.toml")
	}
	return ""
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "childminder", "runs.db")
	}
	return filepath.Join(home, ".local", "share", "childminder", "runs.db")
}

// loadConfig reads path, tolerating a missing file. An empty path means
// the default location.
func loadConfig(path string) (fileConfig, error) {
	if path == "" {
		path = defaultConfigPath()
	}
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

// duration parses s, returning fallback when s is empty.
func duration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return d, nil
}
