package core

import (
	"log/slog"
	"sync/atomic"
)

// logger is the package-level logger, stored as an atomic pointer so
// SetLogger is safe to call concurrently with running controllers. Named
// "logger" instead of "log" to avoid shadowing the stdlib "log" package.
//
// A nil value means no custom logger has been set; Logger() falls back to
// a cached default derived from slog.Default().
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches the default-derived logger so it is not re-created
// on every Logger() call. If slog.SetDefault() changes after the first
// call, the cache does not reflect it until SetLogger(nil) clears it.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the current package-level logger. If no custom logger
// has been set via SetLogger, it returns a cached logger derived from
// slog.Default() with the childminder component attribute. Safe to call
// from multiple goroutines.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := newDefaultLogger()
	// Avoid overwriting a concurrently cached value; if another goroutine
	// already stored a logger, use theirs.
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

func newDefaultLogger() *slog.Logger {
	return slog.Default().With("component", "childminder")
}

// SetLogger replaces the package-level logger. If l is nil, the logger
// resets to slog.Default() with the component attribute, re-derived on
// the next Logger() call and then cached.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
