// Package core implements the process lifecycle controller and the
// one-shot runner behind the public childminder API.
//
// A Controller owns at most one child process at a time. Stream data and
// the termination notification are funneled into a single loop goroutine,
// which is the only place events are dispatched from; see the Controller
// documentation for the ordering guarantees this buys.
//
// Run executes a command once, collecting bounded stdout/stderr, and maps
// the outcome onto the package's error taxonomy.
package core
