// Package childminder supervises exactly one child process per
// Controller: bounded output accumulation, a small lifecycle state
// machine with deterministic timeout semantics, and a one-shot Run mode
// that collects stdout/stderr under a byte budget.
//
// A Controller is constructed idle, started with a pluggable start
// detector, and torn down by Stop (signal plus bounded wait), by natural
// termination observed through Join, or by Detach for children meant to
// outlive the supervisor. Every termination dispatches an exit event
// followed by exactly one of stop, end, or die, in that order, on a
// single dispatch goroutine.
//
// This is not a process supervisor: there are no restart policies, no
// supervision trees, and a timed-out start or stop never kills the child
// behind the caller's back.
package childminder
