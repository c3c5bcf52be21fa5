// Package proc provides the low-level child process primitives used by the
// lifecycle controller and the one-shot runner.
//
// It defines Handle for the single-Wait observation of a started command,
// Status for exit-code/signal classification of a termination, WaitReady
// for polling-based readiness checks, DrainDone for bounded waits on a
// done channel, and Alive for pid liveness probes.
package proc
