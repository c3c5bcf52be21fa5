package childminder

import (
	"time"

	"github.com/tinkerbay/childminder/internal/core"
	"github.com/tinkerbay/childminder/internal/proc"
)

// Detector decides when a freshly spawned process counts as started.
// Construct one with AnyOutput, AfterDelay, OnOutput, or PollReady and
// pass it to Start via WithDetector.
type Detector = core.Detector

// ReadinessCheck is a PollReady probe. The attempt parameter is 1-based;
// the context is canceled when polling times out, so probes that dial or
// connect should honor it. Returning an error aborts the start.
type ReadinessCheck = proc.ReadinessCheck

// AnyOutput is the default start detector: the first non-empty fragment
// on either stream completes the start.
func AnyOutput() Detector {
	return core.AnyOutput()
}

// AfterDelay completes the start after a fixed delay, with no output
// inspection.
// Panics if d is negative.
func AfterDelay(d time.Duration) Detector {
	if d < 0 {
		panic("childminder: start delay must not be negative")
	}
	return core.AfterDelay(d)
}

// OnOutput completes the start when fn returns true for an output
// fragment. fn receives the most recent fragment in the argument for the
// stream that produced it; the other argument is empty. An error from fn
// fails the start with a *StartDetectorError.
// Panics if fn is nil.
func OnOutput(fn func(stdout, stderr []byte) (bool, error)) Detector {
	if fn == nil {
		panic("childminder: output detector function must not be nil")
	}
	return core.OnOutput(fn)
}

// PollReady completes the start when check reports ready, probing at the
// given interval (DefaultPollInterval when non-positive). Polling aborts
// early if the process exits. The only detector usable with detachable
// controllers besides AfterDelay.
// Panics if check is nil.
func PollReady(interval time.Duration, check ReadinessCheck) Detector {
	if check == nil {
		panic("childminder: readiness check must not be nil")
	}
	return core.PollReady(interval, check)
}
