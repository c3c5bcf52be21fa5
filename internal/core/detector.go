package core

import (
	"time"

	"github.com/tinkerbay/childminder/internal/proc"
)

// Detector decides when a freshly spawned process counts as started.
// Implementations are the four constructors below; the controller
// type-switches on them.
type Detector interface {
	isDetector()
}

type anyOutputDetector struct{}

func (anyOutputDetector) isDetector() {}

// AnyOutput is the default start detector: the first non-empty fragment
// on either stream completes the start.
func AnyOutput() Detector {
	return anyOutputDetector{}
}

type delayDetector struct {
	delay time.Duration
}

func (*delayDetector) isDetector() {}

// AfterDelay completes the start after a fixed delay, with no output
// inspection. A negative delay is treated as zero.
func AfterDelay(d time.Duration) Detector {
	if d < 0 {
		d = 0
	}
	return &delayDetector{delay: d}
}

type outputDetector struct {
	fn func(stdout, stderr []byte) (bool, error)
}

func (*outputDetector) isDetector() {}

// OnOutput completes the start when fn returns true for an output
// fragment. fn receives the most recent fragment in the argument for the
// stream that produced it; the other argument is empty. An error from fn
// fails the start with a *StartDetectorError. A nil fn falls back to
// AnyOutput.
func OnOutput(fn func(stdout, stderr []byte) (bool, error)) Detector {
	if fn == nil {
		return AnyOutput()
	}
	return &outputDetector{fn: fn}
}

type pollDetector struct {
	interval time.Duration
	check    proc.ReadinessCheck
}

func (*pollDetector) isDetector() {}

// PollReady completes the start when check reports ready, polling at the
// given interval (DefaultPollInterval when non-positive). check must not
// be nil. Polling aborts early if the process exits, and a fatal check
// error fails the start with a *StartDetectorError.
func PollReady(interval time.Duration, check proc.ReadinessCheck) Detector {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &pollDetector{interval: interval, check: check}
}

// inspectsOutput reports whether det needs piped stream data to make its
// decision.
func inspectsOutput(det Detector) bool {
	switch det.(type) {
	case anyOutputDetector, *outputDetector:
		return true
	default:
		return false
	}
}
