package childminder

import (
	"github.com/tinkerbay/childminder/internal/core"
	"github.com/tinkerbay/childminder/internal/tailbuf"
)

// Defaults applied when the corresponding option is not given.
const (
	// DefaultMaxOutputBytes caps the bytes retained per output stream in
	// one-shot runs: 100 MiB.
	DefaultMaxOutputBytes = core.DefaultMaxOutputBytes

	// DefaultEvictionSlack is the hysteresis fraction of the output
	// buffer: each eviction pass frees this much extra headroom so small
	// appends do not re-trigger eviction immediately.
	DefaultEvictionSlack = tailbuf.DefaultSlackFraction

	// DefaultResidueLimit caps the unterminated-line residue kept per
	// stream during line reassembly: 1 MiB.
	DefaultResidueLimit = core.DefaultResidueLimit

	// DefaultStartTimeout bounds Start when no timeout option is given.
	DefaultStartTimeout = core.DefaultStartTimeout

	// DefaultStopTimeout bounds Stop when no timeout is given.
	DefaultStopTimeout = core.DefaultStopTimeout

	// DefaultPollInterval is the probe interval for PollReady detectors.
	DefaultPollInterval = core.DefaultPollInterval

	// DefaultStopSignal is sent by Stop when no signal is given.
	DefaultStopSignal = core.DefaultStopSignal

	// DefaultKillSignal is sent to a one-shot child whose timeout fired.
	DefaultKillSignal = core.DefaultKillSignal
)
