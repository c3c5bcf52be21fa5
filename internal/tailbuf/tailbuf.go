// Package tailbuf provides a bounded byte accumulator that keeps the most
// recent bytes under a fixed budget.
//
// Appended chunks are stored as-is; when the running total exceeds the
// configured maximum, whole chunks are evicted from the front in one pass
// rather than byte-by-byte. Eviction overshoots the cap by a slack fraction
// so that a burst of small appends does not re-trigger eviction on every
// call.
package tailbuf

import "fmt"

// DefaultSlackFraction is the fraction of the maximum size evicted in
// addition to the overflow on each eviction pass. Evicting slightly below
// the cap amortizes eviction cost across many appends.
const DefaultSlackFraction = 0.15

// Buffer accumulates byte chunks under a total-size cap, evicting the
// oldest content first. The single newest chunk is never evicted outright,
// even when it alone exceeds the cap; it is only trimmed from its front
// when it is simultaneously the oldest surviving chunk.
//
// Buffer is not safe for concurrent use. Callers that feed it from
// multiple goroutines must serialize access.
type Buffer struct {
	chunks [][]byte
	size   int
	max    int
	slack  float64
}

// New creates a Buffer with the given maximum size in bytes and the
// default slack fraction. Panics if max <= 0; a non-positive budget is a
// programmer error, not a runtime condition.
func New(max int) *Buffer {
	return NewWithSlack(max, DefaultSlackFraction)
}

// NewWithSlack creates a Buffer with an explicit slack fraction. The
// fraction must be in [0, 1); higher values evict more per pass and
// therefore evict less often. Panics on an invalid max or fraction.
func NewWithSlack(max int, slack float64) *Buffer {
	if max <= 0 {
		panic(fmt.Sprintf("tailbuf: max size must be greater than 0, got %d", max))
	}
	if slack < 0 || slack >= 1 {
		panic(fmt.Sprintf("tailbuf: slack fraction must be in [0, 1), got %v", slack))
	}
	return &Buffer{max: max, slack: slack}
}

// Add appends chunk to the buffer, taking ownership of it; callers must
// not modify the slice afterwards. Empty chunks are ignored. If the total
// size exceeds the maximum after the append, the oldest content is
// evicted. Add never fails and returns the buffer for chaining.
func (b *Buffer) Add(chunk []byte) *Buffer {
	if len(chunk) == 0 {
		return b
	}
	b.chunks = append(b.chunks, chunk)
	b.size += len(chunk)
	if b.size > b.max {
		b.evict()
	}
	return b
}

// evict drops the oldest chunks until the retained size is below the cap
// by roughly the slack margin. The walk never consumes the final chunk;
// if whole-chunk eviction undershoots the target, the deficit is sliced
// off the front of the oldest surviving chunk.
func (b *Buffer) evict() {
	target := b.size - b.max + int(float64(b.max)*b.slack)

	shifted := 0
	drop := 0
	for drop < len(b.chunks)-1 && shifted <= target {
		shifted += len(b.chunks[drop])
		drop++
	}

	if drop > 0 {
		kept := make([][]byte, len(b.chunks)-drop)
		copy(kept, b.chunks[drop:])
		b.chunks = kept
		b.size -= shifted
	}

	// A single oversized chunk dominates: trim the deficit off its front so
	// the cap holds without evicting the newest data wholesale.
	if shifted < target && len(b.chunks) > 0 {
		cut := target - shifted
		if cut > len(b.chunks[0]) {
			cut = len(b.chunks[0])
		}
		b.chunks[0] = b.chunks[0][cut:]
		b.size -= cut
	}
}

// Value returns the concatenation of all retained chunks, oldest first.
// The returned slice is freshly allocated on each call.
func (b *Buffer) Value() []byte {
	out := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

// Size returns the total number of retained bytes.
func (b *Buffer) Size() int {
	return b.size
}

// Count returns the number of retained chunks.
func (b *Buffer) Count() int {
	return len(b.chunks)
}

// Max returns the configured maximum size.
func (b *Buffer) Max() int {
	return b.max
}
