package tailbuf

import (
	"bytes"
	"math/rand"
	"testing"
)

// fill returns n copies of the byte c.
func fill(c byte, n int) []byte {
	return bytes.Repeat([]byte{c}, n)
}

func TestNew_PanicsOnInvalidInput(t *testing.T) {
	t.Parallel()

	tests := map[string]func(){
		"zero max":       func() { New(0) },
		"negative max":   func() { New(-1) },
		"negative slack": func() { NewWithSlack(100, -0.1) },
		"slack of one":   func() { NewWithSlack(100, 1.0) },
	}

	for name, construct := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			defer func() {
				if recover() == nil {
					t.Fatal("expected panic for invalid constructor input")
				}
			}()
			construct()
		})
	}
}

func TestBuffer_AddWithinBudget(t *testing.T) {
	t.Parallel()

	b := New(100)
	b.Add(fill('a', 40)).Add(fill('b', 40))

	if got := b.Size(); got != 80 {
		t.Errorf("Size() = %d, want 80", got)
	}
	if got := b.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	want := append(fill('a', 40), fill('b', 40)...)
	if !bytes.Equal(b.Value(), want) {
		t.Error("Value() should concatenate chunks oldest first")
	}
}

func TestBuffer_IgnoresEmptyChunks(t *testing.T) {
	t.Parallel()

	b := New(100)
	b.Add(nil).Add([]byte{}).Add(fill('x', 10))

	if got := b.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
	if got := b.Size(); got != 10 {
		t.Errorf("Size() = %d, want 10", got)
	}
}

func TestBuffer_EvictsOldestFirst(t *testing.T) {
	t.Parallel()

	// Capacity 100, append 100 'x' then 100 'y': the x chunk is dropped
	// whole and the y chunk loses 15 bytes off its front to reach the
	// slack margin below the cap.
	b := New(100)
	b.Add(fill('x', 100)).Add(fill('y', 100))

	if got := b.Size(); got != 85 {
		t.Errorf("Size() = %d, want 85", got)
	}
	if !bytes.Equal(b.Value(), fill('y', 85)) {
		t.Errorf("Value() = %q, want 85 y bytes", b.Value())
	}
}

func TestBuffer_OversizedNewestChunk(t *testing.T) {
	t.Parallel()

	// Capacity 100, append 100 'x' then 110 'y': x is evicted whole and
	// the oversized y chunk is trimmed from its front, keeping the most
	// recent 85 bytes.
	b := New(100)
	b.Add(fill('x', 100)).Add(fill('y', 110))

	if got := b.Size(); got != 85 {
		t.Errorf("Size() = %d, want 85", got)
	}
	if !bytes.Equal(b.Value(), fill('y', 85)) {
		t.Errorf("Value() = %q, want last 85 y bytes", b.Value())
	}
}

func TestBuffer_SingleChunkLargerThanCap(t *testing.T) {
	t.Parallel()

	b := New(100)
	b.Add(fill('z', 150))

	if got := b.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
	if got := b.Size(); got > 100 {
		t.Errorf("Size() = %d, want <= 100", got)
	}
	// Whatever was trimmed came off the front: the value must be the
	// trailing bytes of the appended chunk.
	if !bytes.Equal(b.Value(), fill('z', b.Size())) {
		t.Error("retained bytes should be the tail of the oversized chunk")
	}
}

func TestBuffer_CapInvariantUnderRandomAppends(t *testing.T) {
	t.Parallel()

	const capacity = 4096
	rng := rand.New(rand.NewSource(7))
	b := New(capacity)

	total := 0
	for i := 0; i < 500; i++ {
		n := rng.Intn(1024)
		chunk := make([]byte, n)
		for j := range chunk {
			chunk[j] = byte(total + j)
		}
		total += n
		b.Add(chunk)

		if b.Size() > capacity {
			t.Fatalf("after append %d: Size() = %d exceeds cap %d", i, b.Size(), capacity)
		}
		if got := len(b.Value()); got != b.Size() {
			t.Fatalf("after append %d: Value() length %d != Size() %d", i, got, b.Size())
		}
	}
}

func TestBuffer_ValueEndsWithMostRecentBytes(t *testing.T) {
	t.Parallel()

	b := New(256)
	var last []byte
	for i := 0; i < 50; i++ {
		last = fill(byte('a'+i%26), 64)
		b.Add(last)
	}

	if !bytes.HasSuffix(b.Value(), last) {
		t.Error("Value() must always end with the most recently appended bytes")
	}
}

func TestBuffer_SlackAvoidsEvictionOnEveryAppend(t *testing.T) {
	t.Parallel()

	// After one eviction pass the buffer sits below the cap by the slack
	// margin, so several small appends fit without another eviction.
	b := New(1000)
	b.Add(fill('a', 600)).Add(fill('b', 600)) // triggers eviction

	if got := b.Size(); got > 1000 {
		t.Fatalf("eviction should land at or below the cap, got %d", got)
	}

	countAfterEviction := b.Count()
	b.Add(fill('c', 50))
	if b.Count() != countAfterEviction+1 {
		t.Error("small append after eviction should not evict again")
	}
}

func TestBuffer_ZeroSlackEvictsToExactCap(t *testing.T) {
	t.Parallel()

	b := NewWithSlack(100, 0)
	b.Add(fill('x', 100)).Add(fill('y', 100))

	// target = 200 - 100 + 0 = 100: the x chunk is dropped whole and no
	// front slice is needed.
	if got := b.Size(); got != 100 {
		t.Errorf("Size() = %d, want 100", got)
	}
	if !bytes.Equal(b.Value(), fill('y', 100)) {
		t.Error("zero-slack eviction should keep the entire newest chunk")
	}
}
