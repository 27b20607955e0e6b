package subscription

import (
	"fmt"
	"sync"
)

// Gap describes a skip in event sequence numbers.
type Gap struct {
	Expected int64
	Received int64
}

// Missing returns how many sequence numbers were skipped.
func (g Gap) Missing() int64 {
	return g.Received - g.Expected
}

func (g Gap) String() string {
	return fmt.Sprintf("event sequence gap: expected %d, got %d", g.Expected, g.Received)
}

// SequenceTracker tracks the highest event sequence number seen on one
// connection.
type SequenceTracker struct {
	mu    sync.Mutex
	last  int64
	known bool
}

// Observe records seq and returns a Gap when it skips ahead of the last
// value. The tracker keeps the maximum, so a lower or repeated value is not
// a gap and does not move it back.
func (t *SequenceTracker) Observe(seq int64) *Gap {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.known {
		t.last = seq
		t.known = true
		return nil
	}

	var gap *Gap
	if seq > t.last+1 {
		gap = &Gap{Expected: t.last + 1, Received: seq}
	}
	if seq > t.last {
		t.last = seq
	}
	return gap
}

// Last returns the highest sequence seen, and false when none has been.
func (t *SequenceTracker) Last() (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.known
}

// Reset forgets the last sequence.
func (t *SequenceTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = 0
	t.known = false
}
