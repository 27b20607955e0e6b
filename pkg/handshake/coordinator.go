package handshake

import (
	"sync"
	"time"
)

// DefaultChallengeWait is how long to wait for a connect.challenge before
// sending the connect request without a nonce.
const DefaultChallengeWait = 750 * time.Millisecond

// Coordinator decides when the connect request is sent.
type Coordinator struct {
	mu   sync.Mutex
	wait time.Duration
	send func(nonce string)

	timer  *time.Timer
	gen    uint64
	active bool
	sent   bool
	nonce  string
}

// NewCoordinator creates an idle coordinator. send is invoked outside the
// coordinator's lock, at most once between Begin and the next Begin.
func NewCoordinator(wait time.Duration, send func(nonce string)) *Coordinator {
	if wait <= 0 {
		wait = DefaultChallengeWait
	}
	return &Coordinator{wait: wait, send: send}
}

// Begin starts a new attempt: it clears the nonce and the sent flag and arms
// the wait timer.
func (c *Coordinator) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	c.active = true
	c.sent = false
	c.nonce = ""

	gen := c.gen
	c.timer = time.AfterFunc(c.wait, func() { c.expire(gen) })
}

// Challenge handles a connect.challenge nonce. An empty nonce is ignored.
// It reports whether this call sent the connect request.
func (c *Coordinator) Challenge(nonce string) bool {
	if nonce == "" {
		return false
	}

	c.mu.Lock()
	if !c.active || c.sent {
		c.mu.Unlock()
		return false
	}
	c.nonce = nonce
	c.sent = true
	c.stopLocked()
	c.mu.Unlock()

	c.send(nonce)
	return true
}

// Cancel stops the wait timer. A cancelled coordinator never sends until the
// next Begin.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.gen++
	c.stopLocked()
}

// Sent reports whether the connect request went out for this attempt.
func (c *Coordinator) Sent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// Nonce returns the challenge nonce of this attempt, or "".
func (c *Coordinator) Nonce() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonce
}

func (c *Coordinator) expire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.active || c.sent {
		c.mu.Unlock()
		return
	}
	c.sent = true
	c.timer = nil
	c.mu.Unlock()

	c.send("")
}

func (c *Coordinator) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
