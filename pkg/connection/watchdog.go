package connection

import (
	"sync"
	"time"
)

// DefaultTickMisses is how many tick intervals may pass without inbound
// traffic before the watchdog expires.
const DefaultTickMisses = 2

// Watchdog expires when it is not fed for interval*misses. The gateway
// pushes a tick event every policy.tickIntervalMs, so any inbound frame
// counts as a feed.
type Watchdog struct {
	mu       sync.Mutex
	timeout  time.Duration
	onExpire func()

	timer   *time.Timer
	gen     uint64
	running bool
}

// NewWatchdog creates a stopped watchdog.
func NewWatchdog(interval time.Duration, misses int, onExpire func()) *Watchdog {
	if misses <= 0 {
		misses = DefaultTickMisses
	}
	return &Watchdog{
		timeout:  interval * time.Duration(misses),
		onExpire: onExpire,
	}
}

// Timeout returns the silence after which the watchdog expires.
func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}

// Start arms the watchdog.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.armLocked()
}

// Feed restarts the countdown. It is a no-op on a stopped or expired watchdog.
func (w *Watchdog) Feed() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.timer.Stop()
	w.armLocked()
}

// Stop disarms the watchdog. The expiry callback will not run afterwards.
func (w *Watchdog) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	w.gen++
	w.timer.Stop()
}

func (w *Watchdog) armLocked() {
	w.gen++
	gen := w.gen
	w.timer = time.AfterFunc(w.timeout, func() { w.expire(gen) })
}

func (w *Watchdog) expire(gen uint64) {
	w.mu.Lock()
	if !w.running || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.onExpire()
}
