package connection

import (
	"math/rand"
	"sync"
	"time"
)

// Reconnect delay schedule: 800ms, 1.36s, 2.31s, ... up to 15s.
const (
	InitialBackoff    = 800 * time.Millisecond
	MaxBackoff        = 15 * time.Second
	BackoffMultiplier = 1.7
)

// BackoffConfig tunes a Backoff. Zero fields fall back to the package
// defaults. Jitter is a fraction of the delay added at random; zero disables
// it.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Backoff hands out growing reconnect delays. It is safe for concurrent use.
type Backoff struct {
	mu       sync.Mutex
	delay    time.Duration
	attempts int

	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
	rng        *rand.Rand
}

// NewBackoff returns a Backoff using the default schedule.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{})
}

// NewBackoffWithConfig returns a Backoff for cfg.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxBackoff
	}
	cfg.Max = max(cfg.Max, cfg.Initial)
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = BackoffMultiplier
	}
	cfg.Jitter = max(cfg.Jitter, 0)

	return &Backoff{
		delay:      cfg.Initial,
		initial:    cfg.Initial,
		max:        cfg.Max,
		multiplier: cfg.Multiplier,
		jitter:     cfg.Jitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the delay before the next attempt. Each call grows the base
// delay by the multiplier until it reaches the cap.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.delay
	if b.jitter > 0 {
		d += time.Duration(float64(d) * b.jitter * b.rng.Float64())
	}

	b.attempts++
	b.delay = min(time.Duration(float64(b.delay)*b.multiplier), b.max)
	return d
}

// Reset restarts the schedule. The client calls it on every hello.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = b.initial
	b.attempts = 0
}

// Attempts counts the delays handed out since the last Reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Current is the base delay Next will return, before jitter.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delay
}

func (b *Backoff) Initial() time.Duration { return b.initial }
