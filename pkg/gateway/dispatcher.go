package gateway

import (
	"log/slog"
	"sync"
)

// dispatcher runs callbacks one at a time, in the order they were posted.
type dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	// busy is set while a callback runs on the dispatcher goroutine.
	busy bool

	wake   chan struct{}
	done   chan struct{}
	logger *slog.Logger
}

func newDispatcher(logger *slog.Logger) *dispatcher {
	d := &dispatcher{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	go d.run()
	return d
}

// post queues fn. It never blocks; posts after close are dropped.
func (d *dispatcher) post(fn func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// close drains the queue and stops the goroutine. While a callback is
// running close does not wait, since the caller may be that callback; the
// remaining queue still drains.
func (d *dispatcher) close() {
	d.mu.Lock()
	first := !d.closed
	d.closed = true
	busy := d.busy
	d.mu.Unlock()

	if first {
		select {
		case d.wake <- struct{}{}:
		default:
		}
	}
	if !busy {
		<-d.done
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			closed := d.closed
			d.mu.Unlock()
			if closed {
				return
			}
			<-d.wake
			continue
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.busy = true
		d.mu.Unlock()

		d.invoke(fn)

		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
	}
}

func (d *dispatcher) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("gateway callback panicked", "panic", r)
		}
	}()
	fn()
}
