package subscription

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/clawdash/gateway-go/pkg/wire"
)

// Handler receives a dispatched event.
type Handler func(evt *wire.EventFrame)

// Unsubscribe removes the subscription it was returned for. Calling it more
// than once has no further effect.
type Unsubscribe func()

type entry struct {
	fn      Handler
	removed atomic.Bool
}

// Router dispatches events to subscribers by exact event name.
type Router struct {
	mu sync.Mutex

	// Per-event subscriber lists. Lists are replaced, never mutated in
	// place, so a snapshot stays valid while it is iterated.
	subs map[string][]*entry

	global  Handler
	onPanic func(event string, recovered any)
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		subs: make(map[string][]*entry),
	}
}

// Subscribe registers fn for events named event.
func (r *Router) Subscribe(event string, fn Handler) Unsubscribe {
	e := &entry{fn: fn}

	r.mu.Lock()
	list := r.subs[event]
	next := make([]*entry, len(list), len(list)+1)
	copy(next, list)
	r.subs[event] = append(next, e)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(event, e) })
	}
}

func (r *Router) remove(event string, e *entry) {
	e.removed.Store(true)

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.subs[event]
	next := make([]*entry, 0, len(list))
	for _, other := range list {
		if other != e {
			next = append(next, other)
		}
	}
	if len(next) == 0 {
		delete(r.subs, event)
		return
	}
	r.subs[event] = next
}

// SetGlobalHandler sets a handler that sees every dispatched event before
// the per-event subscribers.
func (r *Router) SetGlobalHandler(fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = fn
}

// OnPanic sets the hook told about recovered handler panics.
func (r *Router) OnPanic(fn func(event string, recovered any)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onPanic = fn
}

// Dispatch delivers evt and returns the number of subscribers invoked,
// not counting the global handler.
func (r *Router) Dispatch(evt *wire.EventFrame) int {
	r.mu.Lock()
	global := r.global
	list := r.subs[evt.Event]
	r.mu.Unlock()

	if global != nil {
		r.invoke(global, evt)
	}

	delivered := 0
	for _, e := range list {
		if e.removed.Load() {
			continue
		}
		r.invoke(e.fn, evt)
		delivered++
	}
	return delivered
}

func (r *Router) invoke(fn Handler, evt *wire.EventFrame) {
	defer func() {
		if rec := recover(); rec != nil {
			r.mu.Lock()
			hook := r.onPanic
			r.mu.Unlock()
			if hook != nil {
				hook(evt.Event, rec)
			}
		}
	}()
	fn(evt)
}

// Count returns the number of subscribers for event.
func (r *Router) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[event])
}

// Events returns the event names with at least one subscriber, sorted.
func (r *Router) Events() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.subs))
	for name := range r.subs {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}
