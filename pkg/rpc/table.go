package rpc

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clawdash/gateway-go/pkg/wire"
)

// DefaultTimeout is the default per-call timeout.
const DefaultTimeout = 30 * time.Second

// Call is an outstanding request. It is owned by its Table until settled.
type Call struct {
	ID      string
	Method  string
	Started time.Time

	done     chan struct{}
	result   json.RawMessage
	err      error
	timer    *time.Timer
	onSettle func(*Call)
}

// Done returns a channel closed when the call settles.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result returns the response payload or the failure. It must only be called
// after Done is closed.
func (c *Call) Result() (json.RawMessage, error) {
	return c.result, c.err
}

// Err returns the failure of a settled call, or nil.
func (c *Call) Err() error {
	return c.err
}

// Settled reports whether the call has settled.
func (c *Call) Settled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Call) settle(result json.RawMessage, err error) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.result = result
	c.err = err
	close(c.done)
	if c.onSettle != nil {
		c.onSettle(c)
	}
}

// Failed returns a call that is already settled with err. It is never part
// of a Table.
func Failed(method string, err error, onSettle func(*Call)) *Call {
	c := &Call{
		Method:   method,
		Started:  time.Now(),
		done:     make(chan struct{}),
		onSettle: onSettle,
	}
	c.settle(nil, err)
	return c
}

// Table tracks pending calls by correlation id.
type Table struct {
	mu      sync.Mutex
	timeout time.Duration
	pending map[string]*Call
}

// NewTable creates a table. A non-positive timeout selects DefaultTimeout.
func NewTable(timeout time.Duration) *Table {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Table{
		timeout: timeout,
		pending: make(map[string]*Call),
	}
}

// SetTimeout sets the timeout applied to calls registered afterwards.
func (t *Table) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
}

// Timeout returns the current per-call timeout.
func (t *Table) Timeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

// Register creates a pending call with a fresh correlation id and arms its
// timeout. onSettle, if non-nil, runs once in the goroutine that settles the
// call.
func (t *Table) Register(method string, onSettle func(*Call)) *Call {
	c := &Call{
		ID:       uuid.NewString(),
		Method:   method,
		Started:  time.Now(),
		done:     make(chan struct{}),
		onSettle: onSettle,
	}

	t.mu.Lock()
	timeout := t.timeout
	t.pending[c.ID] = c
	c.timer = time.AfterFunc(timeout, func() {
		t.Fail(c.ID, &TimeoutError{Method: method, Timeout: timeout})
	})
	t.mu.Unlock()

	return c
}

// Resolve settles the call matching res. It returns false when no call with
// that id is pending, in which case the frame is ignored.
func (t *Table) Resolve(res *wire.ResponseFrame) bool {
	c := t.take(res.ID)
	if c == nil {
		return false
	}

	if res.OK {
		c.settle(res.Payload, nil)
		return true
	}
	c.settle(nil, remoteError(res.Error))
	return true
}

// Fail settles the call with the given id with err.
func (t *Table) Fail(id string, err error) bool {
	c := t.take(id)
	if c == nil {
		return false
	}
	c.settle(nil, err)
	return true
}

// FailAll settles every pending call with err and returns how many there were.
func (t *Table) FailAll(err error) int {
	t.mu.Lock()
	calls := make([]*Call, 0, len(t.pending))
	for id, c := range t.pending {
		calls = append(calls, c)
		delete(t.pending, id)
	}
	t.mu.Unlock()

	for _, c := range calls {
		c.settle(nil, err)
	}
	return len(calls)
}

// Len returns the number of pending calls.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Table) take(id string) *Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.pending[id]
	if !ok {
		return nil
	}
	delete(t.pending, id)
	return c
}

func remoteError(shape *wire.ErrorShape) *RemoteError {
	if shape == nil {
		return &RemoteError{Message: "request failed"}
	}
	msg := shape.Message
	if msg == "" {
		msg = "request failed"
	}
	return &RemoteError{
		Code:       shape.Code,
		Message:    msg,
		Details:    shape.Details,
		Retryable:  shape.Retryable,
		RetryAfter: time.Duration(shape.RetryAfterMs) * time.Millisecond,
	}
}
