package gateway

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/clawdash/gateway-go/pkg/connection"
	"github.com/clawdash/gateway-go/pkg/handshake"
	protolog "github.com/clawdash/gateway-go/pkg/log"
	"github.com/clawdash/gateway-go/pkg/metrics"
	"github.com/clawdash/gateway-go/pkg/rpc"
	"github.com/clawdash/gateway-go/pkg/subscription"
	"github.com/clawdash/gateway-go/pkg/transport"
	"github.com/clawdash/gateway-go/pkg/wire"
)

// TracerName is the instrumentation name used for RPC spans.
const TracerName = "gateway-go"

// Client is a gateway protocol client. It is safe for concurrent use.
type Client struct {
	opts    Options
	logger  *slog.Logger
	plog    protolog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	table   *rpc.Table
	router  *subscription.Router
	seq     subscription.SequenceTracker
	backoff *connection.Backoff
	hs      *handshake.Coordinator
	events  *dispatcher

	// connID is read by protocol logging from any goroutine.
	connID atomic.Value

	mu sync.Mutex

	state connection.State
	conn  transport.Conn
	hello *wire.HelloOK
	err   error

	// gen increments whenever the current socket is superseded. Timers and
	// read loops carry the generation they were started for and do nothing
	// once it is stale.
	gen uint64

	dialing    bool
	dialCancel context.CancelFunc
	reconnect  *time.Timer
	watchdog   *connection.Watchdog

	// stopped is set by Disconnect and cleared by Connect.
	stopped bool
	// closed is set by Close and is permanent.
	closed bool
}

// New creates a disconnected client. Call Connect to start it.
func New(opts Options) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	c := &Client{
		opts:    opts,
		logger:  opts.Logger.With("gateway", opts.URL),
		plog:    opts.ProtocolLogger,
		metrics: opts.Metrics,
		tracer:  tp.Tracer(TracerName),
		table:   rpc.NewTable(opts.RPCTimeout),
		router:  subscription.NewRouter(),
		backoff: connection.NewBackoffWithConfig(opts.Backoff),
		state:   connection.StateDisconnected,
	}
	c.connID.Store("")
	c.events = newDispatcher(c.logger)
	c.hs = handshake.NewCoordinator(opts.ChallengeWait, c.sendConnect)

	if opts.OnEvent != nil {
		c.router.SetGlobalHandler(opts.OnEvent)
	}
	c.router.OnPanic(c.subscriberPanicked)
	c.metrics.SetState(connection.StateDisconnected)

	return c, nil
}

// Connect starts connecting in the background. It is a no-op while a dial
// or a socket is already in progress. Connect undoes a previous Disconnect.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	if c.dialing || c.conn != nil {
		return nil
	}

	c.stopped = false
	c.err = nil
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}

	c.setStateLocked(connection.StateConnecting, "connect requested")
	c.startDialLocked()
	return nil
}

// Disconnect closes the socket and stops reconnecting. Outstanding calls
// fail with a *rpc.TransportError wrapping rpc.ErrClientStopped. The client
// stays disconnected until Connect is called again.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.stopped = true
	c.gen++

	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	c.dialing = false
	c.hs.Cancel()

	wd := c.watchdog
	c.watchdog = nil
	conn := c.conn
	c.conn = nil

	c.setStateLocked(connection.StateDisconnected, "client stopped")
	c.mu.Unlock()

	wd.Stop()
	if conn != nil {
		_ = conn.Close(wire.CloseNormal, "client stopped")
	}

	n := c.table.FailAll(&rpc.TransportError{
		Code:   wire.CloseNormal,
		Reason: rpc.ErrClientStopped.Error(),
		Err:    rpc.ErrClientStopped,
	})
	if n > 0 {
		c.logger.Debug("rejected pending calls", "count", n, "reason", "client stopped")
	}
	c.metrics.SetPending(0)
}

// Close disconnects and releases the callback goroutine after running the
// callbacks already queued. The client cannot be reused.
func (c *Client) Close() error {
	c.Disconnect()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.events.close()
	return nil
}

// State returns the current connection state.
func (c *Client) State() connection.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the handshake has completed on the current
// socket.
func (c *Client) Connected() bool {
	return c.State() == connection.StateConnected
}

// Hello returns the hello of the most recent successful handshake, or nil.
func (c *Client) Hello() *wire.HelloOK {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hello
}

// LastError returns the most recent dial or handshake error. Connect
// clears it.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ConnectionID returns the id of the current (or last) socket, as used in
// protocol logs.
func (c *Client) ConnectionID() string {
	id, _ := c.connID.Load().(string)
	return id
}

// Pending returns the number of outstanding calls.
func (c *Client) Pending() int {
	return c.table.Len()
}

// URL returns the gateway URL.
func (c *Client) URL() string {
	return c.opts.URL
}

// Subscribe registers fn for events named event. Subscriptions survive
// reconnects.
func (c *Client) Subscribe(event string, fn func(evt *wire.EventFrame)) subscription.Unsubscribe {
	return c.router.Subscribe(event, fn)
}

// setStateLocked records a transition and queues OnStateChange.
// Must be called with c.mu held.
func (c *Client) setStateLocked(next connection.State, reason string) {
	prev := c.state
	if prev == next {
		return
	}
	if !prev.CanTransition(next) {
		c.logger.Debug("unexpected state transition", "from", prev, "to", next)
	}
	c.state = next

	c.metrics.SetState(next)
	c.logger.Info("gateway state", "from", prev.String(), "to", next.String(), "reason", reason)
	c.logLocal(protolog.CategoryState, &protolog.Event{
		StateChange: &protolog.StateChangeEvent{
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})

	if fn := c.opts.OnStateChange; fn != nil {
		c.events.post(func() { fn(prev, next) })
	}
}

// postError queues OnError.
func (c *Client) postError(err error) {
	if fn := c.opts.OnError; fn != nil {
		c.events.post(func() { fn(err) })
	}
}

func (c *Client) subscriberPanicked(event string, recovered any) {
	c.metrics.SubscriberPanic()
	c.logger.Warn("event subscriber panicked", "event", event, "panic", recovered)
	c.logLocal(protolog.CategoryError, &protolog.Event{
		Error: &protolog.ErrorEventData{
			Kind:    protolog.ErrorKindCallback,
			Message: "subscriber panic",
			Context: event,
		},
	})
}
