package gateway

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clawdash/gateway-go/internal/gatewaytest"
	"github.com/clawdash/gateway-go/pkg/connection"
	"github.com/clawdash/gateway-go/pkg/subscription"
	"github.com/clawdash/gateway-go/pkg/wire"
)

const waitFor = 3 * time.Second

// recorder collects callback invocations.
type recorder struct {
	mu     sync.Mutex
	states []connection.State
	hellos []*wire.HelloOK
	errs   []error
	gaps   []subscription.Gap
	events []string
}

func (r *recorder) attach(opts *Options) {
	opts.OnStateChange = func(_, next connection.State) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.states = append(r.states, next)
	}
	opts.OnHello = func(h *wire.HelloOK) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.hellos = append(r.hellos, h)
	}
	opts.OnError = func(err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.errs = append(r.errs, err)
	}
	opts.OnGap = func(g subscription.Gap) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.gaps = append(r.gaps, g)
	}
	opts.OnEvent = func(evt *wire.EventFrame) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, evt.Event)
	}
}

func (r *recorder) stateLog() []connection.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]connection.State(nil), r.states...)
}

func (r *recorder) helloCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hellos)
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) gapLog() []subscription.Gap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]subscription.Gap(nil), r.gaps...)
}

func (r *recorder) eventLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// newTestClient creates a client pointed at srv with fast timers.
func newTestClient(t *testing.T, url string, mutate func(*Options)) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts := Options{
		URL:           url,
		ChallengeWait: 20 * time.Millisecond,
		RPCTimeout:    time.Second,
		Backoff: connection.BackoffConfig{
			Initial: 10 * time.Millisecond,
			Max:     50 * time.Millisecond,
		},
	}
	rec.attach(&opts)
	if mutate != nil {
		mutate(&opts)
	}

	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, rec
}

// connect starts c and waits for the handshake on srv.
func connect(t *testing.T, c *Client, srv *gatewaytest.Server) *gatewaytest.Conn {
	t.Helper()
	require.NoError(t, c.Connect())
	conn := srv.WaitConn(waitFor)
	waitConnected(t, c)
	return conn
}

func waitConnected(t *testing.T, c *Client) {
	t.Helper()
	require.Eventually(t, c.Connected, waitFor, 5*time.Millisecond, "client never connected")
}
