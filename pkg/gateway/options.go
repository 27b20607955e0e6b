package gateway

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

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

// DefaultDialTimeout bounds a single dial attempt.
const DefaultDialTimeout = 15 * time.Second

// Options configures a Client.
type Options struct {
	// URL is the gateway WebSocket URL (ws:// or wss://). Required.
	URL string

	// Identity is presented in the connect handshake, including the
	// shared token or password.
	Identity handshake.Identity

	// ParamsHook may amend the connect params, e.g. to sign the challenge
	// nonce.
	ParamsHook handshake.ParamsHook

	// Dialer opens the socket. Default: transport.WebSocketDialer.
	Dialer transport.Dialer

	// DialTimeout bounds each dial attempt (default: 15s).
	DialTimeout time.Duration

	// RPCTimeout is the per-call timeout (default: 30s).
	RPCTimeout time.Duration

	// ChallengeWait is how long to wait for connect.challenge before
	// sending connect without a nonce (default: 750ms).
	ChallengeWait time.Duration

	// Backoff configures reconnect delays (default: 800ms x1.7 up to 15s).
	Backoff connection.BackoffConfig

	// TickMisses is how many tick intervals of silence close the socket
	// (default: 2). The interval comes from the hello policy.
	TickMisses int

	// Logger receives operational logs. If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger records every frame and state change. Optional.
	ProtocolLogger protolog.Logger

	// MaxLoggedBytes limits frame bytes kept per protocol log event
	// (default: 4096, negative keeps everything).
	MaxLoggedBytes int

	// Metrics receives Prometheus instrumentation. Optional.
	Metrics *metrics.Metrics

	// TracerProvider creates the RPC spans. Default: the global provider.
	TracerProvider trace.TracerProvider

	// OnStateChange is called on every state transition.
	OnStateChange func(old, new connection.State)

	// OnHello is called after each successful handshake.
	OnHello func(hello *wire.HelloOK)

	// OnEvent sees every event before the per-event subscribers.
	OnEvent func(evt *wire.EventFrame)

	// OnError is called for dial failures and handshake failures.
	OnError func(err error)

	// OnGap is called when event sequence numbers skip ahead.
	OnGap func(gap subscription.Gap)
}

func (o *Options) applyDefaults() {
	if o.Dialer == nil {
		o.Dialer = &transport.WebSocketDialer{}
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.RPCTimeout <= 0 {
		o.RPCTimeout = rpc.DefaultTimeout
	}
	if o.ChallengeWait <= 0 {
		o.ChallengeWait = handshake.DefaultChallengeWait
	}
	if o.TickMisses <= 0 {
		o.TickMisses = connection.DefaultTickMisses
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.ProtocolLogger == nil {
		o.ProtocolLogger = protolog.NoopLogger{}
	}
	if o.MaxLoggedBytes == 0 {
		o.MaxLoggedBytes = protolog.DefaultMaxData
	}
}

func (o *Options) validate() error {
	if o.URL == "" {
		return fmt.Errorf("gateway: URL is required")
	}
	u, err := url.Parse(o.URL)
	if err != nil {
		return fmt.Errorf("gateway: invalid URL %q: %w", o.URL, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("gateway: URL scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("gateway: URL %q has no host", o.URL)
	}
	return nil
}
