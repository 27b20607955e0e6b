// Package metrics exposes Prometheus instrumentation for gateway clients.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/clawdash/gateway-go/pkg/connection"
)

// Call outcomes used as the "outcome" label.
const (
	OutcomeOK        = "ok"
	OutcomeRemote    = "remote_error"
	OutcomeTimeout   = "timeout"
	OutcomeTransport = "transport_error"
	OutcomeCancelled = "cancelled"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "gateway").
	Namespace string

	// Subsystem is the metrics subsystem (default: "client").
	Subsystem string

	// ConstLabels are added to every metric, e.g. the gateway URL.
	ConstLabels prometheus.Labels

	// Buckets are the call duration histogram buckets.
	// Default: prometheus.DefBuckets
	Buckets []float64
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// Metrics holds the gateway client collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	calls           *prometheus.CounterVec
	callDuration    *prometheus.HistogramVec
	reconnects      prometheus.Counter
	events          *prometheus.CounterVec
	gaps            prometheus.Counter
	droppedFrames   *prometheus.CounterVec
	subscriberPanic prometheus.Counter
	pending         prometheus.Gauge
	state           prometheus.Gauge
}

// New registers the collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "gateway",
		Subsystem: "client",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	counterOpts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		}
	}

	return &Metrics{
		calls: factory.NewCounterVec(
			counterOpts("calls_total", "RPC calls by method and outcome"),
			[]string{"method", "outcome"}),

		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "call_duration_seconds",
			Help:        "Time from request send to settlement",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"method"}),

		reconnects: factory.NewCounter(
			counterOpts("reconnects_total", "Reconnect attempts scheduled")),

		events: factory.NewCounterVec(
			counterOpts("events_total", "Events received by name"),
			[]string{"event"}),

		gaps: factory.NewCounter(
			counterOpts("sequence_gaps_total", "Event sequence gaps detected")),

		droppedFrames: factory.NewCounterVec(
			counterOpts("dropped_frames_total", "Inbound frames dropped by reason"),
			[]string{"reason"}),

		subscriberPanic: factory.NewCounter(
			counterOpts("subscriber_panics_total", "Recovered panics in event subscribers")),

		pending: factory.NewGauge(
			gaugeOpts("pending_calls", "Calls awaiting a response")),

		state: factory.NewGauge(
			gaugeOpts("state", "Connection state (0=disconnected 1=connecting 2=authenticating 3=connected 4=error)")),
	}
}

// ObserveCall records a settled call.
func (m *Metrics) ObserveCall(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	m.callDuration.WithLabelValues(method).Observe(d.Seconds())
}

// SetPending records the number of outstanding calls.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

// Reconnect records a scheduled reconnect.
func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// Event records an inbound event.
func (m *Metrics) Event(name string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
}

// Gap records a sequence gap.
func (m *Metrics) Gap() {
	if m == nil {
		return
	}
	m.gaps.Inc()
}

// DroppedFrame records an inbound frame that was discarded.
func (m *Metrics) DroppedFrame(reason string) {
	if m == nil {
		return
	}
	m.droppedFrames.WithLabelValues(reason).Inc()
}

// SubscriberPanic records a recovered subscriber panic.
func (m *Metrics) SubscriberPanic() {
	if m == nil {
		return
	}
	m.subscriberPanic.Inc()
}

// SetState records the connection state.
func (m *Metrics) SetState(s connection.State) {
	if m == nil {
		return
	}
	m.state.Set(float64(s))
}
