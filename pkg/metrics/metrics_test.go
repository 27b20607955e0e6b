package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawdash/gateway-go/pkg/connection"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCall("health", OutcomeOK, 20*time.Millisecond)
	m.ObserveCall("health", OutcomeOK, 30*time.Millisecond)
	m.ObserveCall("chat.send", OutcomeTimeout, time.Second)
	m.Reconnect()
	m.Event("tick")
	m.Event("tick")
	m.Gap()
	m.DroppedFrame("malformed")
	m.SubscriberPanic()
	m.SetPending(3)
	m.SetState(connection.StateConnected)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("health", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("chat.send", OutcomeTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconnects))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("tick")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gaps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.droppedFrames.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscriberPanic))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.pending))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.state))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["gateway_client_calls_total"])
	assert.True(t, names["gateway_client_call_duration_seconds"])
	assert.True(t, names["gateway_client_sequence_gaps_total"])
}

func TestMetricsOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, WithNamespace("ops"), WithConstLabels(prometheus.Labels{"gateway": "lab"}))
	m.Reconnect()

	count, err := testutil.GatherAndCount(reg, "ops_client_reconnects_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCall("x", OutcomeOK, time.Second)
		m.Reconnect()
		m.Event("x")
		m.Gap()
		m.DroppedFrame("x")
		m.SubscriberPanic()
		m.SetPending(1)
		m.SetState(connection.StateError)
	})
}
