package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawdash/gateway-go/pkg/wire"
)

func waitSettled(t *testing.T, c *Call) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("call %s did not settle", c.Method)
	}
}

func TestTableResolve(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		tbl := NewTable(time.Second)
		c := tbl.Register("health", nil)
		require.NotEmpty(t, c.ID)
		assert.Equal(t, 1, tbl.Len())

		ok := tbl.Resolve(&wire.ResponseFrame{ID: c.ID, OK: true, Payload: json.RawMessage(`{"ok":true}`)})
		require.True(t, ok)
		waitSettled(t, c)

		payload, err := c.Result()
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(payload))
		assert.Equal(t, 0, tbl.Len())
	})

	t.Run("RemoteError", func(t *testing.T) {
		tbl := NewTable(time.Second)
		c := tbl.Register("sessions.patch", nil)

		tbl.Resolve(&wire.ResponseFrame{ID: c.ID, Error: &wire.ErrorShape{
			Code:         "INVALID_REQUEST",
			Message:      "bad key",
			Retryable:    true,
			RetryAfterMs: 1500,
		}})
		waitSettled(t, c)

		re, ok := IsRemote(c.Err())
		require.True(t, ok)
		assert.Equal(t, "INVALID_REQUEST", re.Code)
		assert.Equal(t, "bad key", re.Message)
		assert.True(t, re.Retryable)
		assert.Equal(t, 1500*time.Millisecond, re.RetryAfter)
		assert.Equal(t, "INVALID_REQUEST: bad key", re.Error())
	})

	t.Run("RemoteErrorWithoutShape", func(t *testing.T) {
		tbl := NewTable(time.Second)
		c := tbl.Register("status", nil)
		tbl.Resolve(&wire.ResponseFrame{ID: c.ID})
		waitSettled(t, c)
		assert.EqualError(t, c.Err(), "request failed")
	})

	t.Run("UnknownIDIgnored", func(t *testing.T) {
		tbl := NewTable(time.Second)
		c := tbl.Register("health", nil)

		assert.False(t, tbl.Resolve(&wire.ResponseFrame{ID: "nope", OK: true}))
		assert.False(t, c.Settled())
		assert.Equal(t, 1, tbl.Len())
	})

	t.Run("DuplicateResponseIgnored", func(t *testing.T) {
		tbl := NewTable(time.Second)
		c := tbl.Register("health", nil)

		assert.True(t, tbl.Resolve(&wire.ResponseFrame{ID: c.ID, OK: true, Payload: json.RawMessage(`1`)}))
		assert.False(t, tbl.Resolve(&wire.ResponseFrame{ID: c.ID, OK: true, Payload: json.RawMessage(`2`)}))

		payload, err := c.Result()
		require.NoError(t, err)
		assert.Equal(t, "1", string(payload))
	})

	t.Run("UniqueIDs", func(t *testing.T) {
		tbl := NewTable(time.Second)
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			c := tbl.Register("health", nil)
			require.False(t, seen[c.ID], "duplicate id %s", c.ID)
			seen[c.ID] = true
		}
		tbl.FailAll(ErrClientStopped)
	})
}

func TestTableTimeout(t *testing.T) {
	tbl := NewTable(20 * time.Millisecond)
	c := tbl.Register("chat.history", nil)
	waitSettled(t, c)

	var te *TimeoutError
	require.ErrorAs(t, c.Err(), &te)
	assert.Equal(t, "chat.history", te.Method)
	assert.Equal(t, 20*time.Millisecond, te.Timeout)
	assert.Equal(t, "rpc timeout: chat.history (20ms)", te.Error())
	assert.True(t, IsTimeout(c.Err()))
	assert.Equal(t, 0, tbl.Len())

	// A response after the timeout is ignored.
	assert.False(t, tbl.Resolve(&wire.ResponseFrame{ID: c.ID, OK: true}))
	assert.True(t, IsTimeout(c.Err()))
}

func TestTableFailAll(t *testing.T) {
	tbl := NewTable(time.Minute)
	calls := []*Call{
		tbl.Register("a", nil),
		tbl.Register("b", nil),
		tbl.Register("c", nil),
	}

	cause := &TransportError{Code: 1006, Reason: "abnormal"}
	n := tbl.FailAll(cause)
	assert.Equal(t, 3, n)
	assert.Equal(t, 0, tbl.Len())

	for _, c := range calls {
		waitSettled(t, c)
		var tr *TransportError
		require.ErrorAs(t, c.Err(), &tr)
		assert.Equal(t, 1006, tr.Code)
	}
	assert.Equal(t, 0, tbl.FailAll(cause))
}

func TestTableOnSettleOnce(t *testing.T) {
	tbl := NewTable(10 * time.Millisecond)
	var settled atomic.Int32
	c := tbl.Register("health", func(*Call) { settled.Add(1) })

	tbl.Resolve(&wire.ResponseFrame{ID: c.ID, OK: true})
	tbl.Fail(c.ID, errors.New("late"))
	tbl.FailAll(errors.New("later"))
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, int32(1), settled.Load())
	assert.NoError(t, c.Err())
}

func TestTableWait(t *testing.T) {
	t.Run("Resolved", func(t *testing.T) {
		tbl := NewTable(time.Second)
		c := tbl.Register("health", nil)
		go tbl.Resolve(&wire.ResponseFrame{ID: c.ID, OK: true, Payload: json.RawMessage(`{}`)})

		payload, err := tbl.Wait(context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(payload))
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		tbl := NewTable(time.Minute)
		c := tbl.Register("health", nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := tbl.Wait(ctx, c)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, tbl.Len())
		assert.False(t, tbl.Resolve(&wire.ResponseFrame{ID: c.ID, OK: true}))
	})
}

func TestFailed(t *testing.T) {
	var hook atomic.Int32
	c := Failed("health", ErrNotConnected, func(*Call) { hook.Add(1) })

	assert.True(t, c.Settled())
	assert.ErrorIs(t, c.Err(), ErrNotConnected)
	assert.Equal(t, "gateway not connected", c.Err().Error())
	assert.Equal(t, int32(1), hook.Load())
}

func TestTransportError(t *testing.T) {
	err := &TransportError{Code: 4008, Reason: "connect failed"}
	assert.Equal(t, "gateway closed (4008): connect failed", err.Error())

	wrapped := &TransportError{Err: ErrClientStopped}
	assert.ErrorIs(t, wrapped, ErrClientStopped)
	assert.Equal(t, "gateway transport: gateway client stopped", wrapped.Error())
}
