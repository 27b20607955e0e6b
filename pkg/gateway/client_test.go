package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawdash/gateway-go/internal/gatewaytest"
	"github.com/clawdash/gateway-go/pkg/connection"
	"github.com/clawdash/gateway-go/pkg/handshake"
	"github.com/clawdash/gateway-go/pkg/rpc"
	"github.com/clawdash/gateway-go/pkg/subscription"
	"github.com/clawdash/gateway-go/pkg/wire"
)

func TestNewValidatesURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"Empty", ""},
		{"WrongScheme", "http://localhost:18789"},
		{"NoHost", "ws://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{URL: tt.url})
			assert.Error(t, err)
		})
	}
}

func TestConnectWithoutChallenge(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, rec := newTestClient(t, srv.URL(), func(o *Options) {
		o.Identity = handshake.Identity{Token: "secret", InstanceID: "inst-1"}
	})

	assert.Equal(t, connection.StateDisconnected, c.State())
	assert.Nil(t, c.Hello())

	conn := connect(t, c, srv)

	params := conn.WaitHandshake(waitFor)
	assert.Equal(t, 3, params.MinProtocol)
	assert.Equal(t, "operator", params.Role)
	require.NotNil(t, params.Auth)
	assert.Equal(t, "secret", params.Auth.Token)
	assert.Equal(t, "inst-1", params.Client.InstanceID)

	hello := c.Hello()
	require.NotNil(t, hello)
	assert.Equal(t, conn.ConnID, hello.Server.ConnID)
	assert.NotEmpty(t, c.ConnectionID())

	require.Eventually(t, func() bool { return rec.helloCount() == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []connection.State{
		connection.StateConnecting,
		connection.StateAuthenticating,
		connection.StateConnected,
	}, rec.stateLog())
}

func TestConnectWithChallenge(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	srv.SetChallenge("nonce-123")

	var seen atomic.Value
	c, _ := newTestClient(t, srv.URL(), func(o *Options) {
		// Long wait so only the challenge can trigger the send.
		o.ChallengeWait = time.Hour
		o.ParamsHook = func(nonce string, params *wire.ConnectParams) {
			seen.Store(nonce)
			params.Caps = []string{"nonce:" + nonce}
		}
	})

	conn := connect(t, c, srv)
	params := conn.WaitHandshake(waitFor)

	assert.Equal(t, "nonce-123", seen.Load())
	assert.Equal(t, []string{"nonce:nonce-123"}, params.Caps)
	assert.Len(t, srv.Connects(), 1)
}

func TestConnectSentOnceWithLateChallenge(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, _ := newTestClient(t, srv.URL(), nil)

	conn := connect(t, c, srv)

	// A challenge arriving after the timer-driven connect is ignored.
	conn.Event(wire.EventConnectChallenge, wire.ChallengePayload{Nonce: "late"}, nil)
	conn.Event(wire.EventConnectChallenge, wire.ChallengePayload{Nonce: "later"}, nil)
	time.Sleep(50 * time.Millisecond)

	assert.Len(t, srv.Connects(), 1)
}

func TestConnectIsIdempotent(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, _ := newTestClient(t, srv.URL(), nil)

	require.NoError(t, c.Connect())
	require.NoError(t, c.Connect())
	srv.WaitConn(waitFor)
	waitConnected(t, c)
	require.NoError(t, c.Connect())

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, srv.Connects(), 1)
}

func TestCall(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	srv.Handle(wire.MethodHealth, gatewaytest.Respond(map[string]any{"ok": true, "ts": 99}))
	srv.Handle(wire.MethodSessionsPatch, gatewaytest.Fail("INVALID_REQUEST", "unknown session"))
	srv.Handle(wire.MethodChatHistory, gatewaytest.Ignore)

	c, _ := newTestClient(t, srv.URL(), func(o *Options) {
		o.RPCTimeout = 50 * time.Millisecond
	})
	connect(t, c, srv)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		payload, err := c.Call(ctx, wire.MethodHealth, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true,"ts":99}`, string(payload))
	})

	t.Run("RemoteError", func(t *testing.T) {
		_, err := c.Call(ctx, wire.MethodSessionsPatch, wire.SessionsPatchParams{Key: "nope"})
		re, ok := rpc.IsRemote(err)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, "INVALID_REQUEST", re.Code)
		assert.Equal(t, "unknown session", re.Message)
	})

	t.Run("Timeout", func(t *testing.T) {
		_, err := c.Call(ctx, wire.MethodChatHistory, wire.ChatHistoryParams{SessionKey: "main"})
		var te *rpc.TimeoutError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "rpc timeout: chat.history (50ms)", err.Error())
		assert.Equal(t, 0, c.Pending())
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err := c.Call(cctx, wire.MethodChatHistory, nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 0, c.Pending())
	})

	t.Run("Go", func(t *testing.T) {
		call := c.Go(wire.MethodHealth, nil)
		select {
		case <-call.Done():
		case <-time.After(waitFor):
			t.Fatal("call did not settle")
		}
		payload, err := call.Result()
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"ok":true`)
	})

	t.Run("BadParams", func(t *testing.T) {
		_, err := c.Call(ctx, wire.MethodHealth, func() {})
		assert.Error(t, err)
	})
}

func TestCallNotConnected(t *testing.T) {
	c, _ := newTestClient(t, "ws://127.0.0.1:1", nil)

	_, err := c.Call(context.Background(), wire.MethodHealth, nil)
	assert.ErrorIs(t, err, rpc.ErrNotConnected)
	assert.Equal(t, "gateway not connected", err.Error())
}

func TestResponsesMatchedByID(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	held := make(chan *wire.RequestFrame, 2)
	srv.Handle("slow", func(_ *gatewaytest.Conn, req *wire.RequestFrame) { held <- req })

	c, _ := newTestClient(t, srv.URL(), nil)
	conn := connect(t, c, srv)

	first := c.Go("slow", map[string]int{"n": 1})
	second := c.Go("slow", map[string]int{"n": 2})
	r1, r2 := <-held, <-held

	// Answer the second request first.
	conn.Reply(r2.ID, "two")
	<-second.Done()
	assert.False(t, first.Settled())

	conn.Reply(r1.ID, "one")
	<-first.Done()

	p1, _ := first.Result()
	p2, _ := second.Result()
	assert.Equal(t, `"one"`, string(p1))
	assert.Equal(t, `"two"`, string(p2))
}

func TestConnectionLossRejectsPendingAndReconnects(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	srv.Handle("hold", gatewaytest.Ignore)

	c, rec := newTestClient(t, srv.URL(), nil)
	conn := connect(t, c, srv)

	call := c.Go("hold", nil)
	conn.WaitRequest(waitFor)

	conn.Close(1001, "going away")

	select {
	case <-call.Done():
	case <-time.After(waitFor):
		t.Fatal("pending call not rejected")
	}
	var tr *rpc.TransportError
	require.ErrorAs(t, call.Err(), &tr)
	assert.Equal(t, 1001, tr.Code)
	assert.Equal(t, "going away", tr.Reason)

	srv.WaitConn(waitFor)
	require.Eventually(t, func() bool { return rec.helloCount() == 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, connection.StateConnected, c.State())
	assert.Equal(t, 10*time.Millisecond, c.backoff.Current(), "successful handshake resets backoff")

	states := rec.stateLog()
	assert.Contains(t, states, connection.StateDisconnected)
	assert.Equal(t, connection.StateConnected, states[len(states)-1])
}

func TestHandshakeRejected(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	srv.RejectConnect(&wire.ErrorShape{Code: "UNAUTHORIZED", Message: "bad token"})

	c, rec := newTestClient(t, srv.URL(), nil)
	require.NoError(t, c.Connect())
	srv.WaitConn(waitFor)

	require.Eventually(t, func() bool { return len(rec.errors()) > 0 }, waitFor, 5*time.Millisecond)

	var herr *HandshakeError
	require.ErrorAs(t, rec.errors()[0], &herr)
	re, ok := rpc.IsRemote(herr)
	require.True(t, ok)
	assert.Equal(t, "UNAUTHORIZED", re.Code)
	assert.ErrorAs(t, c.LastError(), &herr)
	assert.Contains(t, rec.stateLog(), connection.StateError)

	// The client keeps retrying with backoff.
	srv.WaitConn(waitFor)
	require.Eventually(t, func() bool { return len(srv.Connects()) >= 2 }, waitFor, 5*time.Millisecond)

	srv.RejectConnect(nil)
	waitConnected(t, c)
}

func TestHandshakeTimeout(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	srv.SilentConnect(true)

	c, rec := newTestClient(t, srv.URL(), func(o *Options) {
		o.RPCTimeout = 30 * time.Millisecond
	})
	require.NoError(t, c.Connect())
	conn := srv.WaitConn(waitFor)

	select {
	case <-conn.Closed():
	case <-time.After(waitFor):
		t.Fatal("client did not close the socket after handshake timeout")
	}

	require.Eventually(t, func() bool { return len(rec.errors()) > 0 }, waitFor, 5*time.Millisecond)
	assert.True(t, rpc.IsTimeout(rec.errors()[0]))
}

func TestHandshakeUnexpectedHelloType(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	hello := gatewaytest.DefaultHello()
	hello.Type = "hello-later"
	srv.SetHello(hello)

	c, rec := newTestClient(t, srv.URL(), nil)
	require.NoError(t, c.Connect())
	conn := srv.WaitConn(waitFor)

	require.Eventually(t, func() bool { return len(rec.errors()) > 0 }, waitFor, 5*time.Millisecond)
	var herr *HandshakeError
	require.ErrorAs(t, rec.errors()[0], &herr)
	assert.Contains(t, herr.Error(), `unexpected hello type "hello-later"`)
	assert.Zero(t, rec.helloCount())
	assert.Nil(t, c.Hello())

	select {
	case <-conn.Closed():
	case <-time.After(waitFor):
		t.Fatal("client kept a socket with a rejected hello")
	}
}

func TestDisconnect(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	srv.Handle("hold", gatewaytest.Ignore)

	c, rec := newTestClient(t, srv.URL(), nil)
	conn := connect(t, c, srv)

	call := c.Go("hold", nil)
	conn.WaitRequest(waitFor)

	c.Disconnect()

	assert.Equal(t, connection.StateDisconnected, c.State())
	require.True(t, call.Settled())
	assert.ErrorIs(t, call.Err(), rpc.ErrClientStopped)

	select {
	case <-conn.Closed():
	case <-time.After(waitFor):
		t.Fatal("socket not closed")
	}

	// No reconnect happens.
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, srv.Connects(), 1)
	_, err := c.Call(context.Background(), "hold", nil)
	assert.ErrorIs(t, err, rpc.ErrNotConnected)

	// Connect revives the client.
	require.NoError(t, c.Connect())
	srv.WaitConn(waitFor)
	waitConnected(t, c)
	require.Eventually(t, func() bool { return rec.helloCount() == 2 }, waitFor, 5*time.Millisecond)
}

func TestCloseIsFinal(t *testing.T) {
	c, _ := newTestClient(t, "ws://127.0.0.1:1", nil)
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Connect(), ErrClientClosed)
	require.NoError(t, c.Close())
}

func TestCloseFromCallback(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, _ := newTestClient(t, srv.URL(), nil)
	conn := connect(t, c, srv)

	closed := make(chan error, 1)
	c.Subscribe(wire.EventTick, func(*wire.EventFrame) {
		closed <- c.Close()
	})
	conn.Event(wire.EventTick, wire.TickEvent{TS: 1}, wire.Seq(1))

	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Close from a subscriber did not return")
	}
	assert.ErrorIs(t, c.Connect(), ErrClientClosed)
	assert.Equal(t, connection.StateDisconnected, c.State())
}

func TestEvents(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, rec := newTestClient(t, srv.URL(), nil)
	conn := connect(t, c, srv)

	chats := make(chan string, 8)
	unsub := c.Subscribe(wire.EventChat, func(evt *wire.EventFrame) {
		var payload wire.ChatEvent
		_ = json.Unmarshal(evt.Payload, &payload)
		chats <- payload.RunID
	})
	c.Subscribe(wire.EventChat, func(*wire.EventFrame) { panic("subscriber bug") })

	conn.Event(wire.EventChat, wire.ChatEvent{RunID: "run-1", State: "delta"}, wire.Seq(1))
	conn.Event(wire.EventTick, wire.TickEvent{TS: 1}, wire.Seq(2))
	conn.Event(wire.EventChat, wire.ChatEvent{RunID: "run-2", State: "final"}, wire.Seq(3))

	assert.Equal(t, "run-1", <-chats)
	assert.Equal(t, "run-2", <-chats)
	require.Eventually(t, func() bool { return len(rec.eventLog()) == 3 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"chat", "tick", "chat"}, rec.eventLog())

	unsub()
	conn.Event(wire.EventChat, wire.ChatEvent{RunID: "run-3"}, wire.Seq(4))
	require.Eventually(t, func() bool { return len(rec.eventLog()) == 4 }, waitFor, 5*time.Millisecond)
	select {
	case id := <-chats:
		t.Fatalf("unsubscribed handler received %s", id)
	default:
	}
}

func TestSequenceGap(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, rec := newTestClient(t, srv.URL(), nil)
	conn := connect(t, c, srv)

	conn.Event(wire.EventTick, nil, wire.Seq(5))
	conn.Event(wire.EventTick, nil, wire.Seq(8))
	conn.Event(wire.EventTick, nil, wire.Seq(6)) // late, not a gap
	conn.Event(wire.EventTick, nil, wire.Seq(9))

	require.Eventually(t, func() bool { return len(rec.eventLog()) == 4 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []subscription.Gap{{Expected: 6, Received: 8}}, rec.gapLog())

	// A new connection starts a fresh sequence.
	conn.Drop()
	conn = srv.WaitConn(waitFor)
	require.Eventually(t, func() bool { return rec.helloCount() == 2 }, waitFor, 5*time.Millisecond)

	conn.Event(wire.EventTick, nil, wire.Seq(1))
	require.Eventually(t, func() bool { return len(rec.eventLog()) == 5 }, waitFor, 5*time.Millisecond)
	assert.Len(t, rec.gapLog(), 1)
}

func TestMalformedFramesDropped(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	srv.Handle(wire.MethodHealth, gatewaytest.Respond(map[string]bool{"ok": true}))
	c, _ := newTestClient(t, srv.URL(), nil)
	conn := connect(t, c, srv)

	conn.SendRaw([]byte(`{not json`))
	conn.SendRaw([]byte(`{"type":"mystery"}`))
	conn.SendRaw([]byte(`{"type":"res","id":"unknown","ok":true}`))

	_, err := c.Call(context.Background(), wire.MethodHealth, nil)
	require.NoError(t, err)
	assert.Equal(t, connection.StateConnected, c.State())
}

func TestCallbacksMayCallClient(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	srv.Handle(wire.MethodHealth, gatewaytest.Respond(map[string]bool{"ok": true}))

	result := make(chan error, 1)
	var c *Client
	c, _ = newTestClient(t, srv.URL(), func(o *Options) {
		o.OnHello = func(*wire.HelloOK) {
			_, err := c.Call(context.Background(), wire.MethodHealth, nil)
			result <- err
		}
	})
	require.NoError(t, c.Connect())

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("call from callback did not complete")
	}
}

func TestTickWatchdog(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	hello := gatewaytest.DefaultHello()
	hello.Policy = &wire.Policy{TickIntervalMs: 50}
	srv.SetHello(hello)

	c, _ := newTestClient(t, srv.URL(), nil)
	conn := connect(t, c, srv)

	// Ticks keep the socket alive.
	for i := 0; i < 5; i++ {
		conn.Event(wire.EventTick, wire.TickEvent{TS: int64(i)}, nil)
		time.Sleep(20 * time.Millisecond)
	}
	select {
	case <-conn.Closed():
		t.Fatal("socket closed despite ticks")
	default:
	}

	// Silence closes it and the client reconnects.
	select {
	case <-conn.Closed():
	case <-time.After(waitFor):
		t.Fatal("watchdog did not close the socket")
	}
	srv.WaitConn(waitFor)
	waitConnected(t, c)
}

func TestDialFailureReportsAndRetries(t *testing.T) {
	c, rec := newTestClient(t, "ws://127.0.0.1:1", nil)
	require.NoError(t, c.Connect())

	require.Eventually(t, func() bool { return len(rec.errors()) >= 2 }, waitFor, 5*time.Millisecond)

	var tr *rpc.TransportError
	require.True(t, errors.As(rec.errors()[0], &tr))
	assert.ErrorAs(t, c.LastError(), &tr)

	states := rec.stateLog()
	assert.Equal(t, connection.StateConnecting, states[0])
	assert.Equal(t, connection.StateDisconnected, states[1])

	c.Disconnect()
	n := len(rec.errors())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, n, len(rec.errors()), "no retries after Disconnect")
}
