package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clawdash/gateway-go/pkg/connection"
	protolog "github.com/clawdash/gateway-go/pkg/log"
	"github.com/clawdash/gateway-go/pkg/rpc"
	"github.com/clawdash/gateway-go/pkg/subscription"
	"github.com/clawdash/gateway-go/pkg/transport"
	"github.com/clawdash/gateway-go/pkg/version"
	"github.com/clawdash/gateway-go/pkg/wire"
)

// startDialLocked supersedes the current generation and dials in the
// background. Must be called with c.mu held.
func (c *Client) startDialLocked() {
	c.gen++
	gen := c.gen
	c.dialing = true

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
	c.dialCancel = cancel

	go c.dial(ctx, cancel, gen)
}

func (c *Client) dial(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	conn, err := c.opts.Dialer.Dial(ctx, c.opts.URL)
	cancel()

	c.mu.Lock()
	if gen != c.gen || c.stopped {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close(wire.CloseNormal, "superseded")
		}
		return
	}
	c.dialing = false
	c.dialCancel = nil

	if err != nil {
		terr := &rpc.TransportError{
			Code:   transport.CloseAbnormalClosure,
			Reason: err.Error(),
			Err:    err,
		}
		c.err = terr
		c.logger.Warn("gateway dial failed", "error", err)
		c.logLocal(protolog.CategoryError, &protolog.Event{
			Error: &protolog.ErrorEventData{
				Kind:    protolog.ErrorKindTransport,
				Message: err.Error(),
				Context: "dial",
			},
		})
		c.postError(terr)
		c.setStateLocked(connection.StateDisconnected, "dial failed")
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return
	}

	c.conn = conn
	c.connID.Store(uuid.NewString())
	c.seq.Reset()
	c.setStateLocked(connection.StateAuthenticating, "socket open")
	c.hs.Begin()
	c.mu.Unlock()

	go c.readLoop(gen, conn)
}

func (c *Client) readLoop(gen uint64, conn transport.Conn) {
	for {
		data, err := conn.Receive()
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		if !c.current(gen) {
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *Client) handleMessage(data []byte) {
	c.logFrame(protolog.DirectionIn, data)

	c.mu.Lock()
	wd := c.watchdog
	c.mu.Unlock()
	wd.Feed()

	frame, err := wire.Decode(data)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, wire.ErrUnknownFrameType) {
			reason = "unknown_type"
		}
		c.dropFrame(reason, err)
		return
	}

	switch {
	case frame.Response != nil:
		if !c.table.Resolve(frame.Response) {
			c.logger.Debug("response for unknown request", "id", frame.Response.ID)
			c.metrics.DroppedFrame("unknown_id")
		}
	case frame.Event != nil:
		c.handleEvent(frame.Event)
	default:
		c.dropFrame("unexpected_request", fmt.Errorf("unexpected request %q from gateway", frame.Name()))
	}
}

func (c *Client) dropFrame(reason string, err error) {
	c.logger.Debug("dropping frame", "reason", reason, "error", err)
	c.metrics.DroppedFrame(reason)
	c.logLocal(protolog.CategoryError, &protolog.Event{
		Error: &protolog.ErrorEventData{
			Kind:    protolog.ErrorKindProtocol,
			Message: err.Error(),
			Context: reason,
		},
	})
}

func (c *Client) handleEvent(evt *wire.EventFrame) {
	if evt.Event == wire.EventConnectChallenge {
		var challenge wire.ChallengePayload
		if len(evt.Payload) > 0 {
			_ = json.Unmarshal(evt.Payload, &challenge)
		}
		c.hs.Challenge(challenge.Nonce)
		return
	}

	c.metrics.Event(evt.Event)

	if evt.Seq != nil {
		if gap := c.seq.Observe(*evt.Seq); gap != nil {
			c.reportGap(*gap)
		}
	}

	c.events.post(func() { c.router.Dispatch(evt) })
}

func (c *Client) reportGap(gap subscription.Gap) {
	c.metrics.Gap()
	c.logger.Warn("event sequence gap", "expected", gap.Expected, "received", gap.Received)
	c.logLocal(protolog.CategoryGap, &protolog.Event{
		Gap: &protolog.GapEvent{Expected: gap.Expected, Received: gap.Received},
	})
	if fn := c.opts.OnGap; fn != nil {
		c.events.post(func() { fn(gap) })
	}
}

// handleClose runs when the read loop of generation gen ends.
func (c *Client) handleClose(gen uint64, err error) {
	ce := transport.AsCloseError(err)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen = c.gen
	c.conn = nil
	c.hs.Cancel()
	wd := c.watchdog
	c.watchdog = nil
	c.mu.Unlock()

	wd.Stop()

	c.logger.Info("gateway socket closed", "code", ce.Code, "reason", ce.Reason)
	code := ce.Code
	c.logLocal(protolog.CategoryError, &protolog.Event{
		Error: &protolog.ErrorEventData{
			Kind:    protolog.ErrorKindTransport,
			Message: ce.Reason,
			Code:    &code,
			Context: "close",
		},
	})

	n := c.table.FailAll(&rpc.TransportError{Code: ce.Code, Reason: ce.Reason, Err: err})
	if n > 0 {
		c.logger.Debug("rejected pending calls", "count", n, "code", ce.Code)
	}
	c.metrics.SetPending(0)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.stopped {
		return
	}
	c.setStateLocked(connection.StateDisconnected, fmt.Sprintf("closed (%d)", ce.Code))
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the reconnect timer with the next backoff
// delay. Must be called with c.mu held.
func (c *Client) scheduleReconnectLocked() {
	if c.stopped || c.closed {
		return
	}
	if c.reconnect != nil {
		c.reconnect.Stop()
	}

	delay := c.backoff.Next()
	gen := c.gen
	c.reconnect = time.AfterFunc(delay, func() { c.redial(gen) })

	c.metrics.Reconnect()
	c.logger.Info("gateway reconnect scheduled", "delay", delay, "attempt", c.backoff.Attempts())
}

func (c *Client) redial(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.stopped || c.closed || c.dialing || c.conn != nil {
		return
	}
	c.reconnect = nil
	c.setStateLocked(connection.StateConnecting, "reconnect")
	c.startDialLocked()
}

// sendConnect is invoked by the handshake coordinator, at most once per
// socket.
func (c *Client) sendConnect(nonce string) {
	c.mu.Lock()
	conn := c.conn
	gen := c.gen
	c.mu.Unlock()
	if conn == nil {
		return
	}

	params := BuildConnectParams(c.opts, nonce)
	raw, err := wire.MarshalParams(params)
	if err != nil {
		c.handshakeFailed(gen, fmt.Errorf("encode connect params: %w", err))
		return
	}

	_, span := c.startSpan(context.Background(), wire.MethodConnect)
	hook := c.settleHook(span, wire.MethodConnect)
	c.sendOn(conn, wire.MethodConnect, raw, func(call *rpc.Call) {
		hook(call)
		c.handshakeDone(gen, call)
	})
}

func (c *Client) handshakeDone(gen uint64, call *rpc.Call) {
	payload, err := call.Result()
	var hello wire.HelloOK
	if err == nil {
		if uerr := json.Unmarshal(payload, &hello); uerr != nil {
			err = fmt.Errorf("decode hello: %w", uerr)
		} else if hello.Type != wire.HelloType {
			err = fmt.Errorf("unexpected hello type %q", hello.Type)
		} else if hello.Protocol != 0 {
			err = version.CheckProtocol(hello.Protocol)
		}
	}
	if err != nil {
		c.handshakeFailed(gen, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}

	c.hello = &hello
	c.backoff.Reset()
	c.setStateLocked(connection.StateConnected, "hello")

	if fn := c.opts.OnHello; fn != nil {
		h := &hello
		c.events.post(func() { fn(h) })
	}

	if hello.Policy != nil && hello.Policy.TickIntervalMs > 0 {
		interval := time.Duration(hello.Policy.TickIntervalMs) * time.Millisecond
		c.watchdog = connection.NewWatchdog(interval, c.opts.TickMisses, func() { c.tickExpired(gen) })
		c.watchdog.Start()
	}

	c.logger.Info("gateway connected",
		"server_version", hello.Server.Version,
		"conn_id", hello.Server.ConnID,
		"protocol", hello.Protocol)
}

func (c *Client) handshakeFailed(gen uint64, err error) {
	herr := &HandshakeError{Err: err}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.err = herr
	c.setStateLocked(connection.StateError, err.Error())
	c.postError(herr)
	conn := c.conn
	c.mu.Unlock()

	c.logger.Error("gateway handshake failed", "error", err)
	c.logLocal(protolog.CategoryError, &protolog.Event{
		Error: &protolog.ErrorEventData{
			Kind:    protolog.ErrorKindHandshake,
			Message: err.Error(),
		},
	})

	if conn != nil {
		_ = conn.Close(wire.CloseConnectFailed, "connect failed")
	}
}

func (c *Client) tickExpired(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.mu.Unlock()

	c.logger.Warn("gateway tick timeout, closing socket")
	if conn != nil {
		_ = conn.Close(wire.CloseTickTimeout, "tick timeout")
	}
}
