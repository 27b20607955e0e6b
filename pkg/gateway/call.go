package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	protolog "github.com/clawdash/gateway-go/pkg/log"
	"github.com/clawdash/gateway-go/pkg/metrics"
	"github.com/clawdash/gateway-go/pkg/rpc"
	"github.com/clawdash/gateway-go/pkg/transport"
	"github.com/clawdash/gateway-go/pkg/wire"
)

// Call sends a request and waits for its response. params may be nil, a
// json.RawMessage or any JSON-marshalable value.
//
// Errors are *rpc.RemoteError for gateway-reported failures,
// *rpc.TimeoutError when no response arrives within the RPC timeout,
// *rpc.TransportError when the socket is lost, rpc.ErrNotConnected when no
// socket is open, or ctx.Err() when ctx ends first.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	call := c.start(ctx, method, params)
	return c.table.Wait(ctx, call)
}

// Go sends a request and returns immediately. The returned call settles
// exactly once; wait on Done and read Result.
func (c *Client) Go(method string, params any) *rpc.Call {
	return c.start(context.Background(), method, params)
}

func (c *Client) start(ctx context.Context, method string, params any) *rpc.Call {
	_, span := c.startSpan(ctx, method)
	onSettle := c.settleHook(span, method)

	raw, err := wire.MarshalParams(params)
	if err != nil {
		return rpc.Failed(method, fmt.Errorf("gateway: encode %s params: %w", method, err), onSettle)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return rpc.Failed(method, rpc.ErrNotConnected, onSettle)
	}

	return c.sendOn(conn, method, raw, onSettle)
}

// sendOn registers a call and writes its request to conn.
func (c *Client) sendOn(conn transport.Conn, method string, params json.RawMessage, onSettle func(*rpc.Call)) *rpc.Call {
	call := c.table.Register(method, onSettle)
	c.metrics.SetPending(c.table.Len())

	data, err := wire.EncodeRequest(call.ID, method, params)
	if err != nil {
		c.table.Fail(call.ID, fmt.Errorf("gateway: encode %s request: %w", method, err))
		return call
	}

	c.logFrame(protolog.DirectionOut, data)

	if err := conn.Send(data); err != nil {
		c.table.Fail(call.ID, &rpc.TransportError{Reason: err.Error(), Err: err})
	}
	return call
}

func (c *Client) startSpan(ctx context.Context, method string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "gateway.rpc "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "openclaw-gateway"),
			attribute.String("rpc.method", method),
			attribute.String("gateway.url", c.opts.URL),
		),
	)
}

// settleHook returns the callback run when a call settles: it records
// metrics and ends the span.
func (c *Client) settleHook(span trace.Span, method string) func(*rpc.Call) {
	return func(call *rpc.Call) {
		err := call.Err()
		outcome := outcomeOf(err)

		c.metrics.ObserveCall(method, outcome, time.Since(call.Started))
		c.metrics.SetPending(c.table.Len())

		if call.ID != "" {
			span.SetAttributes(attribute.String("rpc.request_id", call.ID))
		}
		span.SetAttributes(attribute.String("rpc.outcome", outcome))
		if err != nil {
			if re, ok := rpc.IsRemote(err); ok && re.Code != "" {
				span.SetAttributes(attribute.String("rpc.error_code", re.Code))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return metrics.OutcomeCancelled
	}
	if rpc.IsTimeout(err) {
		return metrics.OutcomeTimeout
	}
	if _, ok := rpc.IsRemote(err); ok {
		return metrics.OutcomeRemote
	}
	return metrics.OutcomeTransport
}
