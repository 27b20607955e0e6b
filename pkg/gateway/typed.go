package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clawdash/gateway-go/pkg/subscription"
	"github.com/clawdash/gateway-go/pkg/wire"
)

// Invoke calls method and decodes the response payload into T. An empty or
// null payload yields the zero T.
func Invoke[T any](ctx context.Context, c *Client, method string, params any) (T, error) {
	var out T
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return out, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("gateway: decode %s result: %w", method, err)
	}
	return out, nil
}

// SubscribeAs subscribes to event and decodes each payload into T. Decode
// failures are passed to fn with the zero T.
func SubscribeAs[T any](c *Client, event string, fn func(payload T, err error)) subscription.Unsubscribe {
	return c.Subscribe(event, func(evt *wire.EventFrame) {
		var payload T
		if len(evt.Payload) == 0 || string(evt.Payload) == "null" {
			fn(payload, nil)
			return
		}
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			fn(payload, fmt.Errorf("gateway: decode %s event: %w", event, err))
			return
		}
		fn(payload, nil)
	})
}
