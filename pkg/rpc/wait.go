package rpc

import (
	"context"
	"encoding/json"
)

// Wait blocks until c settles or ctx is done. On ctx cancellation the call is
// abandoned in t so a late response is ignored.
func (t *Table) Wait(ctx context.Context, c *Call) (json.RawMessage, error) {
	select {
	case <-c.Done():
		return c.Result()
	case <-ctx.Done():
		t.Fail(c.ID, ctx.Err())
		<-c.Done()
		return c.Result()
	}
}
