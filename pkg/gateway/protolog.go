package gateway

import (
	"time"

	protolog "github.com/clawdash/gateway-go/pkg/log"
)

// logFrame records a raw frame in the protocol log.
func (c *Client) logFrame(dir protolog.Direction, data []byte) {
	if !protolog.Enabled(c.plog) {
		return
	}
	c.plog.Log(protolog.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ConnectionID(),
		Direction:    dir,
		Category:     protolog.CategoryFrame,
		URL:          c.opts.URL,
		Frame:        protolog.CaptureFrame(data, c.opts.MaxLoggedBytes),
	})
}

// logLocal records a client-side event. It does not take c.mu, so it may be
// called with the lock held.
func (c *Client) logLocal(category protolog.Category, event *protolog.Event) {
	if !protolog.Enabled(c.plog) {
		return
	}
	event.Timestamp = time.Now()
	event.ConnectionID = c.ConnectionID()
	event.Direction = protolog.DirectionLocal
	event.Category = category
	event.URL = c.opts.URL
	c.plog.Log(*event)
}
