package gatewaytest

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clawdash/gateway-go/pkg/wire"
)

// Conn is the server side of one client socket.
type Conn struct {
	server *Server
	ws     *websocket.Conn

	// ConnID is reported in the hello.
	ConnID string

	// Connected receives the params of the first connect request.
	Connected chan *wire.ConnectParams

	requests chan *wire.RequestFrame

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func (c *Conn) readLoop() {
	defer c.markClosed()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		frame, err := wire.Decode(data)
		if err != nil || frame.Request == nil {
			continue
		}
		if frame.Request.Method != wire.MethodConnect {
			select {
			case c.requests <- frame.Request:
			default:
			}
		}
		c.server.handle(c, frame.Request)
	}
}

func (c *Conn) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// Closed is closed once the socket is gone.
func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

// WaitRequest returns the next non-connect request received on this socket.
func (c *Conn) WaitRequest(timeout time.Duration) *wire.RequestFrame {
	c.server.t.Helper()
	select {
	case req := <-c.requests:
		return req
	case <-time.After(timeout):
		c.server.t.Fatalf("gatewaytest: no request within %v", timeout)
		return nil
	}
}

// WaitHandshake waits for the connect request and returns its params.
func (c *Conn) WaitHandshake(timeout time.Duration) *wire.ConnectParams {
	c.server.t.Helper()
	select {
	case p := <-c.Connected:
		return p
	case <-time.After(timeout):
		c.server.t.Fatalf("gatewaytest: no connect request within %v", timeout)
		return nil
	}
}

// Reply sends a successful response.
func (c *Conn) Reply(id string, payload any) {
	data, err := wire.EncodeResponse(id, payload)
	if err != nil {
		c.server.t.Errorf("gatewaytest: encode response: %v", err)
		return
	}
	c.SendRaw(data)
}

// ReplyError sends a failed response.
func (c *Conn) ReplyError(id string, shape *wire.ErrorShape) {
	data, err := wire.EncodeErrorResponse(id, shape)
	if err != nil {
		c.server.t.Errorf("gatewaytest: encode error response: %v", err)
		return
	}
	c.SendRaw(data)
}

// Event pushes an event. seq may be nil.
func (c *Conn) Event(event string, payload any, seq *int64) {
	data, err := wire.EncodeEvent(event, payload, seq)
	if err != nil {
		c.server.t.Errorf("gatewaytest: encode event: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw writes data as one text message. Write errors are ignored since
// the client may already have gone.
func (c *Conn) SendRaw(data []byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close performs a close handshake with code and reason.
func (c *Conn) Close(code int, reason string) {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	select {
	case <-c.closed:
	case <-time.After(time.Second):
	}
	_ = c.ws.Close()
}

// Drop closes the socket without a close frame.
func (c *Conn) Drop() {
	_ = c.ws.Close()
	c.markClosed()
}
