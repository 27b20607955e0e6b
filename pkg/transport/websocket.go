package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Defaults for WebSocketDialer.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultMaxMessageSize   = 25 << 20
)

// WebSocketDialer dials gateways over WebSocket.
type WebSocketDialer struct {
	// Header is sent with the upgrade request (e.g. Origin).
	Header http.Header

	// TLS configures wss:// connections. Nil uses the system roots.
	TLS *TLSConfig

	// HandshakeTimeout bounds the HTTP upgrade (default: 10s).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each Send (default: 10s).
	WriteTimeout time.Duration

	// MaxMessageSize limits inbound messages (default: 25MB).
	MaxMessageSize int64
}

// Dial opens a WebSocket connection to url.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	handshake := d.HandshakeTimeout
	if handshake == 0 {
		handshake = DefaultHandshakeTimeout
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshake,
	}
	if d.TLS != nil {
		tlsConf, err := NewClientTLSConfig(d.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		dialer.TLSClientConfig = tlsConf
	}

	ws, resp, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed: %w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	maxSize := d.MaxMessageSize
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	ws.SetReadLimit(maxSize)

	writeTimeout := d.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = DefaultWriteTimeout
	}

	return NewWebSocketConn(ws, writeTimeout), nil
}

// WebSocketConn adapts a gorilla connection to Conn.
type WebSocketConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeMu   sync.Mutex
	closed    *CloseError
}

// NewWebSocketConn wraps an established gorilla connection.
func NewWebSocketConn(ws *websocket.Conn, writeTimeout time.Duration) *WebSocketConn {
	return &WebSocketConn{ws: ws, writeTimeout: writeTimeout}
}

// Send writes data as one text message.
func (c *WebSocketConn) Send(data []byte) error {
	if c.localClose() != nil {
		return ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Receive returns the next text or binary message payload.
func (c *WebSocketConn) Receive() ([]byte, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, c.translate(err)
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// Close sends a close frame and closes the socket.
func (c *WebSocketConn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.closeMu.Lock()
		c.closed = &CloseError{Code: code, Reason: reason, Local: true}
		c.closeMu.Unlock()

		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

func (c *WebSocketConn) localClose() *CloseError {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

func (c *WebSocketConn) translate(err error) error {
	if local := c.localClose(); local != nil {
		return local
	}

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return &CloseError{Code: ce.Code, Reason: ce.Text, Err: err}
	}
	return &CloseError{Code: CloseAbnormalClosure, Reason: err.Error(), Err: err}
}

var (
	_ Dialer = (*WebSocketDialer)(nil)
	_ Conn   = (*WebSocketConn)(nil)
)
