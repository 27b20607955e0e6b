// Package gatewaytest provides an in-process fake gateway for tests.
//
// The fake speaks the real wire protocol over a real WebSocket served by
// httptest. It answers the connect handshake with a configurable hello,
// optionally issues a connect.challenge first, and routes other requests
// to per-method handlers. Tests drive server-pushed events and socket
// closes through the Conn values it hands out.
package gatewaytest

import (
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/clawdash/gateway-go/pkg/wire"
)

// Handler answers a request. It replies through conn, possibly later or not
// at all.
type Handler func(conn *Conn, req *wire.RequestFrame)

// Respond returns a handler that replies with payload.
func Respond(payload any) Handler {
	return func(conn *Conn, req *wire.RequestFrame) {
		conn.Reply(req.ID, payload)
	}
}

// Fail returns a handler that replies with a remote error.
func Fail(code, message string) Handler {
	return func(conn *Conn, req *wire.RequestFrame) {
		conn.ReplyError(req.ID, &wire.ErrorShape{Code: code, Message: message})
	}
}

// Ignore is a handler that never replies.
func Ignore(*Conn, *wire.RequestFrame) {}

// Server is a fake gateway.
type Server struct {
	t        testing.TB
	http     *httptest.Server
	upgrader websocket.Upgrader

	mu            sync.Mutex
	handlers      map[string]Handler
	hello         wire.HelloOK
	challenge     string
	rejectConnect *wire.ErrorShape
	silentConnect bool
	conns         []*Conn
	connects      []*wire.ConnectParams

	connCh chan *Conn
}

// NewServer starts a fake gateway. It is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := newServer(t)
	s.http.Start()
	return s
}

// NewTLSServer starts a fake gateway serving wss:// with cert.
func NewTLSServer(t testing.TB, cert tls.Certificate) *Server {
	t.Helper()
	s := newServer(t)
	s.http.TLS = &tls.Config{Certificates: []tls.Certificate{cert}}
	s.http.StartTLS()
	return s
}

func newServer(t testing.TB) *Server {
	s := &Server{
		t:        t,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		handlers: make(map[string]Handler),
		connCh:   make(chan *Conn, 16),
		hello:    DefaultHello(),
	}
	s.http = httptest.NewUnstartedServer(http.HandlerFunc(s.serveWS))
	t.Cleanup(s.Close)
	return s
}

// DefaultHello returns the hello the fake sends unless SetHello is used.
func DefaultHello() wire.HelloOK {
	return wire.HelloOK{
		Type:     wire.HelloType,
		Protocol: wire.ProtocolVersion,
		Server:   wire.ServerInfo{Version: "test", Host: "fake"},
		Features: wire.Features{
			Methods: []string{wire.MethodHealth, wire.MethodStatus},
			Events:  []string{wire.EventTick, wire.EventChat},
		},
		Snapshot: wire.Snapshot{UptimeMs: 1},
	}
}

// URL returns the ws:// or wss:// URL of the fake.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http")
}

// Close stops the fake and drops every connection.
func (s *Server) Close() {
	s.mu.Lock()
	conns := append([]*Conn(nil), s.conns...)
	s.mu.Unlock()
	for _, c := range conns {
		c.Drop()
	}
	s.http.Close()
}

// Handle installs the handler for method.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// SetHello replaces the hello payload. The server fills in ConnID.
func (s *Server) SetHello(hello wire.HelloOK) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hello = hello
}

// SetChallenge makes new connections receive connect.challenge with nonce
// first. An empty nonce disables the challenge.
func (s *Server) SetChallenge(nonce string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenge = nonce
}

// RejectConnect makes connect requests fail with shape. Nil accepts them
// again.
func (s *Server) RejectConnect(shape *wire.ErrorShape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectConnect = shape
}

// SilentConnect makes connect requests go unanswered.
func (s *Server) SilentConnect(silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silentConnect = silent
}

// Connects returns the params of every connect request received so far.
func (s *Server) Connects() []*wire.ConnectParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*wire.ConnectParams(nil), s.connects...)
}

// WaitConn returns the next accepted connection.
func (s *Server) WaitConn(timeout time.Duration) *Conn {
	s.t.Helper()
	select {
	case c := <-s.connCh:
		return c
	case <-time.After(timeout):
		s.t.Fatalf("gatewaytest: no connection within %v", timeout)
		return nil
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &Conn{
		server:    s,
		ws:        ws,
		ConnID:    uuid.NewString(),
		Connected: make(chan *wire.ConnectParams, 1),
		requests:  make(chan *wire.RequestFrame, 64),
		closed:    make(chan struct{}),
	}

	s.mu.Lock()
	s.conns = append(s.conns, c)
	nonce := s.challenge
	s.mu.Unlock()

	if nonce != "" {
		c.Event(wire.EventConnectChallenge, wire.ChallengePayload{Nonce: nonce}, nil)
	}
	s.connCh <- c

	c.readLoop()
}

func (s *Server) handle(c *Conn, req *wire.RequestFrame) {
	if req.Method == wire.MethodConnect {
		s.handleConnect(c, req)
		return
	}

	s.mu.Lock()
	h := s.handlers[req.Method]
	s.mu.Unlock()

	if h == nil {
		c.ReplyError(req.ID, &wire.ErrorShape{Code: "INVALID_REQUEST", Message: "unknown method: " + req.Method})
		return
	}
	h(c, req)
}

func (s *Server) handleConnect(c *Conn, req *wire.RequestFrame) {
	var params wire.ConnectParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			c.ReplyError(req.ID, &wire.ErrorShape{Code: "INVALID_REQUEST", Message: err.Error()})
			return
		}
	}

	s.mu.Lock()
	s.connects = append(s.connects, &params)
	reject := s.rejectConnect
	silent := s.silentConnect
	hello := s.hello
	s.mu.Unlock()

	select {
	case c.Connected <- &params:
	default:
	}

	switch {
	case silent:
	case reject != nil:
		c.ReplyError(req.ID, reject)
	default:
		hello.Server.ConnID = c.ConnID
		c.Reply(req.ID, hello)
	}
}
