// Package transport provides the duplex message socket used to reach a
// gateway.
//
// The gateway speaks JSON text frames over a single WebSocket. Conn is the
// minimal surface the client needs from that socket: send one message,
// receive one message, close with a code. Dialer opens a Conn. Both are
// interfaces so tests can substitute an in-memory transport.
//
// # Close Semantics
//
// Receive returns a *CloseError once the socket is closed, whether by the
// peer, by a network failure (code 1006) or locally through Close. A local
// close reports the code and reason passed to Close.
package transport
