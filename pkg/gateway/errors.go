package gateway

import (
	"errors"
	"fmt"
)

// ErrClientClosed is returned by Connect after Close.
var ErrClientClosed = errors.New("gateway client closed")

// HandshakeError reports a rejected or failed connect request.
type HandshakeError struct {
	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("gateway handshake failed: %v", e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }
