package transport

import (
	"context"
	"errors"
	"fmt"
)

// Close codes from RFC 6455 used when no close frame was received.
const (
	CloseNormalClosure   = 1000
	CloseAbnormalClosure = 1006
)

// ErrConnectionClosed is returned by Send on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Conn is an open message socket.
type Conn interface {
	// Send writes one text message. Safe for concurrent use.
	Send(data []byte) error

	// Receive blocks for the next message. Only one goroutine may call it.
	Receive() ([]byte, error)

	// Close sends a close frame with code and reason and releases the
	// socket. Subsequent calls have no effect.
	Close(code int, reason string) error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// CloseError reports why a connection ended.
type CloseError struct {
	Code   int
	Reason string

	// Local is true when the connection was closed by this side.
	Local bool

	// Err is the underlying network error, if any.
	Err error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed (%d): %s", e.Code, e.Reason)
}

func (e *CloseError) Unwrap() error { return e.Err }

// AsCloseError extracts the close code and reason from err. Errors that are
// not a *CloseError map to an abnormal closure.
func AsCloseError(err error) *CloseError {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce
	}
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return &CloseError{Code: CloseAbnormalClosure, Reason: reason, Err: err}
}
