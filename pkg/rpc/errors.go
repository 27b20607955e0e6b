package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Client errors.
var (
	// ErrNotConnected is returned when a call is attempted without an open
	// transport. No frame is sent.
	ErrNotConnected = errors.New("gateway not connected")

	// ErrClientStopped is the cause attached to calls rejected by an explicit
	// disconnect.
	ErrClientStopped = errors.New("gateway client stopped")
)

// TimeoutError is returned when no response arrives within the call timeout.
type TimeoutError struct {
	Method  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rpc timeout: %s (%dms)", e.Method, e.Timeout.Milliseconds())
}

// RemoteError is a failure reported by the gateway in a response frame.
type RemoteError struct {
	Code       string
	Message    string
	Details    json.RawMessage
	Retryable  bool
	RetryAfter time.Duration
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// TransportError is returned for calls lost to a closed or failed socket.
type TransportError struct {
	// Code is the WebSocket close code, or 0 when the socket failed without
	// a close handshake.
	Code   int
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Code == 0 && e.Err != nil {
		return fmt.Sprintf("gateway transport: %v", e.Err)
	}
	return fmt.Sprintf("gateway closed (%d): %s", e.Code, e.Reason)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a call timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsRemote reports whether err was produced by the gateway, returning the
// remote error when it was.
func IsRemote(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
