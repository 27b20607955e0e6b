package wire

import "encoding/json"

// Frame type discriminators.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
	FrameTypeEvent    = "event"
)

// RequestFrame invokes an RPC method on the server.
type RequestFrame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseFrame answers a RequestFrame with the same ID.
type ResponseFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorShape     `json:"error,omitempty"`
}

// ErrorShape is the error body of a failed response.
type ErrorShape struct {
	Code         string          `json:"code"`
	Message      string          `json:"message"`
	Details      json.RawMessage `json:"details,omitempty"`
	Retryable    bool            `json:"retryable,omitempty"`
	RetryAfterMs int64           `json:"retryAfterMs,omitempty"`
}

// EventFrame is pushed by the server without a preceding request.
// Seq is nil when the server did not sequence the event.
type EventFrame struct {
	Type         string          `json:"type"`
	Event        string          `json:"event"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Seq          *int64          `json:"seq,omitempty"`
	StateVersion *StateVersion   `json:"stateVersion,omitempty"`
}

// StateVersion carries the server's derived state counters.
type StateVersion struct {
	Presence int64 `json:"presence"`
	Health   int64 `json:"health"`
}

// Frame is a decoded frame. Exactly one of Request, Response or Event is set,
// matching Type.
type Frame struct {
	Type     string
	Request  *RequestFrame
	Response *ResponseFrame
	Event    *EventFrame
}

// Name returns the method name for requests, the event name for events and
// the empty string for responses.
func (f *Frame) Name() string {
	switch {
	case f.Request != nil:
		return f.Request.Method
	case f.Event != nil:
		return f.Event.Event
	default:
		return ""
	}
}

// ID returns the correlation id for requests and responses.
func (f *Frame) ID() string {
	switch {
	case f.Request != nil:
		return f.Request.ID
	case f.Response != nil:
		return f.Response.ID
	default:
		return ""
	}
}
