package log

import (
	"time"
)

// Event is one protocol log record.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the socket the event belongs to (UUID). It
	// changes on every reconnect.
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// URL is the gateway URL.
	URL string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Gap         *GapEvent         `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a message from the gateway.
	DirectionIn Direction = 0
	// DirectionOut indicates a message to the gateway.
	DirectionOut Direction = 1
	// DirectionLocal indicates an event raised by the client itself.
	DirectionLocal Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionLocal:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection parses a direction name as printed by String.
func ParseDirection(s string) (Direction, bool) {
	for _, d := range []Direction{DirectionIn, DirectionOut, DirectionLocal} {
		if d.String() == s {
			return d, true
		}
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame indicates a protocol frame (req/res/event).
	CategoryFrame Category = 0
	// CategoryState indicates a connection state change.
	CategoryState Category = 1
	// CategoryGap indicates an event sequence gap.
	CategoryGap Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryState:
		return "STATE"
	case CategoryGap:
		return "GAP"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name as printed by String.
func ParseCategory(s string) (Category, bool) {
	for _, c := range []Category{CategoryFrame, CategoryState, CategoryGap, CategoryError} {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// FrameEvent captures one protocol frame.
type FrameEvent struct {
	// Type is the frame type: "req", "res" or "event". Empty when the
	// frame could not be decoded.
	Type string `cbor:"1,keyasint,omitempty"`

	// ID is the correlation id of req/res frames.
	ID string `cbor:"2,keyasint,omitempty"`

	// Method is the RPC method of a request.
	Method string `cbor:"3,keyasint,omitempty"`

	// Event is the event name of an event frame.
	Event string `cbor:"4,keyasint,omitempty"`

	// Seq is the event sequence number, if present.
	Seq *int64 `cbor:"5,keyasint,omitempty"`

	// OK is the outcome of a response.
	OK *bool `cbor:"6,keyasint,omitempty"`

	// ErrorCode is the remote error code of a failed response.
	ErrorCode string `cbor:"7,keyasint,omitempty"`

	// Size is the frame size in bytes.
	Size int `cbor:"8,keyasint"`

	// Data is the raw frame text (may be truncated for large frames).
	Data []byte `cbor:"9,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"10,keyasint,omitempty"`
}

// Name returns the method or event name of the frame.
func (f *FrameEvent) Name() string {
	if f.Method != "" {
		return f.Method
	}
	return f.Event
}

// StateChangeEvent captures a connection state transition.
type StateChangeEvent struct {
	// OldState is the previous state.
	OldState string `cbor:"1,keyasint,omitempty" json:"oldState,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint" json:"newState"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty" json:"reason,omitempty"`
}

// GapEvent captures a skip in event sequence numbers.
type GapEvent struct {
	Expected int64 `cbor:"1,keyasint" json:"expected"`
	Received int64 `cbor:"2,keyasint" json:"received"`
}

// ErrorKind classifies errors.
type ErrorKind uint8

const (
	ErrorKindTransport ErrorKind = 0
	ErrorKindHandshake ErrorKind = 1
	ErrorKindProtocol  ErrorKind = 2
	ErrorKindTimeout   ErrorKind = 3
	ErrorKindRemote    ErrorKind = 4
	ErrorKindCallback  ErrorKind = 5
)

// String returns the error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTransport:
		return "TRANSPORT"
	case ErrorKindHandshake:
		return "HANDSHAKE"
	case ErrorKindProtocol:
		return "PROTOCOL"
	case ErrorKindTimeout:
		return "TIMEOUT"
	case ErrorKindRemote:
		return "REMOTE"
	case ErrorKindCallback:
		return "CALLBACK"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures a client-side error.
type ErrorEventData struct {
	// Kind of error.
	Kind ErrorKind `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the close code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what was being done.
	Context string `cbor:"4,keyasint,omitempty"`
}
