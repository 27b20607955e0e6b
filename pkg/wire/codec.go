package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Decode errors. Both are protocol errors: the offending message is dropped
// and never fails a call.
var (
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrUnknownFrameType = errors.New("unknown frame type")
)

// Decode parses one text message into a Frame.
func Decode(data []byte) (*Frame, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch probe.Type {
	case FrameTypeRequest:
		var req RequestFrame
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if req.ID == "" || req.Method == "" {
			return nil, fmt.Errorf("%w: request without id or method", ErrMalformedFrame)
		}
		return &Frame{Type: probe.Type, Request: &req}, nil

	case FrameTypeResponse:
		var res ResponseFrame
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if res.ID == "" {
			return nil, fmt.Errorf("%w: response without id", ErrMalformedFrame)
		}
		return &Frame{Type: probe.Type, Response: &res}, nil

	case FrameTypeEvent:
		var evt EventFrame
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if evt.Event == "" {
			return nil, fmt.Errorf("%w: event without name", ErrMalformedFrame)
		}
		return &Frame{Type: probe.Type, Event: &evt}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, probe.Type)
	}
}

// MarshalParams converts request parameters to raw JSON. A nil value yields
// nil so the params field is omitted from the frame.
func MarshalParams(params any) (json.RawMessage, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

// EncodeRequest encodes a request frame.
func EncodeRequest(id, method string, params json.RawMessage) ([]byte, error) {
	return json.Marshal(&RequestFrame{
		Type:   FrameTypeRequest,
		ID:     id,
		Method: method,
		Params: params,
	})
}

// EncodeResponse encodes a successful response frame.
func EncodeResponse(id string, payload any) ([]byte, error) {
	raw, err := MarshalParams(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&ResponseFrame{
		Type:    FrameTypeResponse,
		ID:      id,
		OK:      true,
		Payload: raw,
	})
}

// EncodeErrorResponse encodes a failed response frame.
func EncodeErrorResponse(id string, shape *ErrorShape) ([]byte, error) {
	return json.Marshal(&ResponseFrame{
		Type:  FrameTypeResponse,
		ID:    id,
		OK:    false,
		Error: shape,
	})
}

// EncodeEvent encodes an event frame. A nil seq leaves the event unsequenced.
func EncodeEvent(event string, payload any, seq *int64) ([]byte, error) {
	raw, err := MarshalParams(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&EventFrame{
		Type:    FrameTypeEvent,
		Event:   event,
		Payload: raw,
		Seq:     seq,
	})
}

// Seq returns a pointer to s, for building sequenced events.
func Seq(s int64) *int64 {
	return &s
}
