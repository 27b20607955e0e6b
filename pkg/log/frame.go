package log

import (
	"github.com/clawdash/gateway-go/pkg/wire"
)

// DefaultMaxData is the default number of frame bytes kept in a FrameEvent.
const DefaultMaxData = 4096

// CaptureFrame builds a FrameEvent from raw frame text. Frame metadata is
// taken from the decoded frame; raw frames that fail to decode are recorded
// with an empty Type. At most maxData bytes are kept (0 keeps none, negative
// keeps everything).
func CaptureFrame(raw []byte, maxData int) *FrameEvent {
	fe := &FrameEvent{Size: len(raw)}

	switch {
	case maxData < 0 || len(raw) <= maxData:
		fe.Data = append([]byte(nil), raw...)
	case maxData > 0:
		fe.Data = append([]byte(nil), raw[:maxData]...)
		fe.Truncated = true
	default:
		fe.Truncated = len(raw) > 0
	}

	frame, err := wire.Decode(raw)
	if err != nil {
		return fe
	}
	fe.Type = frame.Type

	switch {
	case frame.Request != nil:
		fe.ID = frame.Request.ID
		fe.Method = frame.Request.Method
	case frame.Response != nil:
		fe.ID = frame.Response.ID
		ok := frame.Response.OK
		fe.OK = &ok
		if frame.Response.Error != nil {
			fe.ErrorCode = frame.Response.Error.Code
		}
	case frame.Event != nil:
		fe.Event = frame.Event.Event
		fe.Seq = frame.Event.Seq
	}
	return fe
}
