package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.Frame != nil:
		f := event.Frame
		attrs = append(attrs,
			slog.String("frame_type", f.Type),
			slog.Int("frame_size", f.Size),
		)
		if f.ID != "" {
			attrs = append(attrs, slog.String("id", f.ID))
		}
		if name := f.Name(); name != "" {
			attrs = append(attrs, slog.String("name", name))
		}
		if f.Seq != nil {
			attrs = append(attrs, slog.Int64("seq", *f.Seq))
		}
		if f.OK != nil {
			attrs = append(attrs, slog.Bool("ok", *f.OK))
		}
		if f.ErrorCode != "" {
			attrs = append(attrs, slog.String("error_code", f.ErrorCode))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Gap != nil:
		attrs = append(attrs,
			slog.Int64("expected", event.Gap.Expected),
			slog.Int64("received", event.Gap.Received),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_kind", event.Error.Kind.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
