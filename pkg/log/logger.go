package log

// Logger receives protocol log events.
// Pass nil or NoopLogger to disable logging.
type Logger interface {
	// Log records a protocol event. Implementations must be thread-safe and
	// should not block; Log is called from the connection's read loop.
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Enabled reports whether l records anything.
func Enabled(l Logger) bool {
	if l == nil {
		return false
	}
	_, noop := l.(NoopLogger)
	return !noop
}

var _ Logger = NoopLogger{}
