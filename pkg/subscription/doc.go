// Package subscription fans gateway events out to independent subscribers.
//
// A Router keeps, per event name, an ordered list of handlers. Dispatch runs
// an optional global handler first and then every handler registered for the
// exact event name, in registration order. The list is snapshotted before a
// pass, so handlers may subscribe or unsubscribe from inside a callback; a
// handler removed during a pass is skipped for the remainder of that pass.
//
// A panicking handler is recovered and reported through OnPanic. It never
// prevents delivery to the remaining handlers.
//
// # Sequence Gaps
//
// Events may carry a monotonically increasing sequence number. A
// SequenceTracker remembers the highest value seen and reports a Gap when a
// value skips ahead. Gaps are diagnostic only: events are never buffered,
// reordered or replayed. Trackers are reset for every new connection.
package subscription
