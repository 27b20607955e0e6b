// Package rpc correlates gateway requests with their responses.
//
// Every request registered with a Table gets a random UUID correlation id
// and a timeout timer. A Call settles exactly once: by a matching response,
// by its timeout, by an explicit failure, or by FailAll when the connection
// is lost. Whatever settles first wins and the entry is purged; anything
// arriving afterwards for the same id is ignored.
package rpc
