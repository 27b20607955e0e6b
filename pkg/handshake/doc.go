// Package handshake drives the connect exchange that opens every gateway
// session.
//
// After the socket opens the gateway may push a connect.challenge event
// carrying a nonce. The client waits briefly for it and then sends the
// connect request, with or without a nonce. The request is sent at most
// once per attempt no matter how a challenge and the wait timer interleave.
package handshake
