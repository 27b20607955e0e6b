// Package wire defines the JSON wire format of the gateway protocol.
//
// Every WebSocket text message carries exactly one frame. Frames are
// discriminated by their "type" field:
//
//   - "req":   client to server, {type, id, method, params?}
//   - "res":   server to client, {type, id, ok, payload?, error?}
//   - "event": server to client, {type, event, payload?, seq?, stateVersion?}
//
// The id of a response matches the id of the request it answers. Events are
// unsolicited and may carry a monotonically increasing sequence number.
//
// # Handshake
//
// The first request on every connection is "connect" (see ConnectParams). The
// server may push a "connect.challenge" event carrying a nonce before that;
// a successful connect answers with a HelloOK payload.
package wire
