// Package connection provides connection lifecycle primitives for the
// gateway client.
//
// This package handles:
//   - The connection state machine
//   - Exponential backoff for reconnection attempts
//   - Tick liveness monitoring
//
// # States
//
//	disconnected -> connecting -> authenticating -> connected
//	                    |               |               |
//	                    +-------> error <---------------+
//	                                |
//	                  (reconnect) connecting
//
// # Reconnection Strategy
//
// When a connection is lost, the client waits before redialing:
//
//  1. Initial delay: 800 milliseconds
//  2. Each failed attempt multiplies the delay by 1.7
//  3. Maximum delay: 15 seconds
//  4. Reset to the initial delay as soon as a handshake succeeds
//
// A handshake rejected by the server counts as a failed attempt.
package connection
