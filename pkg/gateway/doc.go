// Package gateway implements the agent-gateway protocol client.
//
// A Client owns one logical connection to a gateway: it dials the WebSocket,
// performs the connect handshake, multiplexes RPC calls over the socket,
// fans server-pushed events out to subscribers and reconnects with bounded
// exponential backoff when the socket drops.
//
// # Basic Usage
//
//	c, err := gateway.New(gateway.Options{
//	    URL:      "ws://127.0.0.1:18789",
//	    Identity: handshake.Identity{Token: token},
//	    OnStateChange: func(old, new connection.State) {
//	        fmt.Println(old, "->", new)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	c.Connect()
//	unsub := c.Subscribe(wire.EventChat, func(evt *wire.EventFrame) { ... })
//	defer unsub()
//
//	health, err := c.Health(ctx)
//
// # Callbacks
//
// OnStateChange, OnHello, OnEvent, OnError, OnGap and every subscriber run
// on a single dispatch goroutine, in the order the client observed them.
// A callback may call Call, Subscribe or Disconnect. Close must not be
// called from a callback, since it waits for the dispatch goroutine.
//
// # Reconnection
//
// A dropped socket fails every outstanding call with *rpc.TransportError,
// moves the client to disconnected and schedules a redial after the
// current backoff delay (800ms growing by 1.7 up to 15s). A successful
// handshake resets the delay. Disconnect stops all of this until the next
// Connect.
package gateway
