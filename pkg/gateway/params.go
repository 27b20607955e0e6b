package gateway

import (
	"github.com/clawdash/gateway-go/pkg/handshake"
	"github.com/clawdash/gateway-go/pkg/wire"
)

// BuildConnectParams returns the connect params the client sends for the
// given challenge nonce ("" when no challenge arrived).
func BuildConnectParams(opts Options, nonce string) *wire.ConnectParams {
	params := handshake.BuildParams(opts.Identity)
	if opts.ParamsHook != nil {
		opts.ParamsHook(nonce, params)
	}
	return params
}
