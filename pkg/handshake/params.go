package handshake

import (
	"runtime"

	"github.com/clawdash/gateway-go/pkg/version"
	"github.com/clawdash/gateway-go/pkg/wire"
)

// Identity describes who is connecting. Zero fields take the defaults of
// DefaultIdentity.
type Identity struct {
	ClientID   string
	Version    string
	Platform   string
	Mode       string
	InstanceID string
	Role       string
	Scopes     []string
	Caps       []string
	Locale     string
	UserAgent  string

	Token    string
	Password string
}

// Default identity values.
const (
	DefaultClientID = "openclaw-control-ui"
	DefaultVersion  = "1.0.0"
	DefaultMode     = "webchat"
	DefaultRole     = "operator"
	DefaultLocale   = "en"
)

// DefaultScopes are the operator scopes requested when none are configured.
var DefaultScopes = []string{"operator.admin", "operator.approvals", "operator.pairing"}

// ParamsHook may amend the connect parameters before they are sent, for
// example to attach material bound to the challenge nonce. nonce is "" when
// no challenge arrived.
type ParamsHook func(nonce string, params *wire.ConnectParams)

// DefaultIdentity returns the identity used when nothing is configured.
func DefaultIdentity() Identity {
	return Identity{
		ClientID:  DefaultClientID,
		Version:   DefaultVersion,
		Platform:  runtime.GOOS,
		Mode:      DefaultMode,
		Role:      DefaultRole,
		Scopes:    append([]string(nil), DefaultScopes...),
		Locale:    DefaultLocale,
		UserAgent: version.UserAgent(),
	}
}

// WithDefaults fills the zero fields of id from DefaultIdentity.
func (id Identity) WithDefaults() Identity {
	def := DefaultIdentity()
	if id.ClientID == "" {
		id.ClientID = def.ClientID
	}
	if id.Version == "" {
		id.Version = def.Version
	}
	if id.Platform == "" {
		id.Platform = def.Platform
	}
	if id.Mode == "" {
		id.Mode = def.Mode
	}
	if id.Role == "" {
		id.Role = def.Role
	}
	if len(id.Scopes) == 0 {
		id.Scopes = def.Scopes
	}
	if id.Locale == "" {
		id.Locale = def.Locale
	}
	if id.UserAgent == "" {
		id.UserAgent = def.UserAgent
	}
	return id
}

// BuildParams returns the connect request parameters for id. Auth is only
// included when a token or password is set.
func BuildParams(id Identity) *wire.ConnectParams {
	id = id.WithDefaults()

	caps := id.Caps
	if caps == nil {
		caps = []string{}
	}

	params := &wire.ConnectParams{
		MinProtocol: version.MinProtocol,
		MaxProtocol: version.MaxProtocol,
		Client: wire.ClientInfo{
			ID:         id.ClientID,
			Version:    id.Version,
			Platform:   id.Platform,
			Mode:       id.Mode,
			InstanceID: id.InstanceID,
		},
		Role:      id.Role,
		Scopes:    append([]string(nil), id.Scopes...),
		Caps:      caps,
		Locale:    id.Locale,
		UserAgent: id.UserAgent,
	}

	if id.Token != "" || id.Password != "" {
		params.Auth = &wire.AuthParams{
			Token:    id.Token,
			Password: id.Password,
		}
	}
	return params
}
