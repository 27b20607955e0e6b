package wire

import "encoding/json"

// ProtocolVersion is the gateway protocol revision this client speaks.
const ProtocolVersion = 3

// Close codes used by the client.
const (
	CloseNormal        = 1000
	CloseTickTimeout   = 4000
	CloseConnectFailed = 4008
)

// ConnectParams are the params of the "connect" handshake request.
type ConnectParams struct {
	MinProtocol int         `json:"minProtocol"`
	MaxProtocol int         `json:"maxProtocol"`
	Client      ClientInfo  `json:"client"`
	Role        string      `json:"role"`
	Scopes      []string    `json:"scopes"`
	Caps        []string    `json:"caps"`
	Auth        *AuthParams `json:"auth,omitempty"`
	Locale      string      `json:"locale"`
	UserAgent   string      `json:"userAgent"`
}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	ID         string `json:"id"`
	Version    string `json:"version"`
	Platform   string `json:"platform"`
	Mode       string `json:"mode"`
	InstanceID string `json:"instanceId,omitempty"`
}

// AuthParams carries the shared credential, if one is configured.
type AuthParams struct {
	Token    string `json:"token,omitempty"`
	Password string `json:"password,omitempty"`
}

// ChallengePayload is the payload of the "connect.challenge" event.
type ChallengePayload struct {
	Nonce string `json:"nonce"`
}

// HelloType is the type tag of a successful connect response payload.
const HelloType = "hello-ok"

// HelloOK is the payload of a successful "connect" response.
type HelloOK struct {
	Type          string     `json:"type"`
	Protocol      int        `json:"protocol"`
	Server        ServerInfo `json:"server"`
	Features      Features   `json:"features"`
	Snapshot      Snapshot   `json:"snapshot"`
	CanvasHostURL string     `json:"canvasHostUrl,omitempty"`
	Auth          *HelloAuth `json:"auth,omitempty"`
	Policy        *Policy    `json:"policy,omitempty"`
}

// ServerInfo identifies the gateway process.
type ServerInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Host    string `json:"host,omitempty"`
	ConnID  string `json:"connId"`
}

// Features lists the methods and events the server advertises.
type Features struct {
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

// HasMethod reports whether the server advertised method.
func (f Features) HasMethod(method string) bool {
	for _, m := range f.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// HasEvent reports whether the server advertised event.
func (f Features) HasEvent(event string) bool {
	for _, e := range f.Events {
		if e == event {
			return true
		}
	}
	return false
}

// HelloAuth is returned when the server issued a device token.
type HelloAuth struct {
	DeviceToken string   `json:"deviceToken,omitempty"`
	Role        string   `json:"role,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
	IssuedAtMs  int64    `json:"issuedAtMs,omitempty"`
}

// Policy carries server-imposed limits.
type Policy struct {
	MaxPayload       int64 `json:"maxPayload,omitempty"`
	MaxBufferedBytes int64 `json:"maxBufferedBytes,omitempty"`
	TickIntervalMs   int64 `json:"tickIntervalMs,omitempty"`
}

// Snapshot is the initial server state delivered with the hello.
type Snapshot struct {
	Presence        []PresenceEntry  `json:"presence"`
	Health          json.RawMessage  `json:"health,omitempty"`
	StateVersion    StateVersion     `json:"stateVersion"`
	UptimeMs        int64            `json:"uptimeMs"`
	ConfigPath      string           `json:"configPath,omitempty"`
	StateDir        string           `json:"stateDir,omitempty"`
	SessionDefaults *SessionDefaults `json:"sessionDefaults,omitempty"`
	AuthMode        string           `json:"authMode,omitempty"`
}

// SessionDefaults describes how the server keys sessions.
type SessionDefaults struct {
	DefaultAgentID string `json:"defaultAgentId"`
	MainKey        string `json:"mainKey"`
	MainSessionKey string `json:"mainSessionKey"`
	Scope          string `json:"scope,omitempty"`
}

// PresenceEntry describes one connected client or node.
type PresenceEntry struct {
	Host             string   `json:"host,omitempty"`
	IP               string   `json:"ip,omitempty"`
	Version          string   `json:"version,omitempty"`
	Platform         string   `json:"platform,omitempty"`
	DeviceFamily     string   `json:"deviceFamily,omitempty"`
	ModelIdentifier  string   `json:"modelIdentifier,omitempty"`
	Mode             string   `json:"mode,omitempty"`
	LastInputSeconds *int64   `json:"lastInputSeconds,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Text             string   `json:"text,omitempty"`
	TS               int64    `json:"ts"`
	DeviceID         string   `json:"deviceId,omitempty"`
	Roles            []string `json:"roles,omitempty"`
	Scopes           []string `json:"scopes,omitempty"`
	InstanceID       string   `json:"instanceId,omitempty"`
}
