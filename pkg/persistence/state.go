package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/clawdash/gateway-go/pkg/wire"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ClientState is the persisted client state.
type ClientState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Gateways are the known gateways, keyed by URL.
	Gateways []KnownGateway `json:"gateways,omitempty"`
}

// KnownGateway is what the client remembers about one gateway URL.
type KnownGateway struct {
	// URL is the WebSocket URL used to reach the gateway.
	URL string `json:"url"`

	// Name is the advertised display name, if discovered.
	Name string `json:"name,omitempty"`

	// ServerVersion and ServerHost come from the last hello.
	ServerVersion string `json:"server_version,omitempty"`
	ServerHost    string `json:"server_host,omitempty"`

	// Protocol is the protocol version of the last hello.
	Protocol int `json:"protocol,omitempty"`

	// DeviceToken is the token issued in the last hello, if any.
	DeviceToken string `json:"device_token,omitempty"`

	// Role and Scopes were granted with DeviceToken.
	Role   string   `json:"role,omitempty"`
	Scopes []string `json:"scopes,omitempty"`

	// TLSFingerprint is the advertised certificate SHA-256.
	TLSFingerprint string `json:"tls_fingerprint,omitempty"`

	// ConnectedAt is when the last handshake completed.
	ConnectedAt time.Time `json:"connected_at,omitempty"`

	// DiscoveredAt is when the gateway was last seen over mDNS.
	DiscoveredAt time.Time `json:"discovered_at,omitempty"`
}

// Find returns the entry for url, or nil.
func (s *ClientState) Find(url string) *KnownGateway {
	for i := range s.Gateways {
		if s.Gateways[i].URL == url {
			return &s.Gateways[i]
		}
	}
	return nil
}

// entry returns the entry for url, adding one if needed.
func (s *ClientState) entry(url string) *KnownGateway {
	if g := s.Find(url); g != nil {
		return g
	}
	s.Gateways = append(s.Gateways, KnownGateway{URL: url})
	return &s.Gateways[len(s.Gateways)-1]
}

// StateStore manages persistence of client state to a JSON file.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a new state store.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the state file path.
func (s *StateStore) Path() string {
	return s.path
}

// Save persists the state to disk.
func (s *StateStore) Save(state *ClientState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(state)
}

func (s *StateStore) saveLocked(state *ClientState) error {
	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()
	sort.Slice(state.Gateways, func(i, j int) bool {
		return state.Gateways[i].URL < state.Gateways[j].URL
	})

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Device tokens are credentials.
	return os.WriteFile(s.path, data, 0o600)
}

// Load reads the state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *StateStore) Load() (*ClientState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *StateStore) loadLocked() (*ClientState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &ClientState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}

	return state, nil
}

// Update loads the state, applies fn and saves the result.
func (s *StateStore) Update(fn func(*ClientState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return err
	}
	if state == nil {
		state = &ClientState{}
	}
	fn(state)
	return s.saveLocked(state)
}

// RecordHello stores the server identity and any device token from a
// completed handshake with url.
func (s *StateStore) RecordHello(url string, hello *wire.HelloOK) error {
	return s.Update(func(state *ClientState) {
		g := state.entry(url)
		g.ServerVersion = hello.Server.Version
		g.ServerHost = hello.Server.Host
		g.Protocol = hello.Protocol
		g.ConnectedAt = time.Now()
		if hello.Auth != nil && hello.Auth.DeviceToken != "" {
			g.DeviceToken = hello.Auth.DeviceToken
			g.Role = hello.Auth.Role
			g.Scopes = append([]string(nil), hello.Auth.Scopes...)
		}
	})
}

// RecordDiscovered stores a gateway seen over mDNS. An empty fingerprint
// leaves a previously stored one in place.
func (s *StateStore) RecordDiscovered(url, name, fingerprint string) error {
	return s.Update(func(state *ClientState) {
		g := state.entry(url)
		g.Name = name
		if fingerprint != "" {
			g.TLSFingerprint = fingerprint
		}
		g.DiscoveredAt = time.Now()
	})
}

// Lookup returns the stored entry for url, or nil.
func (s *StateStore) Lookup(url string) (*KnownGateway, error) {
	state, err := s.Load()
	if err != nil || state == nil {
		return nil, err
	}
	g := state.Find(url)
	if g == nil {
		return nil, nil
	}
	copied := *g
	return &copied, nil
}

// Clear removes the state file.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
