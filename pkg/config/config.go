// Package config loads gateway client settings from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clawdash/gateway-go/pkg/connection"
	"github.com/clawdash/gateway-go/pkg/gateway"
	"github.com/clawdash/gateway-go/pkg/handshake"
	"github.com/clawdash/gateway-go/pkg/rpc"
	"github.com/clawdash/gateway-go/pkg/transport"
)

// DefaultURL is the local gateway address.
const DefaultURL = "ws://127.0.0.1:18789"

// Environment variables read by ApplyEnv.
const (
	EnvURL      = "GATEWAY_URL"
	EnvToken    = "GATEWAY_TOKEN"
	EnvPassword = "GATEWAY_PASSWORD"
)

// Config is the on-disk configuration.
type Config struct {
	Gateway  GatewayConfig `yaml:"gateway"`
	Client   ClientConfig  `yaml:"client"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	Backoff  BackoffConfig `yaml:"backoff"`
	Logging  LoggingConfig `yaml:"logging"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// GatewayConfig locates and authenticates against the gateway.
type GatewayConfig struct {
	URL      string `yaml:"url"`
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`

	// TLSFingerprint pins the wss:// certificate by SHA-256.
	TLSFingerprint string `yaml:"tlsFingerprint,omitempty"`
	// CAFile adds trusted roots for wss://.
	CAFile string `yaml:"caFile,omitempty"`
	// Insecure skips certificate verification.
	Insecure bool `yaml:"insecure,omitempty"`
}

// ClientConfig is the identity presented in the handshake. Empty fields use
// the handshake defaults.
type ClientConfig struct {
	ID         string   `yaml:"id,omitempty"`
	Version    string   `yaml:"version,omitempty"`
	Platform   string   `yaml:"platform,omitempty"`
	Mode       string   `yaml:"mode,omitempty"`
	InstanceID string   `yaml:"instanceId,omitempty"`
	Locale     string   `yaml:"locale,omitempty"`
	UserAgent  string   `yaml:"userAgent,omitempty"`
	Role       string   `yaml:"role,omitempty"`
	Scopes     []string `yaml:"scopes,omitempty"`
}

// TimeoutConfig holds request and handshake timeouts.
type TimeoutConfig struct {
	RPC           time.Duration `yaml:"rpc"`
	ChallengeWait time.Duration `yaml:"challengeWait"`
	Dial          time.Duration `yaml:"dial"`
}

// BackoffConfig controls reconnect delays.
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	Multiplier float64       `yaml:"multiplier"`
}

// LoggingConfig controls application and protocol logs.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// ProtocolLog is a file path for the CBOR protocol log. Empty disables it.
	ProtocolLog string `yaml:"protocolLog,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{URL: DefaultURL},
		Timeouts: TimeoutConfig{
			RPC:           rpc.DefaultTimeout,
			ChallengeWait: handshake.DefaultChallengeWait,
			Dial:          gateway.DefaultDialTimeout,
		},
		Backoff: BackoffConfig{
			Initial:    connection.InitialBackoff,
			Max:        connection.MaxBackoff,
			Multiplier: connection.BackoffMultiplier,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides gateway settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvURL); v != "" {
		c.Gateway.URL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Gateway.Token = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Gateway.Password = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Gateway.URL)
	switch {
	case c.Gateway.URL == "":
		errs = append(errs, errors.New("gateway.url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("gateway.url: %w", err))
	case u.Scheme != "ws" && u.Scheme != "wss":
		errs = append(errs, fmt.Errorf("gateway.url: scheme must be ws or wss, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("gateway.url: %q has no host", c.Gateway.URL))
	}

	if c.Timeouts.RPC < 0 || c.Timeouts.ChallengeWait < 0 || c.Timeouts.Dial < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.Backoff.Initial < 0 || c.Backoff.Max < 0 {
		errs = append(errs, errors.New("backoff delays must not be negative"))
	}
	if c.Backoff.Max > 0 && c.Backoff.Initial > c.Backoff.Max {
		errs = append(errs, errors.New("backoff.initial exceeds backoff.max"))
	}
	if c.Backoff.Multiplier != 0 && c.Backoff.Multiplier < 1 {
		errs = append(errs, errors.New("backoff.multiplier must be >= 1"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// Identity returns the handshake identity described by the config.
func (c *Config) Identity() handshake.Identity {
	id := handshake.Identity{
		ClientID:   c.Client.ID,
		Version:    c.Client.Version,
		Platform:   c.Client.Platform,
		Mode:       c.Client.Mode,
		InstanceID: c.Client.InstanceID,
		Role:       c.Client.Role,
		Locale:     c.Client.Locale,
		UserAgent:  c.Client.UserAgent,
		Token:      c.Gateway.Token,
		Password:   c.Gateway.Password,
	}
	if len(c.Client.Scopes) > 0 {
		id.Scopes = append([]string(nil), c.Client.Scopes...)
	}
	return id
}

// TLS returns the transport TLS settings, or nil when none are configured.
func (c *Config) TLS() *transport.TLSConfig {
	g := c.Gateway
	if g.TLSFingerprint == "" && g.CAFile == "" && !g.Insecure {
		return nil
	}
	return &transport.TLSConfig{
		PinnedSHA256:       g.TLSFingerprint,
		CAFile:             g.CAFile,
		InsecureSkipVerify: g.Insecure,
	}
}

// Options builds client options. Callbacks, loggers and instrumentation
// are left for the caller.
func (c *Config) Options() gateway.Options {
	var dialer transport.Dialer
	if tlsConf := c.TLS(); tlsConf != nil {
		dialer = &transport.WebSocketDialer{TLS: tlsConf}
	}

	return gateway.Options{
		Dialer:        dialer,
		URL:           c.Gateway.URL,
		Identity:      c.Identity(),
		DialTimeout:   c.Timeouts.Dial,
		RPCTimeout:    c.Timeouts.RPC,
		ChallengeWait: c.Timeouts.ChallengeWait,
		Backoff: connection.BackoffConfig{
			Initial:    c.Backoff.Initial,
			Max:        c.Backoff.Max,
			Multiplier: c.Backoff.Multiplier,
		},
	}
}
