// Command gatewayctl talks to a gateway over its WebSocket protocol.
//
// Usage:
//
//	gatewayctl [global flags] <command> [args]
//
// Examples:
//
//	# One-shot RPC with JSON params
//	gatewayctl call sessions.list '{"limit":5}'
//
//	# Stream chat and agent events
//	gatewayctl watch chat agent
//
//	# Interactive shell against a remote gateway
//	gatewayctl --url wss://gw.example:18789 --token $TOKEN shell
//
//	# Find gateways on the local network
//	gatewayctl discover
//
//	# Remember discovered fingerprints and issued device tokens
//	gatewayctl --state-file ~/.config/gatewayctl/state.json discover
//
// Settings are read from --config, then GATEWAY_URL, GATEWAY_TOKEN and
// GATEWAY_PASSWORD, then flags.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawdash/gateway-go/pkg/config"
	"github.com/clawdash/gateway-go/pkg/persistence"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath     string
	url            string
	token          string
	password       string
	tlsFingerprint string
	logLevel       string
	protocolLog    string
	metricsAddr    string
	stateFile      string
	connectTimeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "gatewayctl",
		Short:         "Gateway WebSocket protocol client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&g.url, "url", "", "Gateway URL (default "+config.DefaultURL+")")
	flags.StringVar(&g.token, "token", "", "Shared gateway token")
	flags.StringVar(&g.password, "password", "", "Gateway password")
	flags.StringVar(&g.tlsFingerprint, "tls-fingerprint", "", "Pin the wss:// certificate by SHA-256")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&g.protocolLog, "protocol-log", "", "Write a CBOR protocol log to this file")
	flags.StringVar(&g.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.StringVar(&g.stateFile, "state-file", "", "Remember gateways, device tokens and fingerprints in this file")
	flags.DurationVar(&g.connectTimeout, "connect-timeout", 10*time.Second, "How long to wait for the handshake")

	rootCmd.AddCommand(
		callCmd(g),
		watchCmd(g),
		statusCmd(g),
		shellCmd(g),
		discoverCmd(g),
		gatewaysCmd(g),
		versionCmd(),
	)

	return rootCmd
}

// loadConfig layers the config file, the environment and the flags.
func (g *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		loaded, err := config.Load(g.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Gateway.URL = g.url
	}
	if flags.Changed("token") {
		cfg.Gateway.Token = g.token
	}
	if flags.Changed("password") {
		cfg.Gateway.Password = g.password
	}
	if flags.Changed("tls-fingerprint") {
		cfg.Gateway.TLSFingerprint = g.tlsFingerprint
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	if flags.Changed("protocol-log") {
		cfg.Logging.ProtocolLog = g.protocolLog
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = g.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// A fingerprint seen during discovery pins wss:// when none is configured.
	if store := g.stateStore(); store != nil && cfg.Gateway.TLSFingerprint == "" {
		known, err := store.Lookup(cfg.Gateway.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to read state: %w", err)
		}
		if known != nil && strings.HasPrefix(cfg.Gateway.URL, "wss://") {
			cfg.Gateway.TLSFingerprint = known.TLSFingerprint
		}
	}
	return cfg, nil
}

// stateStore returns the state store, or nil when --state-file is unset.
func (g *globalOptions) stateStore() *persistence.StateStore {
	if g.stateFile == "" {
		return nil
	}
	return persistence.NewStateStore(g.stateFile)
}
