package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawdash/gateway-go/pkg/wire"
)

func statusCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Connect, print the hello summary and the gateway health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cmd, g, nil)
			if err != nil {
				return err
			}
			defer s.close()

			w := cmd.OutOrStdout()
			printHello(w, s.client.URL(), s.client.Hello())

			health, err := s.client.Health(ctx)
			if err != nil {
				return fmt.Errorf("health: %w", err)
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "Health:    ok=%t", health.OK)
			if health.DurationMs > 0 {
				fmt.Fprintf(w, " (%dms)", health.DurationMs)
			}
			fmt.Fprintln(w)
			return nil
		},
	}
}

// printHello writes a short summary of a handshake result.
func printHello(w io.Writer, url string, hello *wire.HelloOK) {
	if hello == nil {
		fmt.Fprintf(w, "Gateway:   %s (no hello)\n", url)
		return
	}
	fmt.Fprintf(w, "Gateway:   %s\n", url)
	fmt.Fprintf(w, "Server:    %s", hello.Server.Version)
	if hello.Server.Host != "" {
		fmt.Fprintf(w, " on %s", hello.Server.Host)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Protocol:  %d\n", hello.Protocol)
	fmt.Fprintf(w, "Conn ID:   %s\n", hello.Server.ConnID)
	fmt.Fprintf(w, "Uptime:    %s\n", (time.Duration(hello.Snapshot.UptimeMs) * time.Millisecond).Round(time.Second))
	fmt.Fprintf(w, "Methods:   %d\n", len(hello.Features.Methods))
	fmt.Fprintf(w, "Events:    %d\n", len(hello.Features.Events))
	fmt.Fprintf(w, "Presence:  %d\n", len(hello.Snapshot.Presence))
	if hello.Policy != nil && hello.Policy.TickIntervalMs > 0 {
		fmt.Fprintf(w, "Tick:      %dms\n", hello.Policy.TickIntervalMs)
	}
	if hello.Snapshot.AuthMode != "" {
		fmt.Fprintf(w, "Auth mode: %s\n", hello.Snapshot.AuthMode)
	}
}
