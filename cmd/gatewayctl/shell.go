package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clawdash/gateway-go/cmd/gatewayctl/interactive"
)

func shellCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell with calls and live subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			s, err := openSession(ctx, cmd, g, nil)
			if err != nil {
				return err
			}
			defer s.close()

			sh, err := interactive.New(s.client, 0)
			if err != nil {
				return err
			}
			// Redirect log output through readline to avoid interfering with input
			s.logOut.set(sh.Stdout())

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			sh.Run(ctx, cancel)
			return nil
		},
	}
}
