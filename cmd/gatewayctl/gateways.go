package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawdash/gateway-go/pkg/persistence"
)

func gatewaysCmd(g *globalOptions) *cobra.Command {
	var forget bool

	cmd := &cobra.Command{
		Use:   "gateways",
		Short: "List gateways remembered in the state file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := g.stateStore()
			if store == nil {
				return errors.New("--state-file is required")
			}

			if forget {
				return store.Clear()
			}

			state, err := store.Load()
			if err != nil {
				return fmt.Errorf("failed to read state: %w", err)
			}
			if state == nil {
				state = &persistence.ClientState{}
			}
			printKnownGateways(cmd.OutOrStdout(), state.Gateways)
			return nil
		},
	}

	cmd.Flags().BoolVar(&forget, "clear", false, "Forget all gateways")

	return cmd
}

func printKnownGateways(w io.Writer, gateways []persistence.KnownGateway) {
	if len(gateways) == 0 {
		fmt.Fprintln(w, "No known gateways")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tNAME\tSERVER\tTOKEN\tLAST CONNECTED")
	for _, gw := range gateways {
		token := "-"
		if gw.DeviceToken != "" {
			token = gw.Role
			if token == "" {
				token = "yes"
			}
		}
		connected := "never"
		if !gw.ConnectedAt.IsZero() {
			connected = gw.ConnectedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", gw.URL, orDash(gw.Name), orDash(gw.ServerVersion), token, connected)
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
