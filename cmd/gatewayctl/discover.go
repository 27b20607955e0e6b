package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawdash/gateway-go/pkg/discovery"
)

func discoverCmd(g *globalOptions) *cobra.Command {
	var (
		timeout time.Duration
		iface   string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find gateways advertised over mDNS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			browser := discovery.NewBrowser(discovery.BrowserConfig{
				BrowseTimeout: timeout,
				Interface:     iface,
			})
			defer browser.Stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "Browsing %s for %s...\n", discovery.ServiceType, timeout)
			found, err := browser.Find(cmd.Context())
			if err != nil {
				return err
			}
			printGateways(cmd.OutOrStdout(), found)

			if store := g.stateStore(); store != nil {
				for _, gw := range found {
					if err := store.RecordDiscovered(gw.URL(), gw.Name(), gw.TLSFingerprint); err != nil {
						return fmt.Errorf("failed to record %s: %w", gw.Name(), err)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", discovery.BrowseTimeout, "How long to browse")
	cmd.Flags().StringVar(&iface, "interface", "", "Restrict browsing to one network interface")

	return cmd
}

// printGateways writes one row per gateway, sorted by name.
func printGateways(w io.Writer, gateways []*discovery.Gateway) {
	if len(gateways) == 0 {
		fmt.Fprintln(w, "No gateways found")
		return
	}

	sort.Slice(gateways, func(i, j int) bool {
		return gateways[i].Name() < gateways[j].Name()
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tURL\tADDRESSES\tFINGERPRINT")
	for _, gw := range gateways {
		fingerprint := gw.TLSFingerprint
		if fingerprint == "" {
			fingerprint = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", gw.Name(), gw.URL(), strings.Join(gw.Addresses, ","), fingerprint)
	}
	_ = tw.Flush()
}
