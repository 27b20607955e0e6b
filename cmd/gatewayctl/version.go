package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/clawdash/gateway-go/pkg/version"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(w, version.Library)
				return
			}
			fmt.Fprintf(w, "gatewayctl %s\n", version.String())
			fmt.Fprintf(w, "  Protocol:   %d..%d\n", version.MinProtocol, version.MaxProtocol)
			fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")

	return cmd
}
