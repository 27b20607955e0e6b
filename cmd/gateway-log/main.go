// Command gateway-log is a tool for viewing and analyzing gateway protocol
// log files.
//
// Log files are created by gatewayctl with the --protocol-log flag.
//
// Usage:
//
//	gateway-log <command> [flags] <file.glog>
//
// Examples:
//
//	# View all events
//	gateway-log view session.glog
//
//	# View only outgoing frames
//	gateway-log view --direction out --category frame session.glog
//
//	# Export one method's traffic to JSONL
//	gateway-log export --name chat.send --format jsonl session.glog
//
//	# Filter by connection and save to new file
//	gateway-log filter --conn-id 4f1c2a9e-... -o filtered.glog session.glog
//
//	# Show statistics
//	gateway-log stats session.glog
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/clawdash/gateway-go/cmd/gateway-log/commands"
)

func main() {
	var opts commands.FilterOptions

	rootCmd := &cobra.Command{
		Use:           "gateway-log",
		Short:         "Gateway protocol log analyzer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	flags.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out, local)")
	flags.StringVar(&opts.Category, "category", "", "Filter by category (frame, state, gap, error)")
	flags.StringVar(&opts.Name, "name", "", "Filter frames by method or event name")
	flags.StringVar(&opts.TimeStart, "time-start", "", "Filter events at or after time (RFC3339)")
	flags.StringVar(&opts.TimeEnd, "time-end", "", "Filter events before time (RFC3339)")

	rootCmd.AddCommand(
		viewCmd(&opts),
		exportCmd(&opts),
		filterCmd(&opts),
		statsCmd(&opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func viewCmd(opts *commands.FilterOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "view <file.glog>",
		Short: "View log file in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			return commands.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
}

func exportCmd(opts *commands.FilterOptions) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <file.glog>",
		Short: "Export log file to JSONL or CSV format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return commands.RunExport(args[0], format, filter, w)
		},
	}

	cmd.Flags().StringVar(&format, "format", "jsonl", "Output format (jsonl, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func filterCmd(opts *commands.FilterOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "filter <file.glog>",
		Short: "Filter log file and write matching events to a new file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			n, err := commands.RunFilter(args[0], output, filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d events to %s\n", n, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func statsCmd(opts *commands.FilterOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.glog>",
		Short: "Show statistics about the log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			return commands.RunStats(args[0], filter, cmd.OutOrStdout())
		},
	}
}
