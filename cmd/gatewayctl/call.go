package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var errInvalidParams = errors.New("params must be valid JSON")

func callCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> [json-params]",
		Short: "Invoke one RPC method and print the result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, cmd, g, nil)
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.client.Call(ctx, args[0], params)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

// parseParams returns the optional JSON params argument.
func parseParams(args []string) (json.RawMessage, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, nil
	}
	raw := json.RawMessage(args[0])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: %s", errInvalidParams, args[0])
	}
	return raw, nil
}

// writeJSON prints raw indented, or "null" for an empty payload.
func writeJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		_, err := fmt.Fprintln(w, "null")
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("invalid JSON from gateway: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
