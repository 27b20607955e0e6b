package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clawdash/gateway-go/pkg/connection"
	"github.com/clawdash/gateway-go/pkg/gateway"
	"github.com/clawdash/gateway-go/pkg/subscription"
	"github.com/clawdash/gateway-go/pkg/wire"
)

// watchLine is one JSONL record printed by watch.
type watchLine struct {
	Event   string          `json:"event"`
	Seq     *int64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func watchCmd(g *globalOptions) *cobra.Command {
	var showTicks bool

	cmd := &cobra.Command{
		Use:   "watch [event...]",
		Short: "Stream events as JSON lines until interrupted",
		Long: `Stream gateway events as JSON lines. With no arguments every event is
printed except tick and health; name events to select them. The client
reconnects on its own and reports gaps and state changes on stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			selected := make(map[string]bool, len(args))
			for _, name := range args {
				selected[name] = true
			}

			var mu sync.Mutex
			enc := json.NewEncoder(cmd.OutOrStdout())
			errOut := cmd.ErrOrStderr()

			emit := func(evt *wire.EventFrame) {
				mu.Lock()
				defer mu.Unlock()
				_ = enc.Encode(watchLine{Event: evt.Event, Seq: evt.Seq, Payload: evt.Payload})
			}

			s, err := openSession(ctx, cmd, g, func(opts *gateway.Options) {
				opts.OnEvent = func(evt *wire.EventFrame) {
					if len(selected) > 0 {
						if selected[evt.Event] {
							emit(evt)
						}
						return
					}
					if !showTicks && (evt.Event == wire.EventTick || evt.Event == wire.EventHealth) {
						return
					}
					emit(evt)
				}
				opts.OnGap = func(gap subscription.Gap) {
					fmt.Fprintf(errOut, "gap: expected seq %d, received %d\n", gap.Expected, gap.Received)
				}
				opts.OnStateChange = func(_, next connection.State) {
					fmt.Fprintf(errOut, "state: %s\n", next)
				}
			})
			if err != nil {
				return err
			}
			defer s.close()

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTicks, "ticks", false, "Also print tick and health events when no event is named")

	return cmd
}
