// Package interactive provides the gatewayctl shell.
package interactive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/clawdash/gateway-go/pkg/gateway"
	"github.com/clawdash/gateway-go/pkg/subscription"
	"github.com/clawdash/gateway-go/pkg/wire"
)

// Shell is a line-oriented REPL over one gateway client.
type Shell struct {
	client  *gateway.Client
	rl      *readline.Instance
	out     io.Writer
	timeout time.Duration

	mu   sync.Mutex
	subs map[string]subscription.Unsubscribe
}

// New creates a shell reading from the terminal. timeout bounds each call;
// zero uses the client's RPC timeout.
func New(client *gateway.Client, timeout time.Duration) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gateway> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(client, rl.Stdout(), timeout)
	s.rl = rl
	return s, nil
}

func newShell(client *gateway.Client, out io.Writer, timeout time.Duration) *Shell {
	return &Shell{
		client:  client,
		out:     out,
		timeout: timeout,
		subs:    make(map[string]subscription.Unsubscribe),
	}
}

func completer() *readline.PrefixCompleter {
	methods := make([]readline.PrefixCompleterInterface, 0, len(wire.Methods))
	for _, m := range wire.Methods {
		methods = append(methods, readline.PcItem(m))
	}
	events := make([]readline.PrefixCompleterInterface, 0, len(wire.Events))
	for _, e := range wire.Events {
		events = append(events, readline.PcItem(e))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("call", methods...),
		readline.PcItem("sub", events...),
		readline.PcItem("unsub", events...),
		readline.PcItem("subs"),
		readline.PcItem("state"),
		readline.PcItem("hello"),
		readline.PcItem("connect"),
		readline.PcItem("disconnect"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()
	defer s.unsubscribeAll()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if s.Exec(ctx, line) {
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns true when the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "help", "?":
		s.printHelp()

	case "call", "c":
		s.cmdCall(ctx, rest)

	case "sub", "subscribe":
		s.cmdSub(rest)

	case "unsub", "unsubscribe":
		s.cmdUnsub(rest)

	case "subs":
		s.cmdSubs()

	case "state", "s":
		s.cmdState()

	case "hello":
		s.cmdHello()

	case "connect":
		if err := s.client.Connect(); err != nil {
			fmt.Fprintf(s.out, "Connect failed: %v\n", err)
		}

	case "disconnect":
		s.client.Disconnect()
		fmt.Fprintln(s.out, "Disconnected")

	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Gateway Shell Commands:
  call <method> [json]   - Invoke an RPC method
  sub <event>            - Print events of this name
  unsub <event>          - Stop printing events of this name
  subs                   - List subscriptions
  state                  - Show connection state
  hello                  - Show the last hello payload
  connect                - Connect (after disconnect)
  disconnect             - Close the socket and stop reconnecting
  help                   - Show this help
  quit                   - Exit`)
}

func (s *Shell) cmdCall(ctx context.Context, rest string) {
	method, params, _ := strings.Cut(rest, " ")
	if method == "" {
		fmt.Fprintln(s.out, "Usage: call <method> [json-params]")
		fmt.Fprintln(s.out, "  Example: call sessions.list {\"limit\":5}")
		return
	}

	var raw json.RawMessage
	if params = strings.TrimSpace(params); params != "" {
		raw = json.RawMessage(params)
		if !json.Valid(raw) {
			fmt.Fprintf(s.out, "Invalid JSON params: %s\n", params)
			return
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.client.Call(ctx, method, raw)
	if err != nil {
		fmt.Fprintf(s.out, "Call failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "%s (%s)\n", indent(result), time.Since(start).Round(time.Millisecond))
}

func (s *Shell) cmdSub(event string) {
	if event == "" {
		fmt.Fprintln(s.out, "Usage: sub <event>")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[event]; ok {
		fmt.Fprintf(s.out, "Already subscribed to %s\n", event)
		return
	}

	s.subs[event] = s.client.Subscribe(event, func(evt *wire.EventFrame) {
		seq := "-"
		if evt.Seq != nil {
			seq = fmt.Sprint(*evt.Seq)
		}
		fmt.Fprintf(s.out, "[%s seq=%s] %s\n", evt.Event, seq, compact(evt.Payload))
	})
	fmt.Fprintf(s.out, "Subscribed to %s\n", event)
}

func (s *Shell) cmdUnsub(event string) {
	if event == "" {
		fmt.Fprintln(s.out, "Usage: unsub <event>")
		return
	}

	s.mu.Lock()
	unsub, ok := s.subs[event]
	delete(s.subs, event)
	s.mu.Unlock()

	if !ok {
		fmt.Fprintf(s.out, "Not subscribed to %s\n", event)
		return
	}
	unsub()
	fmt.Fprintf(s.out, "Unsubscribed from %s\n", event)
}

func (s *Shell) cmdSubs() {
	s.mu.Lock()
	names := make([]string, 0, len(s.subs))
	for name := range s.subs {
		names = append(names, name)
	}
	s.mu.Unlock()

	if len(names) == 0 {
		fmt.Fprintln(s.out, "No subscriptions")
		return
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(s.out, "  %s\n", name)
	}
}

func (s *Shell) cmdState() {
	fmt.Fprintf(s.out, "State:   %s\n", s.client.State())
	fmt.Fprintf(s.out, "URL:     %s\n", s.client.URL())
	if id := s.client.ConnectionID(); id != "" {
		fmt.Fprintf(s.out, "Conn ID: %s\n", id)
	}
	fmt.Fprintf(s.out, "Pending: %d\n", s.client.Pending())
	if err := s.client.LastError(); err != nil {
		fmt.Fprintf(s.out, "Error:   %v\n", err)
	}
}

func (s *Shell) cmdHello() {
	hello := s.client.Hello()
	if hello == nil {
		fmt.Fprintln(s.out, "No hello received yet")
		return
	}
	data, err := json.MarshalIndent(hello, "", "  ")
	if err != nil {
		fmt.Fprintf(s.out, "Failed to encode hello: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, string(data))
}

func (s *Shell) unsubscribeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, unsub := range s.subs {
		unsub()
		delete(s.subs, name)
	}
}

func indent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func compact(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
