package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/clawdash/gateway-go/pkg/wire"
)

// Health returns the gateway health summary.
func (c *Client) Health(ctx context.Context) (*wire.HealthStatus, error) {
	return Invoke[*wire.HealthStatus](ctx, c, wire.MethodHealth, nil)
}

// Status returns the raw gateway status document.
func (c *Client) Status(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, wire.MethodStatus, nil)
}

// ModelsList returns the models the gateway can route to.
func (c *Client) ModelsList(ctx context.Context) ([]wire.ModelChoice, error) {
	return Invoke[[]wire.ModelChoice](ctx, c, wire.MethodModelsList, nil)
}

// AgentsList returns the configured agents.
func (c *Client) AgentsList(ctx context.Context) (*wire.AgentsListResult, error) {
	return Invoke[*wire.AgentsListResult](ctx, c, wire.MethodAgentsList, nil)
}

// SessionsList returns chat sessions. params may be nil.
func (c *Client) SessionsList(ctx context.Context, params *wire.SessionsListParams) ([]wire.SessionSummary, error) {
	var p any
	if params != nil {
		p = params
	}
	return Invoke[[]wire.SessionSummary](ctx, c, wire.MethodSessionsList, p)
}

// SessionsPatch updates the non-nil fields of a session.
func (c *Client) SessionsPatch(ctx context.Context, params wire.SessionsPatchParams) error {
	_, err := c.Call(ctx, wire.MethodSessionsPatch, params)
	return err
}

// SessionsReset clears the transcript of a session.
func (c *Client) SessionsReset(ctx context.Context, key string) error {
	_, err := c.Call(ctx, wire.MethodSessionsReset, wire.SessionKeyParams{Key: key})
	return err
}

// SessionsDelete removes a session.
func (c *Client) SessionsDelete(ctx context.Context, key string) error {
	_, err := c.Call(ctx, wire.MethodSessionsDelete, wire.SessionKeyParams{Key: key})
	return err
}

// ChatSend sends a chat message and returns the run id. Replies stream in
// as "chat" events carrying that run id.
func (c *Client) ChatSend(ctx context.Context, params wire.ChatSendParams) (*wire.ChatSendResult, error) {
	return Invoke[*wire.ChatSendResult](ctx, c, wire.MethodChatSend, params)
}

// ChatHistory returns the raw transcript messages of a session.
func (c *Client) ChatHistory(ctx context.Context, sessionKey string, limit int) ([]json.RawMessage, error) {
	return Invoke[[]json.RawMessage](ctx, c, wire.MethodChatHistory, wire.ChatHistoryParams{
		SessionKey: sessionKey,
		Limit:      limit,
	})
}

// ChatAbort stops a running reply. An empty runID aborts whatever runs in
// the session.
func (c *Client) ChatAbort(ctx context.Context, sessionKey, runID string) error {
	_, err := c.Call(ctx, wire.MethodChatAbort, wire.ChatAbortParams{SessionKey: sessionKey, RunID: runID})
	return err
}

// CronList returns the scheduled jobs.
func (c *Client) CronList(ctx context.Context) ([]wire.CronJob, error) {
	return Invoke[[]wire.CronJob](ctx, c, wire.MethodCronList, nil)
}

// CronRun triggers a job immediately.
func (c *Client) CronRun(ctx context.Context, id string) (*wire.CronRunResult, error) {
	return Invoke[*wire.CronRunResult](ctx, c, wire.MethodCronRun, wire.IDParams{ID: id})
}

// ConfigGet returns one entry, or all entries when key is empty. The
// gateway answers with a single object or an array; both are returned as a
// slice.
func (c *Client) ConfigGet(ctx context.Context, key string) ([]wire.ConfigEntry, error) {
	var params any
	if key != "" {
		params = wire.ConfigGetParams{Key: key}
	}
	raw, err := c.Call(ctx, wire.MethodConfigGet, params)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var entries []wire.ConfigEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("gateway: decode %s result: %w", wire.MethodConfigGet, err)
		}
		return entries, nil
	}
	var entry wire.ConfigEntry
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		return nil, fmt.Errorf("gateway: decode %s result: %w", wire.MethodConfigGet, err)
	}
	return []wire.ConfigEntry{entry}, nil
}

// ConfigSet writes one configuration value.
func (c *Client) ConfigSet(ctx context.Context, key string, value any) error {
	_, err := c.Call(ctx, wire.MethodConfigSet, wire.ConfigSetParams{Key: key, Value: value})
	return err
}

// LogsTail returns the last lines of the gateway log.
func (c *Client) LogsTail(ctx context.Context, params *wire.LogsTailParams) ([]string, error) {
	var p any
	if params != nil {
		p = params
	}
	return Invoke[[]string](ctx, c, wire.MethodLogsTail, p)
}

// ChannelsStatus returns the messaging channel overview.
func (c *Client) ChannelsStatus(ctx context.Context) (*wire.ChannelsStatusResult, error) {
	return Invoke[*wire.ChannelsStatusResult](ctx, c, wire.MethodChannelsStatus, nil)
}
