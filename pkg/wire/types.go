package wire

import "encoding/json"

// HealthStatus is the result of "health".
type HealthStatus struct {
	OK         bool                     `json:"ok"`
	TS         int64                    `json:"ts,omitempty"`
	DurationMs int64                    `json:"durationMs,omitempty"`
	Channels   map[string]ChannelDetail `json:"channels,omitempty"`
}

// ChannelDetail is the per-channel status reported by the gateway.
type ChannelDetail struct {
	Configured bool   `json:"configured,omitempty"`
	Linked     bool   `json:"linked,omitempty"`
	AuthAgeMs  int64  `json:"authAgeMs,omitempty"`
	Running    bool   `json:"running,omitempty"`
	Connected  bool   `json:"connected,omitempty"`
	LastError  string `json:"lastError,omitempty"`
	AccountID  string `json:"accountId,omitempty"`
}

// ChannelMeta describes how a channel is presented.
type ChannelMeta struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	DetailLabel string `json:"detailLabel,omitempty"`
}

// ChannelsStatusResult is the result of "channels.status".
type ChannelsStatusResult struct {
	ChannelOrder  []string                 `json:"channelOrder,omitempty"`
	ChannelLabels map[string]string        `json:"channelLabels,omitempty"`
	ChannelMeta   []ChannelMeta            `json:"channelMeta,omitempty"`
	Channels      map[string]ChannelDetail `json:"channels,omitempty"`
}

// ChatSendParams are the params of "chat.send".
type ChatSendParams struct {
	SessionKey     string `json:"sessionKey"`
	Message        string `json:"message"`
	Thinking       string `json:"thinking,omitempty"`
	Deliver        *bool  `json:"deliver,omitempty"`
	TimeoutMs      int64  `json:"timeoutMs,omitempty"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// ChatSendResult is the result of "chat.send".
type ChatSendResult struct {
	RunID string `json:"runId"`
}

// ChatHistoryParams are the params of "chat.history".
type ChatHistoryParams struct {
	SessionKey string `json:"sessionKey"`
	Limit      int    `json:"limit,omitempty"`
}

// ChatAbortParams are the params of "chat.abort".
type ChatAbortParams struct {
	SessionKey string `json:"sessionKey"`
	RunID      string `json:"runId,omitempty"`
}

// ChatEvent is the payload of the "chat" event.
type ChatEvent struct {
	RunID        string          `json:"runId"`
	SessionKey   string          `json:"sessionKey"`
	Seq          int64           `json:"seq"`
	State        string          `json:"state"`
	Message      json.RawMessage `json:"message,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	StopReason   string          `json:"stopReason,omitempty"`
}

// AgentIdentity is the presentation identity of an agent.
type AgentIdentity struct {
	Name   string `json:"name,omitempty"`
	Theme  string `json:"theme,omitempty"`
	Emoji  string `json:"emoji,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// AgentSummary is one entry of "agents.list".
type AgentSummary struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Identity *AgentIdentity `json:"identity,omitempty"`
}

// AgentsListResult is the result of "agents.list".
type AgentsListResult struct {
	DefaultID string         `json:"defaultId"`
	MainKey   string         `json:"mainKey"`
	Scope     string         `json:"scope"`
	Agents    []AgentSummary `json:"agents"`
}

// SessionsListParams are the params of "sessions.list".
type SessionsListParams struct {
	Limit              int    `json:"limit,omitempty"`
	ActiveMinutes      int    `json:"activeMinutes,omitempty"`
	IncludeGlobal      bool   `json:"includeGlobal,omitempty"`
	IncludeLastMessage bool   `json:"includeLastMessage,omitempty"`
	AgentID            string `json:"agentId,omitempty"`
	Search             string `json:"search,omitempty"`
}

// SessionSummary is one entry of "sessions.list".
type SessionSummary struct {
	Key          string `json:"key"`
	Kind         string `json:"kind,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	Channel      string `json:"channel,omitempty"`
	AgentID      string `json:"agentId,omitempty"`
	Label        string `json:"label,omitempty"`
	Model        string `json:"model,omitempty"`
	UpdatedAt    int64  `json:"updatedAt,omitempty"`
	InputTokens  int64  `json:"inputTokens,omitempty"`
	OutputTokens int64  `json:"outputTokens,omitempty"`
	TotalTokens  int64  `json:"totalTokens,omitempty"`
}

// SessionsPatchParams are the params of "sessions.patch". Nil fields are
// left untouched by the server.
type SessionsPatchParams struct {
	Key           string  `json:"key"`
	Label         *string `json:"label,omitempty"`
	ThinkingLevel *string `json:"thinkingLevel,omitempty"`
	Model         *string `json:"model,omitempty"`
	SendPolicy    *string `json:"sendPolicy,omitempty"`
}

// ModelChoice is one entry of "models.list".
type ModelChoice struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Provider      string   `json:"provider"`
	ContextWindow int64    `json:"contextWindow,omitempty"`
	Reasoning     bool     `json:"reasoning,omitempty"`
	Input         []string `json:"input,omitempty"`
}

// CronJob is one entry of "cron.list".
type CronJob struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Command    string `json:"command"`
	Enabled    bool   `json:"enabled"`
	LastRun    string `json:"lastRun,omitempty"`
	NextRun    string `json:"nextRun,omitempty"`
	LastResult string `json:"lastResult,omitempty"`
}

// CronRunResult is the result of "cron.run".
type CronRunResult struct {
	ID         string `json:"id"`
	CronID     string `json:"cronId"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
	Status     string `json:"status"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ConfigEntry is one configuration value.
type ConfigEntry struct {
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Section     string          `json:"section,omitempty"`
}

// LogsTailParams are the params of "logs.tail".
type LogsTailParams struct {
	Lines  int    `json:"lines,omitempty"`
	Filter string `json:"filter,omitempty"`
}

// TickEvent is the payload of the "tick" event.
type TickEvent struct {
	TS int64 `json:"ts"`
}

// ShutdownEvent is the payload of the "shutdown" event.
type ShutdownEvent struct {
	Reason string `json:"reason,omitempty"`
}

// CronEvent is the payload of the "cron" event.
type CronEvent struct {
	CronID string `json:"cronId"`
	Event  string `json:"event"`
}

// SessionKeyParams address a single session ("sessions.reset", "sessions.delete").
type SessionKeyParams struct {
	Key string `json:"key"`
}

// IDParams address an entity by id ("cron.run").
type IDParams struct {
	ID string `json:"id"`
}

// ConfigGetParams are the params of "config.get". An empty key returns every
// entry.
type ConfigGetParams struct {
	Key string `json:"key,omitempty"`
}

// ConfigSetParams are the params of "config.set".
type ConfigSetParams struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}
