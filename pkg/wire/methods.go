package wire

// Handshake method and event.
const (
	MethodConnect         = "connect"
	EventConnectChallenge = "connect.challenge"
)

// RPC methods exposed by the gateway.
const (
	MethodHealth         = "health"
	MethodStatus         = "status"
	MethodChatSend       = "chat.send"
	MethodChatHistory    = "chat.history"
	MethodChatAbort      = "chat.abort"
	MethodAgentsList     = "agents.list"
	MethodSessionsList   = "sessions.list"
	MethodSessionsPatch  = "sessions.patch"
	MethodSessionsReset  = "sessions.reset"
	MethodSessionsDelete = "sessions.delete"
	MethodModelsList     = "models.list"
	MethodChannelsStatus = "channels.status"
	MethodCronList       = "cron.list"
	MethodCronRun        = "cron.run"
	MethodConfigGet      = "config.get"
	MethodConfigSet      = "config.set"
	MethodLogsTail       = "logs.tail"
)

// Server-pushed events.
const (
	EventAgent     = "agent"
	EventChat      = "chat"
	EventPresence  = "presence"
	EventTick      = "tick"
	EventShutdown  = "shutdown"
	EventHealth    = "health"
	EventHeartbeat = "heartbeat"
	EventCron      = "cron"
)

// Methods lists the RPC methods with typed helpers, excluding connect.
var Methods = []string{
	MethodHealth, MethodStatus,
	MethodChatSend, MethodChatHistory, MethodChatAbort,
	MethodAgentsList,
	MethodSessionsList, MethodSessionsPatch, MethodSessionsReset, MethodSessionsDelete,
	MethodModelsList, MethodChannelsStatus,
	MethodCronList, MethodCronRun,
	MethodConfigGet, MethodConfigSet,
	MethodLogsTail,
}

// Events lists the known server-pushed events, excluding connect.challenge.
var Events = []string{
	EventAgent, EventChat, EventPresence, EventTick,
	EventShutdown, EventHealth, EventHeartbeat, EventCron,
}
