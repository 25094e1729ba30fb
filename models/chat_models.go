package models

// Speaker identifies who produced a history entry
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerBot  Speaker = "bot"
)

// HistoryEntry represents a single message in conversation history
type HistoryEntry struct {
	Speaker Speaker `json:"speaker"`
	Message string  `json:"message"`
}

// Session is the conversational state of one active connection
type Session struct {
	ConnectionID        string         `json:"connection_id"`
	History             []HistoryEntry `json:"history"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
}

// ActionKind is the type of outbound event produced by routing a message
type ActionKind string

const (
	ActionReply    ActionKind = "reply"
	ActionFallback ActionKind = "fallback"
)

// Action is the single outbound event for one inbound message.
// Text is empty for ActionFallback.
type Action struct {
	Kind ActionKind `json:"kind"`
	Text string     `json:"text,omitempty"`
}

// Reply builds a reply action
func Reply(text string) Action {
	return Action{Kind: ActionReply, Text: text}
}

// Fallback builds a hard fallback action
func Fallback() Action {
	return Action{Kind: ActionFallback}
}

// Event names used on the real-time channel
const (
	EventChatMessage  = "chat message"
	EventHardFallback = "hard fallback"
	EventConnected    = "connected"
)

// Frame is the JSON envelope exchanged over the WebSocket channel
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ChatHistoryResponse represents the response of the chat history endpoint
type ChatHistoryResponse struct {
	BaseResponse
	ConnectionID string         `json:"connection_id,omitempty"`
	History      []HistoryEntry `json:"history"`
}
