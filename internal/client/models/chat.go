package models

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp"`
	IsError   bool        `json:"isError,omitempty"`
}

// Conversations maps a document id to its messages in chronological order.
type Conversations map[string][]Message

// StreamingState describes the single in-flight assistant response, if any.
// The zero value means nothing is streaming.
type StreamingState struct {
	DocID     string
	Content   string
	MessageID string
}
