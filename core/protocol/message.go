// Package protocol defines the role-tagged chat messages exchanged with the
// completion backends. Every request body carries a flat list of these
// messages; an optional system prompt is injected as the first system entry.
package protocol

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single role-tagged entry in a completion request.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a ChatMessage with the given role and content.
func NewMessage(role Role, content string) ChatMessage {
	return ChatMessage{Role: role, Content: content}
}

// WithSystem prepends a system entry to messages when prompt is non-empty.
// The input slice is never mutated.
func WithSystem(prompt string, messages []ChatMessage) []ChatMessage {
	if prompt == "" {
		return messages
	}
	out := make([]ChatMessage, 0, len(messages)+1)
	out = append(out, NewMessage(RoleSystem, prompt))
	out = append(out, messages...)
	return out
}
