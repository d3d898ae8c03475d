// Package history persists finished conversations per agent. Each record
// holds a full transcript snapshot plus a short display title; stores cap how
// many records an agent keeps, evicting the oldest first.
package history

import (
	"strings"
	"time"

	"github.com/tailored-agentic-units/roundtable/transcript"
)

// titleRunes caps the derived display title length.
const titleRunes = 20

// Record is one saved conversation.
type Record struct {
	ID        string               `json:"id"`
	AgentID   string               `json:"agentId"`
	Title     string               `json:"title"`
	Messages  []transcript.Message `json:"messages"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// TitleFor derives a record's display title from its transcript: the first
// user message, truncated to a short prefix. Falls back to a fixed label when
// the user never spoke.
func TitleFor(messages []transcript.Message) string {
	for _, m := range messages {
		if m.Sender != transcript.SenderUser {
			continue
		}
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		runes := []rune(text)
		if len(runes) <= titleRunes {
			return text
		}
		return string(runes[:titleRunes]) + "..."
	}
	return "New conversation"
}
