// Package completion issues completion requests against the chat proxy and
// yields incremental text fragments as they stream back. Each call is an
// independent request, so arbitrary concurrent invocations are safe.
//
// The wire contract is newline-delimited Server-Sent Events: each event is
// "data: <JSON>\n\n"; a payload of exactly [DONE] or a JSON object with
// done:true terminates the stream; other payloads carry either an
// incremental text fragment or a terminal error. Lines that fail to parse
// are skipped, not fatal.
package completion

import (
	"context"

	"github.com/tailored-agentic-units/roundtable/core/protocol"
)

// Request describes one completion call.
type Request struct {
	Messages     []protocol.ChatMessage `json:"messages"`
	SystemPrompt string                 `json:"system_prompt,omitempty"`
	Model        string                 `json:"model,omitempty"`
	Stream       bool                   `json:"stream"`
}

// StreamEvent is the normalized SSE payload emitted by the proxy. Exactly one
// of Text, Done, or Error is meaningful per event.
type StreamEvent struct {
	Text  string `json:"text,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

// DeltaFunc receives each incremental text fragment as it arrives.
type DeltaFunc func(text string)

// Client issues completion requests. Implementations must support arbitrary
// concurrent invocations.
type Client interface {
	// StreamChat streams a completion, invoking onDelta for every fragment,
	// and returns the accumulated text once the stream terminates. onDelta
	// may be nil.
	StreamChat(ctx context.Context, req Request, onDelta DeltaFunc) (string, error)

	// Chat issues a non-streaming completion and returns the full reply.
	Chat(ctx context.Context, req Request) (string, error)
}
