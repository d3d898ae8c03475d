package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/tailored-agentic-units/roundtable/core/protocol"
)

func TestNewMessage(t *testing.T) {
	msg := protocol.NewMessage(protocol.RoleUser, "hello")

	if msg.Role != protocol.RoleUser {
		t.Errorf("got role %q, want %q", msg.Role, protocol.RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("got content %q, want %q", msg.Content, "hello")
	}
}

func TestChatMessage_JSON(t *testing.T) {
	msg := protocol.NewMessage(protocol.RoleAssistant, "hi there")

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := `{"role":"assistant","content":"hi there"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestWithSystem(t *testing.T) {
	base := []protocol.ChatMessage{
		protocol.NewMessage(protocol.RoleUser, "question"),
	}

	out := protocol.WithSystem("be brief", base)

	if len(out) != 2 {
		t.Fatalf("got %d messages, want 2", len(out))
	}
	if out[0].Role != protocol.RoleSystem || out[0].Content != "be brief" {
		t.Errorf("first message should be the system prompt, got %+v", out[0])
	}
	if out[1] != base[0] {
		t.Errorf("user message should follow the system prompt, got %+v", out[1])
	}
	if len(base) != 1 {
		t.Errorf("input slice was mutated, len %d", len(base))
	}
}

func TestWithSystem_Empty(t *testing.T) {
	base := []protocol.ChatMessage{
		protocol.NewMessage(protocol.RoleUser, "question"),
	}

	out := protocol.WithSystem("", base)

	if len(out) != 1 {
		t.Fatalf("empty prompt should not add a message, got %d", len(out))
	}
}
