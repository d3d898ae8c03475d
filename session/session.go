// Package session binds one agent persona to the completion client for the
// lifetime of a conversation. A Session produces one reply per Respond call;
// it owns no transcript state of its own, so the scheduler passes the
// conversation context in explicitly on every call.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/roundtable/catalog"
	"github.com/tailored-agentic-units/roundtable/completion"
	"github.com/tailored-agentic-units/roundtable/core/protocol"
	"github.com/tailored-agentic-units/roundtable/transcript"
)

// Session is a per-persona wrapper around the completion client.
type Session struct {
	agent  catalog.Agent
	peers  []string
	client completion.Client
	cfg    Config
}

// New creates a Session for the given agent. Pure constructor: no network
// call happens until Respond. peers are the display names of the other
// participants, disclosed to the model in every prompt.
func New(agent catalog.Agent, peers []string, client completion.Client, cfg Config) *Session {
	return &Session{
		agent:  agent,
		peers:  peers,
		client: client,
		cfg:    cfg,
	}
}

// Agent returns the persona this session speaks for.
func (s *Session) Agent() catalog.Agent {
	return s.agent
}

// Respond produces one reply for the given round context. The returned text
// is trimmed and truncated to the configured sentence budget. Any failure is
// returned as an error; callers treat errors as the agent abstaining for the
// round, never as a reason to abort it.
func (s *Session) Respond(ctx context.Context, rc RoundContext) (string, error) {
	req := completion.Request{
		Messages:     append(s.historyMessages(rc.History), protocol.NewMessage(protocol.RoleUser, s.currentMessage(rc))),
		SystemPrompt: BuildSystemPrompt(s.agent, s.peers, rc),
	}

	text, err := s.client.StreamChat(ctx, req, nil)
	if err != nil {
		return "", fmt.Errorf("agent %s failed to respond: %w", s.agent.ID, err)
	}

	text = strings.TrimSpace(TruncateSentences(text, s.cfg.MaxReplySentences, s.cfg.SentenceTerminators))
	return text, nil
}

// historyMessages converts the most recent transcript entries into the wire
// shape. Agent messages are prefixed with the speaker's name so each persona
// can tell the others' contributions apart.
func (s *Session) historyMessages(history []transcript.Message) []protocol.ChatMessage {
	if s.cfg.HistoryWindow > 0 && len(history) > s.cfg.HistoryWindow {
		history = history[len(history)-s.cfg.HistoryWindow:]
	}

	msgs := make([]protocol.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		if m.Sender == transcript.SenderUser {
			msgs = append(msgs, protocol.NewMessage(protocol.RoleUser, m.Text))
			continue
		}
		name := m.AgentName
		if name == "" {
			name = "AI"
		}
		msgs = append(msgs, protocol.NewMessage(protocol.RoleAssistant, fmt.Sprintf("%s: %s", name, m.Text)))
	}
	return msgs
}

// currentMessage is the user-role message that triggers the reply: the
// question itself in the first round, a short interaction nudge afterwards.
func (s *Session) currentMessage(rc RoundContext) string {
	if rc.IsFirstResponse {
		return rc.Question
	}
	msg := "Engage with the other agents' contributions (ask follow-up questions, add your own view, or respectfully disagree), in 1-3 sentences."
	if rc.ShouldRefocus {
		msg += " Note: the conversation may have drifted from the user's original question; actively steer it back."
	}
	return msg
}
