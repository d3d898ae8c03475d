package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tailored-agentic-units/roundtable/core/protocol"
	"github.com/tailored-agentic-units/roundtable/upstream"
)

// handleSuggestedReplies returns up to three short follow-up suggestions for
// the user. Any failure, the missing key included, degrades to an empty list;
// suggestions are decoration, never worth surfacing an error for.
func (s *Server) handleSuggestedReplies(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationHistory []protocol.ChatMessage `json:"conversation_history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	suggestions := []string{}
	if s.upstream.Configured() {
		got, err := s.upstream.SuggestedReplies(r.Context(), req.ConversationHistory)
		if err != nil {
			slog.Warn("suggested replies failed", "error", err)
		} else if got != nil {
			suggestions = got
		}
	}

	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

// handleAgentProfile generates a persona outline for a new agent from an
// initial prompt. Failures fall back to a generic profile built from the
// prompt itself.
func (s *Server) handleAgentProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitialPrompt string `json:"initial_prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile := fallbackProfile(req.InitialPrompt)
	if s.upstream.Configured() {
		got, err := s.upstream.AgentProfile(r.Context(), req.InitialPrompt)
		if err != nil {
			slog.Warn("agent profile generation failed", "error", err)
		} else {
			if got.Name == "" {
				got.Name = profile.Name
			}
			if got.Description == "" {
				got.Description = profile.Description
			}
			if got.SystemPrompt == "" {
				got.SystemPrompt = profile.SystemPrompt
			}
			profile = got
		}
	}

	writeJSON(w, http.StatusOK, profile)
}

func fallbackProfile(initialPrompt string) *upstream.Profile {
	return &upstream.Profile{
		Name:         "New Agent",
		Description:  initialPrompt,
		SystemPrompt: "You are a helpful AI assistant.",
	}
}
