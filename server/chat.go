package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tailored-agentic-units/roundtable/completion"
	"github.com/tailored-agentic-units/roundtable/core/protocol"
)

// unconfiguredGreeting is streamed in place of a model reply when no upstream
// API key is configured, so the client sees the problem instead of an opaque
// failure.
const unconfiguredGreeting = "The roundtable is not connected to a language model yet. Set CHATGLM_API_KEY on the server to bring the agents to life."

// chatRequest is the client-facing request body for both chat endpoints.
type chatRequest struct {
	Messages     []protocol.ChatMessage `json:"messages"`
	SystemPrompt string                 `json:"system_prompt,omitempty"`
	Model        string                 `json:"model,omitempty"`
	Stream       bool                   `json:"stream,omitempty"`
}

// handleChatStream proxies a streaming completion, reframing the upstream SSE
// into the client wire contract: data-prefixed JSON events carrying text
// fragments, then a single done event.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(event completion.StreamEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if !s.upstream.Configured() {
		// Substitute greeting: one text event, then done. No retry, no
		// failure; the conversation degrades gracefully.
		if err := emit(completion.StreamEvent{Text: unconfiguredGreeting}); err == nil {
			_ = emit(completion.StreamEvent{Done: true})
		}
		return
	}

	if err := s.upstream.Stream(r.Context(), req.Messages, req.SystemPrompt, req.Model, emit); err != nil {
		// The response is already committed; all we can do is log.
		slog.Error("chat stream aborted", "error", err)
	}
}

// handleChatCompletions proxies a non-streaming completion, passing the
// upstream response body through verbatim.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	if !s.upstream.Configured() {
		writeError(w, http.StatusInternalServerError, "upstream API key is not configured")
		return
	}

	raw, err := s.upstream.Completions(r.Context(), req.Messages, req.SystemPrompt, req.Model)
	if err != nil {
		var upstreamErr *completion.UpstreamError
		if errors.As(err, &upstreamErr) {
			writeError(w, http.StatusBadGateway, upstreamErr.Message)
			return
		}
		writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		slog.Error("failed to write completion response", "error", err)
	}
}
