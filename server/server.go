// Package server is the HTTP proxy between the browser client and the
// upstream LLM provider. It hides the API key, normalizes the provider's SSE
// stream into the client wire contract, and serves the agent catalog and
// per-agent conversation history.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tailored-agentic-units/roundtable/catalog"
	"github.com/tailored-agentic-units/roundtable/history"
	"github.com/tailored-agentic-units/roundtable/upstream"
)

// Server bundles the proxy's handlers and dependencies.
type Server struct {
	upstream  *upstream.Client
	registry  *catalog.Registry
	histories history.Store // nil when history is disabled
	origins   []string
}

// New creates a Server. histories may be nil, which disables the history
// endpoints with 404s.
func New(up *upstream.Client, registry *catalog.Registry, histories history.Store, allowedOrigins []string) *Server {
	return &Server{
		upstream:  up,
		registry:  registry,
		histories: histories,
		origins:   allowedOrigins,
	}
}

// Router builds the chi router with all proxy routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(CORS(s.origins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/chat/stream", s.handleChatStream)
		r.Post("/chat/completions", s.handleChatCompletions)
		r.Post("/suggested-replies", s.handleSuggestedReplies)
		r.Post("/agent-profile", s.handleAgentProfile)

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", s.handleListAgents)
			r.Post("/", s.handleCreateAgent)
			r.Route("/{agentID}", func(r chi.Router) {
				r.Put("/", s.handleUpdateAgent)
				r.Delete("/", s.handleDeleteAgent)

				r.Route("/histories", func(r chi.Router) {
					r.Get("/", s.handleListHistories)
					r.Delete("/", s.handlePurgeHistories)
					r.Put("/{historyID}", s.handleSaveHistory)
					r.Get("/{historyID}", s.handleGetHistory)
					r.Delete("/{historyID}", s.handleDeleteHistory)
				})
			})
		})
	})

	return r
}

// handleHealth reports liveness and whether the upstream key is configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"api_key_configured": s.upstream.Configured(),
		"model":              s.upstream.Model(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
