package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tailored-agentic-units/roundtable/catalog"
	"github.com/tailored-agentic-units/roundtable/history"
	"github.com/tailored-agentic-units/roundtable/transcript"
)

// handleListAgents returns the catalog in registration order.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var agent catalog.Agent
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.registry.Register(agent); err != nil {
		switch {
		case errors.Is(err, catalog.ErrEmptyAgentID):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, catalog.ErrAgentExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	var agent catalog.Agent
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	agent.ID = chi.URLParam(r, "agentID")

	if err := s.registry.Replace(agent); err != nil {
		if errors.Is(err, catalog.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if err := s.registry.Unregister(agentID); err != nil {
		if errors.Is(err, catalog.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// historyStore returns the store, or reports 404 when history is disabled.
func (s *Server) historyStore(w http.ResponseWriter) (history.Store, bool) {
	if s.histories == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return nil, false
	}
	return s.histories, true
}

func (s *Server) handleListHistories(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}

	records, err := store.List(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list histories")
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSaveHistory(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}

	var body struct {
		Title    string               `json:"title"`
		Messages []transcript.Message `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec := history.Record{
		ID:       chi.URLParam(r, "historyID"),
		AgentID:  chi.URLParam(r, "agentID"),
		Title:    body.Title,
		Messages: body.Messages,
	}
	if err := store.Save(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save history")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}

	rec, err := store.Get(r.Context(), chi.URLParam(r, "historyID"))
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "history not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}

	if err := store.Delete(r.Context(), chi.URLParam(r, "historyID")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePurgeHistories(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}

	if err := store.Purge(r.Context(), chi.URLParam(r, "agentID")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to purge histories")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
