package catalog

import (
	"fmt"
	"slices"
	"sync"
)

// Registry manages named agent personas. Insertion order is preserved so the
// catalog lists agents in the order they were seeded or created. Thread-safe
// for concurrent access.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	order  []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]Agent),
	}
}

// Get retrieves an agent by ID.
func (r *Registry) Get(id string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.agents[id]
	if !exists {
		return Agent{}, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return a, nil
}

// List returns all registered agents in insertion order.
func (r *Registry) List() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// Register adds a new agent to the catalog.
func (r *Registry) Register(a Agent) error {
	if a.ID == "" {
		return ErrEmptyAgentID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAgentExists, a.ID)
	}

	r.agents[a.ID] = a
	r.order = append(r.order, a.ID)
	return nil
}

// Replace updates an existing agent, keeping its catalog position.
func (r *Registry) Replace(a Agent) error {
	if a.ID == "" {
		return ErrEmptyAgentID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, a.ID)
	}

	r.agents[a.ID] = a
	return nil
}

// Unregister removes an agent from the catalog.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[id]; !exists {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}

	delete(r.agents, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return nil
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
