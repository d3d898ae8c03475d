// Package catalog manages the agent persona catalog: immutable Agent
// descriptors, a thread-safe Registry with CRUD semantics, and seed loading
// from YAML. Agents are only ever created or changed through explicit catalog
// operations; the conversation layer treats them as read-only.
package catalog

import "errors"

var (
	ErrEmptyAgentID  = errors.New("agent ID cannot be empty")
	ErrAgentExists   = errors.New("agent already registered")
	ErrAgentNotFound = errors.New("agent not found")
)

// Agent is an immutable persona descriptor. SystemPrompt carries the
// instructions that steer the persona's replies.
type Agent struct {
	ID               string `json:"id" yaml:"id"`
	Name             string `json:"name" yaml:"name"`
	Description      string `json:"description" yaml:"description"`
	Category         string `json:"category" yaml:"category"`
	AvatarURL        string `json:"avatarUrl" yaml:"avatar_url"`
	ImageURL         string `json:"imageUrl" yaml:"image_url"`
	SystemPrompt     string `json:"systemPrompt" yaml:"system_prompt"`
	InteractionCount string `json:"interactionCount,omitempty" yaml:"interaction_count,omitempty"`
}
