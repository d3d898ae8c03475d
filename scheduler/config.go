package scheduler

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailored-agentic-units/roundtable/session"
)

const (
	defaultMaxInteractionRounds = 2
	defaultMaxSpeakersPerRound  = 2
	defaultMaxConsecutiveTurns  = 2
	defaultPeerWindowPerAgent   = 2
)

// Config holds initialization parameters for a conversation scheduler and its
// subsystems. Each subsystem section delegates to that subsystem's own
// defaults and Merge.
type Config struct {
	// MaxInteractionRounds caps the agent-to-agent rounds that follow the
	// broadcast round of every user turn.
	MaxInteractionRounds int `json:"max_interaction_rounds,omitempty"`

	// MaxSpeakersPerRound caps how many agents speak in one interaction
	// round.
	MaxSpeakersPerRound int `json:"max_speakers_per_round,omitempty"`

	// MaxConsecutiveTurns is the streak cap: an agent that has spoken in
	// this many rounds in a row sits the next one out.
	MaxConsecutiveTurns int `json:"max_consecutive_turns,omitempty"`

	// PeerWindowPerAgent sizes the peer-response window shown to
	// interaction speakers: the last (agents * PeerWindowPerAgent)
	// agent-attributed messages.
	PeerWindowPerAgent int `json:"peer_window_per_agent,omitempty"`

	Session session.Config `json:"session"`
	Drift   DriftConfig    `json:"drift"`
}

// DefaultConfig returns a Config with sensible defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		MaxInteractionRounds: defaultMaxInteractionRounds,
		MaxSpeakersPerRound:  defaultMaxSpeakersPerRound,
		MaxConsecutiveTurns:  defaultMaxConsecutiveTurns,
		PeerWindowPerAgent:   defaultPeerWindowPerAgent,
		Session:              session.DefaultConfig(),
		Drift:                DefaultDriftConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Session.Merge(&source.Session)
	c.Drift.Merge(&source.Drift)

	if source.MaxInteractionRounds > 0 {
		c.MaxInteractionRounds = source.MaxInteractionRounds
	}
	if source.MaxSpeakersPerRound > 0 {
		c.MaxSpeakersPerRound = source.MaxSpeakersPerRound
	}
	if source.MaxConsecutiveTurns > 0 {
		c.MaxConsecutiveTurns = source.MaxConsecutiveTurns
	}
	if source.PeerWindowPerAgent > 0 {
		c.PeerWindowPerAgent = source.PeerWindowPerAgent
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
