package history

const defaultMaxPerAgent = 50

// Config holds history store initialization parameters.
type Config struct {
	// Path is the SQLite database file; empty disables history.
	Path string `json:"path,omitempty"`

	// MaxPerAgent caps how many records each agent keeps.
	MaxPerAgent int `json:"max_per_agent,omitempty"`
}

// DefaultConfig returns the default history configuration (disabled).
func DefaultConfig() Config {
	return Config{MaxPerAgent: defaultMaxPerAgent}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.MaxPerAgent > 0 {
		c.MaxPerAgent = source.MaxPerAgent
	}
}

// NewStore creates a Store from configuration. Returns nil Store when Path
// is empty, indicating history is disabled.
func NewStore(cfg *Config) (Store, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	return NewSQLite(cfg.Path, cfg.MaxPerAgent)
}
