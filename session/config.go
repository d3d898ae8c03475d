package session

// Defaults for the reply-shaping heuristics. The values come from observed
// behavior, not derivation; they are plain config fields so deployments can
// tune them.
const (
	defaultHistoryWindow     = 10
	defaultMaxReplySentences = 3
	defaultTerminators       = "。！？"
)

// Config holds the per-session reply-shaping parameters.
type Config struct {
	// HistoryWindow caps how many recent transcript entries are sent with
	// each request, bounding prompt size.
	HistoryWindow int `json:"history_window,omitempty"`

	// MaxReplySentences caps the reply length even when the model ignores
	// the brevity instruction.
	MaxReplySentences int `json:"max_reply_sentences,omitempty"`

	// SentenceTerminators are the runes treated as clause delimiters when
	// truncating replies.
	SentenceTerminators string `json:"sentence_terminators,omitempty"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		HistoryWindow:       defaultHistoryWindow,
		MaxReplySentences:   defaultMaxReplySentences,
		SentenceTerminators: defaultTerminators,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.HistoryWindow > 0 {
		c.HistoryWindow = source.HistoryWindow
	}
	if source.MaxReplySentences > 0 {
		c.MaxReplySentences = source.MaxReplySentences
	}
	if source.SentenceTerminators != "" {
		c.SentenceTerminators = source.SentenceTerminators
	}
}
