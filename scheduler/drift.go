package scheduler

import (
	"strings"
	"unicode/utf8"

	"github.com/tailored-agentic-units/roundtable/transcript"
)

const (
	defaultDriftMinTranscript = 3
	defaultDriftRecentWindow  = 3
	defaultDriftKeywordRunes  = 2
	defaultDriftTextRunes     = 50
)

// DriftConfig holds the thresholds of the topic drift heuristic.
type DriftConfig struct {
	// MinTranscript is the transcript size below which drift is never
	// reported; early turns have too little signal.
	MinTranscript int `json:"min_transcript,omitempty"`

	// RecentWindow is how many of the latest agent messages are examined.
	RecentWindow int `json:"recent_window,omitempty"`

	// KeywordRunes: question tokens must be strictly longer than this to
	// count as keywords, filtering out articles and particles.
	KeywordRunes int `json:"keyword_runes,omitempty"`

	// TextRunes: drift is only reported when the examined text is strictly
	// longer than this, so short exchanges never trigger a refocus.
	TextRunes int `json:"text_runes,omitempty"`
}

// DefaultDriftConfig returns the default drift thresholds.
func DefaultDriftConfig() DriftConfig {
	return DriftConfig{
		MinTranscript: defaultDriftMinTranscript,
		RecentWindow:  defaultDriftRecentWindow,
		KeywordRunes:  defaultDriftKeywordRunes,
		TextRunes:     defaultDriftTextRunes,
	}
}

// Merge applies non-zero values from source into c.
func (c *DriftConfig) Merge(source *DriftConfig) {
	if source.MinTranscript > 0 {
		c.MinTranscript = source.MinTranscript
	}
	if source.RecentWindow > 0 {
		c.RecentWindow = source.RecentWindow
	}
	if source.KeywordRunes > 0 {
		c.KeywordRunes = source.KeywordRunes
	}
	if source.TextRunes > 0 {
		c.TextRunes = source.TextRunes
	}
}

// DetectDrift reports whether the recent agent discussion has wandered away
// from the user's question. The heuristic is deliberately crude: it looks for
// the question's keywords in the latest agent messages, case-insensitively,
// and calls drift only when none appear AND the discussion has grown long
// enough to be substantive. False positives cost one refocus directive, so
// the thresholds err toward "no drift".
func DetectDrift(question string, history []transcript.Message, cfg DriftConfig) bool {
	if len(history) < cfg.MinTranscript {
		return false
	}

	var texts []string
	for _, m := range history {
		if m.Sender == transcript.SenderAgent {
			texts = append(texts, m.Text)
		}
	}
	if len(texts) > cfg.RecentWindow {
		texts = texts[len(texts)-cfg.RecentWindow:]
	}
	recent := strings.ToLower(strings.Join(texts, " "))

	for _, token := range strings.Fields(strings.ToLower(question)) {
		if utf8.RuneCountInString(token) <= cfg.KeywordRunes {
			continue
		}
		if strings.Contains(recent, token) {
			return false
		}
	}

	return utf8.RuneCountInString(recent) > cfg.TextRunes
}
