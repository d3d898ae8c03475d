package session

import (
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/roundtable/catalog"
	"github.com/tailored-agentic-units/roundtable/transcript"
)

// RoundContext carries everything a session needs to produce one reply in a
// scheduler round.
type RoundContext struct {
	// Question is the user's original question, the topic anchor.
	Question string

	// History is the accumulated transcript; sessions cap it to their
	// configured window before sending.
	History []transcript.Message

	// PeerResponses are the recent agent-attributed messages the speaker
	// should react to. Empty in the first round.
	PeerResponses []transcript.Message

	// IsFirstResponse marks the broadcast round, where the agent must
	// answer the user directly instead of reacting to peers.
	IsFirstResponse bool

	// ShouldRefocus tasks this speaker, and only this speaker, with
	// steering the conversation back to the original question.
	ShouldRefocus bool
}

// BuildSystemPrompt assembles the enhanced system prompt for one call: the
// persona's base prompt, the disclosure of the other participants,
// role-specific instructions, the brevity constraint, and conditionally the
// refocus directive. Pure function of its inputs.
func BuildSystemPrompt(agent catalog.Agent, peers []string, rc RoundContext) string {
	var b strings.Builder

	b.WriteString(agent.SystemPrompt)
	b.WriteString("\n\n[Roundtable rules]\n")
	fmt.Fprintf(&b, "You are taking part in a multi-agent conversation. The other participants are: %s.\n\n", strings.Join(peers, ", "))

	if rc.IsFirstResponse {
		fmt.Fprintf(&b, "[Current task] The user just asked: %q\n", rc.Question)
		b.WriteString("Answer the user's question directly first (1-3 sentences), staying true to your persona and area of expertise.\n\n")
	} else {
		b.WriteString("[Current task] The other agents have already spoken. Engage with their points:\n")
		for _, msg := range rc.PeerResponses {
			name := msg.AgentName
			if name == "" {
				name = "AI"
			}
			fmt.Fprintf(&b, "- %s: %s\n", name, msg.Text)
		}
		b.WriteString("\nEngage with them (ask follow-up questions, add your own view, or respectfully disagree) in 1-3 sentences, staying true to your persona.\n\n")
	}

	if rc.ShouldRefocus {
		fmt.Fprintf(&b, "[Important] The conversation may have drifted from the user's original question %q. Actively steer the topic back to it.\n\n", rc.Question)
	}

	b.WriteString("[Speaking requirements]\n")
	b.WriteString("1. Stay true to your persona and area of expertise\n")
	b.WriteString("2. Keep it to 1-3 sentences, no long monologues\n")
	b.WriteString("3. Keep a natural conversational tone\n")
	if rc.ShouldRefocus {
		b.WriteString("4. You must actively bring the topic back to the user's original question\n")
	}

	return b.String()
}

// TruncateSentences enforces the brevity constraint after the fact: the text
// is split on the terminator runes and at most max clauses are kept, with a
// terminator re-appended. Text within the budget is returned unchanged.
func TruncateSentences(text string, max int, terminators string) string {
	if max <= 0 || terminators == "" {
		return text
	}

	isTerminator := func(r rune) bool {
		return strings.ContainsRune(terminators, r)
	}

	var sentences []string
	for _, s := range strings.FieldsFunc(text, isTerminator) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= max {
		return text
	}

	sep := string([]rune(terminators)[0])
	return strings.Join(sentences[:max], sep) + sep
}
