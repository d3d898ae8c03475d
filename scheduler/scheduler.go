// Package scheduler drives the turn-taking loop of a multi-agent
// conversation. Every user question triggers one broadcast round in which all
// agents answer in parallel, followed by up to MaxInteractionRounds rounds of
// agent-to-agent discussion with at most MaxSpeakersPerRound speakers each.
//
// Replies within a round are committed to the transcript in the agents'
// declaration order, never in completion order, so a conversation's shape is
// deterministic for a given set of replies regardless of upstream latency.
// Fairness is enforced by picking the least-recent speakers first and by
// benching any agent that has spoken MaxConsecutiveTurns rounds in a row.
//
//	sched, err := scheduler.New(agents, client, cfg)
//	turn, err := sched.Ask(ctx, "What's the weather like today?")
package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/roundtable/catalog"
	"github.com/tailored-agentic-units/roundtable/completion"
	"github.com/tailored-agentic-units/roundtable/observability"
	"github.com/tailored-agentic-units/roundtable/session"
	"github.com/tailored-agentic-units/roundtable/transcript"
)

// maxAgents is how many personas one roundtable seats.
const maxAgents = 3

// apologyText is appended as an unattributed notice when a user turn ends
// with no agent having produced a single reply.
const apologyText = "Sorry, something went wrong and none of the participants could answer. Please try again later."

// speakerState is the per-agent fairness bookkeeping. It lives for the whole
// conversation; consecutive streaks reset at the end of every user turn while
// lastSpokeAt carries across turns.
type speakerState struct {
	consecutive int // rounds spoken in a row
	lastSpokeAt int // transcript index of the last committed reply, -1 if never
}

// Option configures a Scheduler after config-driven initialization.
type Option func(*Scheduler)

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithTranscript seeds the scheduler with an existing transcript, used when
// resuming a conversation from history.
func WithTranscript(log *transcript.Log) Option {
	return func(s *Scheduler) { s.log = log }
}

// Scheduler owns one conversation: a fixed set of agent sessions, the
// transcript, and the fairness state. Safe for concurrent use; concurrent
// Ask calls beyond the first fail fast with ErrBusy.
type Scheduler struct {
	cfg      Config
	log      *transcript.Log
	sessions []*session.Session // declaration order, fixed for the conversation
	states   []speakerState
	observer observability.Observer
	busy     atomic.Bool
}

// New creates a Scheduler for the given agents, in the given declaration
// order. Pure setup: no network call happens until Ask.
func New(agents []catalog.Agent, client completion.Client, cfg Config, opts ...Option) (*Scheduler, error) {
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}
	if len(agents) > maxAgents {
		return nil, fmt.Errorf("%w: got %d", ErrTooManyAgents, len(agents))
	}

	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}

	s := &Scheduler{
		cfg:      cfg,
		log:      transcript.NewLog(),
		sessions: make([]*session.Session, len(agents)),
		states:   make([]speakerState, len(agents)),
		observer: observability.NewSlogObserver(nil),
	}
	for i, a := range agents {
		peers := slices.Delete(slices.Clone(names), i, i+1)
		s.sessions[i] = session.New(a, peers, client, cfg.Session)
		s.states[i] = speakerState{lastSpokeAt: -1}
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Agents returns the participants in declaration order.
func (s *Scheduler) Agents() []catalog.Agent {
	agents := make([]catalog.Agent, len(s.sessions))
	for i, sess := range s.sessions {
		agents[i] = sess.Agent()
	}
	return agents
}

// Transcript returns a copy of the conversation so far.
func (s *Scheduler) Transcript() []transcript.Message {
	return s.log.Messages()
}

// Log returns the underlying transcript log.
func (s *Scheduler) Log() *transcript.Log {
	return s.log
}

// Busy reports whether a question is currently being processed.
func (s *Scheduler) Busy() bool {
	return s.busy.Load()
}

// Ask processes one user turn: the question is appended to the transcript,
// all agents answer in the broadcast round, and agent-to-agent interaction
// rounds follow while speakers remain. Returns the messages this turn
// appended, the user's own included.
//
// Individual agent failures are abstentions, not turn failures; Ask returns
// an error only for invalid input, an in-flight turn, or a cancelled context.
func (s *Scheduler) Ask(ctx context.Context, question string) ([]transcript.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)
	defer s.resetStreaks()

	turnStart := s.log.Len()
	// The question doubles as the broadcast round's trigger message, so the
	// history handed to that round is everything before it.
	prior := s.log.Messages()
	s.log.AppendUser(question)

	s.emit(ctx, EventAskStart, observability.LevelInfo, map[string]any{
		"question_length": len(question),
		"agents":          len(s.sessions),
	})

	s.runBroadcastRound(ctx, question, prior)

	// A lone agent has nobody to interact with.
	if len(s.sessions) > 1 {
		s.runInteractionRounds(ctx, question)
	}

	turn := s.log.Messages()[turnStart:]
	if err := ctx.Err(); err != nil {
		return turn, err
	}

	if countAgentMessages(turn) == 0 {
		s.log.AppendNotice(apologyText)
		turn = s.log.Messages()[turnStart:]
	}

	s.emit(ctx, EventAskComplete, observability.LevelInfo, map[string]any{
		"messages": len(turn) - 1,
	})
	return turn, nil
}

// runBroadcastRound fans the question out to every agent in parallel and
// commits the replies in declaration order.
func (s *Scheduler) runBroadcastRound(ctx context.Context, question string, history []transcript.Message) {
	tasks := make([]roundTask, len(s.sessions))
	for i, sess := range s.sessions {
		rc := session.RoundContext{
			Question:        question,
			History:         history,
			IsFirstResponse: true,
		}
		tasks[i] = roundTask{
			index: i,
			run:   func(ctx context.Context) (string, error) { return sess.Respond(ctx, rc) },
		}
	}

	s.emit(ctx, EventRoundStart, observability.LevelVerbose, map[string]any{
		"round":    0,
		"speakers": len(tasks),
	})

	s.commit(ctx, 0, fanOut(ctx, tasks))
}

// runInteractionRounds runs the agent-to-agent discussion rounds that follow
// the broadcast round. Each round picks up to MaxSpeakersPerRound speakers
// under the streak cap, least-recent first; a round in which everyone
// abstains ends the turn early.
func (s *Scheduler) runInteractionRounds(ctx context.Context, question string) {
	for round := 1; round <= s.cfg.MaxInteractionRounds; round++ {
		if ctx.Err() != nil {
			return
		}

		speakers := s.pickSpeakers()
		if len(speakers) == 0 {
			return
		}

		history := s.log.Messages()
		peers := s.recentAgentMessages(history)

		drift := DetectDrift(question, history, s.cfg.Drift)
		refocus := -1
		if drift {
			// Exactly one speaker carries the refocus duty: the
			// earliest-declared of this round's speakers.
			refocus = slices.Min(speakers)
			s.emit(ctx, EventDriftDetected, observability.LevelInfo, map[string]any{
				"round":   round,
				"refocus": s.sessions[refocus].Agent().ID,
			})
		}

		tasks := make([]roundTask, 0, len(speakers))
		for _, idx := range speakers {
			sess := s.sessions[idx]
			rc := session.RoundContext{
				Question:      question,
				History:       history,
				PeerResponses: peers,
				ShouldRefocus: idx == refocus,
			}
			tasks = append(tasks, roundTask{
				index: idx,
				run:   func(ctx context.Context) (string, error) { return sess.Respond(ctx, rc) },
			})
		}

		s.emit(ctx, EventRoundStart, observability.LevelVerbose, map[string]any{
			"round":    round,
			"speakers": len(tasks),
			"drift":    drift,
		})

		committed := s.commit(ctx, round, fanOut(ctx, tasks))

		// Sitting a round out ends the streak, whether benched or
		// simply not picked.
		selected := make(map[int]bool, len(speakers))
		for _, idx := range speakers {
			selected[idx] = true
		}
		for i := range s.states {
			if !selected[i] {
				s.states[i].consecutive = 0
			}
		}

		if committed == 0 {
			return
		}
	}
}

// commit appends a round's replies to the transcript in declaration order and
// updates the fairness bookkeeping. An error or empty reply is an abstention:
// nothing is appended and the agent's streak resets. Returns the number of
// messages committed.
func (s *Scheduler) commit(ctx context.Context, round int, replies []indexedReply) int {
	// A cancelled turn stops writing: whatever the fan-out still returned
	// is dropped rather than committed behind the caller's back.
	if ctx.Err() != nil {
		return 0
	}

	committed := 0
	for _, r := range replies {
		st := &s.states[r.index]
		agent := s.sessions[r.index].Agent()

		if r.err != nil || r.text == "" {
			st.consecutive = 0
			data := map[string]any{"agent": agent.ID, "round": round}
			if r.err != nil {
				data["error"] = r.err.Error()
			}
			s.emit(ctx, EventAgentAbstain, observability.LevelWarning, data)
			continue
		}

		s.log.AppendAgent(agent.ID, agent.Name, r.text)
		st.consecutive++
		st.lastSpokeAt = s.log.Len() - 1
		committed++

		s.emit(ctx, EventAgentReply, observability.LevelVerbose, map[string]any{
			"agent":        agent.ID,
			"round":        round,
			"reply_length": len(r.text),
		})
	}
	return committed
}

// pickSpeakers returns the declaration indexes of the next round's speakers:
// every agent under the streak cap, ordered least-recent speaker first with
// declaration order breaking ties, capped at MaxSpeakersPerRound.
func (s *Scheduler) pickSpeakers() []int {
	var candidates []int
	for i := range s.states {
		if s.states[i].consecutive < s.cfg.MaxConsecutiveTurns {
			candidates = append(candidates, i)
		}
	}

	slices.SortStableFunc(candidates, func(a, b int) int {
		return cmp.Compare(s.states[a].lastSpokeAt, s.states[b].lastSpokeAt)
	})

	if len(candidates) > s.cfg.MaxSpeakersPerRound {
		candidates = candidates[:s.cfg.MaxSpeakersPerRound]
	}
	return candidates
}

// recentAgentMessages returns the window of agent-attributed messages that
// interaction speakers are asked to engage with.
func (s *Scheduler) recentAgentMessages(history []transcript.Message) []transcript.Message {
	var msgs []transcript.Message
	for _, m := range history {
		if m.Sender == transcript.SenderAgent && m.AgentID != "" {
			msgs = append(msgs, m)
		}
	}

	window := len(s.sessions) * s.cfg.PeerWindowPerAgent
	if window > 0 && len(msgs) > window {
		msgs = msgs[len(msgs)-window:]
	}
	return msgs
}

// resetStreaks is the end-of-turn cleanup: streaks go back to zero so the
// next question starts from a clean slate, while lastSpokeAt survives to keep
// fairness ordering across turns.
func (s *Scheduler) resetStreaks() {
	for i := range s.states {
		s.states[i].consecutive = 0
	}
}

func (s *Scheduler) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "scheduler.Ask",
		Data:      data,
	})
}

func countAgentMessages(msgs []transcript.Message) int {
	n := 0
	for _, m := range msgs {
		if m.Sender == transcript.SenderAgent {
			n++
		}
	}
	return n
}
