package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/roundtable/catalog"
	"github.com/tailored-agentic-units/roundtable/completion"
	"github.com/tailored-agentic-units/roundtable/observability"
	"github.com/tailored-agentic-units/roundtable/scheduler"
	"github.com/tailored-agentic-units/roundtable/transcript"
)

// step is one scripted reply (or failure) for an agent.
type step struct {
	text string
	err  error
}

func say(texts ...string) []step {
	steps := make([]step, len(texts))
	for i, t := range texts {
		steps[i] = step{text: t}
	}
	return steps
}

func fail(err error) []step {
	return []step{{err: err}}
}

// agentScript drives one persona's behavior across a conversation. Steps are
// consumed per call; the last step repeats once exhausted.
type agentScript struct {
	steps []step
	delay time.Duration
}

// roundtableClient is a scripted completion.Client. It tells personas apart
// by a marker embedded in their system prompt and records every call.
type roundtableClient struct {
	mu      sync.Mutex
	scripts map[string]*agentScript
	calls   map[string]int
	prompts []string      // system prompts in call order
	gate    chan struct{} // when non-nil, calls block until closed
}

func newRoundtableClient() *roundtableClient {
	return &roundtableClient{
		scripts: make(map[string]*agentScript),
		calls:   make(map[string]int),
	}
}

func (c *roundtableClient) script(id string, steps []step, delay time.Duration) {
	c.scripts[id] = &agentScript{steps: steps, delay: delay}
}

func (c *roundtableClient) StreamChat(ctx context.Context, req completion.Request, onDelta completion.DeltaFunc) (string, error) {
	if c.gate != nil {
		<-c.gate
	}

	c.mu.Lock()
	var id string
	for key := range c.scripts {
		if strings.Contains(req.SystemPrompt, "persona:"+key) {
			id = key
			break
		}
	}
	sc := c.scripts[id]
	n := c.calls[id]
	c.calls[id]++
	c.prompts = append(c.prompts, req.SystemPrompt)
	c.mu.Unlock()

	if sc == nil {
		return "", fmt.Errorf("no script matched system prompt %q", req.SystemPrompt)
	}
	if sc.delay > 0 {
		time.Sleep(sc.delay)
	}
	if n >= len(sc.steps) {
		n = len(sc.steps) - 1
	}
	st := sc.steps[n]
	if st.err != nil {
		return "", st.err
	}
	return st.text, nil
}

func (c *roundtableClient) Chat(ctx context.Context, req completion.Request) (string, error) {
	return c.StreamChat(ctx, req, nil)
}

func (c *roundtableClient) callCount(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func (c *roundtableClient) systemPrompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

func testAgent(id, name string) catalog.Agent {
	return catalog.Agent{
		ID:           id,
		Name:         name,
		SystemPrompt: "persona:" + id,
	}
}

func newScheduler(t *testing.T, client completion.Client, agents ...catalog.Agent) *scheduler.Scheduler {
	t.Helper()
	sched, err := scheduler.New(agents, client, scheduler.DefaultConfig(),
		scheduler.WithObserver(observability.NoOpObserver{}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return sched
}

func agentIDs(msgs []transcript.Message) []string {
	var ids []string
	for _, m := range msgs {
		if m.Sender == transcript.SenderAgent {
			ids = append(ids, m.AgentID)
		}
	}
	return ids
}

func TestNew_Validation(t *testing.T) {
	client := newRoundtableClient()

	if _, err := scheduler.New(nil, client, scheduler.DefaultConfig()); !errors.Is(err, scheduler.ErrNoAgents) {
		t.Errorf("got %v, want ErrNoAgents", err)
	}

	four := []catalog.Agent{testAgent("a", "A"), testAgent("b", "B"), testAgent("c", "C"), testAgent("d", "D")}
	if _, err := scheduler.New(four, client, scheduler.DefaultConfig()); !errors.Is(err, scheduler.ErrTooManyAgents) {
		t.Errorf("got %v, want ErrTooManyAgents", err)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	client := newRoundtableClient()
	client.script("a", say("hi"), 0)
	sched := newScheduler(t, client, testAgent("a", "A"))

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := sched.Ask(context.Background(), q); !errors.Is(err, scheduler.ErrEmptyQuestion) {
			t.Errorf("Ask(%q): got %v, want ErrEmptyQuestion", q, err)
		}
	}
	if sched.Log().Len() != 0 {
		t.Error("rejected questions must not touch the transcript")
	}
}

func TestAsk_CommitsInDeclarationOrder(t *testing.T) {
	// The fastest agent is declared last: completion order is C, B, A but
	// the transcript must read A, B, C.
	client := newRoundtableClient()
	client.script("a", say("Sunny"), 40*time.Millisecond)
	client.script("b", say("Rainy"), 20*time.Millisecond)
	client.script("c", say("Cloudy"), 0)

	sched := newScheduler(t, client, testAgent("a", "A"), testAgent("b", "B"), testAgent("c", "C"))
	if _, err := sched.Ask(context.Background(), "What's the weather like today?"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	msgs := sched.Transcript()
	if len(msgs) < 4 {
		t.Fatalf("got %d messages, want at least 4", len(msgs))
	}
	if msgs[0].Sender != transcript.SenderUser {
		t.Errorf("first message should be the user's, got %+v", msgs[0])
	}
	wantTexts := []string{"Sunny", "Rainy", "Cloudy"}
	for i, want := range wantTexts {
		got := msgs[i+1]
		if got.Text != want {
			t.Errorf("broadcast reply %d: got %q, want %q", i, got.Text, want)
		}
		if got.AgentID == "" || got.AgentName == "" {
			t.Errorf("broadcast reply %d should carry agent attribution, got %+v", i, got)
		}
	}
}

func TestAsk_RotationUnderStreakCap(t *testing.T) {
	// With three agents all replying, the default caps force the rotation
	// broadcast(A,B,C) -> round1(A,B) -> round2(C): the first two hit the
	// streak cap after round 1 and the benched third takes round 2.
	client := newRoundtableClient()
	client.script("a", say("a0", "a1"), 0)
	client.script("b", say("b0", "b1"), 0)
	client.script("c", say("c0", "c1"), 0)

	sched := newScheduler(t, client, testAgent("a", "A"), testAgent("b", "B"), testAgent("c", "C"))
	turn, err := sched.Ask(context.Background(), "What's the weather like today?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	want := []string{"a", "b", "c", "a", "b", "c"}
	got := agentIDs(turn)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("speaking order: got %v, want %v", got, want)
	}
	for _, id := range []string{"a", "b", "c"} {
		if n := client.callCount(id); n != 2 {
			t.Errorf("agent %s: got %d calls, want 2", id, n)
		}
	}
}

func TestAsk_FailedAgentKeepsPriorityButCommitsInOrder(t *testing.T) {
	// B fails the broadcast round. Having never spoken, B sorts first for
	// round 1 and speaks alongside A; the commit still reads A before B.
	client := newRoundtableClient()
	client.script("a", say("a0", "a1"), 0)
	client.script("b", append(fail(errors.New("upstream down")), say("b1", "b2")...), 0)
	client.script("c", say("c0", "c1"), 0)

	sched := newScheduler(t, client, testAgent("a", "A"), testAgent("b", "B"), testAgent("c", "C"))
	turn, err := sched.Ask(context.Background(), "What's the weather like today?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	// broadcast(A,C) -> round1 picks B(never spoke) and A, commits A,B ->
	// round2 picks C(benched in round 1) and B, commits B,C.
	want := []string{"a", "c", "a", "b", "b", "c"}
	got := agentIDs(turn)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("speaking order: got %v, want %v", got, want)
	}
}

func TestAsk_SingleAgentSkipsInteraction(t *testing.T) {
	client := newRoundtableClient()
	client.script("solo", say("Just me here."), 0)

	sched := newScheduler(t, client, testAgent("solo", "Solo"))
	turn, err := sched.Ask(context.Background(), "Anyone home?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if len(turn) != 2 {
		t.Fatalf("got %d messages, want 2 (question and one reply)", len(turn))
	}
	if n := client.callCount("solo"); n != 1 {
		t.Errorf("got %d upstream calls, want exactly 1", n)
	}
}

func TestAsk_ErrorsAreAbstentions(t *testing.T) {
	client := newRoundtableClient()
	client.script("a", say("fine"), 0)
	client.script("b", fail(&completion.UpstreamError{Status: 500, Message: "boom"}), 0)

	sched := newScheduler(t, client, testAgent("a", "A"), testAgent("b", "B"))
	turn, err := sched.Ask(context.Background(), "Still there?")
	if err != nil {
		t.Fatalf("one agent failing must not fail the turn: %v", err)
	}

	ids := agentIDs(turn)
	if len(ids) == 0 || ids[0] != "a" {
		t.Errorf("the healthy agent's reply should be committed, got %v", ids)
	}
	for _, id := range ids {
		if id == "b" {
			t.Error("a failing agent must not appear in the transcript")
		}
	}
}

func TestAsk_AllAgentsFailAppendsApology(t *testing.T) {
	client := newRoundtableClient()
	client.script("a", fail(errors.New("down")), 0)
	client.script("b", fail(errors.New("down")), 0)

	sched := newScheduler(t, client, testAgent("a", "A"), testAgent("b", "B"))
	turn, err := sched.Ask(context.Background(), "Hello?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if len(turn) != 2 {
		t.Fatalf("got %d messages, want question plus apology", len(turn))
	}
	notice := turn[1]
	if notice.Sender != transcript.SenderAgent || notice.AgentID != "" {
		t.Errorf("apology should be an unattributed notice, got %+v", notice)
	}
	if !strings.Contains(notice.Text, "Sorry") {
		t.Errorf("apology text: got %q", notice.Text)
	}
}

func TestAsk_RejectsConcurrentTurns(t *testing.T) {
	client := newRoundtableClient()
	client.script("a", say("slow reply"), 0)
	client.gate = make(chan struct{})

	sched := newScheduler(t, client, testAgent("a", "A"))

	done := make(chan error, 1)
	go func() {
		_, err := sched.Ask(context.Background(), "first")
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for !sched.Busy() {
		select {
		case <-deadline:
			t.Fatal("scheduler never became busy")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := sched.Ask(context.Background(), "second"); !errors.Is(err, scheduler.ErrBusy) {
		t.Errorf("got %v, want ErrBusy", err)
	}

	close(client.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Ask failed: %v", err)
	}
	if !strings.Contains(sched.Transcript()[0].Text, "first") {
		t.Error("only the first question should have been processed")
	}
}

func TestAsk_StreaksResetBetweenTurns(t *testing.T) {
	client := newRoundtableClient()
	client.script("a", say("a"), 0)
	client.script("b", say("b"), 0)

	sched := newScheduler(t, client, testAgent("a", "A"), testAgent("b", "B"))

	// Two agents hit the streak cap after one interaction round, so each
	// turn is question + broadcast(2) + round1(2).
	for turnNo := 1; turnNo <= 2; turnNo++ {
		turn, err := sched.Ask(context.Background(), fmt.Sprintf("question %d", turnNo))
		if err != nil {
			t.Fatalf("turn %d failed: %v", turnNo, err)
		}
		if got := agentIDs(turn); len(got) != 4 {
			t.Errorf("turn %d: got %d agent messages (%v), want 4", turnNo, len(got), got)
		}
	}
	if sched.Log().Len() != 10 {
		t.Errorf("got %d total messages, want 10", sched.Log().Len())
	}
}

func TestAsk_DriftAssignsExactlyOneRefocus(t *testing.T) {
	offTopic := "The ancient river wound past granite cliffs while herons stalked the shallows below."
	client := newRoundtableClient()
	client.script("a", say(offTopic), 0)
	client.script("b", say(offTopic), 0)

	cfg := scheduler.DefaultConfig()
	cfg.Merge(&scheduler.Config{MaxInteractionRounds: 1})

	sched, err := scheduler.New(
		[]catalog.Agent{testAgent("a", "A"), testAgent("b", "B")},
		client, cfg,
		scheduler.WithObserver(observability.NoOpObserver{}),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := sched.Ask(context.Background(), "quantum entanglement basics"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	var refocused []string
	for _, p := range client.systemPrompts() {
		if strings.Contains(p, "steer the topic back") {
			refocused = append(refocused, p)
		}
	}
	if len(refocused) != 1 {
		t.Fatalf("got %d refocus prompts, want exactly 1", len(refocused))
	}
	if !strings.Contains(refocused[0], "persona:a") {
		t.Error("refocus duty should fall on the earliest-declared speaker")
	}
}

func TestAsk_NoRefocusWhenOnTopic(t *testing.T) {
	onTopic := "Entanglement links the measured states of distant particles, a puzzle Einstein disliked and experiments keep confirming."
	client := newRoundtableClient()
	client.script("a", say(onTopic), 0)
	client.script("b", say(onTopic), 0)

	sched := newScheduler(t, client, testAgent("a", "A"), testAgent("b", "B"))
	if _, err := sched.Ask(context.Background(), "explain entanglement"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	for _, p := range client.systemPrompts() {
		if strings.Contains(p, "steer the topic back") {
			t.Fatal("no refocus directive should be issued while replies stay on topic")
		}
	}
}

func TestAsk_ContextCancellation(t *testing.T) {
	client := newRoundtableClient()
	client.script("a", say("a"), 50*time.Millisecond)
	client.script("b", say("b"), 50*time.Millisecond)

	sched := newScheduler(t, client, testAgent("a", "A"), testAgent("b", "B"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sched.Ask(ctx, "anyone?"); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if sched.Busy() {
		t.Error("scheduler must not stay busy after a cancelled turn")
	}

	// The scripted client ignores the context and still returns replies;
	// none of them may be written once the turn is cancelled.
	if got := agentIDs(sched.Transcript()); len(got) != 0 {
		t.Errorf("cancelled turn committed agent replies: %v", got)
	}
	if sched.Log().Len() != 1 {
		t.Errorf("got %d messages after cancellation, want only the question", sched.Log().Len())
	}
}

func TestAsk_RepeatedRunsProduceIdenticalTranscripts(t *testing.T) {
	// Same scripts, fresh state, two runs: latency skew and a broadcast
	// failure must not change what the transcript reads.
	build := func() *scheduler.Scheduler {
		client := newRoundtableClient()
		client.script("a", say("a0", "a1", "a2"), 30*time.Millisecond)
		client.script("b", append(fail(errors.New("flaky")), say("b1", "b2")...), 0)
		client.script("c", say("c0", "c1", "c2"), 10*time.Millisecond)
		return newScheduler(t, client, testAgent("a", "A"), testAgent("b", "B"), testAgent("c", "C"))
	}

	type entry struct {
		sender  transcript.Sender
		agentID string
		text    string
	}
	run := func(sched *scheduler.Scheduler) []entry {
		for _, q := range []string{"first question", "second question"} {
			if _, err := sched.Ask(context.Background(), q); err != nil {
				t.Fatalf("Ask(%q) failed: %v", q, err)
			}
		}
		var got []entry
		for _, m := range sched.Transcript() {
			got = append(got, entry{m.Sender, m.AgentID, m.Text})
		}
		return got
	}

	first := run(build())
	second := run(build())
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Errorf("transcripts diverged between runs:\n%v\n%v", first, second)
	}
}
