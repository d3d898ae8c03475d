// Package transcript maintains the canonical ordered message log for a
// conversation. The Log is the single writer of the transcript: messages are
// only ever appended, or individually rewritten in place while a streaming
// reply is still arriving.
package transcript

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a transcript message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "ai"
)

// Message is an atomic transcript entry. IDs are unique within a transcript
// and the slice order in Log is the canonical display and causal order.
// AgentID and AgentName are set only for agent-attributed messages.
type Message struct {
	ID        string `json:"id"`
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	AgentID   string `json:"agentId,omitempty"`
	AgentName string `json:"agentName,omitempty"`
}

// Log holds an ordered sequence of conversation messages. Safe for
// concurrent use.
type Log struct {
	id   string
	mu   sync.RWMutex
	seq  uint64
	msgs []Message
}

// NewLog creates an empty Log with a unique UUIDv7 conversation identifier.
func NewLog() *Log {
	return &Log{
		id: uuid.Must(uuid.NewV7()).String(),
	}
}

// ID returns the unique conversation identifier.
func (l *Log) ID() string {
	return l.id
}

// AppendUser appends a user message and returns it.
func (l *Log) AppendUser(text string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(Message{Sender: SenderUser, Text: text})
}

// AppendAgent appends an agent-attributed message and returns it.
func (l *Log) AppendAgent(agentID, agentName, text string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(Message{
		Sender:    SenderAgent,
		Text:      text,
		AgentID:   agentID,
		AgentName: agentName,
	})
}

// AppendNotice appends an unattributed system-style agent message, used for
// greetings and the generic failure apology.
func (l *Log) AppendNotice(text string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(Message{Sender: SenderAgent, Text: text})
}

func (l *Log) append(msg Message) Message {
	msg.ID = l.nextID()
	l.msgs = append(l.msgs, msg)
	return msg
}

// Rewrite replaces the text of the message with the given ID in place.
// Used for streaming placeholder messages whose text is progressively
// rewritten until the terminal value arrives. Reports whether a message
// with that ID exists.
func (l *Log) Rewrite(id, text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.msgs {
		if l.msgs[i].ID == id {
			l.msgs[i].Text = text
			return true
		}
	}
	return false
}

// Messages returns a defensive copy of the transcript.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.msgs)
}

// Len returns the number of messages in the transcript.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}

// nextID generates a collision-resistant message ID from a monotonically
// increasing per-log counter, the current timestamp, and a random suffix.
// Concurrent agent completions within one round therefore never collide.
// Callers must hold l.mu.
func (l *Log) nextID() string {
	l.seq++
	return fmt.Sprintf("msg-%d-%d-%09d", time.Now().UnixMilli(), l.seq, rand.Int31n(1_000_000_000))
}
