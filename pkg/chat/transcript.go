package chat

import (
	"time"

	"github.com/google/uuid"
)

type EventOp string

const (
	OpAppend EventOp = "append"
	OpRemove EventOp = "remove"
	OpReset  EventOp = "reset"
)

// Event describes one transcript mutation so a browser can patch its
// message list in place.
type Event struct {
	Seq       uint64    `json:"seq"`
	Op        EventOp   `json:"op"`
	SessionId string    `json:"session_id"`
	Message   *Message  `json:"message,omitempty"`
	MessageId string    `json:"message_id,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}

// Sink receives transcript events in mutation order. Emit must not block
// for long; it is called with the controller lock held.
type Sink interface {
	Emit(event Event)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// Transcript is the ordered message list of one session. It is not safe for
// concurrent use; Controller serializes access.
type Transcript struct {
	messages  []Message
	sessionId string
	seq       uint64
	newId     func() string
	now       func() time.Time
	sink      Sink
}

func NewTranscript(sessionId string, sink Sink) *Transcript {
	if sink == nil {
		sink = nopSink{}
	}
	return &Transcript{
		sessionId: sessionId,
		newId:     uuid.NewString,
		now:       time.Now,
		sink:      sink,
	}
}

// Append adds m at the end, assigning its id and timestamp.
func (t *Transcript) Append(m Message) Message {
	m.Id = t.newId()
	m.CreatedAt = t.now()
	t.messages = append(t.messages, m)

	emitted := m
	t.emit(Event{Op: OpAppend, Message: &emitted})
	return m
}

// Remove deletes the message with id. It reports whether one was found.
func (t *Transcript) Remove(id string) bool {
	for i, m := range t.messages {
		if m.Id == id {
			t.messages = append(t.messages[:i:i], t.messages[i+1:]...)
			t.emit(Event{Op: OpRemove, MessageId: id})
			return true
		}
	}
	return false
}

// Reset drops every message and starts sessionId with a single greeting.
func (t *Transcript) Reset(sessionId string, greeting Message) Message {
	t.sessionId = sessionId
	greeting.Id = t.newId()
	greeting.CreatedAt = t.now()
	t.messages = []Message{greeting}

	t.emit(Event{Op: OpReset, Messages: t.Messages()})
	return greeting
}

// Messages returns a copy of the transcript in order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

func (t *Transcript) emit(e Event) {
	t.seq++
	e.Seq = t.seq
	e.SessionId = t.sessionId
	t.sink.Emit(e)
}
