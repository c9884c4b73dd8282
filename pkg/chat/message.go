package chat

import (
	"fmt"
	"strings"
	"time"
)

// Kind tags a transcript entry. Render code must handle every kind.
type Kind int

const (
	KindUser Kind = iota + 1
	KindAssistant
	KindReasoning
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAssistant:
		return "assistant"
	case KindReasoning:
		return "reasoning"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) Valid() bool {
	return k == KindUser || k == KindAssistant || k == KindReasoning
}

// Step is one reasoning step returned next to an answer.
// Structured steps hold indented JSON rather than prose.
type Step struct {
	Number     int    `json:"number"`
	Content    string `json:"content"`
	Structured bool   `json:"structured"`
}

// Message is one transcript entry. Text carries the body for user messages,
// the placeholder, greetings, errors and answers; Steps and Sources are only
// set on reasoning summaries and answers respectively.
type Message struct {
	Id          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Text        string    `json:"text,omitempty"`
	Steps       []Step    `json:"steps,omitempty"`
	Sources     []string  `json:"sources,omitempty"`
	Placeholder bool      `json:"placeholder,omitempty"`
	Answer      bool      `json:"answer,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Content is the flattened text form of the message.
func (m Message) Content() string {
	var b strings.Builder
	if len(m.Steps) > 0 {
		b.WriteString(ThinkingProcessHeading)
		for _, s := range m.Steps {
			fmt.Fprintf(&b, "\nStep %d: %s", s.Number, s.Content)
		}
		return b.String()
	}
	if len(m.Sources) > 0 {
		b.WriteString(SourcesHeading)
		for _, s := range m.Sources {
			b.WriteString("\n")
			b.WriteString(s)
		}
		b.WriteString("\n\n")
	}
	if m.Answer {
		b.WriteString(AnswerHeading)
		b.WriteString("\n")
	}
	b.WriteString(m.Text)
	return b.String()
}
