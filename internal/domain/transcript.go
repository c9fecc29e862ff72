package domain

import (
	"strings"
	"sync/atomic"
)

// Speaker identifies who produced a conversation turn.
type Speaker string

// Speakers.
const (
	SpeakerUser  Speaker = "user"
	SpeakerCoach Speaker = "coach"
)

// ConversationTurn is one message of the transcript. Turns are values and
// never change once appended.
type ConversationTurn struct {
	Speaker Speaker `json:"speaker" yaml:"speaker"`
	Text    string  `json:"text" yaml:"text"`
}

// UserTurn is a convenience constructor for a user message.
func UserTurn(text string) ConversationTurn {
	return ConversationTurn{Speaker: SpeakerUser, Text: text}
}

// CoachTurn is a convenience constructor for a coach reply.
func CoachTurn(text string) ConversationTurn {
	return ConversationTurn{Speaker: SpeakerCoach, Text: text}
}

// Transcript is an immutable, ordered conversation history with
// copy-on-write semantics. The backing slice is never mutated; Append
// returns a new Transcript so a failed turn can simply drop its copy.
type Transcript struct {
	// turns holds the immutable []ConversationTurn via atomic.Value for lock-free reads.
	turns atomic.Value
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	t := new(Transcript)
	t.turns.Store([]ConversationTurn(nil))
	return t
}

// NewTranscriptWithTurns creates a transcript from existing turns.
// The input is copied to preserve immutability.
func NewTranscriptWithTurns(turns []ConversationTurn) *Transcript {
	copied := make([]ConversationTurn, len(turns))
	copy(copied, turns)
	t := new(Transcript)
	t.turns.Store(copied)
	return t
}

func (t *Transcript) load() []ConversationTurn {
	if t == nil {
		return nil
	}
	turns, _ := t.turns.Load().([]ConversationTurn)
	return turns
}

// Append returns a new transcript with the given turns added at the end.
// The receiver is not modified.
func (t *Transcript) Append(turns ...ConversationTurn) *Transcript {
	old := t.load()
	next := make([]ConversationTurn, 0, len(old)+len(turns))
	next = append(next, old...)
	next = append(next, turns...)

	nt := new(Transcript)
	nt.turns.Store(next)
	return nt
}

// Turns returns a copy of the turns in insertion order.
func (t *Transcript) Turns() []ConversationTurn {
	old := t.load()
	out := make([]ConversationTurn, len(old))
	copy(out, old)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int { return len(t.load()) }

// IsEmpty reports whether the transcript has no turns.
func (t *Transcript) IsEmpty() bool { return t.Len() == 0 }

// String renders the transcript as the literal replay text handed to the
// responder and extractor, one "speaker: text" line per turn.
func (t *Transcript) String() string {
	var b strings.Builder
	for i, turn := range t.load() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(turn.Speaker))
		b.WriteString(": ")
		b.WriteString(turn.Text)
	}
	return b.String()
}
