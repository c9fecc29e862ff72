// Package coach drives the intake conversation. A Session runs one user
// turn at a time through the responder, asks the extractor for a FieldSet
// when the responder says enough is known, and only generates a plan once
// the completeness gate finds every required field.
package coach

import (
	"context"

	"github.com/ahrav/go-coach/internal/domain"
)

// Responder produces the coach's conversational reply. transcript holds the
// turns before message; message is the new user input.
type Responder interface {
	Respond(ctx context.Context, transcript *domain.Transcript, message string) (domain.CoachReply, error)
}

// Extractor recovers structured requirements from the full transcript.
type Extractor interface {
	Extract(ctx context.Context, transcript *domain.Transcript) (domain.FieldSet, error)
}

// Generator produces a plan for a FieldSet with defaults applied.
type Generator interface {
	Generate(ctx context.Context, fields domain.FieldSet) (domain.PlanPayload, error)
}

// Gate decides whether a FieldSet is complete enough to generate a plan.
type Gate struct {
	required []domain.Field
}

// NewGate returns a gate over domain.RequiredFields.
func NewGate() Gate {
	return Gate{required: domain.RequiredFields()}
}

// Missing returns the required fields that are absent, in required-field
// order. Optional fields are never reported.
func (g Gate) Missing(fs domain.FieldSet) []domain.Field {
	required := g.required
	if required == nil {
		required = domain.RequiredFields()
	}
	return fs.Missing(required...)
}

// Complete reports whether no required field is missing.
func (g Gate) Complete(fs domain.FieldSet) bool {
	return len(g.Missing(fs)) == 0
}
