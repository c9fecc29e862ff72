// Package events provides the event infrastructure shared by the coach
// session and the evaluation activities. It defines the Envelope that wraps
// every domain event with routing and deduplication metadata, and the
// EventSink interface events are written to.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope wraps a domain event payload with consistent metadata so any
// sink can route, deduplicate and correlate events without knowing the
// payload schema.
//
// The same envelope carries both kinds of events this module emits:
//   - interactive session events (turn processed, fields extracted, plan
//     generated, turn failed), where WorkflowID and RunID are empty and the
//     idempotency key is scoped by session ID;
//   - batch evaluation events (example scored, evaluation completed), where
//     the workflow fields identify the Temporal run, or the local run tag
//     when a batch runs in-process.
type Envelope struct {
	// ID uniquely identifies this event instance.
	// Generated as a UUID for each emission, including retries.
	ID string `json:"id"`

	// Type identifies the event for routing.
	// Examples: "coach.plan_generated", "evaluation.example_scored"
	Type string `json:"type"`

	// Source identifies the component that emitted this event.
	// Examples: "coach.session", "scoring-activity"
	Source string `json:"source"`

	// Version of the payload schema. Bump it when a payload changes shape.
	Version string `json:"version"`

	// Timestamp records when the event was emitted. Sessions take it from
	// their injected clock so tests can pin it.
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey is stable across retries of the same logical event.
	// It is derived from the emitting scope (session or run) and an event
	// suffix such as ":turn:3".
	IdempotencyKey string `json:"idempotency_key"`

	// WorkflowID identifies the Temporal workflow that triggered this event.
	// Empty for interactive sessions.
	WorkflowID string `json:"workflow_id,omitempty"`

	// RunID identifies the specific workflow execution run.
	// Distinguishes retries of the same workflow.
	RunID string `json:"run_id,omitempty"`

	// Payload contains the event data as JSON.
	// Schema varies by Type and Version.
	Payload json.RawMessage `json:"payload"`
}

// EventSink receives emitted events. Implementations in this package log
// them (SlogSink), keep them in memory (MemorySink) or fan them out to
// several sinks (Fanout).
//
// Sinks are best-effort by contract:
//   - Append must return quickly; callers emit inline on the turn path.
//   - A duplicate idempotency key should be a no-op.
//   - An Append error is logged by the caller and never fails a turn or an
//     activity.
type EventSink interface {
	// Append adds an event to the sink with best-effort delivery.
	// Implementations should treat duplicate idempotency keys as no-ops.
	// Callers never fail their primary operation on an Append error.
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event. It is the default for sessions and
// activities built without a sink.
type NoOpEventSink struct{}

// Append implements EventSink.Append with no-op behavior.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error {
	return nil // Always succeeds
}

// NewNoOpEventSink creates a new no-op event sink.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}
