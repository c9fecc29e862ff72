package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-coach/pkg/events"
)

// EventType represents the type of event emitted by the system.
type EventType string

const (
	// EventTypeTurnProcessed is emitted after every committed conversation turn.
	EventTypeTurnProcessed EventType = "coach.turn_processed"

	// EventTypeTurnFailed is emitted when a collaborator call aborts a turn.
	EventTypeTurnFailed EventType = "coach.turn_failed"

	// EventTypeFieldsExtracted is emitted after each completeness gate check.
	EventTypeFieldsExtracted EventType = "coach.fields_extracted"

	// EventTypePlanGenerated is emitted when a plan is delivered to the user.
	EventTypePlanGenerated EventType = "coach.plan_generated"

	// EventTypeExampleScored is emitted once per scored evaluation example.
	EventTypeExampleScored EventType = "evaluation.example_scored"

	// EventTypeEvaluationCompleted is emitted when a batch evaluation finishes.
	EventTypeEvaluationCompleted EventType = "evaluation.completed"
)

// eventVersion is the payload schema version of every event type.
const eventVersion = "1.0.0"

// TurnProcessedPayload describes a committed turn.
type TurnProcessedPayload struct {
	SessionID     string  `json:"session_id" validate:"required,uuid"`
	Turn          int     `json:"turn" validate:"min=1"`
	State         string  `json:"state" validate:"required"`
	ShouldExtract bool    `json:"should_extract"`
	ReplyQuality  float64 `json:"reply_quality" validate:"gte=0,lte=1"`
}

// TurnFailedPayload describes a turn rolled back after a collaborator failure.
type TurnFailedPayload struct {
	SessionID    string `json:"session_id" validate:"required,uuid"`
	State        string `json:"state" validate:"required"`
	Collaborator string `json:"collaborator" validate:"required"`
	ErrorType    string `json:"error_type" validate:"required"`
}

// FieldsExtractedPayload records the outcome of a completeness gate check.
type FieldsExtractedPayload struct {
	SessionID string  `json:"session_id" validate:"required,uuid"`
	Missing   []Field `json:"missing"`
	Complete  bool    `json:"complete"`
}

// PlanGeneratedPayload records a delivered plan and its rubric score.
type PlanGeneratedPayload struct {
	SessionID string   `json:"session_id" validate:"required,uuid"`
	Exercises int      `json:"exercises" validate:"min=0"`
	Score     *float64 `json:"score,omitempty" validate:"omitempty,min=0,max=1"`
	Repaired  bool     `json:"repaired"`
}

// ExampleScoredPayload records one scored evaluation example.
type ExampleScoredPayload struct {
	Kind      EvaluationKind `json:"kind" validate:"required"`
	ExampleID string         `json:"example_id" validate:"required"`
	Score     float64        `json:"score" validate:"min=0,max=1"`
	Error     string         `json:"error,omitempty"`
}

// EvaluationCompletedPayload summarizes a batch evaluation.
type EvaluationCompletedPayload struct {
	Kind     EvaluationKind `json:"kind" validate:"required"`
	Label    string         `json:"label"`
	Mean     float64        `json:"mean" validate:"min=0,max=1"`
	Examples int            `json:"examples" validate:"min=0"`
	Failed   int            `json:"failed" validate:"min=0"`
}

// GenerateIdempotencyKey creates a deterministic key for event deduplication.
// Retries of the same logical event (same scope and suffix) produce the same
// key.
func GenerateIdempotencyKey(scope, eventSuffix string) string {
	hasher := sha256.New()
	hasher.Write([]byte(scope + eventSuffix))
	return hex.EncodeToString(hasher.Sum(nil))
}

// NewEvent validates payload and wraps it in an envelope. scope identifies
// the session or workflow run the event belongs to; suffix distinguishes
// events within it.
func NewEvent(
	eventType EventType,
	source, scope, suffix string,
	payload any,
	occurredAt time.Time,
) (events.Envelope, error) {
	if err := validate.Struct(payload); err != nil {
		return events.Envelope{}, fmt.Errorf("invalid %s payload: %w", eventType, err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return events.Envelope{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return events.Envelope{
		ID:             uuid.NewString(),
		Type:           string(eventType),
		Source:         source,
		Version:        eventVersion,
		Timestamp:      occurredAt,
		IdempotencyKey: GenerateIdempotencyKey(scope, suffix),
		Payload:        payloadJSON,
	}, nil
}
