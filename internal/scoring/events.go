package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-coach/internal/domain"
	"github.com/ahrav/go-coach/pkg/activity"
)

// EventEmitter emits scoring events through the activity infrastructure.
// Emission is best-effort and never affects the score.
type EventEmitter struct{ base activity.BaseActivities }

// NewEventEmitter creates an emitter on top of base.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// EmitExampleScored emits one ExampleScored event. The idempotency key is
// scoped to the workflow run so activity retries do not duplicate it.
func (e *EventEmitter) EmitExampleScored(ctx context.Context, kind domain.EvaluationKind, res domain.ExampleResult) {
	wfCtx := e.base.GetWorkflowContext(ctx)

	envelope, err := domain.NewEvent(
		domain.EventTypeExampleScored,
		"scoring-activity",
		wfCtx.WorkflowID+":"+wfCtx.RunID,
		fmt.Sprintf(":%s:%s", kind, res.ID),
		domain.ExampleScoredPayload{Kind: kind, ExampleID: res.ID, Score: res.Score, Error: res.Error},
		time.Now(),
	)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create ExampleScored event",
			"example_id", res.ID,
			"error", err)
		return
	}
	envelope.WorkflowID = wfCtx.WorkflowID
	envelope.RunID = wfCtx.RunID

	e.base.EmitEventSafe(ctx, envelope, "ExampleScored")
}

// EmitEvaluationCompleted emits the batch summary event.
func (e *EventEmitter) EmitEvaluationCompleted(ctx context.Context, report domain.EvaluationReport) {
	wfCtx := e.base.GetWorkflowContext(ctx)

	envelope, err := domain.NewEvent(
		domain.EventTypeEvaluationCompleted,
		"scoring-activity",
		wfCtx.WorkflowID+":"+wfCtx.RunID,
		fmt.Sprintf(":%s:%s:completed", report.Kind, report.Label),
		domain.EvaluationCompletedPayload{
			Kind:     report.Kind,
			Label:    report.Label,
			Mean:     report.Mean,
			Examples: len(report.Results),
			Failed:   report.Failed,
		},
		time.Now(),
	)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create EvaluationCompleted event",
			"label", report.Label,
			"error", err)
		return
	}
	envelope.WorkflowID = wfCtx.WorkflowID
	envelope.RunID = wfCtx.RunID

	e.base.EmitEventSafe(ctx, envelope, "EvaluationCompleted")
}
