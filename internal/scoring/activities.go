package scoring

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-coach/internal/domain"
	llmerrors "github.com/ahrav/go-coach/internal/llm/errors"
	pkgactivity "github.com/ahrav/go-coach/pkg/activity"
)

// Extractor recovers a FieldSet from a transcript.
type Extractor interface {
	Extract(ctx context.Context, transcript *domain.Transcript) (domain.FieldSet, error)
}

// Generator produces a plan for a complete FieldSet.
type Generator interface {
	Generate(ctx context.Context, fields domain.FieldSet) (domain.PlanPayload, error)
}

// Activities scores evaluation examples against live collaborators. The
// methods are Temporal activities but are equally callable directly, which
// is how the local evaluation harness runs them.
type Activities struct {
	pkgactivity.BaseActivities
	extractor Extractor
	generator Generator
	events    *EventEmitter
}

// NewActivities creates scoring activities. Either collaborator may be nil
// when only one kind of evaluation is run.
func NewActivities(base pkgactivity.BaseActivities, extractor Extractor, generator Generator) *Activities {
	return &Activities{
		BaseActivities: base,
		extractor:      extractor,
		generator:      generator,
		events:         NewEventEmitter(base),
	}
}

// ScoreExtractionExample runs the extractor over the example transcript and
// scores its fields against the expected ones.
func (a *Activities) ScoreExtractionExample(
	ctx context.Context,
	ex domain.ExtractionExample,
) (domain.ExampleResult, error) {
	if a.extractor == nil {
		return domain.ExampleResult{}, nonRetryable("ScoreExtractionExample",
			fmt.Errorf("no extractor configured"), "missing collaborator")
	}
	if ex.ID == "" || len(ex.Transcript) == 0 {
		return domain.ExampleResult{}, nonRetryable("ScoreExtractionExample",
			fmt.Errorf("example %q has no transcript", ex.ID), "invalid input")
	}

	a.RecordHeartbeat(ctx, ex.ID)
	predicted, err := a.extractor.Extract(ctx, domain.NewTranscriptWithTurns(ex.Transcript))
	if err != nil {
		return domain.ExampleResult{}, classify("ScoreExtractionExample",
			llmerrors.NewExternalCallError(llmerrors.CollaboratorExtractor, err))
	}

	res := domain.ExampleResult{
		ID:         ex.ID,
		Score:      ScoreExtraction(ex.Expected, predicted),
		Mismatches: ExtractionMismatches(ex.Expected, predicted),
	}
	a.events.EmitExampleScored(ctx, domain.EvaluationExtraction, res)
	return res, nil
}

// ScoreGenerationExample generates a plan for the example's fields, with
// defaults applied, and scores it with the workout rubric.
func (a *Activities) ScoreGenerationExample(
	ctx context.Context,
	ex domain.GenerationExample,
) (domain.ExampleResult, error) {
	if a.generator == nil {
		return domain.ExampleResult{}, nonRetryable("ScoreGenerationExample",
			fmt.Errorf("no generator configured"), "missing collaborator")
	}
	if ex.ID == "" {
		return domain.ExampleResult{}, nonRetryable("ScoreGenerationExample",
			fmt.Errorf("example has no id"), "invalid input")
	}

	fields := ex.Fields.WithDefaults()
	a.RecordHeartbeat(ctx, ex.ID)
	payload, err := a.generator.Generate(ctx, fields)
	if err != nil {
		return domain.ExampleResult{}, classify("ScoreGenerationExample",
			llmerrors.NewExternalCallError(llmerrors.CollaboratorGenerator, err))
	}

	rubric := ScoreWorkoutDetailed(fields.Requirements(), payload)
	res := domain.ExampleResult{
		ID:       ex.ID,
		Score:    rubric.Score(),
		Criteria: rubric.Criteria(),
	}
	a.events.EmitExampleScored(ctx, domain.EvaluationGeneration, res)
	return res, nil
}

// RecordEvaluationCompleted emits the summary event for a finished batch.
// It is an activity so workflows can emit without side effects of their own.
func (a *Activities) RecordEvaluationCompleted(ctx context.Context, report domain.EvaluationReport) error {
	a.events.EmitEvaluationCompleted(ctx, report)
	return nil
}

// Criteria returns the rubric as a name to points map.
func (r Rubric) Criteria() map[string]float64 {
	return map[string]float64{
		"structure":      r.Structure,
		"exercise_count": r.ExerciseCount,
		"exercise_shape": r.ExerciseShape,
		"rep_range":      r.RepRange,
		"equipment":      r.Equipment,
	}
}

// classify maps a collaborator failure onto Temporal retry semantics.
func classify(tag string, err error) error {
	wf := llmerrors.ClassifyLLMError(err)
	if wf == nil {
		return nonRetryable(tag, err, "collaborator call failed")
	}
	if wf.ShouldRetry() {
		return retryable(wf.Tag(), err, wf.Message)
	}
	return nonRetryable(wf.Tag(), err, wf.Message)
}

func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}

func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}
