package worker

import (
	"github.com/ahrav/go-coach/internal/scoring"
	"github.com/ahrav/go-coach/internal/workflow"
)

// Registry is the registration half of a Temporal worker. Both
// sdkworker.Worker and the test workflow environment satisfy it.
type Registry interface {
	RegisterWorkflow(w interface{})
	RegisterActivity(a interface{})
}

// RegisterAll registers the batch evaluation workflow and its activities.
// It must be called once during worker initialization, before the worker
// starts. Activities are registered one method at a time because the
// embedded activity base has helper methods that are not activities.
func RegisterAll(w Registry, acts *scoring.Activities) {
	w.RegisterWorkflow(workflow.BatchEvaluationWorkflow)

	w.RegisterActivity(acts.ScoreExtractionExample)
	w.RegisterActivity(acts.ScoreGenerationExample)
	w.RegisterActivity(acts.RecordEvaluationCompleted)
}
