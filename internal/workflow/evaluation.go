package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-coach/internal/domain"
	"github.com/ahrav/go-coach/internal/scoring"
)

// Activity timing. One scoring activity makes a single paced model call, so
// the start-to-close budget covers the longest pacing wait plus the
// provider timeout.
const (
	scoreActivityTimeout  = 2 * time.Minute
	recordActivityTimeout = 30 * time.Second
)

// BatchEvaluationWorkflow scores every example selected by req, one at a
// time, and returns the aggregated report. A failed example scores 0 and
// carries the error; it never fails the workflow. Only an invalid request
// does.
func BatchEvaluationWorkflow(
	ctx workflow.Context,
	req domain.EvaluationRequest,
) (domain.EvaluationReport, error) {
	// Version gate enables safe evolution and backward compatibility.
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "batch-evaluation.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return domain.EvaluationReport{}, temporal.NewNonRetryableApplicationError(
			"invalid evaluation request",
			"Validation",
			err,
		)
	}

	logger := workflow.GetLogger(ctx)
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: scoreActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	actx := workflow.WithActivityOptions(ctx, ao)

	// Method values on a nil receiver only name the registered activities.
	var acts *scoring.Activities

	n := req.Size()
	results := make([]domain.ExampleResult, 0, n)
	for i := 0; i < n; i++ {
		var (
			res domain.ExampleResult
			err error
			id  string
		)
		switch req.Kind {
		case domain.EvaluationExtraction:
			id = req.Extraction[i].ID
			err = workflow.ExecuteActivity(actx, acts.ScoreExtractionExample, req.Extraction[i]).Get(ctx, &res)
		case domain.EvaluationGeneration:
			id = req.Generation[i].ID
			err = workflow.ExecuteActivity(actx, acts.ScoreGenerationExample, req.Generation[i]).Get(ctx, &res)
		}
		if err != nil {
			logger.Warn("Example failed", "kind", req.Kind, "example_id", id, "error", err)
			res = domain.ExampleResult{ID: id, Error: err.Error()}
		}
		results = append(results, res)
	}

	report := domain.NewEvaluationReport(req.Kind, req.Label, results)

	rctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: recordActivityTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	})
	if err := workflow.ExecuteActivity(rctx, acts.RecordEvaluationCompleted, report).Get(ctx, nil); err != nil {
		logger.Warn("Failed to record evaluation summary", "error", err)
	}

	logger.Info("Batch evaluation completed",
		"kind", report.Kind,
		"label", report.Label,
		"examples", len(report.Results),
		"failed", report.Failed,
		"mean", report.Mean)
	return report, nil
}
