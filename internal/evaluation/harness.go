package evaluation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ahrav/go-coach/internal/domain"
	pkgactivity "github.com/ahrav/go-coach/pkg/activity"
)

// Scorer scores single examples. scoring.Activities satisfies it.
type Scorer interface {
	ScoreExtractionExample(ctx context.Context, ex domain.ExtractionExample) (domain.ExampleResult, error)
	ScoreGenerationExample(ctx context.Context, ex domain.GenerationExample) (domain.ExampleResult, error)
	RecordEvaluationCompleted(ctx context.Context, report domain.EvaluationReport) error
}

// Harness runs evaluation requests in-process, without a Temporal worker.
// Examples run one after another; the collaborators' governor sets the
// pace.
type Harness struct {
	scorer Scorer
	logger *slog.Logger
}

// NewHarness creates a harness over scorer.
func NewHarness(scorer Scorer, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harness{scorer: scorer, logger: logger.With("component", "evaluation")}
}

// Run evaluates every example selected by req. A failed collaborator call
// scores 0 and is reported in the result; it never aborts the batch. Only
// an invalid request or a cancelled context returns an error.
func (h *Harness) Run(ctx context.Context, req domain.EvaluationRequest) (domain.EvaluationReport, error) {
	if err := req.Validate(); err != nil {
		return domain.EvaluationReport{}, err
	}
	ctx = pkgactivity.WithLocalRun(ctx, "eval-"+uuid.NewString()[:8])

	n := req.Size()
	results := make([]domain.ExampleResult, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return domain.EvaluationReport{}, err
		}

		var (
			res domain.ExampleResult
			err error
			id  string
		)
		switch req.Kind {
		case domain.EvaluationExtraction:
			id = req.Extraction[i].ID
			res, err = h.scorer.ScoreExtractionExample(ctx, req.Extraction[i])
		case domain.EvaluationGeneration:
			id = req.Generation[i].ID
			res, err = h.scorer.ScoreGenerationExample(ctx, req.Generation[i])
		}
		if err != nil {
			h.logger.Warn("example failed", "kind", req.Kind, "example_id", id, "error", err)
			res = domain.ExampleResult{ID: id, Error: err.Error()}
		}
		h.logger.Debug("example scored", "kind", req.Kind, "example_id", id, "score", res.Score)
		results = append(results, res)
	}

	report := domain.NewEvaluationReport(req.Kind, req.Label, results)
	if err := h.scorer.RecordEvaluationCompleted(ctx, report); err != nil {
		h.logger.Warn("failed to record evaluation summary", "label", report.Label, "error", err)
	}
	h.logger.Info("evaluation completed",
		"kind", report.Kind,
		"label", report.Label,
		"examples", len(report.Results),
		"failed", report.Failed,
		"mean", report.Mean)
	return report, nil
}

// EvaluateExtraction runs the extractor over examples.
func (h *Harness) EvaluateExtraction(ctx context.Context, label string, examples []domain.ExtractionExample) (domain.EvaluationReport, error) {
	return h.Run(ctx, domain.EvaluationRequest{Kind: domain.EvaluationExtraction, Label: label, Extraction: examples})
}

// EvaluateGeneration runs the generator over examples.
func (h *Harness) EvaluateGeneration(ctx context.Context, label string, examples []domain.GenerationExample) (domain.EvaluationReport, error) {
	return h.Run(ctx, domain.EvaluationRequest{Kind: domain.EvaluationGeneration, Label: label, Generation: examples})
}
