package domain

import (
	"fmt"
)

// EvaluationKind names which collaborator a batch evaluation exercises.
type EvaluationKind string

// Evaluation kinds.
const (
	EvaluationExtraction EvaluationKind = "extraction"
	EvaluationGeneration EvaluationKind = "generation"
)

// Valid reports whether k is a known kind.
func (k EvaluationKind) Valid() bool {
	return k == EvaluationExtraction || k == EvaluationGeneration
}

// ExtractionExample pairs a transcript with the fields an extractor should
// recover from it.
type ExtractionExample struct {
	ID         string             `json:"id" yaml:"id" validate:"required"`
	Transcript []ConversationTurn `json:"transcript" yaml:"transcript" validate:"required,min=1,dive"`
	Expected   FieldSet           `json:"expected" yaml:"expected"`
}

// GenerationExample is a set of requirements a generator should plan for.
type GenerationExample struct {
	ID     string   `json:"id" yaml:"id" validate:"required"`
	Fields FieldSet `json:"fields" yaml:"fields"`
}

// ExampleResult is the score of one example. A failed collaborator call
// scores 0 and carries the error text.
type ExampleResult struct {
	ID         string             `json:"id"`
	Score      float64            `json:"score"`
	Error      string             `json:"error,omitempty"`
	Mismatches []Field            `json:"mismatches,omitempty"`
	Criteria   map[string]float64 `json:"criteria,omitempty"`
}

// Failed reports whether the collaborator call failed.
func (r ExampleResult) Failed() bool { return r.Error != "" }

// EvaluationRequest is the input of a batch evaluation run. Exactly one of
// the example slices is used, selected by Kind.
type EvaluationRequest struct {
	Kind       EvaluationKind      `json:"kind" validate:"required"`
	Label      string              `json:"label"`
	Limit      int                 `json:"limit" validate:"min=0"`
	Extraction []ExtractionExample `json:"extraction,omitempty" validate:"dive"`
	Generation []GenerationExample `json:"generation,omitempty" validate:"dive"`
}

// Validate checks the request is runnable.
func (r *EvaluationRequest) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown evaluation kind %q", r.Kind)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid evaluation request: %w", err)
	}
	if r.Size() == 0 {
		return fmt.Errorf("evaluation request %q has no %s examples", r.Label, r.Kind)
	}
	return nil
}

// Size is the number of examples that will run, after Limit.
func (r *EvaluationRequest) Size() int {
	n := len(r.Extraction)
	if r.Kind == EvaluationGeneration {
		n = len(r.Generation)
	}
	if r.Limit > 0 && r.Limit < n {
		return r.Limit
	}
	return n
}

// EvaluationReport aggregates the results of one batch run.
type EvaluationReport struct {
	Kind    EvaluationKind  `json:"kind"`
	Label   string          `json:"label"`
	Results []ExampleResult `json:"results"`
	Mean    float64         `json:"mean"`
	Failed  int             `json:"failed"`
}

// NewEvaluationReport computes the mean score over results. Failed examples
// count as 0 in the mean.
func NewEvaluationReport(kind EvaluationKind, label string, results []ExampleResult) EvaluationReport {
	r := EvaluationReport{Kind: kind, Label: label, Results: results}
	if len(results) == 0 {
		return r
	}
	var sum float64
	for _, res := range results {
		sum += res.Score
		if res.Failed() {
			r.Failed++
		}
	}
	r.Mean = sum / float64(len(results))
	return r
}

// Comparison is the per-example and overall delta between two runs over the
// same dataset.
type Comparison struct {
	Baseline  string             `json:"baseline"`
	Candidate string             `json:"candidate"`
	Delta     float64            `json:"delta"`
	PerID     map[string]float64 `json:"per_id"`
}

// Improved reports whether the candidate outscored the baseline.
func (c Comparison) Improved() bool { return c.Delta > 0 }
