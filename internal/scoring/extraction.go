// Package scoring holds the deterministic quality metrics of the coach
// pipeline: extraction accuracy, the five-criterion workout rubric and the
// reply quality check. Every scorer is a pure function returning a value in
// [0, 1]; none of them fail. The package also exposes the Temporal
// activities that run one evaluation example through an inference
// collaborator and score the result.
package scoring

import "github.com/ahrav/go-coach/internal/domain"

// ScoreExtraction compares predicted against expected on the scored fields
// (every field except primary_lift_pr) and returns the fraction that match
// exactly. Comparison is case-sensitive. Two absent values are equal; an
// absent value never equals a present one.
func ScoreExtraction(expected, predicted domain.FieldSet) float64 {
	fields := domain.ScoredFields()
	matched := 0
	for _, f := range fields {
		if expected.Get(f) == predicted.Get(f) {
			matched++
		}
	}
	return float64(matched) / float64(len(fields))
}

// ExtractionMismatches lists the scored fields whose values differ, in
// canonical order. Evaluation reports use it to explain a score.
func ExtractionMismatches(expected, predicted domain.FieldSet) []domain.Field {
	var out []domain.Field
	for _, f := range domain.ScoredFields() {
		if expected.Get(f) != predicted.Get(f) {
			out = append(out, f)
		}
	}
	return out
}
