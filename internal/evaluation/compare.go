package evaluation

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/ahrav/go-coach/internal/domain"
)

// Compare reports how candidate scored relative to baseline. Per-example
// deltas cover only IDs present in both reports; the overall delta is the
// difference of the means.
func Compare(baseline, candidate domain.EvaluationReport) domain.Comparison {
	base := make(map[string]float64, len(baseline.Results))
	for _, r := range baseline.Results {
		base[r.ID] = r.Score
	}

	perID := make(map[string]float64, len(candidate.Results))
	for _, r := range candidate.Results {
		if b, ok := base[r.ID]; ok {
			perID[r.ID] = r.Score - b
		}
	}

	return domain.Comparison{
		Baseline:  baseline.Label,
		Candidate: candidate.Label,
		Delta:     candidate.Mean - baseline.Mean,
		PerID:     perID,
	}
}

// WriteReport prints one line per example followed by the summary.
func WriteReport(w io.Writer, report domain.EvaluationReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tSCORE\tDETAIL\n")
	for _, r := range report.Results {
		detail := ""
		switch {
		case r.Failed():
			detail = "error: " + r.Error
		case len(r.Mismatches) > 0:
			detail = fmt.Sprintf("mismatched: %v", r.Mismatches)
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%s\n", r.ID, r.Score, detail)
	}
	fmt.Fprintf(tw, "\nmean\t%.3f\t%d examples, %d failed\n", report.Mean, len(report.Results), report.Failed)
	return tw.Flush()
}

// WriteComparison prints the per-example deltas in ID order.
func WriteComparison(w io.Writer, c domain.Comparison) error {
	ids := make([]string, 0, len(c.PerID))
	for id := range c.PerID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tDELTA\n")
	for _, id := range ids {
		fmt.Fprintf(tw, "%s\t%+.3f\n", id, c.PerID[id])
	}
	fmt.Fprintf(tw, "\n%s -> %s\t%+.3f\n", c.Baseline, c.Candidate, c.Delta)
	return tw.Flush()
}
