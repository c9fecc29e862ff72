package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/ahrav/go-coach/internal/domain"
	"github.com/ahrav/go-coach/internal/evaluation"
	"github.com/ahrav/go-coach/internal/workflow"
	"github.com/ahrav/go-coach/internal/worker"
)

type evalOptions struct {
	dataset  string
	kind     string
	label    string
	limit    int
	out      string
	baseline string
	temporal bool
}

func newEvalCommand(root *rootOptions) *cobra.Command {
	opts := &evalOptions{}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score the extractor or generator over a YAML dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ds, err := evaluation.LoadDataset(opts.dataset)
			if err != nil {
				return err
			}
			req, err := ds.Request(domain.EvaluationKind(opts.kind), opts.label, opts.limit)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var report domain.EvaluationReport
			if opts.temporal {
				c, err := dialTemporal(cfg.Temporal, logger)
				if err != nil {
					return err
				}
				defer c.Close()

				run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
					ID:        fmt.Sprintf("batch-eval-%s-%s", req.Kind, uuid.NewString()[:8]),
					TaskQueue: cfg.Temporal.TaskQueue,
				}, workflow.BatchEvaluationWorkflow, req)
				if err != nil {
					return fmt.Errorf("start workflow: %w", err)
				}
				logger.Info("started batch evaluation", "workflow_id", run.GetID(), "run_id", run.GetRunID())
				if err := run.Get(ctx, &report); err != nil {
					return fmt.Errorf("batch evaluation: %w", err)
				}
			} else {
				if cfg.Provider.ResolveAPIKey() == "" {
					return fmt.Errorf("set %s or provider.api_key", cfg.Provider.APIKeyEnv)
				}
				deps, err := worker.Setup(cfg, logger)
				if err != nil {
					return err
				}
				defer deps.Close()

				start := time.Now()
				report, err = evaluation.NewHarness(deps.NewScoringActivities(), logger).Run(ctx, req)
				if err != nil {
					return err
				}
				logger.Info("evaluation finished", "elapsed", time.Since(start))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, bold(fmt.Sprintf("%s evaluation: %s", report.Kind, report.Label)))
			if err := evaluation.WriteReport(out, report); err != nil {
				return err
			}

			if opts.out != "" {
				if err := writeReportFile(opts.out, report); err != nil {
					return err
				}
			}
			if opts.baseline != "" {
				base, err := readReportFile(opts.baseline)
				if err != nil {
					return err
				}
				cmp := evaluation.Compare(base, report)
				fmt.Fprintln(out)
				if err := evaluation.WriteComparison(out, cmp); err != nil {
					return err
				}
				if cmp.Improved() {
					fmt.Fprintln(out, green("candidate improved on baseline"))
				} else {
					fmt.Fprintln(out, yellow("candidate did not improve on baseline"))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.dataset, "dataset", "d", "datasets/coach.yaml", "YAML dataset file")
	cmd.Flags().StringVarP(&opts.kind, "kind", "k", string(domain.EvaluationExtraction), "extraction or generation")
	cmd.Flags().StringVarP(&opts.label, "label", "l", "", "run label (default dataset name)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "evaluate at most n examples (0 = all)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the report as JSON")
	cmd.Flags().StringVar(&opts.baseline, "baseline", "", "JSON report to compare against")
	cmd.Flags().BoolVar(&opts.temporal, "temporal", false, "run through the Temporal worker instead of in-process")
	return cmd
}

func writeReportFile(path string, report domain.EvaluationReport) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readReportFile(path string) (domain.EvaluationReport, error) {
	var report domain.EvaluationReport
	b, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("read baseline: %w", err)
	}
	if err := json.Unmarshal(b, &report); err != nil {
		return report, fmt.Errorf("decode baseline %s: %w", path, err)
	}
	return report, nil
}
