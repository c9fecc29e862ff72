package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-coach/internal/coach"
	"github.com/ahrav/go-coach/internal/worker"
)

func newChatCommand(root *rootOptions) *cobra.Command {
	var historyFile string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to Coach Nova and get a personalized workout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Provider.ResolveAPIKey() == "" {
				return fmt.Errorf("set %s or provider.api_key", cfg.Provider.APIKeyEnv)
			}

			ctx := cmd.Context()
			serveMetrics(ctx, cfg.Observability, logger)

			deps, err := worker.Setup(cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			var metrics *coach.Metrics
			if cfg.Observability.MetricsEnabled {
				metrics = coach.DefaultMetrics()
			}
			session := coach.NewSession(deps.Client, deps.Client, deps.Client,
				coach.WithLogger(logger),
				coach.WithMetrics(metrics),
				coach.WithEventSink(deps.Events),
				coach.WithPlanScoring(!cfg.Features.DisablePlanScoring),
				coach.WithJSONRepair(!cfg.Features.DisableJSONRepair),
			)

			if historyFile == "" {
				if home, err := os.UserHomeDir(); err == nil {
					historyFile = filepath.Join(home, ".coach-history")
				}
			}
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          green("You: "),
				HistoryFile:     historyFile,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdin:           readline.NewCancelableStdin(os.Stdin),
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize readline: %w", err)
			}
			defer rl.Close()

			out := cmd.OutOrStdout()
			printBanner(out, session.ID())

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}

				input := strings.TrimSpace(line)
				if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
					break
				}
				if input == "" {
					continue
				}

				printTurn(out, session.SubmitTurn(ctx, input))
				if session.State().Done() {
					return nil
				}
				if ctx.Err() != nil {
					break
				}
			}

			fmt.Fprintln(out, "\n"+bold("Goodbye! Stay fit!"))
			return nil
		},
	}
	cmd.Flags().StringVar(&historyFile, "history", "", "readline history file (default ~/.coach-history)")
	return cmd
}

func printBanner(w io.Writer, sessionID string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, bold("Welcome to Coach Nova - Your AI Fitness Coach!"))
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, gray("Session "+sessionID+". Type 'exit' to quit at any time."))
	fmt.Fprintln(w)
}

func printTurn(w io.Writer, res coach.TurnResult) {
	if res.DisplayText == "" {
		return
	}
	text := res.DisplayText
	switch {
	case res.Err != nil:
		text = yellow(text)
	case res.Plan != nil:
		text = green(text)
	}
	fmt.Fprintf(w, "\n%s %s\n", cyan("Coach Nova:"), text)
	if res.Score != nil {
		fmt.Fprintln(w, gray(fmt.Sprintf("(plan quality %.2f)", *res.Score)))
	}
	fmt.Fprintln(w)
}
