package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-coach/internal/llm/configuration"
	"github.com/ahrav/go-coach/internal/worker"
)

func newWorkerCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker for batch evaluations",
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

			c, err := dialTemporal(cfg.Temporal, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			w := sdkworker.New(c, cfg.Temporal.TaskQueue, sdkworker.Options{
				// One example at a time; the governor sets the pace anyway.
				MaxConcurrentActivityExecutionSize: 1,
			})
			worker.RegisterAll(w, deps.NewScoringActivities())

			logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue, "namespace", cfg.Temporal.Namespace)
			interrupt := make(chan interface{})
			go func() {
				<-ctx.Done()
				close(interrupt)
			}()
			return w.Run(interrupt)
		},
	}
}

func dialTemporal(cfg configuration.TemporalConfig, logger *slog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    temporallog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to temporal at %s: %w", cfg.HostPort, err)
	}
	return c, nil
}
