// Package worker provides initialization and setup utilities shared by the
// interactive coach and the Temporal evaluation worker. It keeps activity
// and session packages free of configuration plumbing.
package worker

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahrav/go-coach/internal/llm"
	"github.com/ahrav/go-coach/internal/llm/configuration"
	"github.com/ahrav/go-coach/internal/llm/ratelimit"
	"github.com/ahrav/go-coach/internal/scoring"
	"github.com/ahrav/go-coach/pkg/activity"
	"github.com/ahrav/go-coach/pkg/events"
)

// Dependencies bundles everything built from configuration.
type Dependencies struct {
	Config   *configuration.Config
	Governor ratelimit.Governor
	Client   *llm.Client
	Events   events.EventSink
	Logger   *slog.Logger

	closers []func() error
}

// Setup builds the governor, the inference client and the event sink from
// cfg. Callers must Close the result.
func Setup(cfg *configuration.Config, logger *slog.Logger) (*Dependencies, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	deps := &Dependencies{Config: cfg, Logger: logger}

	gov, err := NewGovernor(cfg.RateLimit, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	deps.Governor = gov
	if g, ok := gov.(*ratelimit.GlobalInvoker); ok {
		deps.closers = append(deps.closers, g.Close)
	}

	deps.Client = InitializeLLMClient(cfg, gov, logger)
	deps.Events = events.NewSlogSink(logger, slog.LevelDebug)
	return deps, nil
}

// NewGovernor returns the Redis-backed invoker when global rate limiting is
// enabled and a process-local invoker otherwise.
func NewGovernor(cfg configuration.RateLimitConfig, logger *slog.Logger) (ratelimit.Governor, error) {
	opts := []ratelimit.Option{ratelimit.WithLogger(logger)}
	if !cfg.Global.Enabled {
		return ratelimit.NewInvoker(cfg, opts...), nil
	}
	g, err := ratelimit.NewGlobalInvoker(cfg, nil, opts...)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// InitializeLLMClient creates the governed inference client.
func InitializeLLMClient(cfg *configuration.Config, gov ratelimit.Governor, logger *slog.Logger) *llm.Client {
	return llm.NewClient(cfg.Provider, gov,
		llm.WithLogger(logger),
		llm.WithJSONRepair(!cfg.Features.DisableJSONRepair))
}

// NewScoringActivities creates the evaluation activities over the client.
func (d *Dependencies) NewScoringActivities() *scoring.Activities {
	return scoring.NewActivities(activity.NewBaseActivities(d.Events), d.Client, d.Client)
}

// Close releases connections held by the dependencies.
func (d *Dependencies) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
