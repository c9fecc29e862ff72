// Package llm calls the hosted inference service on behalf of the coach.
// Client implements the three collaborators the conversation core consumes:
// a conversational responder, a requirements extractor and a workout
// generator. Every call is paced by a ratelimit.Governor and bounded by a
// per-call timeout.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ahrav/go-coach/internal/domain"
	"github.com/ahrav/go-coach/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-coach/internal/llm/errors"
	"github.com/ahrav/go-coach/internal/llm/providers"
	"github.com/ahrav/go-coach/internal/llm/ratelimit"
)

// extractorTemperature keeps extraction deterministic.
const extractorTemperature = 0

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAdapter replaces the provider adapter.
func WithAdapter(a providers.Adapter) Option {
	return func(c *Client) {
		if a != nil {
			c.adapter = a
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.With("component", "llm")
		}
	}
}

// WithJSONRepair toggles repair of malformed responder and extractor JSON.
// Generator output is returned as text and repaired by the caller.
func WithJSONRepair(enabled bool) Option {
	return func(c *Client) { c.repair = enabled }
}

// Client is a governed Gemini client. It is safe for concurrent use; the
// governor serializes the pace, not the callers.
type Client struct {
	cfg      configuration.ProviderConfig
	adapter  providers.Adapter
	http     *http.Client
	governor ratelimit.Governor
	repair   bool
	logger   *slog.Logger
}

// NewClient builds a client for cfg whose calls run through governor.
func NewClient(cfg configuration.ProviderConfig, governor ratelimit.Governor, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		adapter:  providers.NewGoogleAdapter(cfg),
		http:     &http.Client{Transport: http.DefaultTransport},
		governor: governor,
		repair:   true,
		logger:   slog.Default().With("component", "llm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Respond produces Coach Nova's reply to message given the prior history.
func (c *Client) Respond(ctx context.Context, history *domain.Transcript, message string) (domain.CoachReply, error) {
	text, err := c.complete(ctx, llmerrors.CollaboratorResponder, &providers.Request{
		SystemPrompt: responderInstruction,
		Prompt:       responderPrompt(history, message),
		Temperature:  c.cfg.Temperature,
		MaxTokens:    c.cfg.MaxTokens,
		JSON:         true,
	})
	if err != nil {
		return domain.CoachReply{}, err
	}

	var reply domain.CoachReply
	if err := c.decodeJSON(text, &reply); err != nil {
		return domain.CoachReply{}, c.decodeFailure(llmerrors.CollaboratorResponder, "coach reply", err)
	}
	reply.Text = strings.TrimSpace(reply.Text)
	if reply.Text == "" {
		return domain.CoachReply{}, c.decodeFailure(llmerrors.CollaboratorResponder, "coach reply", llmerrors.ErrEmptyResponse)
	}
	if !reply.ShouldExtract.Valid() {
		c.logger.Warn("unrecognized should_extract flag, treating as false", "flag", string(reply.ShouldExtract))
	}
	return reply, nil
}

// Extract recovers the FieldSet stated so far in history. Fields the model
// reports as unknown decode as absent.
func (c *Client) Extract(ctx context.Context, history *domain.Transcript) (domain.FieldSet, error) {
	text, err := c.complete(ctx, llmerrors.CollaboratorExtractor, &providers.Request{
		SystemPrompt: extractorInstruction,
		Prompt:       extractorPrompt(history),
		Temperature:  extractorTemperature,
		MaxTokens:    c.cfg.MaxTokens,
		JSON:         true,
	})
	if err != nil {
		return domain.FieldSet{}, err
	}

	var fs domain.FieldSet
	if err := c.decodeJSON(text, &fs); err != nil {
		return domain.FieldSet{}, c.decodeFailure(llmerrors.CollaboratorExtractor, "field set", err)
	}
	return fs, nil
}

// Generate asks for a plan matching fields. The raw model text is returned
// undecoded so the rubric can judge exactly what the model produced.
func (c *Client) Generate(ctx context.Context, fields domain.FieldSet) (domain.PlanPayload, error) {
	text, err := c.complete(ctx, llmerrors.CollaboratorGenerator, &providers.Request{
		SystemPrompt: generatorInstruction,
		Prompt:       generatorPrompt(fields),
		Temperature:  c.cfg.Temperature,
		MaxTokens:    c.cfg.MaxTokens,
		JSON:         true,
	})
	if err != nil {
		return domain.PlanPayload{}, err
	}
	return domain.TextPayload(text), nil
}

// complete runs one governed, time-bounded model call.
func (c *Client) complete(ctx context.Context, collab llmerrors.Collaborator, req *providers.Request) (string, error) {
	req.Model = c.cfg.Model
	start := time.Now()

	resp, err := ratelimit.Do(ctx, c.governor, func(ctx context.Context) (*providers.Response, error) {
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}
		return c.roundTrip(ctx, req)
	})
	if err != nil {
		callErr := llmerrors.NewExternalCallError(collab, err)
		c.logger.Warn("model call failed",
			"collaborator", collab,
			"elapsed", time.Since(start),
			"error", callErr)
		return "", callErr
	}

	c.logger.Debug("model call completed",
		"collaborator", collab,
		"elapsed", time.Since(start),
		"finish_reason", resp.FinishReason,
		"request_id", resp.RequestID,
		"total_tokens", resp.Usage.TotalTokens)
	return resp.Content, nil
}

func (c *Client) roundTrip(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	httpReq, err := c.adapter.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	return c.adapter.Parse(httpResp)
}

// decodeJSON strictly decodes text, then retries once on a repaired copy.
func (c *Client) decodeJSON(text string, v any) error {
	body := domain.StripCodeFence(text)
	err := json.Unmarshal([]byte(body), v)
	if err == nil || !c.repair {
		return err
	}
	fixed, repairErr := jsonrepair.JSONRepair(body)
	if repairErr != nil || fixed == body {
		return err
	}
	if err := json.Unmarshal([]byte(fixed), v); err != nil {
		return fmt.Errorf("still invalid after repair: %w", err)
	}
	c.logger.Info("repaired model JSON")
	return nil
}

func (c *Client) decodeFailure(collab llmerrors.Collaborator, what string, err error) error {
	return llmerrors.NewExternalCallError(collab, &llmerrors.DecodeError{What: what, Cause: err})
}
