package coach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-coach/internal/domain"
	llmerrors "github.com/ahrav/go-coach/internal/llm/errors"
	"github.com/ahrav/go-coach/internal/scoring"
	"github.com/ahrav/go-coach/pkg/events"
)

// TurnResult is what one call to SubmitTurn hands back to the caller.
type TurnResult struct {
	// DisplayText is everything the user should see for this turn.
	DisplayText string
	// State is the session state after the turn.
	State State
	// Missing lists required fields the gate found absent, if extraction ran.
	Missing []domain.Field
	// Plan is set when the turn delivered a plan.
	Plan *domain.WorkoutPlan
	// Score is the rubric score of the delivered plan when scoring is on.
	Score *float64
	// Err is the recoverable collaborator failure that cut the turn short.
	Err error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records session activity on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithEventSink emits session events to sink.
func WithEventSink(sink events.EventSink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithPlanScoring toggles the rubric run on delivered plans.
func WithPlanScoring(enabled bool) Option {
	return func(s *Session) { s.scorePlans = enabled }
}

// WithJSONRepair toggles repair of malformed generator output.
func WithJSONRepair(enabled bool) Option {
	return func(s *Session) { s.validator = scoring.NewPlanValidator(enabled) }
}

// WithClock replaces the wall clock used for event timestamps and turn timing.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session is one coaching conversation. Turns are serialized: SubmitTurn
// holds the session lock for the whole turn, nested collaborator calls
// included. Sessions never share a transcript.
type Session struct {
	id        string
	responder Responder
	extractor Extractor
	generator Generator
	gate      Gate
	validator *scoring.PlanValidator

	scorePlans bool
	logger     *slog.Logger
	metrics    *Metrics
	sink       events.EventSink
	now        func() time.Time

	mu         sync.Mutex
	state      State
	transcript *domain.Transcript
	turns      int
	failures   int
}

// NewSession starts a session in the Gathering state.
func NewSession(r Responder, e Extractor, g Generator, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		responder:  r,
		extractor:  e,
		generator:  g,
		gate:       NewGate(),
		validator:  scoring.NewPlanValidator(true),
		scorePlans: true,
		logger:     slog.Default(),
		sink:       events.NewNoOpEventSink(),
		now:        time.Now,
		state:      StateGathering,
		transcript: domain.NewTranscript(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "coach", "session_id", s.id)
	s.metrics.sessionStarted()
	return s
}

// ID returns the session's correlation ID.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns the committed conversation so far.
func (s *Session) Transcript() *domain.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// SubmitTurn processes one user message to completion. It never returns an
// error: collaborator failures are reported in the result and the session
// stays usable.
func (s *Session) SubmitTurn(ctx context.Context, text string) TurnResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	var res TurnResult
	switch s.state {
	case StateTerminal:
		res = TurnResult{DisplayText: endedMessage, State: StateTerminal}
		s.metrics.observeTurn("rejected", s.now().Sub(start))
		return res
	case StateComplete:
		res = s.answerRestart(text)
	default:
		res = s.converse(ctx, text)
	}

	outcome := "ok"
	if res.Err != nil {
		outcome = "failed"
	}
	s.metrics.observeTurn(outcome, s.now().Sub(start))
	return res
}

// answerRestart handles the reply to "another workout?".
func (s *Session) answerRestart(text string) TurnResult {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y":
		s.transcript = domain.NewTranscript()
		s.transition(StateGathering)
		return TurnResult{DisplayText: restartMessage, State: s.state}
	default:
		s.transition(StateTerminal)
		s.metrics.sessionEnded()
		return TurnResult{DisplayText: goodbyeMessage, State: s.state}
	}
}

func (s *Session) converse(ctx context.Context, text string) TurnResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{State: s.state}
	}
	from := s.state

	reply, err := s.responder.Respond(ctx, s.transcript, text)
	if err != nil {
		return s.fail(ctx, from, llmerrors.CollaboratorResponder, err, nil)
	}

	// The exchange is committed as soon as the responder answers; later
	// failures in the same turn keep it.
	s.transcript = s.transcript.Append(domain.UserTurn(text), domain.CoachTurn(reply.Text))
	s.turns++
	display := []string{reply.Text}
	s.emit(ctx, domain.EventTypeTurnProcessed, fmt.Sprintf(":turn:%d", s.turns), domain.TurnProcessedPayload{
		SessionID:     s.id,
		Turn:          s.turns,
		State:         string(s.state),
		ShouldExtract: reply.ShouldExtract.Bool(),
		ReplyQuality:  scoring.ScoreConversation(reply),
	})

	if !reply.ShouldExtract.Bool() {
		return TurnResult{DisplayText: join(display), State: s.state}
	}

	s.transition(StateReadyToExtract)
	display = append(display, analyzingNotice)
	s.transition(StateExtracting)

	fields, err := s.extractor.Extract(ctx, s.transcript)
	if err != nil {
		return s.fail(ctx, from, llmerrors.CollaboratorExtractor, err, display)
	}

	missing := s.gate.Missing(fields)
	s.recordGate(ctx, missing)
	if len(missing) > 0 {
		s.transition(StateGathering)
		display = append(display, missingNotice(missing))
		return TurnResult{DisplayText: join(display), State: s.state, Missing: missing}
	}

	return s.deliver(ctx, from, fields.WithDefaults(), display)
}

// deliver generates, decodes and optionally scores the plan.
func (s *Session) deliver(ctx context.Context, from State, fields domain.FieldSet, display []string) TurnResult {
	payload, err := s.generator.Generate(ctx, fields)
	if err != nil {
		return s.fail(ctx, from, llmerrors.CollaboratorGenerator, err, display)
	}

	plan, repaired, err := s.validator.Decode(payload)
	if err != nil {
		return s.fail(ctx, from, llmerrors.CollaboratorGenerator,
			&llmerrors.DecodeError{What: "workout plan", Cause: err}, display)
	}
	if repaired {
		s.logger.Info("generator output needed repair")
	}

	var score *float64
	if s.scorePlans {
		rubric := scoring.ScoreWorkoutDetailed(fields.Requirements(), payload)
		v := rubric.Score()
		score = &v
		s.metrics.observePlanScore(v)
		s.logger.Info("plan scored",
			"score", v,
			"structure", rubric.Structure,
			"exercise_count", rubric.ExerciseCount,
			"exercise_shape", rubric.ExerciseShape,
			"rep_range", rubric.RepRange,
			"equipment", rubric.Equipment)
	}

	s.transition(StateComplete)
	s.emit(ctx, domain.EventTypePlanGenerated, fmt.Sprintf(":plan:%d", s.turns), domain.PlanGeneratedPayload{
		SessionID: s.id,
		Exercises: len(plan.Exercises),
		Score:     score,
		Repaired:  repaired,
	})

	display = append(display, RenderPlan(plan), anotherPrompt)
	return TurnResult{
		DisplayText: join(display),
		State:       s.state,
		Plan:        &plan,
		Score:       score,
	}
}

// fail restores the state the turn started in and reports err as a
// recoverable failure. Anything already committed this turn is kept.
func (s *Session) fail(ctx context.Context, from State, c llmerrors.Collaborator, err error, display []string) TurnResult {
	callErr := llmerrors.NewExternalCallError(c, err)
	errType := string(llmerrors.ErrorTypeUnknown)
	if ext, ok := callErr.(*llmerrors.ExternalCallError); ok {
		errType = string(ext.Type)
	}

	if s.state != from {
		s.transition(from)
	}
	s.failures++
	s.metrics.observeFailure(string(c), errType)
	s.logger.Warn("turn failed", "collaborator", c, "error_type", errType, "error", err)
	s.emit(ctx, domain.EventTypeTurnFailed, fmt.Sprintf(":fail:%d", s.failures), domain.TurnFailedPayload{
		SessionID:    s.id,
		State:        string(from),
		Collaborator: string(c),
		ErrorType:    errType,
	})

	display = append(display, fmt.Sprintf("Error: %v", callErr), retryMessage)
	return TurnResult{DisplayText: join(display), State: s.state, Err: callErr}
}

func (s *Session) transition(to State) {
	from := s.state
	s.state = to
	s.metrics.observeTransition(from, to)
	s.logger.Debug("state transition", "from", from, "to", to)
}

func (s *Session) recordGate(ctx context.Context, missing []domain.Field) {
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	s.metrics.observeGate(names)
	s.logger.Info("completeness gate checked", "missing", names, "complete", len(missing) == 0)
	s.emit(ctx, domain.EventTypeFieldsExtracted, fmt.Sprintf(":gate:%d", s.turns), domain.FieldsExtractedPayload{
		SessionID: s.id,
		Missing:   missing,
		Complete:  len(missing) == 0,
	})
}

// emit is best-effort; a sink failure is logged and the turn goes on.
func (s *Session) emit(ctx context.Context, t domain.EventType, suffix string, payload any) {
	env, err := domain.NewEvent(t, "coach.session", s.id, suffix, payload, s.now())
	if err != nil {
		s.logger.Error("failed to build event", "event_type", t, "error", err)
		return
	}
	if err := s.sink.Append(ctx, env); err != nil {
		s.logger.Warn("failed to emit event", "event_type", t, "error", err)
	}
}

func join(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n\n")
}
