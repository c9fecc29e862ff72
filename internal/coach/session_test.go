package coach

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-coach/internal/domain"
	llmerrors "github.com/ahrav/go-coach/internal/llm/errors"
	"github.com/ahrav/go-coach/pkg/events"
)

type stubResponder struct {
	mu      sync.Mutex
	replies []domain.CoachReply
	err     error
	seen    []int // transcript length at each call
}

func (s *stubResponder) Respond(_ context.Context, t *domain.Transcript, _ string) (domain.CoachReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, t.Len())
	if s.err != nil {
		return domain.CoachReply{}, s.err
	}
	if len(s.replies) == 0 {
		return domain.CoachReply{Text: "Tell me more.", ShouldExtract: domain.FlagFalse}, nil
	}
	r := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return r, nil
}

type stubExtractor struct {
	fields domain.FieldSet
	err    error
	calls  int
}

func (s *stubExtractor) Extract(context.Context, *domain.Transcript) (domain.FieldSet, error) {
	s.calls++
	return s.fields, s.err
}

type stubGenerator struct {
	payload domain.PlanPayload
	err     error
	got     domain.FieldSet
	calls   int
}

func (s *stubGenerator) Generate(_ context.Context, fs domain.FieldSet) (domain.PlanPayload, error) {
	s.calls++
	s.got = fs
	return s.payload, s.err
}

const goodPlan = `{"exercises":[
 {"name":"Bench Press","sets":[{"reps":10,"setType":"working","weight":135}]},
 {"name":"Push-ups","sets":[{"reps":"12 reps","setType":"working"}]},
 {"name":"Dumbbell Fly","sets":[{"reps":10,"setType":"working","weight":25}]},
 {"name":"Incline Press","sets":[{"reps":8,"setType":"working","weight":95}]}
],"workoutFocus":"chest"}`

func completeFields() domain.FieldSet {
	fs, _ := domain.NewFieldSet(map[domain.Field]string{
		domain.FieldGoal:      "muscle_gain",
		domain.FieldEquipment: "full_gym",
		domain.FieldDuration:  "40",
		domain.FieldFocus:     "chest",
	})
	return fs
}

func extractReply(text string) domain.CoachReply {
	return domain.CoachReply{Text: text, ShouldExtract: domain.FlagTrue}
}

func newTestSession(r Responder, e Extractor, g Generator, opts ...Option) *Session {
	return NewSession(r, e, g, opts...)
}

func TestSession_GatheringWithoutExtraction(t *testing.T) {
	r := &stubResponder{}
	e := &stubExtractor{}
	s := newTestSession(r, e, &stubGenerator{})

	res := s.SubmitTurn(context.Background(), "I want to get stronger")

	assert.NoError(t, res.Err)
	assert.Equal(t, StateGathering, res.State)
	assert.Equal(t, "Tell me more.", res.DisplayText)
	assert.Equal(t, 0, e.calls)
	assert.Equal(t, 2, s.Transcript().Len())
}

func TestSession_MissingFocusStaysGathering(t *testing.T) {
	fs := completeFields()
	fs.Focus = domain.None()

	r := &stubResponder{replies: []domain.CoachReply{extractReply("Got it.")}}
	e := &stubExtractor{fields: fs}
	g := &stubGenerator{}
	s := newTestSession(r, e, g)

	res := s.SubmitTurn(context.Background(), "40 minutes, full gym, build muscle")

	require.NoError(t, res.Err)
	assert.Equal(t, StateGathering, res.State)
	assert.Equal(t, []domain.Field{domain.FieldFocus}, res.Missing)
	assert.Contains(t, res.DisplayText, "missing: focus")
	assert.Contains(t, res.DisplayText, analyzingNotice)
	assert.Equal(t, 0, g.calls, "generator must not run with required fields missing")
}

func TestSession_CompleteFieldsDeliverPlan(t *testing.T) {
	r := &stubResponder{replies: []domain.CoachReply{extractReply("Great, building it now.")}}
	e := &stubExtractor{fields: completeFields()}
	g := &stubGenerator{payload: domain.TextPayload(goodPlan)}
	s := newTestSession(r, e, g)

	res := s.SubmitTurn(context.Background(), "chest please")

	require.NoError(t, res.Err)
	assert.Equal(t, StateComplete, res.State)
	require.NotNil(t, res.Plan)
	assert.Len(t, res.Plan.Exercises, 4)
	require.NotNil(t, res.Score)
	assert.InDelta(t, 1.0, *res.Score, 1e-9)
	assert.Contains(t, res.DisplayText, planHeader)
	assert.Contains(t, res.DisplayText, "Set 1: 12 reps (working)")
	assert.Contains(t, res.DisplayText, anotherPrompt)

	// Optional fields are defaulted before generation.
	assert.Equal(t, domain.DefaultSpace, g.got.Space.Or(""))
	assert.Equal(t, domain.DefaultFitnessLevel, g.got.FitnessLevel.Or(""))
}

func TestSession_PlanScoringDisabled(t *testing.T) {
	r := &stubResponder{replies: []domain.CoachReply{extractReply("ok")}}
	s := newTestSession(r, &stubExtractor{fields: completeFields()},
		&stubGenerator{payload: domain.TextPayload(goodPlan)}, WithPlanScoring(false))

	res := s.SubmitTurn(context.Background(), "go")

	require.NotNil(t, res.Plan)
	assert.Nil(t, res.Score)
}

func TestSession_RepairedPlanScoresOriginalOutput(t *testing.T) {
	broken := `{"exercises":[{"name":"Squat","sets":[{"reps":10,},]},]}`
	r := &stubResponder{replies: []domain.CoachReply{extractReply("ok")}}
	s := newTestSession(r, &stubExtractor{fields: completeFields()},
		&stubGenerator{payload: domain.TextPayload(broken)})

	res := s.SubmitTurn(context.Background(), "go")

	require.NoError(t, res.Err)
	require.NotNil(t, res.Plan)
	assert.Equal(t, "Squat", res.Plan.Exercises[0].Name)
	require.NotNil(t, res.Score)
	assert.Zero(t, *res.Score, "rubric decodes strictly")
}

func TestSession_UnrepairablePlanFailsTurn(t *testing.T) {
	r := &stubResponder{replies: []domain.CoachReply{extractReply("ok")}}
	s := newTestSession(r, &stubExtractor{fields: completeFields()},
		&stubGenerator{payload: domain.TextPayload(`{"exercises":[{"name":`)}, WithJSONRepair(false))

	res := s.SubmitTurn(context.Background(), "go")

	require.Error(t, res.Err)
	var ext *llmerrors.ExternalCallError
	require.ErrorAs(t, res.Err, &ext)
	assert.Equal(t, llmerrors.CollaboratorGenerator, ext.Collaborator)
	assert.Equal(t, llmerrors.ErrorTypeDecode, ext.Type)
	assert.Equal(t, StateGathering, res.State)
}

func TestSession_CollaboratorFailures(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name         string
		responderErr error
		extractErr   error
		generateErr  error
		collaborator llmerrors.Collaborator
		committed    int
	}{
		{name: "responder", responderErr: boom, collaborator: llmerrors.CollaboratorResponder, committed: 0},
		{name: "extractor", extractErr: boom, collaborator: llmerrors.CollaboratorExtractor, committed: 2},
		{name: "generator", generateErr: boom, collaborator: llmerrors.CollaboratorGenerator, committed: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &stubResponder{replies: []domain.CoachReply{extractReply("Working on it.")}, err: tt.responderErr}
			e := &stubExtractor{fields: completeFields(), err: tt.extractErr}
			g := &stubGenerator{payload: domain.TextPayload(goodPlan), err: tt.generateErr}
			sink := events.NewMemorySink()
			s := newTestSession(r, e, g, WithEventSink(sink))

			res := s.SubmitTurn(context.Background(), "hello")

			require.Error(t, res.Err)
			var ext *llmerrors.ExternalCallError
			require.ErrorAs(t, res.Err, &ext)
			assert.Equal(t, tt.collaborator, ext.Collaborator)
			assert.Equal(t, llmerrors.ErrorTypeNetwork, ext.Type)
			assert.ErrorIs(t, res.Err, boom)

			assert.Equal(t, StateGathering, res.State)
			assert.Equal(t, StateGathering, s.State())
			assert.Equal(t, tt.committed, s.Transcript().Len())
			assert.Contains(t, res.DisplayText, retryMessage)
			assert.Len(t, sink.OfType(string(domain.EventTypeTurnFailed)), 1)
		})
	}
}

func TestSession_RecoversAfterFailure(t *testing.T) {
	r := &stubResponder{err: errors.New("request timeout")}
	s := newTestSession(r, &stubExtractor{}, &stubGenerator{})

	first := s.SubmitTurn(context.Background(), "hi")
	require.Error(t, first.Err)
	assert.True(t, llmerrors.IsTimeout(first.Err))

	r.mu.Lock()
	r.err = nil
	r.mu.Unlock()

	second := s.SubmitTurn(context.Background(), "hi again")
	assert.NoError(t, second.Err)
	assert.Equal(t, 2, s.Transcript().Len())
	assert.Equal(t, []int{0, 0}, r.seen, "the failed turn left nothing in the transcript")
}

func TestSession_RestartAndTerminal(t *testing.T) {
	tests := []struct {
		answer    string
		wantState State
		wantText  string
		wantLen   int
	}{
		{answer: "yes", wantState: StateGathering, wantText: restartMessage, wantLen: 0},
		{answer: " Y ", wantState: StateGathering, wantText: restartMessage, wantLen: 0},
		{answer: "no", wantState: StateTerminal, wantText: goodbyeMessage, wantLen: 2},
		{answer: "maybe later", wantState: StateTerminal, wantText: goodbyeMessage, wantLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			r := &stubResponder{replies: []domain.CoachReply{extractReply("ok")}}
			s := newTestSession(r, &stubExtractor{fields: completeFields()},
				&stubGenerator{payload: domain.TextPayload(goodPlan)})
			require.Equal(t, StateComplete, s.SubmitTurn(context.Background(), "go").State)

			res := s.SubmitTurn(context.Background(), tt.answer)
			assert.Equal(t, tt.wantState, res.State)
			assert.Equal(t, tt.wantText, res.DisplayText)
			assert.Equal(t, tt.wantLen, s.Transcript().Len())
		})
	}
}

func TestSession_TerminalRejectsTurns(t *testing.T) {
	r := &stubResponder{replies: []domain.CoachReply{extractReply("ok")}}
	s := newTestSession(r, &stubExtractor{fields: completeFields()},
		&stubGenerator{payload: domain.TextPayload(goodPlan)})
	s.SubmitTurn(context.Background(), "go")
	s.SubmitTurn(context.Background(), "no")
	require.True(t, s.State().Done())

	calls := len(r.seen)
	res := s.SubmitTurn(context.Background(), "one more")

	assert.Equal(t, StateTerminal, res.State)
	assert.Equal(t, endedMessage, res.DisplayText)
	assert.Len(t, r.seen, calls)
}

func TestSession_EmptyInputIsIgnored(t *testing.T) {
	r := &stubResponder{}
	s := newTestSession(r, &stubExtractor{}, &stubGenerator{})

	res := s.SubmitTurn(context.Background(), "   ")

	assert.Equal(t, StateGathering, res.State)
	assert.Empty(t, res.DisplayText)
	assert.Empty(t, r.seen)
}

func TestSession_ConcurrentTurnsAreSerialized(t *testing.T) {
	r := &stubResponder{}
	s := newTestSession(r, &stubExtractor{}, &stubGenerator{})

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SubmitTurn(context.Background(), "hello")
		}()
	}
	wg.Wait()

	assert.Equal(t, 2*n, s.Transcript().Len())
	seen := append([]int(nil), r.seen...)
	for i, l := range seen {
		assert.Equal(t, 2*i, l, "each turn sees every earlier exchange")
	}
}

func TestSession_MetricsAndEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)
	sink := events.NewMemorySink()

	fs := completeFields()
	fs.Focus = domain.None()
	r := &stubResponder{replies: []domain.CoachReply{extractReply("ok")}}
	e := &stubExtractor{fields: fs}
	g := &stubGenerator{payload: domain.TextPayload(goodPlan)}
	s := newTestSession(r, e, g, WithMetrics(m), WithEventSink(sink))

	s.SubmitTurn(context.Background(), "first")
	e.fields = completeFields()
	s.SubmitTurn(context.Background(), "chest")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractions.WithLabelValues("incomplete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractions.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.missingFields.WithLabelValues("focus")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("extracting", "complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))

	assert.Len(t, sink.OfType(string(domain.EventTypeTurnProcessed)), 2)
	assert.Len(t, sink.OfType(string(domain.EventTypeFieldsExtracted)), 2)
	plans := sink.OfType(string(domain.EventTypePlanGenerated))
	require.Len(t, plans, 1)
	assert.Equal(t, "coach.session", plans[0].Source)

	s.SubmitTurn(context.Background(), "no")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeSessions))
}

func TestSession_ClockDrivesEventTimestamps(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	sink := events.NewMemorySink()
	s := newTestSession(&stubResponder{}, &stubExtractor{}, &stubGenerator{},
		WithEventSink(sink), WithClock(func() time.Time { return at }))

	s.SubmitTurn(context.Background(), "hi")

	evts := sink.Events()
	require.Len(t, evts, 1)
	assert.Equal(t, at, evts[0].Timestamp)

	var payload domain.TurnProcessedPayload
	require.NoError(t, json.Unmarshal(evts[0].Payload, &payload))
	assert.Equal(t, 1, payload.Turn)
	// "Tell me more." is short, so the length criterion earns half credit.
	assert.InDelta(t, 2.5/3, payload.ReplyQuality, 1e-9)
}

func TestSession_SessionsAreIsolated(t *testing.T) {
	a := newTestSession(&stubResponder{}, &stubExtractor{}, &stubGenerator{})
	b := newTestSession(&stubResponder{}, &stubExtractor{}, &stubGenerator{})

	a.SubmitTurn(context.Background(), "hello")

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, a.Transcript().Len())
	assert.Zero(t, b.Transcript().Len())
}
