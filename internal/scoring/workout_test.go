package scoring

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-coach/internal/domain"
)

// planJSON renders a plan where every exercise has a single set of reps.
func planJSON(reps int, names ...string) string {
	var b strings.Builder
	b.WriteString(`{"exercises":[`)
	for i, n := range names {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"name":%q,"sets":[{"reps":%d,"setType":"working","weight":40}]}`, n, reps)
	}
	b.WriteString(`],"notes":"rest 90s","workoutFocus":"chest"}`)
	return b.String()
}

func repeat(name string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %d", name, i+1)
	}
	return out
}

func strengthBarbell(duration string) domain.Requirements {
	return domain.Requirements{Goal: "strength", Equipment: "barbell", Duration: duration}
}

func TestScoreWorkout_PerfectPlan(t *testing.T) {
	text := planJSON(5, "Barbell Back Squat", "Barbell Bench Press", "Barbell Row")

	r := ScoreWorkoutDetailed(strengthBarbell("30"), domain.TextPayload(text))
	assert.True(t, r.Decoded)
	assert.Equal(t, 3, r.ExpectedCount)
	assert.Equal(t, 3, r.ExercisesFound)
	assert.InDelta(t, 1.0, r.Score(), 1e-9)
	assert.InDelta(t, 1.0, ScoreWorkoutText(strengthBarbell("30"), text), 1e-9)
}

func TestScoreWorkout_DecodeFailureScoresZero(t *testing.T) {
	req := strengthBarbell("30")
	for _, text := range []string{
		"not json",
		"",
		"[]",
		`{"exercises":"none"}`,
		"```json\nnot json\n```",
		`{"exercises":[{"name":"Squat","sets":[{"reps":5}]}`,
	} {
		t.Run(text, func(t *testing.T) {
			r := ScoreWorkoutDetailed(req, domain.TextPayload(text))
			assert.False(t, r.Decoded)
			assert.Zero(t, r.Points())
			assert.Equal(t, 0.0, ScoreWorkoutText(req, text))
		})
	}
}

func TestScoreWorkout_LooseOptionalFieldsIgnored(t *testing.T) {
	const exercises = `"exercises":[` +
		`{"name":"Barbell Back Squat","sets":[{"reps":5}]},` +
		`{"name":"Barbell Bench Press","sets":[{"reps":5}]},` +
		`{"name":"Barbell Row","sets":[{"reps":5,"weight":null}]}]`

	for _, extra := range []string{
		`"notes":["rest 2 min","hydrate"]`,
		`"notes":5`,
		`"workoutFocus":{"area":"full_body"}`,
	} {
		t.Run(extra, func(t *testing.T) {
			score := ScoreWorkoutText(strengthBarbell("30"), "{"+exercises+","+extra+"}")
			assert.InDelta(t, 1.0, score, 1e-9)
		})
	}
}

// A malformed exercise entry makes the whole payload undecodable, so the
// plan earns nothing on any criterion.
func TestScoreWorkout_MalformedExerciseIsDecodeFailure(t *testing.T) {
	for _, text := range []string{
		`{"exercises":["Squat 5x5"]}`,
		`{"exercises":[{"name":7,"sets":[{"reps":5}]}]}`,
		`{"exercises":[{"name":"Squat","sets":{"reps":5}}]}`,
	} {
		t.Run(text, func(t *testing.T) {
			r := ScoreWorkoutDetailed(strengthBarbell("30"), domain.TextPayload(text))
			assert.False(t, r.Decoded)
			assert.Zero(t, r.Score())
		})
	}
}

func TestScoreWorkout_FencedPayload(t *testing.T) {
	body := planJSON(5, "Barbell Squat", "Barbell Press", "Barbell Deadlift")
	for _, text := range []string{
		"```json\n" + body + "\n```",
		"```\n" + body + "\n```",
		"  ```json\n" + body + "\n```\ntrailing chatter",
	} {
		assert.InDelta(t, 1.0, ScoreWorkoutText(strengthBarbell("30"), text), 1e-9)
	}
}

func TestScoreWorkout_DecodedPayload(t *testing.T) {
	plan, err := domain.DecodePlan(planJSON(5, "Barbell Squat", "Barbell Press", "Barbell Deadlift"))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, ScoreWorkout(strengthBarbell("30"), domain.DecodedPayload(plan)), 1e-9)
}

func TestScoreWorkout_RepRange(t *testing.T) {
	tests := []struct {
		name string
		goal string
		sets string
		want float64
	}{
		{name: "strength conforming", goal: "strength", sets: `[{"reps":5},{"reps":6}]`, want: 1},
		{name: "strength one set of ten", goal: "strength", sets: `[{"reps":5},{"reps":10}]`, want: 0.5},
		{name: "power uses strength range", goal: "power", sets: `[{"reps":8}]`, want: 0.5},
		{name: "goal is case insensitive", goal: "Strength", sets: `[{"reps":10}]`, want: 0.5},
		{name: "hypertrophy lower bound", goal: "hypertrophy", sets: `[{"reps":6},{"reps":15}]`, want: 1},
		{name: "hypertrophy too few", goal: "hypertrophy", sets: `[{"reps":5}]`, want: 0.5},
		{name: "hypertrophy too many", goal: "hypertrophy", sets: `[{"reps":16}]`, want: 0.5},
		{name: "endurance", goal: "endurance", sets: `[{"reps":12},{"reps":20}]`, want: 1},
		{name: "endurance too few", goal: "endurance", sets: `[{"reps":11}]`, want: 0.5},
		{name: "unconstrained goal", goal: "general", sets: `[{"reps":50}]`, want: 1},
		{name: "text reps use leading digits", goal: "hypertrophy", sets: `[{"reps":"12 reps"}]`, want: 1},
		{name: "text reps violating", goal: "strength", sets: `[{"reps":"8-10"}]`, want: 0.5},
		{name: "unparseable reps skipped", goal: "strength", sets: `[{"reps":"AMRAP"},{"reps":3}]`, want: 1},
		{name: "fractional reps skipped", goal: "strength", sets: `[{"reps":8.5}]`, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := fmt.Sprintf(`{"exercises":[{"name":"Squat","sets":%s}]}`, tt.sets)
			req := domain.Requirements{Goal: tt.goal, Equipment: "machines", Duration: "10"}
			r := ScoreWorkoutDetailed(req, domain.TextPayload(text))
			require.True(t, r.Decoded)
			assert.InDelta(t, tt.want, r.RepRange, 1e-9)
		})
	}
}

func TestScoreWorkout_Equipment(t *testing.T) {
	tests := []struct {
		name      string
		equipment string
		exercise  string
		want      float64
	}{
		{name: "bodyweight with dumbbell", equipment: "bodyweight", exercise: "Dumbbell Bicep Curl", want: 0.5},
		{name: "bodyweight clean", equipment: "bodyweight", exercise: "Push-up", want: 1},
		{name: "bodyweight with machine", equipment: "bodyweight", exercise: "Leg Press Machine", want: 0.5},
		{name: "dumbbells with barbell", equipment: "dumbbells", exercise: "Barbell Curl", want: 0.5},
		{name: "dumbbells clean", equipment: "dumbbells", exercise: "Dumbbell Press", want: 1},
		{name: "barbell with cable", equipment: "barbell", exercise: "Cable Fly", want: 0.5},
		{name: "equipment is case insensitive", equipment: "Bodyweight", exercise: "DUMBBELL row", want: 0.5},
		{name: "cables unrestricted", equipment: "cables", exercise: "Barbell Row", want: 1},
		{name: "machines unrestricted", equipment: "machines", exercise: "Dumbbell Row", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := domain.Requirements{Goal: "general", Equipment: tt.equipment, Duration: "10"}
			r := ScoreWorkoutDetailed(req, domain.TextPayload(planJSON(10, tt.exercise)))
			assert.InDelta(t, tt.want, r.Equipment, 1e-9)
		})
	}
}

func TestScoreWorkout_ExerciseCount(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		count    int
		expected int
		want     float64
	}{
		{name: "exact", duration: "30", count: 3, expected: 3, want: 1},
		{name: "double is outside band", duration: "30", count: 6, expected: 3, want: 0.5},
		{name: "upper edge of band", duration: "40", count: 6, expected: 4, want: 1},
		{name: "lower edge of band", duration: "40", count: 2, expected: 4, want: 1},
		{name: "below band", duration: "60", count: 2, expected: 6, want: 0.5},
		{name: "non numeric defaults to 45", duration: "about an hour", count: 4, expected: 4, want: 1},
		{name: "decimal defaults to 45", duration: "45.5", count: 7, expected: 4, want: 0.5},
		{name: "short session expects none", duration: "5", count: 1, expected: 0, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := domain.Requirements{Goal: "general", Equipment: "machines", Duration: tt.duration}
			r := ScoreWorkoutDetailed(req, domain.TextPayload(planJSON(10, repeat("Lift", tt.count)...)))
			assert.Equal(t, tt.expected, r.ExpectedCount)
			assert.InDelta(t, tt.want, r.ExerciseCount, 1e-9)
		})
	}
}

func TestScoreWorkout_ExerciseShape(t *testing.T) {
	req := domain.Requirements{Goal: "general", Equipment: "machines", Duration: "20"}

	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "all valid", text: `{"exercises":[{"name":"A","sets":[{"reps":5}]},{"name":"B","sets":[{"reps":5}]}]}`, want: 1},
		{name: "one without sets", text: `{"exercises":[{"name":"A","sets":[{"reps":5}]},{"name":"B","sets":[]}]}`, want: 0},
		{name: "one without name", text: `{"exercises":[{"name":"A","sets":[{"reps":5}]},{"sets":[{"reps":5}]}]}`, want: 0},
		{name: "sets missing entirely", text: `{"exercises":[{"name":"A"}]}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ScoreWorkoutDetailed(req, domain.TextPayload(tt.text))
			require.True(t, r.Decoded)
			assert.Equal(t, 1.0, r.Structure, "structure only needs a non-empty list")
			assert.InDelta(t, tt.want, r.ExerciseShape, 1e-9)
		})
	}
}

func TestScoreWorkout_EmptyExercises(t *testing.T) {
	req := strengthBarbell("30")
	for _, text := range []string{`{"exercises":[]}`, `{"notes":"rest day"}`} {
		r := ScoreWorkoutDetailed(req, domain.TextPayload(text))
		assert.True(t, r.Decoded)
		assert.Zero(t, r.Points(), "every criterion needs exercises")
	}
}

func TestScoreWorkout_BoundedAndIdempotent(t *testing.T) {
	reqs := []domain.Requirements{
		strengthBarbell("30"),
		{Goal: "endurance", Equipment: "bodyweight", Duration: "x"},
		{Goal: "", Equipment: "", Duration: ""},
	}
	payloads := []string{
		"not json",
		planJSON(5, "Dumbbell Curl"),
		planJSON(20, repeat("Barbell Lift", 12)...),
		`{"exercises":[{"name":"","sets":[]}]}`,
	}

	for _, req := range reqs {
		for _, p := range payloads {
			first := ScoreWorkoutText(req, p)
			assert.GreaterOrEqual(t, first, 0.0)
			assert.LessOrEqual(t, first, 1.0)
			assert.Equal(t, first, ScoreWorkoutText(req, p))
		}
	}
}
