package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{in: "12", want: 12, wantOK: true},
		{in: "12 reps", want: 12, wantOK: true},
		{in: "8-12", want: 8, wantOK: true},
		{in: "reps: 10", want: 10, wantOK: true},
		{in: "AMRAP", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLeadingInt(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReps_Unmarshal(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		want      int
		wantKnown bool
	}{
		{name: "integer", payload: `{"reps": 5}`, want: 5, wantKnown: true},
		{name: "text", payload: `{"reps": "12 reps"}`, want: 12, wantKnown: true},
		{name: "fraction", payload: `{"reps": 8.5}`, wantKnown: false},
		{name: "negative", payload: `{"reps": -1}`, wantKnown: false},
		{name: "no digits", payload: `{"reps": "to failure"}`, wantKnown: false},
		{name: "missing", payload: `{}`, wantKnown: false},
		{name: "boolean", payload: `{"reps": true}`, wantKnown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := DecodePlan(`{"exercises":[{"name":"Squat","sets":[` + tt.payload + `]}]}`)
			require.NoError(t, err)

			got, known := plan.Exercises[0].Sets[0].Reps.Value()
			assert.Equal(t, tt.wantKnown, known)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkoutSet_LooseFields(t *testing.T) {
	plan, err := DecodePlan(`{"exercises":[{"name":"Push-up","sets":[
		{"reps": 10, "setType": "working", "weight": "BW"},
		{"reps": 8, "setType": 1, "weight": 20.5}
	]}]}`)
	require.NoError(t, err)

	sets := plan.Exercises[0].Sets
	assert.Equal(t, SetWorking, sets[0].SetType)
	assert.Nil(t, sets[0].Weight)
	assert.Empty(t, sets[1].SetType)
	require.NotNil(t, sets[1].Weight)
	assert.InDelta(t, 20.5, *sets[1].Weight, 1e-9)
}

func TestWorkoutSet_NullWeightStaysOmitted(t *testing.T) {
	var set WorkoutSet
	require.NoError(t, jsonUnmarshal(`{"reps":5,"weight":null}`, &set))
	assert.Nil(t, set.Weight)

	out, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `{"reps":5}`, string(out))
}

func TestWorkoutPlan_LooseOptionalFields(t *testing.T) {
	const exercises = `"exercises":[{"name":"Squat","sets":[{"reps":5}]}]`

	tests := []struct {
		name      string
		extra     string
		wantNotes string
		wantFocus string
	}{
		{name: "strings kept", extra: `"notes":"rest 2 min","workoutFocus":"legs"`, wantNotes: "rest 2 min", wantFocus: "legs"},
		{name: "notes list", extra: `"notes":["rest 2 min","hydrate"]`},
		{name: "notes number", extra: `"notes":5`},
		{name: "focus object", extra: `"workoutFocus":{"area":"full_body"}`},
		{name: "nulls", extra: `"notes":null,"workoutFocus":null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := DecodePlan("{" + exercises + "," + tt.extra + "}")
			require.NoError(t, err)
			require.Len(t, plan.Exercises, 1)
			assert.Equal(t, "Squat", plan.Exercises[0].Name)
			assert.Equal(t, tt.wantNotes, plan.Notes)
			assert.Equal(t, tt.wantFocus, plan.WorkoutFocus)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: ` {"a":1} `, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```\ntrailing", want: `{"a":1}`},
		{name: "unterminated", in: "```json\n{\"a\":1}", want: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestDecodePlan_Failures(t *testing.T) {
	for _, payload := range []string{"not json", "[]", `{"exercises": "none"}`, "```json\nnot json\n```"} {
		_, err := DecodePlan(payload)
		assert.ErrorIs(t, err, ErrDecodeFailure, payload)
	}
}

func TestPlanPayload_Decode(t *testing.T) {
	plan := WorkoutPlan{Exercises: []Exercise{{Name: "Row", Sets: []WorkoutSet{{Reps: RepCount(8)}}}}}

	got, err := DecodedPayload(plan).Decode()
	require.NoError(t, err)
	assert.Equal(t, "Row", got.Exercises[0].Name)

	got, err = TextPayload("```json\n{\"exercises\":[{\"name\":\"Row\",\"sets\":[{\"reps\":8}]}]}\n```").Decode()
	require.NoError(t, err)
	assert.Equal(t, plan.Exercises[0].Name, got.Exercises[0].Name)
}

func TestWorkoutPlan_Validate(t *testing.T) {
	valid := func() WorkoutPlan {
		return WorkoutPlan{Exercises: []Exercise{
			{Name: "Goblet Squat", Sets: []WorkoutSet{{Reps: RepCount(10), SetType: SetWorking}}},
		}}
	}

	tests := []struct {
		name    string
		modify  func(*WorkoutPlan)
		wantErr bool
	}{
		{name: "valid plan", modify: func(_ *WorkoutPlan) {}},
		{name: "no exercises", modify: func(p *WorkoutPlan) { p.Exercises = nil }, wantErr: true},
		{name: "empty exercises", modify: func(p *WorkoutPlan) { p.Exercises = []Exercise{} }, wantErr: true},
		{name: "missing name", modify: func(p *WorkoutPlan) { p.Exercises[0].Name = "" }, wantErr: true},
		{name: "empty sets", modify: func(p *WorkoutPlan) { p.Exercises[0].Sets = nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.modify(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPlan)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRequirements_DurationMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "30", want: 30},
		{in: "0", want: 0},
		{in: "", want: 45},
		{in: "45 minutes", want: 45},
		{in: "-10", want: 45},
		{in: "37.5", want: 45},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Requirements{Duration: tt.in}.DurationMinutes())
		})
	}
}

func TestExtractFlag(t *testing.T) {
	var r CoachReply
	require.NoError(t, jsonUnmarshal(`{"response":"ok","should_extract":true}`, &r))
	assert.True(t, r.ShouldExtract.Bool())
	assert.True(t, r.ShouldExtract.Valid())

	require.NoError(t, jsonUnmarshal(`{"response":"ok","should_extract":"False"}`, &r))
	assert.False(t, r.ShouldExtract.Bool())
	assert.True(t, r.ShouldExtract.Valid())

	assert.False(t, ExtractFlag("maybe").Valid())

	require.NoError(t, jsonUnmarshal(`{"response":"ok","should_extract":null}`, &r))
	assert.Empty(t, r.ShouldExtract)
	assert.False(t, r.ShouldExtract.Valid())
	assert.False(t, r.ShouldExtract.Bool())
}

func jsonUnmarshal(s string, v any) error { return json.Unmarshal([]byte(s), v) }
