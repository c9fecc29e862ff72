package coach

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-coach/internal/domain"
)

func TestRenderPlan(t *testing.T) {
	var plan domain.WorkoutPlan
	require.NoError(t, json.Unmarshal([]byte(`{
		"workoutFocus": "legs",
		"notes": "Rest 90s between sets.",
		"exercises": [
			{"name": "Squat", "sets": [
				{"reps": 5, "setType": "warmup", "weight": 95},
				{"reps": "8 reps", "setType": "working", "weight": 185.5}
			]},
			{"name": "Plank", "sets": [{"reps": "AMRAP"}]}
		]}`), &plan))

	out := RenderPlan(plan)

	assert.Contains(t, out, planHeader)
	assert.Contains(t, out, "Focus: legs")
	assert.Contains(t, out, "Squat:")
	assert.Contains(t, out, "  Set 1: 5 reps (warmup) @ 95lbs")
	assert.Contains(t, out, "  Set 2: 8 reps (working) @ 185.5lbs")
	assert.Contains(t, out, "  Set 1: ? reps\n")
	assert.Contains(t, out, "Notes: Rest 90s between sets.")
}

func TestRenderPlan_Empty(t *testing.T) {
	out := RenderPlan(domain.WorkoutPlan{})
	assert.Contains(t, out, "(no exercises)")
}

func TestMissingNotice(t *testing.T) {
	got := missingNotice([]domain.Field{domain.FieldDuration, domain.FieldFocus})
	assert.Equal(t, "[Still gathering info - missing: duration, focus]", got)
}
