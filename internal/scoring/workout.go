package scoring

import (
	"strings"

	"github.com/ahrav/go-coach/internal/domain"
)

// Rubric point values.
const (
	fullCredit    = 1.0
	partialCredit = 0.5
	noCredit      = 0.0

	rubricMax = 5.0
)

// Goals with a rep-range constraint. Any other goal is unconstrained.
const (
	GoalStrength    = "strength"
	GoalPower       = "power"
	GoalHypertrophy = "hypertrophy"
	GoalEndurance   = "endurance"
)

// minutesPerExercise drives the expected exercise count for a session.
const minutesPerExercise = 10

// forbiddenEquipment maps a stated equipment to the keywords that must not
// appear in any exercise name. Equipment not listed (cables, machines,
// bands, ...) imposes no restriction.
var forbiddenEquipment = map[string][]string{
	"bodyweight": {"dumbbell", "barbell", "cable", "machine"},
	"dumbbells":  {"barbell", "cable", "machine"},
	"barbell":    {"dumbbell", "cable", "machine"},
}

// Rubric is the per-criterion breakdown of a workout score.
type Rubric struct {
	// Decoded is false when the payload could not be decoded; every
	// criterion is then zero.
	Decoded        bool    `json:"decoded"`
	Structure      float64 `json:"structure"`
	ExerciseCount  float64 `json:"exercise_count"`
	ExerciseShape  float64 `json:"exercise_shape"`
	RepRange       float64 `json:"rep_range"`
	Equipment      float64 `json:"equipment"`
	ExpectedCount  int     `json:"expected_count"`
	ExercisesFound int     `json:"exercises_found"`
}

// Points is the sum of all criteria.
func (r Rubric) Points() float64 {
	return r.Structure + r.ExerciseCount + r.ExerciseShape + r.RepRange + r.Equipment
}

// Score normalizes the points to [0, 1].
func (r Rubric) Score() float64 { return r.Points() / rubricMax }

// ScoreWorkout scores a generated plan against the user's requirements.
// An undecodable payload scores exactly 0.
func ScoreWorkout(req domain.Requirements, payload domain.PlanPayload) float64 {
	return ScoreWorkoutDetailed(req, payload).Score()
}

// ScoreWorkoutText scores raw generator output.
func ScoreWorkoutText(req domain.Requirements, text string) float64 {
	return ScoreWorkout(req, domain.TextPayload(text))
}

// ScoreWorkoutDetailed runs all five criteria and returns the breakdown.
// The criteria are independent; an empty exercise list simply earns nothing
// on any of them.
func ScoreWorkoutDetailed(req domain.Requirements, payload domain.PlanPayload) Rubric {
	expected := req.DurationMinutes() / minutesPerExercise

	plan, err := payload.Decode()
	if err != nil {
		return Rubric{ExpectedCount: expected}
	}

	exercises := plan.Exercises
	return Rubric{
		Decoded:        true,
		Structure:      scoreStructure(exercises),
		ExerciseCount:  scoreExerciseCount(len(exercises), expected),
		ExerciseShape:  scoreExerciseShape(exercises),
		RepRange:       scoreRepRange(exercises, req.Goal),
		Equipment:      scoreEquipment(exercises, req.Equipment),
		ExpectedCount:  expected,
		ExercisesFound: len(exercises),
	}
}

func scoreStructure(exercises []domain.Exercise) float64 {
	if len(exercises) == 0 {
		return noCredit
	}
	return fullCredit
}

// scoreExerciseCount awards full credit when count lies within 50% to 150%
// of expected. An expected count of 0 makes the range [0, 0], so any plan
// with exercises falls back to partial credit.
func scoreExerciseCount(count, expected int) float64 {
	if count == 0 {
		return noCredit
	}
	lo, hi := 0.5*float64(expected), 1.5*float64(expected)
	if n := float64(count); n >= lo && n <= hi {
		return fullCredit
	}
	return partialCredit
}

// scoreExerciseShape is all-or-nothing: a single exercise without a name or
// without sets zeroes it.
func scoreExerciseShape(exercises []domain.Exercise) float64 {
	if len(exercises) == 0 {
		return noCredit
	}
	for i := range exercises {
		if exercises[i].Validate() != nil {
			return noCredit
		}
	}
	return fullCredit
}

func scoreRepRange(exercises []domain.Exercise, goal string) float64 {
	if len(exercises) == 0 {
		return noCredit
	}
	goal = strings.ToLower(strings.TrimSpace(goal))
	for _, ex := range exercises {
		for _, set := range ex.Sets {
			reps, ok := set.Reps.Value()
			if !ok {
				continue
			}
			if !repsFitGoal(reps, goal) {
				return partialCredit
			}
		}
	}
	return fullCredit
}

func repsFitGoal(reps int, goal string) bool {
	switch goal {
	case GoalStrength, GoalPower:
		return reps <= 6
	case GoalHypertrophy:
		return reps >= 6 && reps <= 15
	case GoalEndurance:
		return reps >= 12
	default:
		return true
	}
}

func scoreEquipment(exercises []domain.Exercise, equipment string) float64 {
	if len(exercises) == 0 {
		return noCredit
	}
	forbidden := forbiddenEquipment[strings.ToLower(strings.TrimSpace(equipment))]
	for _, ex := range exercises {
		name := strings.ToLower(ex.Name)
		for _, kw := range forbidden {
			if strings.Contains(name, kw) {
				return partialCredit
			}
		}
	}
	return fullCredit
}
