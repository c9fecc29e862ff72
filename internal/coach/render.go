package coach

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ahrav/go-coach/internal/domain"
)

// Messages shown to the user.
const (
	planHeader      = "YOUR PERSONALIZED WORKOUT"
	anotherPrompt   = "Would you like to create another workout? (yes/no)"
	restartMessage  = "Let's create a new workout!"
	goodbyeMessage  = "Goodbye! Stay fit!"
	endedMessage    = "This session has ended. Start a new session to plan another workout."
	retryMessage    = "Let's try again."
	analyzingNotice = "[Analyzing your requirements...]"
)

// RenderPlan formats a plan for the console.
func RenderPlan(plan domain.WorkoutPlan) string {
	var b strings.Builder
	b.WriteString(planHeader)
	b.WriteString("\n")
	if plan.WorkoutFocus != "" {
		fmt.Fprintf(&b, "\nFocus: %s\n", plan.WorkoutFocus)
	}

	if len(plan.Exercises) == 0 {
		b.WriteString("\n(no exercises)\n")
	}
	for _, ex := range plan.Exercises {
		fmt.Fprintf(&b, "\n%s:\n", ex.Name)
		for i, set := range ex.Sets {
			fmt.Fprintf(&b, "  Set %d: %s reps", i+1, renderReps(set.Reps))
			if set.SetType != "" {
				fmt.Fprintf(&b, " (%s)", set.SetType)
			}
			if set.Weight != nil && *set.Weight != 0 {
				fmt.Fprintf(&b, " @ %slbs", strconv.FormatFloat(*set.Weight, 'f', -1, 64))
			}
			b.WriteString("\n")
		}
	}

	if plan.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", plan.Notes)
	}
	return b.String()
}

func renderReps(r domain.Reps) string {
	if n, ok := r.Value(); ok {
		return strconv.Itoa(n)
	}
	return "?"
}

// missingNotice tells the user which required fields are still unknown.
func missingNotice(missing []domain.Field) string {
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("[Still gathering info - missing: %s]", strings.Join(names, ", "))
}
