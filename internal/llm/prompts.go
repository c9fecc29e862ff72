package llm

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-coach/internal/domain"
)

const responderInstruction = `You are Coach Nova, an encouraging fitness coach. You are gathering what is needed to write one workout: goal, focus, equipment, session duration in minutes, and optionally fitness level, training space, injuries and a recent primary lift PR.
Ask at most 1-3 questions per reply. Stay on topic and politely deflect anything that is not about training.
Set should_extract to true only when the conversation already contains the goal, focus, equipment and duration.
Answer with a JSON object: {"response": string, "should_extract": boolean}.`

const extractorInstruction = `Extract structured workout requirements from a coaching conversation.
Answer with a JSON object with exactly these keys, using the string "null" for anything the user has not stated:
  fitness_level: beginner|intermediate|advanced
  goal: strength|hypertrophy|endurance|power|general
  focus: push|pull|legs|chest|back|arms|shoulders|full_body
  equipment: bodyweight|dumbbells|barbell|machines|cables|bands
  duration: session minutes as a number
  space: home|gym|hotel|outdoor
  injuries: any limitations or pain
  primary_lift_pr: most recent primary lift personal record`

const generatorInstruction = `Generate one workout that matches the requirements exactly. Use only the listed equipment, fit the session duration, and match the rep ranges to the goal.
Answer with JSON only: {"exercises": [{"name": string, "sets": [{"reps": integer, "setType": "warmup"|"working", "weight"?: number}]}], "notes"?: string, "workoutFocus"?: string}`

func responderPrompt(history *domain.Transcript, message string) string {
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	if history.IsEmpty() {
		b.WriteString("(none)\n")
	} else {
		b.WriteString(history.String())
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nUser message:\n%s\n", message)
	return b.String()
}

func extractorPrompt(history *domain.Transcript) string {
	return "Complete conversation:\n" + history.String() + "\n"
}

func generatorPrompt(fields domain.FieldSet) string {
	var b strings.Builder
	b.WriteString("Requirements:\n")
	for _, f := range domain.AllFields() {
		fmt.Fprintf(&b, "  %s: %s\n", f, fields.Get(f))
	}
	return b.String()
}
