package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// SetType distinguishes warmup sets from working sets.
type SetType string

// Set types.
const (
	SetWarmup  SetType = "warmup"
	SetWorking SetType = "working"
)

// Reps is a repetition count. Generators emit reps as integers or as free
// text such as "12 reps"; text is normalized to its leading digit run. A
// count that cannot be normalized is kept as unknown instead of failing the
// whole plan decode.
type Reps struct {
	n     int
	known bool
}

// RepCount returns a known repetition count.
func RepCount(n int) Reps { return Reps{n: n, known: true} }

// Value returns the normalized count and whether it is known.
func (r Reps) Value() (int, bool) { return r.n, r.known }

// MarshalJSON emits known counts as integers and unknown counts as null.
func (r Reps) MarshalJSON() ([]byte, error) {
	if !r.known {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(r.n)), nil
}

// UnmarshalJSON implements the normalization rules described on Reps.
func (r *Reps) UnmarshalJSON(data []byte) error {
	*r = Reps{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if n, ok := ParseLeadingInt(s); ok {
			*r = RepCount(n)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		// Only integral numbers count; 8.5 reps is not a rep count.
		n, err := strconv.Atoi(string(data))
		if err == nil && n >= 0 {
			*r = RepCount(n)
		}
	}
	return nil
}

// ParseLeadingInt parses the first run of ASCII digits in s, ignoring any
// leading non-digit text. "12 reps" yields 12, "AMRAP" yields false.
func ParseLeadingInt(s string) (int, bool) {
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// WorkoutSet is one set of an exercise. Weight is omitted for bodyweight
// movements.
type WorkoutSet struct {
	Reps    Reps     `json:"reps"`
	SetType SetType  `json:"setType,omitempty"`
	Weight  *float64 `json:"weight,omitempty"`
}

// UnmarshalJSON tolerates loosely typed setType and weight values. A
// non-string set type decodes as empty and a non-numeric weight ("BW",
// "bodyweight") decodes as omitted; neither is worth rejecting a plan over.
func (s *WorkoutSet) UnmarshalJSON(data []byte) error {
	var raw struct {
		Reps    Reps            `json:"reps"`
		SetType json.RawMessage `json:"setType"`
		Weight  json.RawMessage `json:"weight"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = WorkoutSet{Reps: raw.Reps}
	var st string
	if json.Unmarshal(raw.SetType, &st) == nil {
		s.SetType = SetType(st)
	}
	var w *float64
	if len(raw.Weight) > 0 && json.Unmarshal(raw.Weight, &w) == nil {
		s.Weight = w // nil for an explicit null
	}
	return nil
}

// Exercise is a named movement with its ordered sets.
type Exercise struct {
	Name string       `json:"name" validate:"required"`
	Sets []WorkoutSet `json:"sets" validate:"required,min=1"`
}

// WorkoutPlan is the structured plan produced by the generator.
type WorkoutPlan struct {
	Exercises    []Exercise `json:"exercises" validate:"required,min=1,dive"`
	Notes        string     `json:"notes,omitempty"`
	WorkoutFocus string     `json:"workoutFocus,omitempty"`
}

// UnmarshalJSON keeps notes and workoutFocus only when they are strings.
// Models sometimes emit notes as a list or the focus as an object; the
// exercises are what the plan is judged on.
func (p *WorkoutPlan) UnmarshalJSON(data []byte) error {
	var raw struct {
		Exercises    []Exercise      `json:"exercises"`
		Notes        json.RawMessage `json:"notes"`
		WorkoutFocus json.RawMessage `json:"workoutFocus"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = WorkoutPlan{
		Exercises:    raw.Exercises,
		Notes:        optionalString(raw.Notes),
		WorkoutFocus: optionalString(raw.WorkoutFocus),
	}
	return nil
}

func optionalString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// Validate reports whether the plan is structurally valid: a non-empty
// exercise list where every exercise has a name and at least one set.
func (p *WorkoutPlan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return nil
}

// Validate reports whether a single exercise has a name and sets.
func (e *Exercise) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return nil
}

// Requirements are the user inputs the workout rubric scores a plan against.
type Requirements struct {
	Goal      string `json:"goal" yaml:"goal"`
	Equipment string `json:"equipment" yaml:"equipment"`
	Duration  string `json:"duration" yaml:"duration"`
}

// DefaultDurationMinutes is used when the duration is not a plain number.
const DefaultDurationMinutes = 45

// DurationMinutes parses Duration as a whole number of minutes. Anything
// other than a run of digits, including signs and decimals, falls back to
// DefaultDurationMinutes.
func (r Requirements) DurationMinutes() int {
	d := r.Duration
	if d == "" || strings.IndexFunc(d, func(c rune) bool { return !unicode.IsDigit(c) }) >= 0 {
		return DefaultDurationMinutes
	}
	n, err := strconv.Atoi(d)
	if err != nil {
		return DefaultDurationMinutes
	}
	return n
}

// PlanPayload is what a generator hands back: either an already decoded
// plan or text that still has to be decoded.
type PlanPayload struct {
	Plan *WorkoutPlan
	Text string
}

// DecodedPayload wraps an already decoded plan.
func DecodedPayload(p WorkoutPlan) PlanPayload { return PlanPayload{Plan: &p} }

// TextPayload wraps raw generator output.
func TextPayload(s string) PlanPayload { return PlanPayload{Text: s} }

// Decode returns the plan carried by the payload. Text is stripped of a
// surrounding code fence and decoded strictly; any failure wraps
// ErrDecodeFailure.
func (p PlanPayload) Decode() (WorkoutPlan, error) {
	if p.Plan != nil {
		return *p.Plan, nil
	}
	return DecodePlan(p.Text)
}

// DecodePlan strictly decodes generator text into a WorkoutPlan.
func DecodePlan(text string) (WorkoutPlan, error) {
	body := StripCodeFence(text)
	var plan WorkoutPlan
	if err := json.Unmarshal([]byte(body), &plan); err != nil {
		return WorkoutPlan{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	return plan, nil
}

// StripCodeFence returns the contents of the first fenced code block when
// text starts with a fence (``` or ```json). Otherwise the trimmed text is
// returned unchanged. An unterminated fence yields everything after the
// opening line.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	var body []string
	inCode := false
	for _, line := range strings.Split(trimmed, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inCode {
				break
			}
			inCode = true
			continue
		}
		if inCode {
			body = append(body, line)
		}
	}
	return strings.Join(body, "\n")
}
