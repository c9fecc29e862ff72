package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NullSentinel is the literal string the external extractor uses to mean
// "not yet known". It only exists at the JSON boundary; inside the module an
// unknown value is represented by None().
const NullSentinel = "null"

// Field names one key of a FieldSet.
type Field string

// FieldSet keys. The set is fixed and exhaustive.
const (
	FieldFitnessLevel  Field = "fitness_level"
	FieldGoal          Field = "goal"
	FieldFocus         Field = "focus"
	FieldEquipment     Field = "equipment"
	FieldDuration      Field = "duration"
	FieldSpace         Field = "space"
	FieldInjuries      Field = "injuries"
	FieldPrimaryLiftPR Field = "primary_lift_pr"
)

// Defaults applied to absent optional fields before plan generation.
const (
	DefaultFitnessLevel  = "intermediate"
	DefaultSpace         = "gym"
	DefaultInjuries      = "none"
	DefaultPrimaryLiftPR = "none"
)

// AllFields returns every FieldSet key in canonical order.
func AllFields() []Field {
	return []Field{
		FieldFitnessLevel,
		FieldGoal,
		FieldFocus,
		FieldEquipment,
		FieldDuration,
		FieldSpace,
		FieldInjuries,
		FieldPrimaryLiftPR,
	}
}

// RequiredFields returns the keys that must be present before a plan can be
// generated, in the order missing fields are reported.
func RequiredFields() []Field {
	return []Field{FieldGoal, FieldEquipment, FieldDuration, FieldFocus}
}

// ScoredFields returns the keys compared by extraction accuracy scoring.
// primary_lift_pr is deliberately excluded.
func ScoredFields() []Field {
	return []Field{
		FieldFitnessLevel,
		FieldGoal,
		FieldFocus,
		FieldEquipment,
		FieldDuration,
		FieldSpace,
		FieldInjuries,
	}
}

// Valid reports whether f is one of the fixed FieldSet keys.
func (f Field) Valid() bool {
	for _, k := range AllFields() {
		if k == f {
			return true
		}
	}
	return false
}

// Value is an optional field value. The zero Value is absent.
type Value struct {
	s   string
	set bool
}

// Some returns a present value. Empty strings and the sentinel normalize to
// None so that "missing" has exactly one representation.
func Some(s string) Value {
	if isMissingText(s) {
		return Value{}
	}
	return Value{s: s, set: true}
}

// None returns an absent value.
func None() Value { return Value{} }

// Get returns the value and whether it is present.
func (v Value) Get() (string, bool) { return v.s, v.set }

// IsMissing reports whether the value is absent.
func (v Value) IsMissing() bool { return !v.set }

// Or returns the value if present, otherwise fallback.
func (v Value) Or(fallback string) string {
	if v.set {
		return v.s
	}
	return fallback
}

// String renders the value the way the extractor boundary expects it.
func (v Value) String() string { return v.Or(NullSentinel) }

// MarshalJSON emits the sentinel for absent values.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON accepts strings, numbers and null. JSON null, the empty
// string and the sentinel all decode to an absent value.
func (v *Value) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*v = None()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Some(s)
		return nil
	}
	// Extractors occasionally answer "duration": 45.
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Some(n.String())
		return nil
	}
	return fmt.Errorf("%w: unsupported value %s", ErrInvalidFieldSet, raw)
}

// UnmarshalYAML mirrors UnmarshalJSON for evaluation datasets.
func (v *Value) UnmarshalYAML(unmarshal func(any) error) error {
	var s *string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == nil {
		*v = None()
		return nil
	}
	*v = Some(*s)
	return nil
}

func isMissingText(s string) bool {
	return s == "" || s == NullSentinel
}

// FieldSet holds the structured workout requirements extracted from a
// conversation.
type FieldSet struct {
	FitnessLevel  Value `json:"fitness_level" yaml:"fitness_level"`
	Goal          Value `json:"goal" yaml:"goal"`
	Focus         Value `json:"focus" yaml:"focus"`
	Equipment     Value `json:"equipment" yaml:"equipment"`
	Duration      Value `json:"duration" yaml:"duration"`
	Space         Value `json:"space" yaml:"space"`
	Injuries      Value `json:"injuries" yaml:"injuries"`
	PrimaryLiftPR Value `json:"primary_lift_pr" yaml:"primary_lift_pr"`
}

// NewFieldSet builds a FieldSet from a key/value map. Unknown keys are
// rejected so callers cannot silently introduce new fields.
func NewFieldSet(values map[Field]string) (FieldSet, error) {
	var fs FieldSet
	for k, s := range values {
		if !k.Valid() {
			return FieldSet{}, fmt.Errorf("%w: unknown field %q", ErrInvalidFieldSet, k)
		}
		fs = fs.With(k, s)
	}
	return fs, nil
}

// Get returns the value stored for f. Unknown keys are always absent.
func (fs FieldSet) Get(f Field) Value {
	if p := fs.slot(f); p != nil {
		return *p
	}
	return None()
}

// With returns a copy of fs with f set to s.
func (fs FieldSet) With(f Field, s string) FieldSet {
	if p := fs.slot(f); p != nil {
		*p = Some(s)
	}
	return fs
}

// slot returns a pointer into fs for f. fs is a value receiver so the
// pointer only ever aliases the caller's copy.
func (fs *FieldSet) slot(f Field) *Value {
	switch f {
	case FieldFitnessLevel:
		return &fs.FitnessLevel
	case FieldGoal:
		return &fs.Goal
	case FieldFocus:
		return &fs.Focus
	case FieldEquipment:
		return &fs.Equipment
	case FieldDuration:
		return &fs.Duration
	case FieldSpace:
		return &fs.Space
	case FieldInjuries:
		return &fs.Injuries
	case FieldPrimaryLiftPR:
		return &fs.PrimaryLiftPR
	default:
		return nil
	}
}

// Missing returns the subset of fields that are absent, preserving the
// order they were given in.
func (fs FieldSet) Missing(fields ...Field) []Field {
	var missing []Field
	for _, f := range fields {
		if fs.Get(f).IsMissing() {
			missing = append(missing, f)
		}
	}
	return missing
}

// WithDefaults fills absent optional fields. Required fields are never
// defaulted.
func (fs FieldSet) WithDefaults() FieldSet {
	if fs.FitnessLevel.IsMissing() {
		fs.FitnessLevel = Some(DefaultFitnessLevel)
	}
	if fs.Space.IsMissing() {
		fs.Space = Some(DefaultSpace)
	}
	if fs.Injuries.IsMissing() {
		fs.Injuries = Some(DefaultInjuries)
	}
	if fs.PrimaryLiftPR.IsMissing() {
		fs.PrimaryLiftPR = Some(DefaultPrimaryLiftPR)
	}
	return fs
}

// Requirements projects the fields the workout rubric is scored against.
func (fs FieldSet) Requirements() Requirements {
	return Requirements{
		Goal:      fs.Goal.Or(""),
		Equipment: fs.Equipment.Or(""),
		Duration:  fs.Duration.Or(""),
	}
}

// Map renders fs as sentinel-encoded strings keyed by field name.
func (fs FieldSet) Map() map[Field]string {
	out := make(map[Field]string, len(AllFields()))
	for _, f := range AllFields() {
		out[f] = fs.Get(f).String()
	}
	return out
}
