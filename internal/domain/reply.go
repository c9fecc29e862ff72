package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ExtractFlag is the responder's raw readiness signal. Models emit it as a
// JSON boolean or as the strings "true"/"false"; the raw text is kept so
// reply quality scoring can tell a malformed flag from a false one.
type ExtractFlag string

// Flag values.
const (
	FlagTrue  ExtractFlag = "true"
	FlagFalse ExtractFlag = "false"
)

// FlagOf converts a boolean to an ExtractFlag.
func FlagOf(b bool) ExtractFlag { return ExtractFlag(strconv.FormatBool(b)) }

// Bool reports whether the flag reads as true.
func (f ExtractFlag) Bool() bool {
	return strings.EqualFold(strings.TrimSpace(string(f)), string(FlagTrue))
}

// Valid reports whether the flag is a recognizable boolean.
func (f ExtractFlag) Valid() bool {
	s := strings.ToLower(strings.TrimSpace(string(f)))
	return s == string(FlagTrue) || s == string(FlagFalse)
}

// UnmarshalJSON accepts booleans and strings. A JSON null leaves the flag
// empty, which Valid reports as unrecognized.
func (f *ExtractFlag) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*f = ""
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlagOf(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = ExtractFlag(s)
	return nil
}

// CoachReply is the conversational responder's answer to one user turn.
type CoachReply struct {
	Text          string      `json:"response"`
	ShouldExtract ExtractFlag `json:"should_extract"`
}
