package coach

// State is the position of a Session in the intake flow.
type State string

// Session states. ReadyToExtract and Extracting only exist while a turn is
// in flight; a finished turn always leaves the session in Gathering,
// Complete or Terminal.
const (
	StateGathering      State = "gathering"
	StateReadyToExtract State = "ready_to_extract"
	StateExtracting     State = "extracting"
	StateComplete       State = "complete"
	StateTerminal       State = "terminal"
)

// Done reports whether the session accepts no further turns.
func (s State) Done() bool { return s == StateTerminal }
