package repl

// State is a phase of one loop iteration.
type State int

const (
	StatePrompting State = iota
	StateReading
	StateEvaluating
	StatePrinting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StatePrompting:
		return "prompting"
	case StateReading:
		return "reading"
	case StateEvaluating:
		return "evaluating"
	case StatePrinting:
		return "printing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
