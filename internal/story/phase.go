package story

import "fmt"

// Phase is the lifecycle point a subscription observes: before or after
// insertion of a tuple (or triggering of a function), or before or after
// deletion.
type Phase int

// Trigger phases.
const (
	PhaseBefore Phase = iota
	PhaseAfter
	PhaseBeforeDelete
	PhaseAfterDelete
)

// String returns the wire name of the phase as used by the scripting API.
func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseAfter:
		return "after"
	case PhaseBeforeDelete:
		return "beforeDelete"
	case PhaseAfterDelete:
		return "afterDelete"
	default:
		return "invalid"
	}
}

// Delete reports whether the phase observes tuple deletion.
func (p Phase) Delete() bool {
	return p == PhaseBeforeDelete || p == PhaseAfterDelete
}

// ParsePhase converts a scripting-API phase name to a Phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "before":
		return PhaseBefore, nil
	case "after":
		return PhaseAfter, nil
	case "beforeDelete":
		return PhaseBeforeDelete, nil
	case "afterDelete":
		return PhaseAfterDelete, nil
	default:
		return 0, fmt.Errorf("unknown trigger phase %q", s)
	}
}
