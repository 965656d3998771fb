package model

import "fmt"

// Cause is the predicted reason for a crying episode.
type Cause string

// Candidate causes. Unknown signals insufficient data, never an error.
const (
	CauseHungry    Cause = "hungry"
	CauseDiaper    Cause = "diaper"
	CauseAttention Cause = "attention"
	CauseTired     Cause = "tired"
	CauseUnknown   Cause = "unknown"
)

// Causes lists the scorable causes in a stable order.
// CauseUnknown is excluded; it is an outcome, not a candidate.
func Causes() []Cause {
	return []Cause{CauseHungry, CauseDiaper, CauseAttention, CauseTired}
}

// ParseCause converts a string to a Cause, rejecting unknown values.
func ParseCause(s string) (Cause, error) {
	switch Cause(s) {
	case CauseHungry, CauseDiaper, CauseAttention, CauseTired, CauseUnknown:
		return Cause(s), nil
	default:
		return "", fmt.Errorf("unrecognized cause %q", s)
	}
}
