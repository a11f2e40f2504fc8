package alerts

import "github.com/fleetpulse/fleetpulse/internal/models"

// OutcomeCode distinguishes the three ways a creation attempt can
// succeed. A suppressed duplicate and a classification miss are both
// valid non-error results and callers need to tell them apart.
type OutcomeCode int

const (
	// OutcomeCreated means a new alert row was persisted.
	OutcomeCreated OutcomeCode = iota
	// OutcomeSuppressed means a recent duplicate absorbed this attempt.
	OutcomeSuppressed
	// OutcomeNoCandidate means no classification result passed its threshold.
	OutcomeNoCandidate
)

func (c OutcomeCode) String() string {
	switch c {
	case OutcomeCreated:
		return "created"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeNoCandidate:
		return "no_qualifying_candidate"
	default:
		return "unknown"
	}
}

// CreateOutcome is the result of CreateAlert. Alert is the new row for
// OutcomeCreated, the absorbing row for OutcomeSuppressed, and nil for
// OutcomeNoCandidate.
type CreateOutcome struct {
	Code  OutcomeCode
	Alert *models.Alert
}
