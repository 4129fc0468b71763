package registry

// Outcome is the result of comparing a candidate against the champion.
type Outcome int

const (
	// OutcomeFirstChampion means the registry was empty.
	OutcomeFirstChampion Outcome = iota + 1
	// OutcomePromoted means the candidate strictly beat the champion.
	OutcomePromoted
	// OutcomeChallenger means the candidate was archived; the champion stays.
	OutcomeChallenger
)

// String returns a stable identifier used in logs, metrics and the ledger.
func (o Outcome) String() string {
	switch o {
	case OutcomeFirstChampion:
		return "first_champion"
	case OutcomePromoted:
		return "promoted"
	case OutcomeChallenger:
		return "challenger"
	default:
		return "unknown"
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Message is the human readable summary returned to callers.
func (o Outcome) Message() string {
	switch o {
	case OutcomeFirstChampion:
		return "First champion model saved."
	case OutcomePromoted:
		return "New champion model saved."
	case OutcomeChallenger:
		return "Challenger model saved (not champion)."
	default:
		return ""
	}
}

// Policy decides what happens to a candidate. current is nil when there is no
// champion.
type Policy interface {
	Decide(candidate float64, current *float64) Outcome
}

// MinimizePolicy promotes strictly lower metrics.
type MinimizePolicy struct{}

// Decide implements Policy.
func (MinimizePolicy) Decide(candidate float64, current *float64) Outcome {
	return Decide(candidate, current)
}

// Decide is the lower-is-better rule. Equal metrics keep the incumbent.
func Decide(candidate float64, current *float64) Outcome {
	if current == nil {
		return OutcomeFirstChampion
	}
	if candidate < *current {
		return OutcomePromoted
	}
	return OutcomeChallenger
}
