package model

import "github.com/shopspring/decimal"

// OutcomeKind classifies the result of one price check.
type OutcomeKind string

const (
	OutcomeFirst     OutcomeKind = "first-observation"
	OutcomeUnchanged OutcomeKind = "unchanged"
	OutcomeIncreased OutcomeKind = "increased"
	OutcomeDecreased OutcomeKind = "decreased"
	OutcomeFailed    OutcomeKind = "fetch-failed"
)

// CheckOutcome is derived per check and never stored. Delta is the magnitude
// of the change and is only meaningful for increased/decreased.
type CheckOutcome struct {
	Kind  OutcomeKind
	Delta decimal.Decimal
}

// Changed reports whether the outcome is an increase or a decrease.
func (o CheckOutcome) Changed() bool {
	return o.Kind == OutcomeIncreased || o.Kind == OutcomeDecreased
}

// FormattedDelta renders the delta with two decimals.
func (o CheckOutcome) FormattedDelta() string {
	return o.Delta.Abs().StringFixed(2)
}

// Label is the human readable summary used in status messages.
func (o CheckOutcome) Label() string {
	switch o.Kind {
	case OutcomeFirst:
		return "No previous data"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeIncreased, OutcomeDecreased:
		return string(o.Kind) + " by $" + o.FormattedDelta()
	case OutcomeFailed:
		return "fetch failed"
	default:
		return string(o.Kind)
	}
}
