// Package detector classifies a freshly fetched price against the previous observation.
package detector

import (
	"github.com/shopspring/decimal"

	"pricewatch/internal/model"
)

// Classify compares newPrice with prior. A nil prior means the identifier has no history yet.
func Classify(newPrice decimal.Decimal, prior *model.Observation) model.CheckOutcome {
	if prior == nil {
		return model.CheckOutcome{Kind: model.OutcomeFirst}
	}
	delta := newPrice.Sub(prior.Price)
	switch delta.Sign() {
	case 0:
		return model.CheckOutcome{Kind: model.OutcomeUnchanged}
	case 1:
		return model.CheckOutcome{Kind: model.OutcomeIncreased, Delta: delta}
	default:
		return model.CheckOutcome{Kind: model.OutcomeDecreased, Delta: delta.Abs()}
	}
}

// Failed is the outcome reported when no price could be fetched.
func Failed() model.CheckOutcome {
	return model.CheckOutcome{Kind: model.OutcomeFailed}
}
