package detector

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/model"
)

func obs(price string) *model.Observation {
	return &model.Observation{Time: time.Now(), Price: decimal.RequireFromString(price)}
}

func TestClassify_FirstObservation(t *testing.T) {
	out := Classify(decimal.RequireFromString("10.00"), nil)
	if out.Kind != model.OutcomeFirst {
		t.Fatalf("expected %s, got %s", model.OutcomeFirst, out.Kind)
	}
	if out.Changed() {
		t.Error("first observation must not count as a change")
	}
	if out.Label() != "No previous data" {
		t.Errorf("unexpected label %q", out.Label())
	}
}

func TestClassify_AllDirections(t *testing.T) {
	tests := []struct {
		prior, next string
		kind        model.OutcomeKind
		delta       string
		label       string
	}{
		{"5.00", "7.50", model.OutcomeIncreased, "2.50", "increased by $2.50"},
		{"7.50", "5.00", model.OutcomeDecreased, "2.50", "decreased by $2.50"},
		{"9.99", "9.99", model.OutcomeUnchanged, "0.00", "unchanged"},
		{"10", "10.00", model.OutcomeUnchanged, "0.00", "unchanged"},
		{"0.10", "0.30", model.OutcomeIncreased, "0.20", "increased by $0.20"},
		{"12.345", "12.34", model.OutcomeDecreased, "0.01", "decreased by $0.01"},
	}
	for _, tt := range tests {
		out := Classify(decimal.RequireFromString(tt.next), obs(tt.prior))
		if out.Kind != tt.kind {
			t.Errorf("%s -> %s: expected %s, got %s", tt.prior, tt.next, tt.kind, out.Kind)
		}
		if out.FormattedDelta() != tt.delta {
			t.Errorf("%s -> %s: expected delta %s, got %s", tt.prior, tt.next, tt.delta, out.FormattedDelta())
		}
		if out.Label() != tt.label {
			t.Errorf("%s -> %s: expected label %q, got %q", tt.prior, tt.next, tt.label, out.Label())
		}
	}
}

func TestClassify_DeltaIsMagnitude(t *testing.T) {
	out := Classify(decimal.RequireFromString("1"), obs("4"))
	if out.Delta.Sign() < 0 {
		t.Fatalf("delta should be non-negative, got %s", out.Delta)
	}
	if !out.Delta.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected delta 3, got %s", out.Delta)
	}
}
