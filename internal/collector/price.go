package collector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonPriceChars  = regexp.MustCompile(`[^0-9.]`)
	leadingDecimal = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)`)
)

// ParsePrice strips everything but digits and dots from text and parses the
// leading decimal literal, so "$1,234.50/yr" yields 1234.50.
func ParsePrice(text string) (decimal.Decimal, error) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	lit := strings.TrimSuffix(leadingDecimal.FindString(cleaned), ".")
	if lit == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparseablePrice, text)
	}
	if strings.HasPrefix(lit, ".") {
		lit = "0" + lit
	}
	p, err := decimal.NewFromString(lit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrUnparseablePrice, text, err)
	}
	return p, nil
}
