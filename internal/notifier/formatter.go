package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"pricewatch/internal/model"
)

const (
	TitleCheck  = "Domain Price Check"
	TitleError  = "Price Check Error"
	TitleTest   = "Test from pricewatch"
	TestMessage = "This is a test notification sent through the configured push channel."
)

// StatusMessage formats the push message sent after every successful check.
func StatusMessage(identifier string, price decimal.Decimal, outcome model.CheckOutcome) string {
	return fmt.Sprintf("%s - $%s - %s", identifier, price.StringFixed(2), outcome.Label())
}

// FetchFailureMessage formats the push message for a failed fetch.
func FetchFailureMessage(identifier string) string {
	return fmt.Sprintf("Failed to check price for %s.", identifier)
}

// RunErrorMessage formats the push message for a run that aborted.
func RunErrorMessage(err error) string {
	return fmt.Sprintf("An error occurred: %v", err)
}

func direction(oldPrice, newPrice decimal.Decimal) string {
	if newPrice.GreaterThan(oldPrice) {
		return "increased"
	}
	return "decreased"
}

// AlertSubject formats the email subject, e.g. "Domain Price Alert: x.test increased by $2.50".
func AlertSubject(prefix, identifier string, oldPrice, newPrice decimal.Decimal) string {
	diff := newPrice.Sub(oldPrice).Abs().StringFixed(2)
	return fmt.Sprintf("%s%s %s by $%s", prefix, identifier, direction(oldPrice, newPrice), diff)
}

// AlertBody formats the HTML email body for a price change.
func AlertBody(identifier string, oldPrice, newPrice decimal.Decimal, link string) string {
	dir := direction(oldPrice, newPrice)
	signed := newPrice.Sub(oldPrice)
	sign := "+"
	if signed.Sign() < 0 {
		sign = "-"
	}
	id := html.EscapeString(identifier)

	var b strings.Builder
	b.WriteString("<h2>Domain Price Alert</h2>\n")
	b.WriteString(fmt.Sprintf("<p>The price for <strong>%s</strong> has %s.</p>\n", id, dir))
	b.WriteString("<p>\n")
	b.WriteString(fmt.Sprintf("  Old Price: $%s<br>\n", oldPrice.StringFixed(2)))
	b.WriteString(fmt.Sprintf("  New Price: $%s<br>\n", newPrice.StringFixed(2)))
	b.WriteString(fmt.Sprintf("  Difference: %s$%s (%s)\n", sign, signed.Abs().StringFixed(2), dir))
	b.WriteString("</p>\n")
	if link != "" {
		b.WriteString(fmt.Sprintf("<p>Check it out at: <a href=\"%s\">%s</a></p>\n", html.EscapeString(link), id))
	}
	return b.String()
}
