package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// isoLayout matches the millisecond ISO-8601 timestamps already present in history files.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// dateLayouts are tried in order when reading a stored date.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Observation is one timestamped price reading for an identifier.
type Observation struct {
	Time  time.Time
	Price decimal.Decimal

	// rawDate is the date exactly as read from disk, written back unchanged.
	rawDate json.RawMessage
}

type observationJSON struct {
	Date  json.RawMessage `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// MarshalJSON writes the observation as {"date": "...", "price": <number>}.
func (o Observation) MarshalJSON() ([]byte, error) {
	date := o.rawDate
	if date == nil {
		b, err := json.Marshal(o.Time.UTC().Format(isoLayout))
		if err != nil {
			return nil, err
		}
		date = b
	}
	return json.Marshal(struct {
		Date  json.RawMessage `json:"date,omitempty"`
		Price json.Number     `json:"price"`
	}{
		Date:  date,
		Price: json.Number(o.Price.String()),
	})
}

// UnmarshalJSON accepts the price as either a JSON number or a quoted string.
// A date in an unknown format, or no date at all, leaves Time zero; the
// stored value is kept so rewriting the file does not change it.
func (o *Observation) UnmarshalJSON(data []byte) error {
	var raw observationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Price = raw.Price
	o.Time = time.Time{}
	o.rawDate = json.RawMessage{}
	if len(raw.Date) == 0 {
		return nil
	}
	o.rawDate = append(json.RawMessage(nil), raw.Date...)

	var s string
	if err := json.Unmarshal(raw.Date, &s); err != nil {
		return nil
	}
	o.Time = parseDate(s)
	return nil
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// History is the append-only, chronological list of observations for one identifier.
type History []Observation

// Last returns the most recent observation, or nil when the history is empty.
func (h History) Last() *Observation {
	if len(h) == 0 {
		return nil
	}
	last := h[len(h)-1]
	return &last
}
