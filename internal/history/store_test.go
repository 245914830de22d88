package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricewatch/internal/model"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "data", "history.json"), zap.NewNop())
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLoad_MissingFileReturnsEmptyStore(t *testing.T) {
	fs := newTestStore(t)
	store := fs.Load()
	if store.Domains == nil {
		t.Fatal("expected initialized domains map")
	}
	if len(store.Domains) != 0 {
		t.Fatalf("expected empty store, got %d domains", len(store.Domains))
	}
}

func TestLoad_CorruptFileReturnsEmptyStore(t *testing.T) {
	fs := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(fs.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fs.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	store := fs.Load()
	if len(store.Domains) != 0 {
		t.Fatalf("expected empty store, got %d domains", len(store.Domains))
	}
}

func TestRecordObservation_FirstAndSubsequent(t *testing.T) {
	store := model.NewStore()
	t0 := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	store, prior := RecordObservation(store, "a.test", price("10.00"), t0)
	if prior != nil {
		t.Fatalf("expected no prior observation, got %+v", prior)
	}
	h, ok := store.History("a.test")
	if !ok || len(h) != 1 {
		t.Fatalf("expected history of length 1, got %d (exists=%v)", len(h), ok)
	}

	store, prior = RecordObservation(store, "a.test", price("12.00"), t0.Add(time.Hour))
	if prior == nil || !prior.Price.Equal(price("10.00")) {
		t.Fatalf("expected prior price 10.00, got %+v", prior)
	}
	h, _ = store.History("a.test")
	if len(h) != 2 {
		t.Fatalf("expected history of length 2, got %d", len(h))
	}
	if !h[0].Price.Equal(price("10")) || !h[1].Price.Equal(price("12")) {
		t.Errorf("history order changed: %+v", h)
	}
}

func TestRecordObservation_NilDomainsMap(t *testing.T) {
	var store model.Store
	store, prior := RecordObservation(store, "x.test", price("1"), time.Now())
	if prior != nil {
		t.Fatal("expected nil prior")
	}
	if h, ok := store.History("x.test"); !ok || len(h) != 1 {
		t.Fatalf("expected one observation, got %v", h)
	}
}

func TestSaveLoad_RoundTripPreservesOrder(t *testing.T) {
	fs := newTestStore(t)
	store := model.NewStore()
	base := time.Date(2025, 3, 4, 5, 6, 7, 123_000_000, time.UTC)
	prices := []string{"10.00", "9.50", "11.25", "11.25"}
	for i, p := range prices {
		store, _ = RecordObservation(store, "a.test", price(p), base.Add(time.Duration(i)*time.Hour))
	}
	store, _ = RecordObservation(store, "b.test", price("0.99"), base)

	if res := fs.Save(store); res.Err != nil {
		t.Fatalf("save: %v", res.Err)
	}
	loaded := fs.Load()

	if got, want := loaded.Identifiers(), []string{"a.test", "b.test"}; strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected identifiers %v, got %v", want, got)
	}
	h, _ := loaded.History("a.test")
	if len(h) != len(prices) {
		t.Fatalf("expected %d entries, got %d", len(prices), len(h))
	}
	for i, p := range prices {
		if !h[i].Price.Equal(price(p)) {
			t.Errorf("entry %d: expected %s, got %s", i, p, h[i].Price)
		}
		if !h[i].Time.Equal(base.Add(time.Duration(i) * time.Hour)) {
			t.Errorf("entry %d: expected time %v, got %v", i, base.Add(time.Duration(i)*time.Hour), h[i].Time)
		}
	}
}

func TestSave_WritesDocumentFormat(t *testing.T) {
	fs := newTestStore(t)
	store := model.NewStore()
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	store, _ = RecordObservation(store, "example.com", price("10.99"), at)
	if res := fs.Save(store); res.Err != nil {
		t.Fatalf("save: %v", res.Err)
	}

	data, err := os.ReadFile(fs.Path())
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "\n  \"domains\"") {
		t.Errorf("expected pretty-printed output, got:\n%s", text)
	}
	if !strings.Contains(text, `"date": "2025-01-02T03:04:05.000Z"`) {
		t.Errorf("expected ISO-8601 date, got:\n%s", text)
	}
	if !strings.Contains(text, `"price": 10.99`) {
		t.Errorf("expected numeric price, got:\n%s", text)
	}
}

func TestLoadSave_PreservesUnknownKeys(t *testing.T) {
	fs := newTestStore(t)
	doc := `{
  "version": 2,
  "domains": {
    "a.test": {
      "note": "keep me",
      "priceHistory": [
        {"date": "2024-05-01T10:00:00.000Z", "price": 5},
        {"date": "2024-05-02T10:00:00.000Z", "price": "5.5"}
      ]
    }
  }
}`
	if err := os.MkdirAll(filepath.Dir(fs.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fs.Path(), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	store := fs.Load()
	h, ok := store.History("a.test")
	if !ok || len(h) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(h))
	}
	if !h[1].Price.Equal(price("5.5")) {
		t.Errorf("expected quoted price to decode, got %s", h[1].Price)
	}

	store, _ = RecordObservation(store, "a.test", price("6"), time.Now())
	if res := fs.Save(store); res.Err != nil {
		t.Fatalf("save: %v", res.Err)
	}

	data, err := os.ReadFile(fs.Path())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["version"] != float64(2) {
		t.Errorf("top-level key lost: %v", raw["version"])
	}
	rec := raw["domains"].(map[string]any)["a.test"].(map[string]any)
	if rec["note"] != "keep me" {
		t.Errorf("per-domain key lost: %v", rec["note"])
	}
	if n := len(rec["priceHistory"].([]any)); n != 3 {
		t.Errorf("expected 3 entries after append, got %d", n)
	}
}

func TestSave_FailureIsReportedNotRaised(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	// parent "directory" is a regular file, so the write must fail
	fs := NewFileStore(filepath.Join(blocker, "history.json"), zap.NewNop())
	res := fs.Save(model.NewStore())
	if res.Err == nil {
		t.Fatal("expected save error")
	}
}

func TestSaveLoad_RoundTripSubMillisecondTime(t *testing.T) {
	fs := newTestStore(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 123_456_789, time.FixedZone("CET", 3600))

	store, _ := RecordObservation(model.NewStore(), "a.test", price("10.00"), at)
	if res := fs.Save(store); res.Err != nil {
		t.Fatalf("save: %v", res.Err)
	}
	loaded := fs.Load()

	want, _ := store.History("a.test")
	got, _ := loaded.History("a.test")
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if !got[0].Time.Equal(want[0].Time) {
		t.Errorf("time changed across save/load: recorded %v, loaded %v", want[0].Time, got[0].Time)
	}
	if want[0].Time.Location() != time.UTC || want[0].Time.Nanosecond() != 123_000_000 {
		t.Errorf("expected UTC millisecond time, got %v", want[0].Time)
	}
}

func TestLoadSave_KeepsEntriesWithUnusualDates(t *testing.T) {
	fs := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(fs.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	doc := `{
  "domains": {
    "a.test": {"priceHistory": [{"date": "2024-05-01T10:00:00.000Z", "price": 10}]},
    "b.test": {"priceHistory": [
      {"date": "2024-05-01", "price": 5},
      {"date": "last tuesday", "price": 6},
      {"price": 7}
    ]}
  }
}`
	if err := os.WriteFile(fs.Path(), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	store := fs.Load()
	if ids := store.Identifiers(); len(ids) != 2 {
		t.Fatalf("expected both domains to load, got %v", ids)
	}
	b, _ := store.History("b.test")
	if len(b) != 3 {
		t.Fatalf("expected 3 b.test entries, got %d", len(b))
	}
	if !b[0].Time.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected date-only entry to parse, got %v", b[0].Time)
	}
	if !b[1].Time.IsZero() || !b[2].Time.IsZero() {
		t.Errorf("expected unparseable and missing dates to leave time zero")
	}

	store, prior := RecordObservation(store, "b.test", price("8"), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if prior == nil || !prior.Price.Equal(price("7")) {
		t.Fatalf("expected prior price 7, got %+v", prior)
	}
	if res := fs.Save(store); res.Err != nil {
		t.Fatalf("save: %v", res.Err)
	}

	data, err := os.ReadFile(fs.Path())
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Domains map[string]struct {
			PriceHistory []map[string]json.RawMessage `json:"priceHistory"`
		} `json:"domains"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode saved file: %v", err)
	}
	if len(out.Domains["a.test"].PriceHistory) != 1 {
		t.Errorf("a.test history lost: %s", data)
	}
	entries := out.Domains["b.test"].PriceHistory
	if len(entries) != 4 {
		t.Fatalf("expected 4 b.test entries, got %d", len(entries))
	}
	if got := string(entries[0]["date"]); got != `"2024-05-01"` {
		t.Errorf("date-only entry rewritten as %s", got)
	}
	if got := string(entries[1]["date"]); got != `"last tuesday"` {
		t.Errorf("unparseable date rewritten as %s", got)
	}
	if _, ok := entries[2]["date"]; ok {
		t.Errorf("entry without date gained one: %v", entries[2])
	}
	if got := string(entries[3]["date"]); got != `"2024-06-01T00:00:00.000Z"` {
		t.Errorf("new entry date = %s", got)
	}
}
