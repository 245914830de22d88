package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	domainsKey      = "domains"
	priceHistoryKey = "priceHistory"
)

// DomainRecord holds everything stored for one identifier. Keys other than
// priceHistory are kept as-is so older or newer tools can share the file.
type DomainRecord struct {
	PriceHistory History
	extra        map[string]json.RawMessage
}

func (r DomainRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.extra)+1)
	for k, v := range r.extra {
		out[k] = v
	}
	history := r.PriceHistory
	if history == nil {
		history = History{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return nil, err
	}
	out[priceHistoryKey] = b
	return json.Marshal(out)
}

func (r *DomainRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if h, ok := raw[priceHistoryKey]; ok {
		if err := json.Unmarshal(h, &r.PriceHistory); err != nil {
			return fmt.Errorf("decode %s: %w", priceHistoryKey, err)
		}
		delete(raw, priceHistoryKey)
	}
	if len(raw) > 0 {
		r.extra = raw
	}
	return nil
}

// Store maps identifiers to their price history. It is loaded once per run,
// mutated in memory and saved once at the end of the run.
type Store struct {
	Domains map[string]*DomainRecord
	extra   map[string]json.RawMessage
}

// NewStore returns an empty store.
func NewStore() Store {
	return Store{Domains: make(map[string]*DomainRecord)}
}

// History returns the history for id and whether a record exists.
func (s Store) History(id string) (History, bool) {
	rec, ok := s.Domains[id]
	if !ok || rec == nil {
		return nil, false
	}
	return rec.PriceHistory, true
}

// Ensure returns the record for id, creating an empty one if absent.
func (s *Store) Ensure(id string) *DomainRecord {
	if s.Domains == nil {
		s.Domains = make(map[string]*DomainRecord)
	}
	rec, ok := s.Domains[id]
	if !ok || rec == nil {
		rec = &DomainRecord{PriceHistory: History{}}
		s.Domains[id] = rec
	}
	return rec
}

// Identifiers returns all identifiers in the store, sorted.
func (s Store) Identifiers() []string {
	ids := make([]string, 0, len(s.Domains))
	for id := range s.Domains {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s Store) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.extra)+1)
	for k, v := range s.extra {
		out[k] = v
	}
	domains := s.Domains
	if domains == nil {
		domains = map[string]*DomainRecord{}
	}
	b, err := json.Marshal(domains)
	if err != nil {
		return nil, err
	}
	out[domainsKey] = b
	return json.Marshal(out)
}

func (s *Store) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Domains = make(map[string]*DomainRecord)
	if d, ok := raw[domainsKey]; ok {
		if string(d) != "null" {
			if err := json.Unmarshal(d, &s.Domains); err != nil {
				return fmt.Errorf("decode %s: %w", domainsKey, err)
			}
		}
		delete(raw, domainsKey)
	}
	if len(raw) > 0 {
		s.extra = raw
	}
	return nil
}
