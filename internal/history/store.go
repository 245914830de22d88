// Package history persists the per-domain price history as a single JSON document.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricewatch/internal/model"
)

// PersistResult reports the outcome of a Save. A non-nil Err means the file on
// disk still holds the previous run's state.
type PersistResult struct {
	Path    string
	Domains int
	Err     error
}

// FileStore loads and saves the history document at a fixed path.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger.With(zap.String("component", "history"))}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string { return s.path }

// Load reads the history file. A missing file or any read/parse error yields an
// empty store; errors are logged, never returned.
func (s *FileStore) Load() model.Store {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("no price history found, starting fresh", zap.String("path", s.path))
		} else {
			s.logger.Error("read price history", zap.String("path", s.path), zap.Error(err))
		}
		return model.NewStore()
	}

	var store model.Store
	if err := json.Unmarshal(data, &store); err != nil {
		s.logger.Error("parse price history", zap.String("path", s.path), zap.Error(err))
		return model.NewStore()
	}
	s.logger.Info("price history loaded", zap.String("path", s.path), zap.Int("domains", len(store.Domains)))
	return store
}

// Save overwrites the history file with the full store, pretty-printed.
// The document is written to a temporary file first and renamed into place.
func (s *FileStore) Save(store model.Store) PersistResult {
	res := PersistResult{Path: s.path, Domains: len(store.Domains)}
	if err := writeFile(s.path, store); err != nil {
		res.Err = err
		s.logger.Error("save price history", zap.String("path", s.path), zap.Error(err))
		return res
	}
	s.logger.Info("price history saved", zap.String("path", s.path), zap.Int("domains", res.Domains))
	return res
}

func writeFile(path string, store model.Store) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

// RecordObservation appends a new observation for id and returns the store
// together with the observation that was last before the append (nil if none).
// at is stored in UTC at millisecond precision, the resolution of the file.
func RecordObservation(store model.Store, id string, price decimal.Decimal, at time.Time) (model.Store, *model.Observation) {
	rec := store.Ensure(id)
	prior := rec.PriceHistory.Last()
	at = at.UTC().Truncate(time.Millisecond)
	rec.PriceHistory = append(rec.PriceHistory, model.Observation{Time: at, Price: price})
	return store, prior
}
