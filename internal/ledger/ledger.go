// Package ledger persists the full set of records as a JSON file.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"gigsync/internal/logger"
	"gigsync/internal/models"
	"gigsync/pkg/utils"
)

// Ledger errors.
var (
	ErrLoad = errors.New("failed to load ledger")
	ErrSave = errors.New("failed to save ledger")
)

// Store reads and rewrites the ledger file.
type Store struct {
	log  *logger.Logger
	path string
}

// NewStore creates a store for the ledger at path.
func NewStore(path string, log *logger.Logger) *Store {
	return &Store{path: path, log: log.With("component", "ledger")}
}

// Path returns the ledger file location.
func (s *Store) Path() string {
	return s.path
}

// Read returns the records in the ledger file. A missing file yields ErrLoad
// wrapping fs.ErrNotExist.
func (s *Store) Read() ([]models.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, s.path, err)
	}

	return records, nil
}

// Load returns the records in the ledger, or an empty ledger when the file is
// missing or unreadable. Such failures are logged, never returned.
func (s *Store) Load() []models.Record {
	records, err := s.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Info("no ledger yet, starting empty", "path", s.path)
		} else {
			s.log.Warn("ignoring unreadable ledger", "path", s.path, "err", err)
		}

		return []models.Record{}
	}

	s.log.Debug("ledger loaded", "path", s.path, "records", len(records))

	return records
}

// Save atomically replaces the ledger with records.
func (s *Store) Save(records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	if err := utils.WriteFileAtomic(s.path, append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	s.log.Info("💾 Ledger saved", "path", s.path, "records", len(records))

	return nil
}

// Merge appends fresh to existing and sorts the result by first date. Records
// with equal or unparseable first dates keep their relative order.
func Merge(existing, fresh []models.Record) []models.Record {
	merged := make([]models.Record, 0, len(existing)+len(fresh))
	merged = append(merged, existing...)
	merged = append(merged, fresh...)

	slices.SortStableFunc(merged, func(a, b models.Record) int {
		return utils.CompareEventDates(a.FirstDate(), b.FirstDate())
	})

	return merged
}

// KnownURLs returns the set of source URLs present in records.
func KnownURLs(records []models.Record) map[string]struct{} {
	known := make(map[string]struct{}, len(records))
	for _, r := range records {
		known[r.URL] = struct{}{}
	}

	return known
}
