package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/ymm-sync/internal/fitment"
)

// FitmentStore provides an in-memory record store for development/testing.
type FitmentStore struct {
	mu      sync.RWMutex
	records map[string]fitment.Record
	idGen   fitment.IDGenerator
	seq     int
}

// NewFitmentStore constructs a FitmentStore. When idGen is nil, sequential
// ids are assigned.
func NewFitmentStore(idGen fitment.IDGenerator) *FitmentStore {
	return &FitmentStore{
		records: make(map[string]fitment.Record),
		idGen:   idGen,
	}
}

// Find returns the id of the first record matching the natural key.
func (s *FitmentStore) Find(_ context.Context, key fitment.Key) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.sortedIDs() {
		if matches(s.records[id], key) {
			return id, true, nil
		}
	}
	return "", false, nil
}

// Insert stores a new record and returns its id.
func (s *FitmentStore) Insert(_ context.Context, rec fitment.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.nextID()
	if err != nil {
		return "", err
	}
	rec.ID = id
	s.records[id] = rec
	return id, nil
}

// Update refreshes the mutable fields of an existing record.
func (s *FitmentStore) Update(_ context.Context, id string, fields fitment.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fitment.ErrNotFound
	}
	rec.Title = fields.Title
	rec.Make = fields.Make
	rec.Model = fields.Model
	rec.SKU = fields.SKU
	rec.Handle = fields.Handle
	rec.Image = fields.Image
	rec.UpdatedAt = fields.UpdatedAt
	s.records[id] = rec
	return nil
}

// Ping always succeeds.
func (s *FitmentStore) Ping(context.Context) error {
	return nil
}

// Records returns a snapshot of all records ordered by id.
func (s *FitmentStore) Records() []fitment.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]fitment.Record, 0, len(s.records))
	for _, id := range s.sortedIDs() {
		out = append(out, s.records[id])
	}
	return out
}

func (s *FitmentStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *FitmentStore) nextID() (string, error) {
	if s.idGen != nil {
		id, err := s.idGen.NewID()
		if err != nil {
			return "", fmt.Errorf("generate record id: %w", err)
		}
		return id, nil
	}
	s.seq++
	return fmt.Sprintf("mem-%06d", s.seq), nil
}

func matches(rec fitment.Record, key fitment.Key) bool {
	if rec.ProductID != key.ProductID || !sameYear(rec.Year, key.Year) {
		return false
	}
	if key.Policy == fitment.KeyProductMakeModelYear {
		return rec.Make == key.Make && rec.Model == key.Model
	}
	return true
}

func sameYear(stored *string, year string) bool {
	if stored == nil {
		return year == ""
	}
	return *stored == year
}
