package roadmap

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"
)

// ErrNotFound is returned when a learner has no roadmap.
var ErrNotFound = errors.New("roadmap not found")

// Record is the persisted form of a roadmap.
type Record struct {
	RoadmapString string         `json:"roadmapString"`
	CurrentLevel  int            `json:"currentLevel"`
	Proficiency   map[string]int `json:"proficiency,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Store persists one roadmap record per learner.
type Store interface {
	// Get returns ErrNotFound when the learner has no record.
	Get(ctx context.Context, learnerID string) (Record, error)
	Save(ctx context.Context, learnerID string, rec Record) error
	// Delete removes the learner's record. Deleting a missing record is not
	// an error.
	Delete(ctx context.Context, learnerID string) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	records map[string]Record
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory roadmap store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

func (s *MemoryStore) Get(_ context.Context, learnerID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[learnerID]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Proficiency = maps.Clone(rec.Proficiency)
	return rec, nil
}

func (s *MemoryStore) Save(_ context.Context, learnerID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	rec.Proficiency = maps.Clone(rec.Proficiency)
	s.records[learnerID] = rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, learnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, learnerID)
	return nil
}
