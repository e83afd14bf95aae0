package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
	"github.com/cognicore/secfeed/pkg/secfeed/store"
)

// Store is an in-memory implementation of store.AccessionStore for tests
// and one-off runs.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[filing.Accession]int64

	// Optional failure injection for tests.
	FailWith error
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		nextID:  1,
		entries: make(map[filing.Accession]int64),
	}
}

// Close implements store.AccessionStore.
func (s *Store) Close() error { return nil }

// Exists implements store.AccessionStore.
func (s *Store) Exists(ctx context.Context, acc filing.Accession) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FailWith != nil {
		return false, internalerr.Store("exists", s.FailWith)
	}
	_, ok := s.entries[acc]
	return ok, nil
}

// Insert implements store.AccessionStore.
func (s *Store) Insert(ctx context.Context, acc filing.Accession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return internalerr.Store("insert", s.FailWith)
	}
	if _, ok := s.entries[acc]; ok {
		return fmt.Errorf("accession %s: %w", acc, internalerr.ErrDuplicate)
	}
	s.entries[acc] = s.nextID
	s.nextID++
	return nil
}

// Count implements store.AccessionStore.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

// ClearAll implements store.AccessionStore. IDs keep increasing afterwards,
// like an autoincrement column.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[filing.Accession]int64)
	return nil
}

// Entries returns stored rows ordered by ID.
func (s *Store) Entries() []store.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Entry, 0, len(s.entries))
	for acc, id := range s.entries {
		out = append(out, store.Entry{ID: id, Accession: acc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ store.AccessionStore = (*Store)(nil)
