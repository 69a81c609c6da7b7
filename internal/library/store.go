package library

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when no entry matches.
var ErrNotFound = errors.New("factor not found in library")

// Store persists library entries keyed by (name, version).
// Load with an empty version returns the most recently created version.
type Store interface {
	Save(ctx context.Context, entry FactorEntry) error
	Load(ctx context.Context, name, version string) (*FactorEntry, error)
	List(ctx context.Context) ([]FactorEntry, error)
	Delete(ctx context.Context, name, version string) error
}

type entryKey struct {
	name    string
	version string
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[entryKey]FactorEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[entryKey]FactorEntry)}
}

// Save inserts or replaces an entry
func (s *MemoryStore) Save(_ context.Context, entry FactorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entryKey{entry.Name, entry.Version}] = entry
	return nil
}

// Load returns one entry
func (s *MemoryStore) Load(_ context.Context, name, version string) (*FactorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version != "" {
		e, ok := s.entries[entryKey{name, version}]
		if !ok {
			return nil, ErrNotFound
		}
		return &e, nil
	}

	var latest *FactorEntry
	for k, e := range s.entries {
		if k.name != name {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			e := e
			latest = &e
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

// List returns all entries ordered by name then version
func (s *MemoryStore) List(_ context.Context) ([]FactorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]FactorEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

// Delete removes one entry
func (s *MemoryStore) Delete(_ context.Context, name, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := entryKey{name, version}
	if _, ok := s.entries[k]; !ok {
		return ErrNotFound
	}
	delete(s.entries, k)
	return nil
}

func sortEntries(entries []FactorEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Version < entries[j].Version
	})
}
