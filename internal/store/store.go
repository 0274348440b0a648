// Package store is the debate engine's concurrency-safe in-memory
// repository: CRUD over DebateState records with deep-copy snapshot
// reads and per-entry mutation locking.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
)

// Repository is the contract the Debate Manager and transport shell
// depend on. The in-memory Store below is the only implementation the
// engine ships, but the interface is narrow enough that a persistent
// backend could satisfy it without touching callers.
type Repository interface {
	Create(config domain.DebateConfig) (string, error)
	Get(id string) (*domain.DebateState, error)
	List() []*domain.DebateState
	Update(id string, mutate func(*domain.DebateState) error) (*domain.DebateState, error)
	Delete(id string) error
}

type entry struct {
	mu    sync.Mutex
	state *domain.DebateState
}

// Store is the engine's sole shared mutable state: a global RWMutex
// over the id→record map, with a per-entry Mutex serializing mutations
// to an individual debate.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Create assigns a new id and persists a CREATED record.
func (s *Store) Create(config domain.DebateConfig) (string, error) {
	id := uuid.NewString()
	state := &domain.DebateState{
		DebateID:  id,
		Config:    config,
		Status:    domain.StatusCreated,
		History:   []domain.Message{},
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.entries[id] = &entry{state: state}
	s.mu.Unlock()

	return id, nil
}

// Get returns a deep-copied snapshot of the record, or NotFound.
func (s *Store) Get(id string) (*domain.DebateState, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, enginerr.New(enginerr.NotFound, id, "no such debate")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), nil
}

// List returns a deep-copied snapshot of every record.
func (s *Store) List() []*domain.DebateState {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	out := make([]*domain.DebateState, 0, len(ids))
	for _, id := range ids {
		if snap, err := s.Get(id); err == nil {
			out = append(out, snap)
		}
	}
	return out
}

// Update runs mutate under the record's per-entry lock and returns the
// resulting snapshot. mutate must be pure: no blocking I/O, no
// cross-debate access — it executes while the lock is held.
func (s *Store) Update(id string, mutate func(*domain.DebateState) error) (*domain.DebateState, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, enginerr.New(enginerr.NotFound, id, "no such debate")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := mutate(e.state); err != nil {
		return nil, err
	}
	return e.state.Clone(), nil
}

// Delete removes the record. Deleting an in-progress debate is the
// Debate Manager's responsibility to pair with task cancellation; the
// store itself only removes the entry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return enginerr.New(enginerr.NotFound, id, "no such debate")
	}
	delete(s.entries, id)
	return nil
}

var _ Repository = (*Store)(nil)
