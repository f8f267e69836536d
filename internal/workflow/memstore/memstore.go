// Package memstore provides an in-memory implementation of workflow.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/quaylabs/foghorn/internal/workflow"
)

// Store holds workflow state in memory. Suitable for dev/testing.
type Store struct {
	mu     sync.RWMutex
	states map[string]*workflow.State // case ID -> state
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{states: make(map[string]*workflow.State)}
}

// Get retrieves workflow state by case ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*workflow.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	if !ok {
		return nil, false, nil
	}
	cp := *st
	return &cp, true, nil
}

// Put stores a copy of the workflow state, keyed by case ID.
func (s *Store) Put(_ context.Context, st *workflow.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.states[st.Case.ID] = &cp
	return nil
}

// List returns up to limit states, newest first.
func (s *Store) List(_ context.Context, limit int) ([]*workflow.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*workflow.State, 0, len(s.states))
	for _, st := range s.states {
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Case.CreatedAt.Equal(out[j].Case.CreatedAt) {
			return out[i].Case.CreatedAt.After(out[j].Case.CreatedAt)
		}
		return out[i].Case.ID > out[j].Case.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
