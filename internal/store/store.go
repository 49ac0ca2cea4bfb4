// Package store holds the authoritative candidate list for a prompt session.
//
// Every load is tagged with a monotonically increasing generation. Writers
// that were started for an older generation are rejected when they arrive,
// so a slow source resolving after a newer pull started cannot overwrite it.
package store

import (
	"sync"

	"github.com/runger/palette/internal/model"
)

// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	latest    uint64 // Highest generation handed out
	committed uint64 // Generation the items belong to
	items     []model.Choice
}

// New returns an empty store at generation 0.
func New() *Store {
	return &Store{}
}

// Load replaces the items with raw and returns the new generation.
func (s *Store) Load(raw []model.Choice) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest++
	s.committed = s.latest
	s.items = ordered(nil, raw)
	return s.latest
}

// Reserve allocates a generation for a pull that will commit later.
// Every earlier generation becomes stale. The visible items are untouched.
func (s *Store) Reserve() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest++
	return s.latest
}

// Invalidate marks anything in flight as stale without loading new items.
func (s *Store) Invalidate() {
	s.Reserve()
}

// Commit applies a batch produced for gen. With replace the batch becomes
// the whole list, otherwise it is appended. It returns false, leaving the
// store unchanged, when gen is no longer the latest generation.
func (s *Store) Commit(gen uint64, batch []model.Choice, replace bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.latest {
		return false
	}
	if replace || s.committed != gen {
		s.items = ordered(nil, batch)
	} else {
		s.items = ordered(s.items, batch)
	}
	s.committed = gen
	return true
}

// Current returns a copy of the items and the generation they belong to.
func (s *Store) Current() ([]model.Choice, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Choice, len(s.items))
	copy(out, s.items)
	return out, s.committed
}

// Generation returns the latest generation handed out.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// IsCurrent reports whether gen is the latest generation.
func (s *Store) IsCurrent(gen uint64) bool {
	return s.Generation() == gen
}

// Len returns the number of items in the committed generation.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func ordered(dst, batch []model.Choice) []model.Choice {
	base := len(dst)
	out := make([]model.Choice, base, base+len(batch))
	copy(out, dst)
	for i, c := range batch {
		out = append(out, c.WithOrder(base+i))
	}
	return out
}
