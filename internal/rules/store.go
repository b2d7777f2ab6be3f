package rules

import "sync"

// Store holds the active table.
type Store struct {
	mu    sync.RWMutex
	table *Table
	gen   uint64
}

// NewStore returns a store whose active table is empty.
func NewStore() *Store {
	return &Store{table: &Table{}}
}

// View runs fn on the active table under the read lock.
// fn must not block on I/O.
func (s *Store) View(fn func(t *Table)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.table)
}

// Current returns the active table.
func (s *Store) Current() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Reload builds a new table with load and installs it, then calls onSwap
// with the installed table, all under the write lock. A nil table from load
// installs an empty one.
func (s *Store) Reload(load func() *Table, onSwap func(t *Table)) *Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := load()
	if t == nil {
		t = &Table{}
	}
	s.gen++
	t.Generation = s.gen
	s.table = t

	if onSwap != nil {
		onSwap(t)
	}
	return t
}
