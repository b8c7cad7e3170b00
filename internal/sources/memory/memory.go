package memory

import (
	"context"
	"fmt"
	"sync"

	"salesdash/internal/core"
	ports "salesdash/internal/sources"
)

// Store holds named tables in memory. It backs "memory:<name>" source
// locations and tests.
type Store struct {
	mu     sync.Mutex
	tables map[string][][]string
	reads  map[string]int
}

func New() *Store {
	return &Store{tables: make(map[string][][]string), reads: make(map[string]int)}
}

// Set replaces the table called name. values holds the header row first.
func (s *Store) Set(name string, values [][]string) {
	cp := make([][]string, len(values))
	for i, row := range values {
		cp[i] = append([]string(nil), row...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = cp
}

// Delete removes the table called name.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, name)
}

// Reads reports how many times name has been read.
func (s *Store) Reads(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[name]
}

// Reader returns a TableReader for the table called name.
func (s *Store) Reader(name string) ports.TableReader {
	return &reader{store: s, name: name}
}

type reader struct {
	store *Store
	name  string
}

func (r *reader) ReadTable(ctx context.Context) (core.Table, error) {
	if err := ctx.Err(); err != nil {
		return core.Table{}, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.reads[r.name]++
	values, ok := r.store.tables[r.name]
	if !ok {
		return core.Table{}, fmt.Errorf("memory table %q: %w", r.name, core.ErrNotFound)
	}
	return core.NewTable(r.name, values), nil
}
