package table

import (
	"context"
	"fmt"
	"sync"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
)

// StaticSource serves tables held in memory. Used for fixtures and tests.
type StaticSource struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

// NewStaticSource creates a source from raw values keyed by table name.
func NewStaticSource(tables map[string][][]string) *StaticSource {
	s := &StaticSource{tables: make(map[string][][]string, len(tables))}
	for name, values := range tables {
		s.tables[name] = values
	}
	return s
}

// Set replaces the values of one table.
func (s *StaticSource) Set(name string, values [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = values
}

// Fetch implements Source.
func (s *StaticSource) Fetch(ctx context.Context, name string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	values, ok := s.tables[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("static source: %q: %w", name, domerrors.ErrUnknownTable)
	}
	return FromValues(name, values)
}
