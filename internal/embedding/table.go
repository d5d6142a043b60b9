// Package embedding holds the token → vector table shared by every resolver
// backend. A Table is written while loading and only read afterwards.
package embedding

import (
	"errors"
	"fmt"
	"sort"

	"tortuosity/internal/domain"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Table is an in-memory embedding table implementing domain.SizedResolver.
type Table struct {
	dimension int
	vectors   map[string]domain.Vector
}

// NewTable creates an empty table. A zero dimension is fixed by the first Add.
func NewTable(dimension int) *Table {
	return &Table{dimension: dimension, vectors: make(map[string]domain.Vector)}
}

// Add stores the vector for token, replacing any previous value.
func (t *Table) Add(token string, vec domain.Vector) error {
	if len(vec) == 0 {
		return fmt.Errorf("token %q: empty vector", token)
	}
	if t.dimension == 0 {
		t.dimension = len(vec)
	}
	if len(vec) != t.dimension {
		return fmt.Errorf("token %q: %w: got %d, want %d", token, ErrDimensionMismatch, len(vec), t.dimension)
	}
	t.vectors[token] = vec
	return nil
}

func (t *Table) Contains(token string) bool {
	_, ok := t.vectors[token]
	return ok
}

func (t *Table) Vector(token string) domain.Vector { return t.vectors[token] }

func (t *Table) Len() int { return len(t.vectors) }

func (t *Table) Dimension() int { return t.dimension }

// Tokens returns every stored token in sorted order.
func (t *Table) Tokens() []string {
	out := make([]string, 0, len(t.vectors))
	for tok := range t.vectors {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}
