package sheets

import (
	"context"
	"sync"

	"github.com/avalon-py/new-avalonfi/internal/core"
)

// MemoryMirror is an in-process Mirror used in tests and when no spreadsheet
// is configured.
type MemoryMirror struct {
	mu   sync.Mutex
	rows map[string]core.Transaction
}

var _ Mirror = (*MemoryMirror)(nil)

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{rows: make(map[string]core.Transaction)}
}

func (m *MemoryMirror) Append(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[tx.ID] = tx
	return nil
}

func (m *MemoryMirror) Remove(_ context.Context, id string) error {
	if id == "" {
		return core.ErrEmptyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// Get returns the mirrored row for id, if present.
func (m *MemoryMirror) Get(id string) (core.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.rows[id]
	return tx, ok
}

// Len reports the number of mirrored rows.
func (m *MemoryMirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
