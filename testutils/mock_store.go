package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/evdnx/gosig/tradelog"
)

// ErrMockInsert is returned by MockStore while FailInserts is set.
var ErrMockInsert = errors.New("mock store: insert failed")

// MockStore implements tradelog.Store on top of a MemoryStore and can be
// told to fail inserts.
type MockStore struct {
	*tradelog.MemoryStore

	mu       sync.Mutex
	fail     bool
	attempts int
}

// NewMockStore returns an empty store.
func NewMockStore() *MockStore {
	return &MockStore{MemoryStore: tradelog.NewMemoryStore(0)}
}

// FailInserts toggles insert failures.
func (m *MockStore) FailInserts(fail bool) {
	m.mu.Lock()
	m.fail = fail
	m.mu.Unlock()
}

// Attempts is the number of Insert calls, failed ones included.
func (m *MockStore) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func (m *MockStore) Insert(ctx context.Context, r tradelog.Record) error {
	m.mu.Lock()
	m.attempts++
	fail := m.fail
	m.mu.Unlock()
	if fail {
		return ErrMockInsert
	}
	return m.MemoryStore.Insert(ctx, r)
}

// Rows returns every stored row, newest first.
func (m *MockStore) Rows() []tradelog.Record {
	rows, _ := m.MemoryStore.QueryRecent(context.Background(), time.Time{}, 0)
	return rows
}

// WaitRows polls until at least n rows are stored or timeout elapses.
func (m *MockStore) WaitRows(n int, timeout time.Duration) []tradelog.Record {
	deadline := time.Now().Add(timeout)
	for {
		rows := m.Rows()
		if len(rows) >= n || time.Now().After(deadline) {
			return rows
		}
		time.Sleep(5 * time.Millisecond)
	}
}
