package testutils

import (
	"sync"

	"github.com/evdnx/gosig/types"
)

// MockExecutor implements the Executor interface in‑memory without costs
// or metrics.
type MockExecutor struct {
	mu      sync.RWMutex
	balance float64
	ledger  []types.Trade
}

// NewMockExecutor creates a fresh account with the supplied starting balance.
func NewMockExecutor(startBalance float64) *MockExecutor {
	return &MockExecutor{balance: startBalance}
}

// Settle applies the raw PnL of the exit to the balance.
func (m *MockExecutor) Settle(t types.Trade, x types.Exit) types.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.Status = x.Status
	t.ExitPrice = x.Price
	t.ExitTimestamp = x.Time
	t.RawPnL = t.Size * (x.Price - t.EntryPrice)
	t.Profit = t.RawPnL
	m.balance += t.Profit
	t.BalanceAfter = m.balance
	m.ledger = append(m.ledger, t)
	return t
}

// Balance returns the current balance.
func (m *MockExecutor) Balance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance
}

// Ledger returns a copy of all settled trades (useful for assertions).
func (m *MockExecutor) Ledger() []types.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Trade, len(m.ledger))
	copy(out, m.ledger)
	return out
}
