package executor

import (
	"sync"

	"github.com/evdnx/gosig/logger"
	"github.com/evdnx/gosig/metrics"
	"github.com/evdnx/gosig/types"
)

// Executor settles closed trades against a simulated account. No real
// orders are ever placed.
type Executor interface {
	// Settle prices a trade that left the book and applies it to the balance.
	Settle(t types.Trade, x types.Exit) types.Trade
	Balance() float64
	// Ledger returns the settled trades in settlement order.
	Ledger() []types.Trade
}

// Costs are per-side charges in basis points of notional.
type Costs struct {
	FeeBps      float64
	SlippageBps float64
}

// Option customises a PaperExecutor.
type Option func(*PaperExecutor)

// WithLogger logs every settlement.
func WithLogger(log logger.Logger) Option {
	return func(p *PaperExecutor) { p.log = log }
}

// WithMetrics publishes the balance and settled trades to prometheus. Only
// the live account should use it.
func WithMetrics() Option {
	return func(p *PaperExecutor) { p.observe = true }
}

// PaperExecutor is the in-memory account: perfect fills at the exit price
// plus the configured fee and slippage.
type PaperExecutor struct {
	mu      sync.RWMutex
	capital float64
	balance float64
	costs   Costs
	ledger  []types.Trade
	log     logger.Logger
	observe bool
}

// NewPaperExecutor opens an account with startBalance.
func NewPaperExecutor(startBalance float64, costs Costs, opts ...Option) *PaperExecutor {
	p := &PaperExecutor{
		capital: startBalance,
		balance: startBalance,
		costs:   costs,
		log:     logger.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.observe {
		metrics.Balance.Set(startBalance)
	}
	return p
}

// Settle stamps the exit, computes raw PnL, costs and net profit, moves the
// balance by the net profit and appends the trade to the ledger.
func (p *PaperExecutor) Settle(t types.Trade, x types.Exit) types.Trade {
	t.Status = x.Status
	t.ExitPrice = x.Price
	t.ExitTimestamp = x.Time
	t.RawPnL = t.Size * (x.Price - t.EntryPrice)
	t.Costs = p.costs.On(t.EntryPrice, x.Price, t.Size)
	t.Profit = t.RawPnL - t.Costs

	p.mu.Lock()
	p.balance += t.Profit
	t.BalanceAfter = p.balance
	p.ledger = append(p.ledger, t)
	p.mu.Unlock()

	if p.observe {
		metrics.Balance.Set(t.BalanceAfter)
		metrics.TradesTotal.WithLabelValues(string(t.Status)).Inc()
	}
	p.log.Debug("trade_settled",
		logger.String("id", t.ID),
		logger.String("status", string(t.Status)),
		logger.Float64("entry", t.EntryPrice),
		logger.Float64("exit", t.ExitPrice),
		logger.Float64("size", t.Size),
		logger.Float64("profit", t.Profit),
		logger.Float64("balance", t.BalanceAfter),
	)
	return t
}

// Balance is the current account balance.
func (p *PaperExecutor) Balance() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balance
}

// Capital is the starting balance.
func (p *PaperExecutor) Capital() float64 { return p.capital }

// Ledger returns a copy of the settled trades.
func (p *PaperExecutor) Ledger() []types.Trade {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.Trade, len(p.ledger))
	copy(out, p.ledger)
	return out
}

// On returns the round-trip cost of size units entered at entry and exited
// at exit.
func (c Costs) On(entry, exit, size float64) float64 {
	bps := c.FeeBps + c.SlippageBps
	if bps == 0 {
		return 0
	}
	notional := (entry + exit) * size
	if notional < 0 {
		notional = -notional
	}
	return notional * bps / 10_000
}
