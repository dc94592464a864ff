package backtest

import (
	"math"
	"sort"

	"github.com/evdnx/gosig/performance"
	"github.com/evdnx/gosig/tradelog"
	"github.com/evdnx/gosig/types"
)

// DefaultRiskFraction estimates risk per unit as a fraction of the entry
// price when a recorded trade has no usable stop.
const DefaultRiskFraction = 0.003

// EquityPoint is the balance after one replayed trade.
type EquityPoint struct {
	Time    int64   `json:"time"`
	Balance float64 `json:"balance"`
}

// ReplayResult is a recorded-trade replay with compounding position sizes.
type ReplayResult struct {
	Trades []types.Trade     `json:"trades"`
	Equity []EquityPoint     `json:"equity"`
	Stats  performance.Stats `json:"stats"`
}

// Replay re-prices the closed trades of a trade log against a fresh account
// of capital, sizing each one at riskPct of the running balance. Rows that
// are still open or lapsed unfilled are ignored; a trade with several rows
// is replayed once, from its terminal row.
func Replay(records []tradelog.Record, capital, riskPct float64) ReplayResult {
	closed := make([]tradelog.Record, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if !r.Closed() || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		closed = append(closed, r)
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].EntryTime.Before(closed[j].EntryTime)
	})

	balance := capital
	out := ReplayResult{
		Trades: make([]types.Trade, 0, len(closed)),
		Equity: make([]EquityPoint, 0, len(closed)+1),
	}
	if len(closed) > 0 {
		out.Equity = append(out.Equity, EquityPoint{Time: closed[0].EntryTime.Unix(), Balance: balance})
	}
	for _, r := range closed {
		t := r.Trade()
		rpu := riskPerUnit(t)
		size := balance * riskPct / 100 / rpu
		t.Size = size
		t.RawPnL = size * (t.ExitPrice - t.EntryPrice)
		t.Costs = 0
		t.Profit = t.RawPnL
		balance += t.Profit
		t.BalanceAfter = balance
		out.Trades = append(out.Trades, t)
		out.Equity = append(out.Equity, EquityPoint{Time: t.ExitTimestamp, Balance: balance})
	}
	out.Stats = performance.Summarize(out.Trades, capital)
	return out
}

func riskPerUnit(t types.Trade) float64 {
	if t.StopPrice > 0 {
		if r := math.Abs(t.EntryPrice - t.StopPrice); r > 0 {
			return r
		}
	}
	if r := t.EntryPrice * DefaultRiskFraction; r > 0 {
		return r
	}
	return 1
}
