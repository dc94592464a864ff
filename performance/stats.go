// Package performance reduces a trade ledger into summary statistics.
package performance

import (
	"math"

	"github.com/evdnx/gosig/types"
)

// Sentinel stands in for an unbounded ratio (no losses to divide by).
const Sentinel = 999

// Verdict is a coarse quality label for a ledger.
type Verdict string

const (
	VerdictNoTrades     Verdict = "No trades"
	VerdictExcellent    Verdict = "Excellent"
	VerdictGood         Verdict = "Good"
	VerdictFair         Verdict = "Fair"
	VerdictPoor         Verdict = "Poor"
	VerdictUnprofitable Verdict = "Unprofitable"
)

// Stats summarises a ledger. Ratios that would divide by zero hold 0 or
// Sentinel; no field is ever NaN or Inf.
type Stats struct {
	TotalTrades int `json:"totalTrades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Timeouts    int `json:"timeouts"`

	WinRate              float64 `json:"winRate"`
	GrossProfit          float64 `json:"grossProfit"`
	GrossLoss            float64 `json:"grossLoss"`
	ProfitFactor         float64 `json:"profitFactor"`
	ProfitFactorInfinite bool    `json:"profitFactorInfinite"`
	AvgWin               float64 `json:"avgWin"`
	AvgLoss              float64 `json:"avgLoss"`
	PayoffRatio          float64 `json:"payoffRatio"`
	WinLossRatio         float64 `json:"winLossRatio"`
	Expectancy           float64 `json:"expectancy"`

	MaxConsecutiveLosses int     `json:"maxConsecutiveLosses"`
	MaxDrawdown          float64 `json:"maxDrawdown"`
	MaxDrawdownPercent   float64 `json:"maxDrawdownPercent"`
	Sharpe               float64 `json:"sharpe"`
	RecoveryFactor       float64 `json:"recoveryFactor"`

	NetPnL       float64 `json:"netPnL"`
	RawPnL       float64 `json:"rawPnL"`
	Costs        float64 `json:"costs"`
	Capital      float64 `json:"capital"`
	FinalBalance float64 `json:"finalBalance"`
	ReturnPct    float64 `json:"returnPct"`
	Verdict      Verdict `json:"verdict"`
}

// Summarize computes Stats for ledger against the starting capital. A trade
// with positive net profit is a win; everything else, TIMEOUT included,
// counts as a loss, so TotalTrades equals the ledger length.
func Summarize(ledger []types.Trade, capital float64) Stats {
	s := Stats{Capital: capital, FinalBalance: capital, Verdict: VerdictNoTrades}
	if len(ledger) == 0 {
		return s
	}

	equity, peak := capital, capital
	streak := 0
	profits := make([]float64, 0, len(ledger))
	for _, t := range ledger {
		p := t.Profit
		profits = append(profits, p)
		s.NetPnL += p
		s.RawPnL += t.RawPnL
		s.Costs += t.Costs
		if t.Status == types.StatusTimeout {
			s.Timeouts++
		}

		if p > 0 {
			s.Wins++
			s.GrossProfit += p
			streak = 0
		} else {
			s.Losses++
			s.GrossLoss += p
			streak++
			if streak > s.MaxConsecutiveLosses {
				s.MaxConsecutiveLosses = streak
			}
		}

		equity += p
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
		}
		if peak > 0 {
			if pct := (peak - equity) / peak * 100; pct > s.MaxDrawdownPercent {
				s.MaxDrawdownPercent = pct
			}
		}
	}

	s.TotalTrades = s.Wins + s.Losses
	n := float64(s.TotalTrades)
	winP := float64(s.Wins) / n
	s.WinRate = winP * 100
	if s.Wins > 0 {
		s.AvgWin = s.GrossProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = s.GrossLoss / float64(s.Losses)
	}
	s.Expectancy = winP*s.AvgWin + (1-winP)*s.AvgLoss

	s.ProfitFactor, s.ProfitFactorInfinite = ratio(s.GrossProfit, math.Abs(s.GrossLoss))
	s.PayoffRatio, _ = ratio(s.AvgWin, math.Abs(s.AvgLoss))
	s.WinLossRatio, _ = ratio(float64(s.Wins), float64(s.Losses))
	s.RecoveryFactor, _ = ratio(s.NetPnL, s.MaxDrawdown)
	s.Sharpe = Sharpe(profits)

	s.FinalBalance = equity
	if capital > 0 {
		s.ReturnPct = s.NetPnL / capital * 100
	}
	s.Verdict = Judge(s)
	return s
}

// ratio returns num/den, Sentinel (and true) when den is zero and num is
// positive, and 0 otherwise.
func ratio(num, den float64) (float64, bool) {
	if den > 0 {
		return num / den, false
	}
	if num > 0 {
		return Sentinel, true
	}
	return 0, false
}

// Sharpe is mean/stddev*sqrt(252) over per-trade returns using the
// population variance. Fewer than two returns or zero spread give 0.
func Sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	n := float64(len(returns))
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= n
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / n)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

// Judge grades a ledger by profit factor, win rate and net PnL.
func Judge(s Stats) Verdict {
	switch {
	case s.TotalTrades == 0:
		return VerdictNoTrades
	case s.ProfitFactor > 2 && s.WinRate > 55 && s.NetPnL > 0:
		return VerdictExcellent
	case s.ProfitFactor > 1.5 && s.WinRate > 50 && s.NetPnL > 0:
		return VerdictGood
	case s.ProfitFactor > 1 && s.WinRate > 45 && s.NetPnL > 0:
		return VerdictFair
	case s.NetPnL <= 0:
		return VerdictUnprofitable
	}
	return VerdictPoor
}
