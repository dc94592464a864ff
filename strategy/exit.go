package strategy

import (
	"math"

	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/types"
)

// Resolve checks one candle against an active long trade. ok is false when
// the trade stays open.
//
// A bar that reaches both target and stop is settled by tie: tp_first
// (default) books the win, sl_first the loss, open_proximity assumes the
// extreme nearer the bar open was touched first. Wins exit at
// max(target, high), losses at min(stop, low). When neither level is hit
// and maxHold > 0, a trade held longer than maxHold seconds (candle time)
// times out at the bar close.
func Resolve(t types.Trade, c types.Candle, tie string, maxHold int64) (types.Exit, bool) {
	hitTP := c.High >= t.TargetPrice
	hitSL := c.Low <= t.StopPrice

	if hitTP && hitSL {
		if tpFirst(t, c, tie) {
			hitSL = false
		} else {
			hitTP = false
		}
	}
	switch {
	case hitTP:
		return types.Exit{Status: types.StatusWin, Price: math.Max(t.TargetPrice, c.High), Time: c.Time}, true
	case hitSL:
		return types.Exit{Status: types.StatusLoss, Price: math.Min(t.StopPrice, c.Low), Time: c.Time}, true
	case maxHold > 0 && c.Time-t.EntryTimestamp > maxHold:
		return types.Exit{Status: types.StatusTimeout, Price: c.Close, Time: c.Time}, true
	}
	return types.Exit{}, false
}

func tpFirst(t types.Trade, c types.Candle, tie string) bool {
	switch tie {
	case config.TieSLFirst:
		return false
	case config.TieOpenProximity:
		// Equal distance keeps the target-first default.
		return math.Abs(c.Open-t.TargetPrice) <= math.Abs(c.Open-t.StopPrice)
	default:
		return true
	}
}
