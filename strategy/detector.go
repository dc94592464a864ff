package strategy

import (
	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/indicator"
	"github.com/evdnx/gosig/risk"
	"github.com/evdnx/gosig/types"
)

// Reason explains why an evaluation produced (or did not produce) a setup.
type Reason string

const (
	ReasonSetup        Reason = "setup"
	ReasonNoHistory    Reason = "no_history"
	ReasonWarmup       Reason = "ema_undefined"
	ReasonBelowEMA     Reason = "close_below_ema"
	ReasonNotBullish   Reason = "not_bullish"
	ReasonSmallBody    Reason = "body_below_atr"
	ReasonLowVolume    Reason = "volume_below_average"
	ReasonRSIOutOfBand Reason = "rsi_out_of_band"
	ReasonNoRisk       Reason = "non_positive_risk"
	ReasonZeroSize     Reason = "zero_size"
)

// Evaluation is the outcome of one detector pass over a history window.
type Evaluation struct {
	Snapshot indicator.Snapshot `json:"snapshot"`
	Setup    *types.Setup       `json:"setup,omitempty"`
	Reason   Reason             `json:"reason"`
}

// Detector applies the fixed momentum-pullback entry rules. It is
// stateless; the same instance serves the live loop and the backtest.
type Detector struct {
	Cfg     config.StrategyConfig
	Account config.AccountConfig
}

// NewDetector validates the parameters and returns a Detector.
func NewDetector(cfg config.StrategyConfig, account config.AccountConfig) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	return &Detector{Cfg: cfg, Account: account}, nil
}

// Evaluate checks the last candle of history against the entry rules and,
// when they all pass, proposes a limit setup sized against balance. The
// last candle may still be forming.
func (d *Detector) Evaluate(history []types.Candle, balance float64) Evaluation {
	if len(history) == 0 {
		return Evaluation{Reason: ReasonNoHistory}
	}
	snap := indicator.Compute(history, d.Cfg)
	ev := Evaluation{Snapshot: snap}
	c := history[len(history)-1]

	switch {
	case !snap.EMAFast.Valid:
		ev.Reason = ReasonWarmup
	case c.Close <= snap.EMAFast.Value:
		ev.Reason = ReasonBelowEMA
	case !c.Bullish():
		ev.Reason = ReasonNotBullish
	case c.Body() < d.Cfg.BodyATRMult*snap.ATR:
		ev.Reason = ReasonSmallBody
	case c.Volume < d.Cfg.VolMultiplier*snap.VolumeSMA:
		ev.Reason = ReasonLowVolume
	case snap.RSI < d.Cfg.RSIMin || snap.RSI > d.Cfg.RSIMax:
		ev.Reason = ReasonRSIOutOfBand
	}
	if ev.Reason != "" {
		return ev
	}

	setup, reason := d.geometry(c, snap.ATR, balance)
	ev.Reason = reason
	if reason == ReasonSetup {
		ev.Setup = &setup
	}
	return ev
}

// geometry derives entry/stop/target from the signal bar and sizes it.
func (d *Detector) geometry(c types.Candle, atr, balance float64) (types.Setup, Reason) {
	entry := c.Open + c.Body()*d.Cfg.RetraceRatio
	var stop float64
	switch d.Cfg.StopMode {
	case config.StopBuffer:
		stop = c.Low - d.Cfg.StopBuffer
	default:
		stop = c.Low - atr*d.Cfg.StopATRFactor
	}
	s := types.Setup{Entry: entry, Stop: stop}
	r := s.Risk()
	if r <= 0 {
		return types.Setup{}, ReasonNoRisk
	}
	s.Target = entry + r*d.Cfg.RiskReward

	sz, err := risk.Size(risk.SizeParams{
		Capital:  balance,
		RiskPct:  d.Account.RiskPct,
		Leverage: d.Account.Leverage,
		Entry:    entry,
		Stop:     stop,
		HardCap:  d.Cfg.HardSizeCap,
	})
	if err != nil || sz.Size <= 0 {
		return s, ReasonZeroSize
	}
	s.Size = sz.Size
	return s, ReasonSetup
}
