// Package backtest replays candle history through the same detector and
// trade slot the live loop uses.
package backtest

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/executor"
	"github.com/evdnx/gosig/logger"
	"github.com/evdnx/gosig/performance"
	"github.com/evdnx/gosig/strategy"
	"github.com/evdnx/gosig/types"
)

// ErrUnordered is returned when candle times are not strictly increasing.
var ErrUnordered = errors.New("backtest: candles must be strictly increasing in time")

// ErrInvalidCandle is returned for a bar with non-finite fields or an OHLC
// range that does not contain its open and close.
var ErrInvalidCandle = errors.New("backtest: invalid candle")

// Result is the outcome of one replay.
type Result struct {
	Trades       []types.Trade     `json:"trades"`
	Capital      float64           `json:"capital"`
	FinalBalance float64           `json:"finalBalance"`
	Bars         int               `json:"bars"`
	From         int64             `json:"from"`
	To           int64             `json:"to"`
	Signals      int               `json:"signals"`
	Expired      int               `json:"expired"`
	OpenOrder    *types.Order      `json:"openOrder,omitempty"`
	OpenTrade    *types.Trade      `json:"openTrade,omitempty"`
	Skipped      bool              `json:"skipped"`
	Stats        performance.Stats `json:"stats"`
}

// Simulator runs the momentum-pullback strategy over a fixed candle array.
// A Simulator holds no run state and may be reused.
type Simulator struct {
	detector *strategy.Detector
	account  config.AccountConfig
	cfg      config.BacktestConfig
	log      logger.Logger

	// OnStep, when set, observes the slot after every replayed candle.
	OnStep func(i int, b *strategy.Book)
}

// New validates the parameters and builds a Simulator.
func New(strat config.StrategyConfig, account config.AccountConfig, bt config.BacktestConfig, log logger.Logger) (*Simulator, error) {
	d, err := strategy.NewDetector(strat, account)
	if err != nil {
		return nil, err
	}
	if err := bt.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Simulator{detector: d, account: account, cfg: bt, log: log}, nil
}

// Run replays candles from the warm-up index to the end. Sizing follows the
// running balance. A history shorter than MinBars after the period trim
// returns a Skipped result with no trades.
func (s *Simulator) Run(candles []types.Candle) (Result, error) {
	for i, c := range candles {
		if !c.Valid() {
			return Result{}, fmt.Errorf("%w: index %d (time %d)", ErrInvalidCandle, i, c.Time)
		}
		if i > 0 && c.Time <= candles[i-1].Time {
			return Result{}, fmt.Errorf("%w: index %d (%d after %d)", ErrUnordered, i, c.Time, candles[i-1].Time)
		}
	}
	capital := s.account.Capital
	used := FilterByPeriod(candles, s.cfg.PeriodHours)
	res := Result{Capital: capital, FinalBalance: capital, Bars: len(used)}
	if len(used) > 0 {
		res.From, res.To = used[0].Time, used[len(used)-1].Time
	}
	if len(used) == 0 || len(used) < s.cfg.MinBars {
		res.Skipped = true
		res.Stats = performance.Summarize(nil, capital)
		s.log.Warn("backtest_skipped",
			logger.Int("bars", len(used)),
			logger.Int("min_bars", s.cfg.MinBars),
		)
		return res, nil
	}

	exec := executor.NewPaperExecutor(capital, executor.Costs{
		FeeBps:      s.cfg.FeeBps,
		SlippageBps: s.cfg.SlippageBps,
	}, executor.WithLogger(s.log))
	book := strategy.NewBook(s.cfg)

	for i := s.cfg.WarmupBars; i < len(used); i++ {
		c := used[i]
		ev := book.Step(c)
		switch ev.Kind {
		case strategy.EventClosed:
			exec.Settle(ev.Trade, ev.Exit)
		case strategy.EventExpired:
			res.Expired++
		case strategy.EventIdle:
			eval := s.detector.Evaluate(used[:i+1], exec.Balance())
			if eval.Setup != nil {
				res.Signals++
				o := types.Order{
					ID:          uuid.NewString(),
					Side:        types.Buy,
					Entry:       eval.Setup.Entry,
					Stop:        eval.Setup.Stop,
					Target:      eval.Setup.Target,
					Size:        eval.Setup.Size,
					CreatedTime: c.Time,
				}
				book.Arm(o)
				s.log.Debug("signal_armed",
					logger.String("id", o.ID),
					logger.Int64("time", c.Time),
					logger.Float64("entry", o.Entry),
					logger.Float64("stop", o.Stop),
					logger.Float64("target", o.Target),
					logger.Float64("size", o.Size),
				)
			}
		}
		if s.OnStep != nil {
			s.OnStep(i, book)
		}
	}

	if o, ok := book.Pending(); ok {
		res.OpenOrder = &o
	}
	if t, ok := book.Active(); ok {
		res.OpenTrade = &t
	}
	res.Trades = exec.Ledger()
	res.FinalBalance = exec.Balance()
	res.Stats = performance.Summarize(res.Trades, capital)
	s.log.Info("backtest_complete",
		logger.Int("bars", res.Bars),
		logger.Int("signals", res.Signals),
		logger.Int("trades", len(res.Trades)),
		logger.Int("expired", res.Expired),
		logger.Float64("final_balance", res.FinalBalance),
	)
	return res, nil
}

// FilterByPeriod keeps the candles opened within hours of the last candle.
// hours <= 0 keeps everything.
func FilterByPeriod(candles []types.Candle, hours float64) []types.Candle {
	if hours <= 0 || len(candles) == 0 {
		return candles
	}
	cutoff := candles[len(candles)-1].Time - int64(hours*3600)
	for i, c := range candles {
		if c.Time >= cutoff {
			return candles[i:]
		}
	}
	return nil
}
