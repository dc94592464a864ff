package indicator

import (
	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/types"
)

// Series splits candles into aligned OHLCV slices.
type Series struct {
	Opens   []float64
	Highs   []float64
	Lows    []float64
	Closes  []float64
	Volumes []float64
}

// Split extracts the OHLCV columns of candles.
func Split(candles []types.Candle) Series {
	s := Series{
		Opens:   make([]float64, len(candles)),
		Highs:   make([]float64, len(candles)),
		Lows:    make([]float64, len(candles)),
		Closes:  make([]float64, len(candles)),
		Volumes: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.Opens[i] = c.Open
		s.Highs[i] = c.High
		s.Lows[i] = c.Low
		s.Closes[i] = c.Close
		s.Volumes[i] = c.Volume
	}
	return s
}

// SupportResistance returns the lowest low and highest high of the last
// lookback candles; ok is false with fewer candles.
func SupportResistance(candles []types.Candle, lookback int) (support, resistance float64, ok bool) {
	if lookback <= 0 || len(candles) < lookback {
		return 0, 0, false
	}
	recent := candles[len(candles)-lookback:]
	support, resistance = recent[0].Low, recent[0].High
	for _, c := range recent[1:] {
		if c.Low < support {
			support = c.Low
		}
		if c.High > resistance {
			resistance = c.High
		}
	}
	return support, resistance, true
}

// Snapshot is the indicator state at the last candle of a history window.
type Snapshot struct {
	Time         int64     `json:"time"`
	Price        float64   `json:"price"`
	EMAFast      Sample    `json:"emaFast"`
	EMASlow      Sample    `json:"emaSlow"`
	RSI          float64   `json:"rsi"`
	ATR          float64   `json:"atr"`
	ADX          float64   `json:"adx"`
	MACD         MACDValue `json:"macd"`
	VolumeSMA    float64   `json:"volumeSma"`
	VolumeFactor float64   `json:"volumeFactor"`
	Support      float64   `json:"support"`
	Resistance   float64   `json:"resistance"`
	HasLevels    bool      `json:"hasLevels"`
}

// Compute recomputes every indicator from scratch over history.
func Compute(history []types.Candle, cfg config.StrategyConfig) Snapshot {
	if len(history) == 0 {
		return Snapshot{}
	}
	last := history[len(history)-1]
	s := Split(history)

	snap := Snapshot{
		Time:      last.Time,
		Price:     last.Close,
		EMAFast:   Last(EMA(s.Closes, cfg.EMAFast)),
		EMASlow:   Last(EMA(s.Closes, cfg.EMASlow)),
		RSI:       RSI(s.Closes, cfg.RSIPeriod),
		ATR:       ATR(s.Highs, s.Lows, s.Closes, cfg.ATRPeriod),
		ADX:       ADX(s.Highs, s.Lows, s.Closes, cfg.ADXPeriod),
		MACD:      MACD(s.Closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
		VolumeSMA: SMA(s.Volumes, cfg.VolMAPeriod),
	}
	if snap.VolumeSMA > 0 {
		snap.VolumeFactor = last.Volume / snap.VolumeSMA
	}
	snap.Support, snap.Resistance, snap.HasLevels = SupportResistance(history, cfg.LookbackBars)
	return snap
}
