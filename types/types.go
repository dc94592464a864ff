package types

import (
	"math"
	"time"
)

type Side string

// Buy is the only side the breakout strategy trades.
const Buy Side = "BUY"

// Candle is one 1-minute OHLCV bar. Time is the bar-open unix second.
type Candle struct {
	Time    int64   `json:"time"`
	Open    float64 `json:"open"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Close   float64 `json:"close"`
	Volume  float64 `json:"volume"`
	IsFinal bool    `json:"isFinal"`
}

// Bullish reports close > open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Body is |close - open|.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Valid checks that every field is finite, volume is not negative and
// low <= open,close <= high.
func (c Candle) Valid() bool {
	for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c.Volume >= 0 &&
		c.Low <= c.Open && c.Low <= c.Close && c.Open <= c.High && c.Close <= c.High
}

// OpenTime returns the bar-open time in UTC.
func (c Candle) OpenTime() time.Time { return time.Unix(c.Time, 0).UTC() }

type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusWin     Status = "WIN"
	StatusLoss    Status = "LOSS"
	StatusTimeout Status = "TIMEOUT"
	// StatusExpired marks an armed limit entry that was never filled.
	StatusExpired Status = "EXPIRED"
)

// Terminal reports whether the status closes a trade.
func (s Status) Terminal() bool {
	return s == StatusWin || s == StatusLoss || s == StatusTimeout
}

// Setup is an advisory trade proposal. Never persisted.
type Setup struct {
	Entry  float64 `json:"entry"`
	Stop   float64 `json:"stop"`
	Target float64 `json:"target"`
	Size   float64 `json:"size"`
}

// Risk is entry - stop.
func (s Setup) Risk() float64 { return s.Entry - s.Stop }

// Order is a pending limit entry waiting for price to retrace to Entry.
type Order struct {
	ID          string
	Side        Side
	Entry       float64
	Stop        float64
	Target      float64
	Size        float64
	CreatedTime int64
}

// Trade is a committed position and, once terminal, a ledger row.
type Trade struct {
	ID             string  `json:"id"`
	Side           Side    `json:"side"`
	Status         Status  `json:"status"`
	EntryPrice     float64 `json:"entryPrice"`
	StopPrice      float64 `json:"stopPrice"`
	TargetPrice    float64 `json:"targetPrice"`
	Size           float64 `json:"size"`
	SignalTime     int64   `json:"signalTime"`
	EntryTimestamp int64   `json:"entryTimestamp"`
	ExitPrice      float64 `json:"exitPrice"`
	ExitTimestamp  int64   `json:"exitTimestamp"`
	RawPnL         float64 `json:"rawPnL"`
	Costs          float64 `json:"costs"`
	// Profit is the realized net PnL applied to the balance.
	Profit       float64 `json:"profit"`
	BalanceAfter float64 `json:"balanceAfter"`
}

// RiskReward is (target-entry)/(entry-stop), or 0 when risk is not positive.
func (t Trade) RiskReward() float64 {
	risk := t.EntryPrice - t.StopPrice
	if risk <= 0 {
		return 0
	}
	return (t.TargetPrice - t.EntryPrice) / risk
}

// Exit describes how an active trade left the book.
type Exit struct {
	Status Status  `json:"status"`
	Price  float64 `json:"price"`
	Time   int64   `json:"time"`
}

// TradeFromOrder converts a filled order into an active trade.
func TradeFromOrder(o Order, filledAt int64) Trade {
	return Trade{
		ID:             o.ID,
		Side:           o.Side,
		Status:         StatusOpen,
		EntryPrice:     o.Entry,
		StopPrice:      o.Stop,
		TargetPrice:    o.Target,
		Size:           o.Size,
		SignalTime:     o.CreatedTime,
		EntryTimestamp: filledAt,
	}
}
