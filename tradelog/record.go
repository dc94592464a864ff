// Package tradelog is the audit trail of committed trades: an append-only
// store with newest-first queries and insert notifications.
package tradelog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/evdnx/gosig/types"
)

// TypeLimitBuy is the only trade type the strategy produces.
const TypeLimitBuy = "LIMIT BUY"

// Record is one trade-log row. Every lifecycle step of a trade appends a
// new row sharing the trade ID: OPEN on commit, then WIN, LOSS, TIMEOUT or
// EXPIRED. EntryTime is the signal bar's open on every row of a trade.
type Record struct {
	ID              string       `json:"id"`
	Type            string       `json:"type"`
	Status          types.Status `json:"status"`
	EntryPrice      float64      `json:"entryPrice"`
	ExitPrice       *float64     `json:"exitPrice"`
	StopPrice       float64      `json:"stopPrice"`
	TargetPrice     float64      `json:"targetPrice"`
	EntryTime       time.Time    `json:"entryTime"`
	ExitTime        *time.Time   `json:"exitTime"`
	PositionSize    float64      `json:"positionSize"`
	RawPnL          float64      `json:"rawPnL"`
	NetPnL          float64      `json:"netPnL"`
	Costs           float64      `json:"costs"`
	RiskRewardRatio float64      `json:"riskRewardRatio"`
	InsertedAt      time.Time    `json:"insertedAt"`
}

// Closed reports whether the row carries a terminal trade outcome.
func (r Record) Closed() bool {
	return r.Status.Terminal() && r.ExitPrice != nil
}

// Trade converts a row back to a ledger entry.
func (r Record) Trade() types.Trade {
	t := types.Trade{
		ID:             r.ID,
		Side:           types.Buy,
		Status:         r.Status,
		EntryPrice:     r.EntryPrice,
		StopPrice:      r.StopPrice,
		TargetPrice:    r.TargetPrice,
		Size:           r.PositionSize,
		SignalTime:     r.EntryTime.Unix(),
		EntryTimestamp: r.EntryTime.Unix(),
		RawPnL:         r.RawPnL,
		Costs:          r.Costs,
		Profit:         r.NetPnL,
	}
	if r.ExitPrice != nil {
		t.ExitPrice = *r.ExitPrice
	}
	if r.ExitTime != nil {
		t.ExitTimestamp = r.ExitTime.Unix()
	}
	return t
}

// OpenRecord is the row written when a signal is committed.
func OpenRecord(o types.Order) Record {
	t := types.TradeFromOrder(o, o.CreatedTime)
	return Record{
		ID:              o.ID,
		Type:            TypeLimitBuy,
		Status:          types.StatusOpen,
		EntryPrice:      round(o.Entry, 4),
		StopPrice:       round(o.Stop, 4),
		TargetPrice:     round(o.Target, 4),
		EntryTime:       unix(o.CreatedTime),
		PositionSize:    o.Size,
		RiskRewardRatio: round(t.RiskReward(), 2),
	}
}

// ClosedRecord is the row written when a trade settles.
func ClosedRecord(t types.Trade) Record {
	exit := round(t.ExitPrice, 4)
	exitAt := unix(t.ExitTimestamp)
	return Record{
		ID:              t.ID,
		Type:            TypeLimitBuy,
		Status:          t.Status,
		EntryPrice:      round(t.EntryPrice, 4),
		ExitPrice:       &exit,
		StopPrice:       round(t.StopPrice, 4),
		TargetPrice:     round(t.TargetPrice, 4),
		EntryTime:       unix(t.SignalTime),
		ExitTime:        &exitAt,
		PositionSize:    t.Size,
		RawPnL:          round(t.RawPnL, 4),
		NetPnL:          round(t.Profit, 4),
		Costs:           round(t.Costs, 4),
		RiskRewardRatio: round(t.RiskReward(), 2),
	}
}

// ExpiredRecord is the row written when a pending order lapses unfilled.
func ExpiredRecord(o types.Order, at int64) Record {
	r := OpenRecord(o)
	r.Status = types.StatusExpired
	exitAt := unix(at)
	r.ExitTime = &exitAt
	return r
}

func unix(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
