package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosig_signals_total",
			Help: "Entry evaluations on finalized candles, by outcome reason.",
		},
		[]string{"outcome"},
	)

	SetupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gosig_setups_total",
			Help: "Pending orders armed from a committed signal.",
		},
	)

	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosig_trades_total",
			Help: "Settled trades by terminal status.",
		},
		[]string{"status"},
	)

	PendingExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gosig_pending_expired_total",
			Help: "Pending orders dropped without a fill.",
		},
	)

	FeedReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gosig_feed_reconnects_total",
			Help: "Live feed reconnect attempts.",
		},
	)

	TradeLogWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosig_tradelog_writes_total",
			Help: "Trade log writes by result (ok, retry, failed, dropped).",
		},
		[]string{"result"},
	)

	Balance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gosig_balance",
			Help: "Current simulated account balance.",
		},
	)

	SlotOccupied = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gosig_slot_occupied",
			Help: "1 while the live slot holds a pending order or an active trade.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsTotal,
		SetupsTotal,
		TradesTotal,
		PendingExpired,
		FeedReconnects,
		TradeLogWrites,
		Balance,
		SlotOccupied,
	)
}
