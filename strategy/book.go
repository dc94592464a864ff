package strategy

import (
	"fmt"

	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/types"
)

// EventKind is what happened to the slot during one Step.
type EventKind int

const (
	// EventIdle means the slot is empty and the caller may evaluate entries.
	EventIdle EventKind = iota
	// EventWaiting means a pending order was neither filled nor expired.
	EventWaiting
	// EventFilled means the pending order became the active trade.
	EventFilled
	// EventExpired means the pending order was dropped unfilled.
	EventExpired
	// EventHolding means the active trade stays open.
	EventHolding
	// EventClosed means the active trade reached a terminal status.
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventIdle:
		return "idle"
	case EventWaiting:
		return "waiting"
	case EventFilled:
		return "filled"
	case EventExpired:
		return "expired"
	case EventHolding:
		return "holding"
	case EventClosed:
		return "closed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event reports a Step outcome. Order is set for Waiting/Filled/Expired,
// Trade for Filled/Holding/Closed and Exit for Closed.
type Event struct {
	Kind  EventKind
	Order types.Order
	Trade types.Trade
	Exit  types.Exit
}

// Book is the single trade slot: empty, one pending order, or one active
// trade, never both. It has a single writer.
type Book struct {
	pending *types.Order
	active  *types.Trade

	tie        string
	maxPending int64
	maxHold    int64
}

// NewBook builds an empty slot governed by the replay settings.
func NewBook(bt config.BacktestConfig) *Book {
	return &Book{
		tie:        bt.TieBreak,
		maxPending: bt.MaxPendingSeconds,
		maxHold:    bt.MaxHoldSeconds,
	}
}

// Empty reports whether a new order may be armed.
func (b *Book) Empty() bool { return b.pending == nil && b.active == nil }

// Pending returns the armed order, if any.
func (b *Book) Pending() (types.Order, bool) {
	if b.pending == nil {
		return types.Order{}, false
	}
	return *b.pending, true
}

// Active returns the open trade, if any.
func (b *Book) Active() (types.Trade, bool) {
	if b.active == nil {
		return types.Trade{}, false
	}
	return *b.active, true
}

// Arm places a pending order. Arming an occupied slot is a programming
// error and panics.
func (b *Book) Arm(o types.Order) {
	if !b.Empty() {
		panic("strategy: Arm called on an occupied slot")
	}
	b.pending = &o
}

// Step advances the slot by one finalized candle. An active trade is
// checked for exit; a pending order fills when the low reaches its entry
// and expires once it has waited longer than the pending limit. Filling
// and exiting never happen on the same candle.
func (b *Book) Step(c types.Candle) Event {
	b.assert()
	switch {
	case b.active != nil:
		t := *b.active
		exit, ok := Resolve(t, c, b.tie, b.maxHold)
		if !ok {
			return Event{Kind: EventHolding, Trade: t}
		}
		b.active = nil
		t.Status = exit.Status
		t.ExitPrice = exit.Price
		t.ExitTimestamp = exit.Time
		return Event{Kind: EventClosed, Trade: t, Exit: exit}

	case b.pending != nil:
		o := *b.pending
		if c.Low <= o.Entry {
			t := types.TradeFromOrder(o, c.Time)
			b.pending = nil
			b.active = &t
			return Event{Kind: EventFilled, Order: o, Trade: t}
		}
		if c.Time-o.CreatedTime > b.maxPending {
			b.pending = nil
			return Event{Kind: EventExpired, Order: o}
		}
		return Event{Kind: EventWaiting, Order: o}
	}
	return Event{Kind: EventIdle}
}

// Reset clears the slot.
func (b *Book) Reset() {
	b.pending = nil
	b.active = nil
}

func (b *Book) assert() {
	if b.pending != nil && b.active != nil {
		panic(fmt.Sprintf("strategy: pending order %s and active trade %s coexist", b.pending.ID, b.active.ID))
	}
}
