// Package live runs the streaming evaluation loop: one feed message is one
// synchronous cycle of candle update, indicator recompute, signal
// evaluation, slot update and publication.
package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evdnx/gosig/candles"
	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/executor"
	"github.com/evdnx/gosig/feed"
	"github.com/evdnx/gosig/indicator"
	"github.com/evdnx/gosig/logger"
	"github.com/evdnx/gosig/metrics"
	"github.com/evdnx/gosig/strategy"
	"github.com/evdnx/gosig/tradelog"
	"github.com/evdnx/gosig/types"
)

// Snapshot is what the presentation layer receives after every cycle.
type Snapshot struct {
	Time        int64                        `json:"time"`
	Candle      *types.Candle                `json:"candle,omitempty"`
	Indicators  indicator.Snapshot           `json:"indicators"`
	Oscillators indicator.OscillatorReadings `json:"oscillators"`
	Setup       *types.Setup                 `json:"setup,omitempty"`
	Reason      strategy.Reason              `json:"reason"`
	Pending     *types.Order                 `json:"pending,omitempty"`
	Active      *types.Trade                 `json:"active,omitempty"`
	Balance     float64                      `json:"balance"`
	Markers     []Marker                     `json:"markers"`
	Connected   bool                         `json:"connected"`
}

// Deps are the collaborators of an Engine. Feed and Trades are required.
type Deps struct {
	Feed      feed.Feed
	Trades    tradelog.Store
	Executor  executor.Executor
	Publisher Publisher
	Logger    logger.Logger
}

// Engine owns the live candle store and the single trade slot. Run is the
// only writer; Latest and Markers may be called from any goroutine.
type Engine struct {
	cfg      config.Config
	feed     feed.Feed
	trades   tradelog.Store
	exec     executor.Executor
	pub      Publisher
	log      logger.Logger
	detector *strategy.Detector
	candles  *candles.Store
	book     *strategy.Book
	osc      *indicator.Oscillators
	writer   *tradelog.AsyncWriter
	newID    func() string

	// lastStepped is the newest final bar the slot has seen.
	lastStepped int64

	mu        sync.RWMutex
	latest    Snapshot
	markers   []Marker
	connected bool
}

// New validates cfg and wires an Engine.
func New(cfg config.Config, d Deps) (*Engine, error) {
	if d.Feed == nil || d.Trades == nil {
		return nil, errors.New("live: feed and trade store are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	det, err := strategy.NewDetector(cfg.Strategy, cfg.Account)
	if err != nil {
		return nil, err
	}
	osc, err := indicator.NewOscillators()
	if err != nil {
		return nil, err
	}
	log := d.Logger
	if log == nil {
		log = logger.NewNop()
	}
	exec := d.Executor
	if exec == nil {
		exec = executor.NewPaperExecutor(cfg.Account.Capital, executor.Costs{
			FeeBps:      cfg.Backtest.FeeBps,
			SlippageBps: cfg.Backtest.SlippageBps,
		}, executor.WithLogger(log), executor.WithMetrics())
	}
	return &Engine{
		cfg:      cfg,
		feed:     d.Feed,
		trades:   d.Trades,
		exec:     exec,
		pub:      d.Publisher,
		log:      log,
		detector: det,
		candles:  candles.NewStore(cfg.Feed.MaxCandles),
		book:     strategy.NewBook(cfg.Backtest),
		osc:      osc,
		writer: tradelog.NewAsyncWriter(d.Trades, log,
			cfg.Store.QueueSize, cfg.Store.Retries, cfg.Store.RetryDelay),
		newID: uuid.NewString,
	}, nil
}

// Run snapshots, streams and reconnects until ctx ends. Pending trade-log
// writes are flushed before it returns.
func (e *Engine) Run(ctx context.Context) error {
	e.writer.Start(context.WithoutCancel(ctx))
	defer e.writer.Close()

	e.loadMarkers(ctx)

	backoff := e.cfg.Feed.Backoff
	for {
		err := e.session(ctx)
		e.setConnected(false)
		if ctx.Err() != nil {
			e.log.Info("live_stopped")
			return nil
		}
		if err == nil {
			backoff = e.cfg.Feed.Backoff
			err = feed.ErrStreamClosed
		}
		metrics.FeedReconnects.Inc()
		e.log.Warn("feed_reconnect", logger.Duration("backoff", backoff), logger.Err(err))
		if !sleep(ctx, backoff) {
			e.log.Info("live_stopped")
			return nil
		}
		backoff = nextBackoff(backoff, e.cfg.Feed.MaxBackoff)
	}
}

// session reseeds from a fresh snapshot and consumes one stream until it
// closes. It returns an error only when no stream was established.
func (e *Engine) session(ctx context.Context) error {
	snap, err := e.feed.Snapshot(ctx, e.cfg.Feed.SnapshotLimit)
	if err != nil {
		return err
	}
	e.Reseed(snap)

	ch, err := e.feed.Stream(ctx)
	if err != nil {
		return err
	}
	e.setConnected(true)
	for c := range ch {
		e.Process(c)
	}
	return nil
}

// Reseed replaces the candle history. The first seed only marks where the
// slot starts; later seeds step the slot over final bars it missed while
// disconnected.
func (e *Engine) Reseed(cs []types.Candle) {
	e.candles.Seed(cs)
	closed := e.candles.Closed()
	if e.lastStepped == 0 {
		if n := len(closed); n > 0 {
			e.lastStepped = closed[n-1].Time
		}
		e.rebuildOscillators(closed)
	} else {
		e.catchUp()
	}
	e.log.Info("candles_seeded", logger.Int("bars", e.candles.Len()))
	e.publish()
}

// Process runs one evaluation cycle for a streamed bar update.
func (e *Engine) Process(c types.Candle) {
	if e.candles.Upsert(c) == candles.Ignored {
		return
	}
	e.catchUp()
	e.publish()
}

// catchUp steps the slot over every final bar newer than lastStepped.
func (e *Engine) catchUp() {
	closed := e.candles.Closed()
	for i, c := range closed {
		if c.Time <= e.lastStepped {
			continue
		}
		e.onFinal(closed[:i+1])
		e.lastStepped = c.Time
	}
}

// onFinal advances the slot by the last bar of history, exactly as one
// backtest iteration does, and commits a new signal when the slot is idle.
func (e *Engine) onFinal(history []types.Candle) {
	c := history[len(history)-1]
	ev := e.book.Step(c)
	switch ev.Kind {
	case strategy.EventClosed:
		t := e.exec.Settle(ev.Trade, ev.Exit)
		e.record(tradelog.ClosedRecord(t))
		e.log.Info("trade_closed",
			logger.String("id", t.ID),
			logger.String("status", string(t.Status)),
			logger.Float64("exit", t.ExitPrice),
			logger.Float64("profit", t.Profit),
			logger.Float64("balance", t.BalanceAfter),
		)
	case strategy.EventExpired:
		metrics.PendingExpired.Inc()
		e.record(tradelog.ExpiredRecord(ev.Order, c.Time))
		e.log.Info("order_expired", logger.String("id", ev.Order.ID), logger.Int64("time", c.Time))
	case strategy.EventFilled:
		e.log.Info("order_filled",
			logger.String("id", ev.Trade.ID),
			logger.Float64("entry", ev.Trade.EntryPrice),
			logger.Int64("time", c.Time),
		)
	case strategy.EventIdle:
		eval := e.detector.Evaluate(history, e.exec.Balance())
		metrics.SignalsTotal.WithLabelValues(string(eval.Reason)).Inc()
		if eval.Setup != nil {
			e.commit(*eval.Setup, c)
		}
	}
	if e.book.Empty() {
		metrics.SlotOccupied.Set(0)
	} else {
		metrics.SlotOccupied.Set(1)
	}
	if err := e.osc.Add(c); err != nil {
		e.log.Debug("oscillator_add_failed", logger.Err(err))
	}
}

func (e *Engine) commit(s types.Setup, c types.Candle) {
	o := types.Order{
		ID:          e.newID(),
		Side:        types.Buy,
		Entry:       s.Entry,
		Stop:        s.Stop,
		Target:      s.Target,
		Size:        s.Size,
		CreatedTime: c.Time,
	}
	e.book.Arm(o)
	metrics.SetupsTotal.Inc()
	e.record(tradelog.OpenRecord(o))
	e.log.Info("signal_committed",
		logger.String("id", o.ID),
		logger.Time("bar_open", c.OpenTime()),
		logger.Float64("entry", o.Entry),
		logger.Float64("stop", o.Stop),
		logger.Float64("target", o.Target),
		logger.Float64("size", o.Size),
	)
}

// record hands a row to the async writer and updates the marker list. The
// slot never waits on the store.
func (e *Engine) record(r tradelog.Record) {
	e.writer.Write(r)
	if m, ok := MarkerFor(r); ok {
		e.mu.Lock()
		e.markers = append(e.markers, m)
		sortMarkers(e.markers)
		e.mu.Unlock()
	}
}

func (e *Engine) loadMarkers(ctx context.Context) {
	window := e.cfg.Store.Window
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	rows, err := e.trades.QueryRecent(ctx, time.Now().Add(-window), 0)
	if err != nil {
		e.log.Warn("markers_load_failed", logger.Err(err))
		return
	}
	ms := Markers(rows)
	e.mu.Lock()
	e.markers = append(ms, e.markers...)
	sortMarkers(e.markers)
	e.mu.Unlock()
	e.log.Info("markers_loaded", logger.Int("markers", len(ms)))
}

func (e *Engine) rebuildOscillators(closed []types.Candle) {
	osc, err := indicator.NewOscillators()
	if err != nil {
		e.log.Warn("oscillator_init_failed", logger.Err(err))
		return
	}
	for _, c := range closed {
		if err := osc.Add(c); err != nil {
			e.log.Debug("oscillator_add_failed", logger.Err(err))
		}
	}
	e.osc = osc
}

// publish evaluates the newest bar, finished or not, and emits the result.
// The setup it carries is advisory; only onFinal commits.
func (e *Engine) publish() {
	history := e.candles.History()
	eval := e.detector.Evaluate(history, e.exec.Balance())

	s := Snapshot{
		Indicators:  eval.Snapshot,
		Oscillators: e.osc.Readings(),
		Setup:       eval.Setup,
		Reason:      eval.Reason,
		Balance:     e.exec.Balance(),
	}
	if n := len(history); n > 0 {
		last := history[n-1]
		s.Time = last.Time
		s.Candle = &last
	}
	if o, ok := e.book.Pending(); ok {
		s.Pending = &o
	}
	if t, ok := e.book.Active(); ok {
		s.Active = &t
	}

	e.mu.Lock()
	s.Connected = e.connected
	s.Markers = append([]Marker(nil), e.markers...)
	e.latest = s
	e.mu.Unlock()

	if e.pub != nil {
		e.pub.Publish(s)
	}
}

// Latest returns the most recent published snapshot.
func (e *Engine) Latest() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// Markers returns the current annotation list.
func (e *Engine) Markers() []Marker {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Marker(nil), e.markers...)
}

// Ledger returns the trades settled since the engine started.
func (e *Engine) Ledger() []types.Trade { return e.exec.Ledger() }

func (e *Engine) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.latest.Connected = v
	e.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next <= 0 {
		next = time.Second
	}
	if max > 0 && next > max {
		next = max
	}
	return next
}
