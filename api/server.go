// Package api serves the dashboard state over HTTP: the live snapshot,
// chart markers, the trade log, on-demand backtests and prometheus metrics.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evdnx/gosig/backtest"
	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/live"
	"github.com/evdnx/gosig/logger"
	"github.com/evdnx/gosig/performance"
	"github.com/evdnx/gosig/tradelog"
	"github.com/evdnx/gosig/types"
)

// Source is the live state the server reads. *live.Engine implements it.
type Source interface {
	Latest() live.Snapshot
	Markers() []live.Marker
	Ledger() []types.Trade
}

// Server wires the HTTP routes. Source and Broadcaster may be nil when no
// live loop runs; the live routes then answer 503.
type Server struct {
	cfg    config.Config
	src    Source
	trades tradelog.Store
	bcast  *live.Broadcaster
	log    logger.Logger
	router *gin.Engine
	now    func() time.Time
}

// New builds the router.
func New(cfg config.Config, src Source, trades tradelog.Store, bcast *live.Broadcaster, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:    cfg,
		src:    src,
		trades: trades,
		bcast:  bcast,
		log:    log,
		router: gin.New(),
		now:    time.Now,
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/snapshot", s.handleSnapshot)
		api.GET("/stream", s.handleSnapshotStream)
		api.GET("/markers", s.handleMarkers)
		api.GET("/ledger", s.handleLedger)
		api.GET("/trades", s.handleTrades)
		api.GET("/trades/stream", s.handleTradeStream)
		api.GET("/trades/replay", s.handleReplay)
		api.POST("/backtest", s.handleBacktest)
	}
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on cfg.Server.Addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http_listening", logger.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":    "healthy",
		"timestamp": s.now().Unix(),
		"live":      s.src != nil,
	}
	if s.src != nil {
		resp["connected"] = s.src.Latest().Connected
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) requireLive(c *gin.Context) bool {
	if s.src == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live loop not running"})
		return false
	}
	return true
}

func (s *Server) handleSnapshot(c *gin.Context) {
	if !s.requireLive(c) {
		return
	}
	c.JSON(http.StatusOK, s.src.Latest())
}

func (s *Server) handleMarkers(c *gin.Context) {
	if !s.requireLive(c) {
		return
	}
	c.JSON(http.StatusOK, s.src.Markers())
}

func (s *Server) handleLedger(c *gin.Context) {
	if !s.requireLive(c) {
		return
	}
	ledger := s.src.Ledger()
	c.JSON(http.StatusOK, gin.H{
		"trades": ledger,
		"stats":  performance.Summarize(ledger, s.cfg.Account.Capital),
	})
}

func (s *Server) handleSnapshotStream(c *gin.Context) {
	if s.bcast == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live loop not running"})
		return
	}
	ch, cancel := s.bcast.Subscribe()
	defer cancel()
	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// window parses ?days=, defaulting to the configured trade-log window.
func (s *Server) window(c *gin.Context) (time.Time, error) {
	w := s.cfg.Store.Window
	if w <= 0 {
		w = 30 * 24 * time.Hour
	}
	if v := c.Query("days"); v != "" {
		days, err := strconv.ParseFloat(v, 64)
		if err != nil || days <= 0 {
			return time.Time{}, errors.New("days must be a positive number")
		}
		w = time.Duration(days * float64(24*time.Hour))
	}
	return s.now().Add(-w), nil
}

func (s *Server) queryTrades(c *gin.Context) ([]tradelog.Record, bool) {
	since, err := s.window(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return nil, false
		}
	}
	rows, err := s.trades.QueryRecent(c.Request.Context(), since, limit)
	if err != nil {
		s.log.Error("trades_query_failed", logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return rows, true
}

func (s *Server) handleTrades(c *gin.Context) {
	rows, ok := s.queryTrades(c)
	if !ok {
		return
	}
	if rows == nil {
		rows = []tradelog.Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"trades":  rows,
		"markers": live.Markers(rows),
	})
}

func (s *Server) handleTradeStream(c *gin.Context) {
	ch, cancel := s.trades.SubscribeInserts(c.Request.Context())
	defer cancel()
	c.Stream(func(w io.Writer) bool {
		r, ok := <-ch
		if !ok {
			return false
		}
		c.SSEvent("trade", r)
		return true
	})
}

func (s *Server) handleReplay(c *gin.Context) {
	capital := s.cfg.Account.Capital
	riskPct := s.cfg.Account.RiskPct
	if v := c.Query("capital"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "capital must be positive"})
			return
		}
		capital = f
	}
	if v := c.Query("risk_pct"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "risk_pct must be in (0,100]"})
			return
		}
		riskPct = f
	}
	rows, ok := s.queryTrades(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, backtest.Replay(rows, capital, riskPct))
}

// BacktestRequest runs the simulator over caller-supplied candles. Unset
// knobs fall back to the server configuration.
type BacktestRequest struct {
	Candles     []types.Candle `json:"candles" binding:"required"`
	Capital     *float64       `json:"capital"`
	RiskPct     *float64       `json:"riskPct"`
	Leverage    *float64       `json:"leverage"`
	PeriodHours *float64       `json:"periodHours"`
	TieBreak    *string        `json:"tieBreak"`
}

func (s *Server) handleBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, bt := s.cfg.Account, s.cfg.Backtest
	if req.Capital != nil {
		account.Capital = *req.Capital
	}
	if req.RiskPct != nil {
		account.RiskPct = *req.RiskPct
	}
	if req.Leverage != nil {
		account.Leverage = *req.Leverage
	}
	if req.PeriodHours != nil {
		bt.PeriodHours = *req.PeriodHours
	}
	if req.TieBreak != nil {
		bt.TieBreak = *req.TieBreak
	}

	sim, err := backtest.New(s.cfg.Strategy, account, bt, s.log)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := sim.Run(req.Candles)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if res.Trades == nil {
		res.Trades = []types.Trade{}
	}
	c.JSON(http.StatusOK, res)
}
