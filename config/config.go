package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Stop placement modes.
const (
	StopATR    = "atr"    // low - ATR*StopATRFactor
	StopBuffer = "buffer" // low - StopBuffer
)

// Tie-break policies for a bar that touches both target and stop.
const (
	TieTPFirst       = "tp_first"
	TieSLFirst       = "sl_first"
	TieOpenProximity = "open_proximity"
)

// Trade log drivers.
const (
	StoreMemory     = "memory"
	StoreClickHouse = "clickhouse"
)

// AccountConfig holds the sizing inputs of the simulated account.
type AccountConfig struct {
	Capital  float64 `yaml:"capital"`   // default 1000
	RiskPct  float64 `yaml:"risk_pct"`  // percent of balance risked per trade, default 2
	Leverage float64 `yaml:"leverage"`  // default 1
}

// StrategyConfig holds the fixed entry/exit heuristic parameters.
type StrategyConfig struct {
	// Indicator periods
	EMAFast      int `yaml:"ema_fast"`       // default 20
	EMASlow      int `yaml:"ema_slow"`       // default 50
	RSIPeriod    int `yaml:"rsi_period"`     // default 14
	ATRPeriod    int `yaml:"atr_period"`     // default 14
	ADXPeriod    int `yaml:"adx_period"`     // default 14
	VolMAPeriod  int `yaml:"vol_ma_period"`  // default 20
	MACDFast     int `yaml:"macd_fast"`      // default 12
	MACDSlow     int `yaml:"macd_slow"`      // default 26
	MACDSignal   int `yaml:"macd_signal"`    // default 9
	LookbackBars int `yaml:"lookback_bars"`  // support/resistance window, default 50

	// Entry filters
	RSIMin        float64 `yaml:"rsi_min"`         // default 45
	RSIMax        float64 `yaml:"rsi_max"`         // default 75
	VolMultiplier float64 `yaml:"vol_multiplier"`  // volume > mult * volume SMA, default 1.2
	BodyATRMult   float64 `yaml:"body_atr_mult"`   // body >= mult * ATR, default 0.8

	// Order geometry
	RetraceRatio  float64 `yaml:"retrace_ratio"`   // entry = open + body*ratio, default 0.3
	RiskReward    float64 `yaml:"risk_reward"`     // default 2.0
	StopMode      string  `yaml:"stop_mode"`       // "atr" | "buffer"
	StopATRFactor float64 `yaml:"stop_atr_factor"` // default 0.2
	StopBuffer    float64 `yaml:"stop_buffer"`     // default 0.1
	HardSizeCap   float64 `yaml:"hard_size_cap"`   // default 5
}

// BacktestConfig drives the historical replay.
type BacktestConfig struct {
	PeriodHours       float64 `yaml:"period_hours"`        // 0 = full history, default 24
	WarmupBars        int     `yaml:"warmup_bars"`         // default 50
	MinBars           int     `yaml:"min_bars"`            // default 100
	MaxPendingSeconds int64   `yaml:"max_pending_seconds"` // default 3600
	MaxHoldSeconds    int64   `yaml:"max_hold_seconds"`    // 0 = never, default 3600
	FeeBps            float64 `yaml:"fee_bps"`             // per side, default 0
	SlippageBps       float64 `yaml:"slippage_bps"`        // per side, default 0
	TieBreak          string  `yaml:"tie_break"`           // default tp_first
}

// FeedConfig describes the live market-data source.
type FeedConfig struct {
	Symbol        string        `yaml:"symbol"`
	Interval      string        `yaml:"interval"`
	RESTURL       string        `yaml:"rest_url"`
	StreamURL     string        `yaml:"stream_url"`
	SnapshotLimit int           `yaml:"snapshot_limit"`
	Backoff       time.Duration `yaml:"backoff"`
	MaxBackoff    time.Duration `yaml:"max_backoff"`
	MaxCandles    int           `yaml:"max_candles"`
}

// StoreConfig selects and configures the trade log.
type StoreConfig struct {
	Driver     string        `yaml:"driver"`
	Addr       string        `yaml:"addr"`
	Database   string        `yaml:"database"`
	Table      string        `yaml:"table"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	QueueSize  int           `yaml:"queue_size"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Window     time.Duration `yaml:"window"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Config is the full application configuration.
type Config struct {
	Account  AccountConfig  `yaml:"account"`
	Strategy StrategyConfig `yaml:"strategy"`
	Backtest BacktestConfig `yaml:"backtest"`
	Feed     FeedConfig     `yaml:"feed"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// DefaultAccount returns the dashboard's initial account settings.
func DefaultAccount() AccountConfig {
	return AccountConfig{Capital: 1000, RiskPct: 2, Leverage: 1}
}

// DefaultStrategy returns the stock heuristic parameters.
func DefaultStrategy() StrategyConfig {
	return StrategyConfig{
		EMAFast:       20,
		EMASlow:       50,
		RSIPeriod:     14,
		ATRPeriod:     14,
		ADXPeriod:     14,
		VolMAPeriod:   20,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		LookbackBars:  50,
		RSIMin:        45,
		RSIMax:        75,
		VolMultiplier: 1.2,
		BodyATRMult:   0.8,
		RetraceRatio:  0.3,
		RiskReward:    2.0,
		StopMode:      StopATR,
		StopATRFactor: 0.2,
		StopBuffer:    0.1,
		HardSizeCap:   5,
	}
}

// DefaultBacktest returns the replay defaults.
func DefaultBacktest() BacktestConfig {
	return BacktestConfig{
		PeriodHours:       24,
		WarmupBars:        50,
		MinBars:           100,
		MaxPendingSeconds: 3600,
		MaxHoldSeconds:    3600,
		TieBreak:          TieTPFirst,
	}
}

// Default returns a complete configuration with every section populated.
func Default() Config {
	return Config{
		Account:  DefaultAccount(),
		Strategy: DefaultStrategy(),
		Backtest: DefaultBacktest(),
		Feed: FeedConfig{
			Symbol:        "PAXGUSDT",
			Interval:      "1m",
			RESTURL:       "https://api.binance.com/api/v3",
			StreamURL:     "wss://stream.binance.com:9443/ws",
			SnapshotLimit: 1000,
			Backoff:       time.Second,
			MaxBackoff:    30 * time.Second,
			MaxCandles:    5000,
		},
		Store: StoreConfig{
			Driver:     StoreMemory,
			Addr:       "localhost:9000",
			Database:   "gosig",
			Table:      "trades",
			Username:   "default",
			QueueSize:  256,
			Retries:    3,
			RetryDelay: 500 * time.Millisecond,
			Window:     30 * 24 * time.Hour,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Encoding: "json"},
	}
}

// Load reads a YAML file and overlays it on Default(). An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every section and returns all problems at once.
func (c *Config) Validate() error {
	err := multierr.Combine(
		c.Account.Validate(),
		c.Strategy.Validate(),
		c.Backtest.Validate(),
	)
	if c.Feed.Symbol == "" {
		err = multierr.Append(err, errors.New("feed.symbol is required"))
	}
	if c.Feed.SnapshotLimit <= 0 {
		err = multierr.Append(err, errors.New("feed.snapshot_limit must be positive"))
	}
	switch c.Store.Driver {
	case StoreMemory, StoreClickHouse:
	default:
		err = multierr.Append(err, fmt.Errorf("store.driver %q is not one of memory, clickhouse", c.Store.Driver))
	}
	return err
}

// Validate checks the account inputs.
func (a AccountConfig) Validate() error {
	var err error
	if a.Capital <= 0 {
		err = multierr.Append(err, fmt.Errorf("account.capital (%f) must be positive", a.Capital))
	}
	if a.RiskPct <= 0 || a.RiskPct > 100 {
		err = multierr.Append(err, fmt.Errorf("account.risk_pct (%f) must be >0 and <=100", a.RiskPct))
	}
	if a.Leverage <= 0 {
		err = multierr.Append(err, fmt.Errorf("account.leverage (%f) must be positive", a.Leverage))
	}
	return err
}

// Validate checks that all numeric fields are within sensible bounds.
func (c StrategyConfig) Validate() error {
	var err error
	periods := []struct {
		name string
		v    int
	}{
		{"ema_fast", c.EMAFast},
		{"ema_slow", c.EMASlow},
		{"rsi_period", c.RSIPeriod},
		{"atr_period", c.ATRPeriod},
		{"adx_period", c.ADXPeriod},
		{"vol_ma_period", c.VolMAPeriod},
		{"macd_fast", c.MACDFast},
		{"macd_slow", c.MACDSlow},
		{"macd_signal", c.MACDSignal},
		{"lookback_bars", c.LookbackBars},
	}
	for _, p := range periods {
		if p.v <= 0 {
			err = multierr.Append(err, fmt.Errorf("strategy.%s must be positive", p.name))
		}
	}
	if c.MACDFast >= c.MACDSlow {
		err = multierr.Append(err, errors.New("strategy.macd_fast must be below macd_slow"))
	}
	if c.RSIMin < 0 || c.RSIMax > 100 || c.RSIMin > c.RSIMax {
		err = multierr.Append(err, fmt.Errorf("strategy RSI band [%f,%f] must lie within [0,100]", c.RSIMin, c.RSIMax))
	}
	if c.VolMultiplier < 0 {
		err = multierr.Append(err, errors.New("strategy.vol_multiplier cannot be negative"))
	}
	if c.BodyATRMult < 0 {
		err = multierr.Append(err, errors.New("strategy.body_atr_mult cannot be negative"))
	}
	if c.RetraceRatio < 0 || c.RetraceRatio > 1 {
		err = multierr.Append(err, fmt.Errorf("strategy.retrace_ratio (%f) must be between 0 and 1", c.RetraceRatio))
	}
	if c.RiskReward <= 0 {
		err = multierr.Append(err, errors.New("strategy.risk_reward must be positive"))
	}
	switch c.StopMode {
	case StopATR:
		if c.StopATRFactor < 0 {
			err = multierr.Append(err, errors.New("strategy.stop_atr_factor cannot be negative"))
		}
	case StopBuffer:
		if c.StopBuffer < 0 {
			err = multierr.Append(err, errors.New("strategy.stop_buffer cannot be negative"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("strategy.stop_mode %q is not one of atr, buffer", c.StopMode))
	}
	if c.HardSizeCap <= 0 {
		err = multierr.Append(err, errors.New("strategy.hard_size_cap must be positive"))
	}
	return err
}

// Validate checks the replay settings.
func (b BacktestConfig) Validate() error {
	var err error
	if b.PeriodHours < 0 {
		err = multierr.Append(err, errors.New("backtest.period_hours cannot be negative"))
	}
	if b.WarmupBars < 0 {
		err = multierr.Append(err, errors.New("backtest.warmup_bars cannot be negative"))
	}
	if b.MinBars < 0 {
		err = multierr.Append(err, errors.New("backtest.min_bars cannot be negative"))
	}
	if b.MaxPendingSeconds <= 0 {
		err = multierr.Append(err, errors.New("backtest.max_pending_seconds must be positive"))
	}
	if b.MaxHoldSeconds < 0 {
		err = multierr.Append(err, errors.New("backtest.max_hold_seconds cannot be negative"))
	}
	if b.FeeBps < 0 || b.SlippageBps < 0 {
		err = multierr.Append(err, errors.New("backtest fee/slippage bps cannot be negative"))
	}
	switch b.TieBreak {
	case TieTPFirst, TieSLFirst, TieOpenProximity:
	default:
		err = multierr.Append(err, fmt.Errorf("backtest.tie_break %q is not one of tp_first, sl_first, open_proximity", b.TieBreak))
	}
	return err
}
