// gosig runs the one-minute breakout dashboard: a live streaming loop with
// an HTTP surface, offline backtests and trade-log replays.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/logger"
)

var (
	version    = "0.1.0"
	configPath string
	logLevel   string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gosig",
		Short:         "Live 1m candle dashboard with breakout signals and a paper trade slot",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	root.AddCommand(liveCmd())
	root.AddCommand(backtestCmd())
	root.AddCommand(replayCmd())
	root.AddCommand(configCmd())
	return root
}

// setup loads the config and builds the process logger.
func setup() (config.Config, logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
