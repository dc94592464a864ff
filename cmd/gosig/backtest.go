package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evdnx/gosig/backtest"
	"github.com/evdnx/gosig/feed"
	"github.com/evdnx/gosig/performance"
	"github.com/evdnx/gosig/types"
)

func backtestCmd() *cobra.Command {
	var (
		csvPath   string
		tradesOut string
		hours     float64
		tieBreak  string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the detector and trade slot over historical candles",
		Long: `Run the simulator bar by bar over a candle history and print the
performance report. Candles come from a CSV file (time,open,high,low,close
[,volume]) or, without --csv, from the exchange REST snapshot.

Example:
  gosig backtest --csv btc_1m.csv --hours 48
  gosig backtest --limit 1000 --tie-break sl_first --trades-out trades.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("hours") {
				cfg.Backtest.PeriodHours = hours
			}
			if tieBreak != "" {
				cfg.Backtest.TieBreak = tieBreak
			}

			var bars []types.Candle
			if csvPath != "" {
				f, err := os.Open(csvPath)
				if err != nil {
					return err
				}
				bars, err = backtest.ReadCSV(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("read %s: %w", csvPath, err)
				}
			} else {
				bars, err = feed.NewBinance(cfg.Feed, log).Snapshot(cmd.Context(), limit)
				if err != nil {
					return err
				}
				// The newest kline is still forming.
				if n := len(bars); n > 0 && !bars[n-1].IsFinal {
					bars = bars[:n-1]
				}
			}

			sim, err := backtest.New(cfg.Strategy, cfg.Account, cfg.Backtest, log)
			if err != nil {
				return err
			}
			res, err := sim.Run(bars)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintf(out, "not enough history: %d bars, need %d\n", res.Bars, cfg.Backtest.MinBars)
				return nil
			}
			fmt.Fprintf(out, "bars          %d (signals %d, expired %d)\n", res.Bars, res.Signals, res.Expired)
			if err := performance.WriteReport(out, res.Stats); err != nil {
				return err
			}
			if tradesOut == "" {
				return nil
			}
			f, err := os.Create(tradesOut)
			if err != nil {
				return err
			}
			defer f.Close()
			return backtest.WriteTradesCSV(f, res.Trades)
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "Candle CSV file (default: fetch from the exchange)")
	cmd.Flags().StringVar(&tradesOut, "trades-out", "", "Write the trade ledger as CSV")
	cmd.Flags().Float64Var(&hours, "hours", 24, "Only test the last N hours (0 = all)")
	cmd.Flags().StringVar(&tieBreak, "tie-break", "", "Same-bar TP/SL policy: tp_first, sl_first, open_proximity")
	cmd.Flags().IntVar(&limit, "limit", 1000, "Klines to fetch when no --csv is given")
	return cmd
}
