package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evdnx/gosig/backtest"
	"github.com/evdnx/gosig/performance"
	"github.com/evdnx/gosig/tradelog"
)

func replayCmd() *cobra.Command {
	var (
		days    float64
		capital float64
		riskPct float64
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Compound the closed trades of the trade log into an equity curve",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if capital <= 0 {
				capital = cfg.Account.Capital
			}
			if riskPct <= 0 {
				riskPct = cfg.Account.RiskPct
			}
			ctx := cmd.Context()
			store, err := tradelog.Open(ctx, cfg.Store, log)
			if err != nil {
				return err
			}
			defer store.Close()

			since := time.Now().Add(-time.Duration(days * float64(24*time.Hour)))
			rows, err := store.QueryRecent(ctx, since, 0)
			if err != nil {
				return err
			}
			res := backtest.Replay(rows, capital, riskPct)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rows          %d, closed trades %d\n", len(rows), len(res.Trades))
			return performance.WriteReport(out, res.Stats)
		},
	}
	cmd.Flags().Float64Var(&days, "days", 30, "Look back this many days")
	cmd.Flags().Float64Var(&capital, "capital", 0, "Starting balance (default: account.capital)")
	cmd.Flags().Float64Var(&riskPct, "risk-pct", 0, "Percent of balance risked per trade (default: account.risk_pct)")
	return cmd
}
