package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/evdnx/gosig/api"
	"github.com/evdnx/gosig/feed"
	"github.com/evdnx/gosig/live"
	"github.com/evdnx/gosig/logger"
	"github.com/evdnx/gosig/tradelog"
)

func liveCmd() *cobra.Command {
	var (
		addr   string
		symbol string
	)
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Stream candles, evaluate signals and serve the dashboard API",
		Long: `Seed the candle store from a REST snapshot, subscribe to the kline
stream and run one evaluation cycle per message. Committed signals and
closed trades are written to the trade log; the HTTP server exposes the
latest snapshot, markers, trade history and prometheus metrics.

Example:
  gosig live --config gosig.yaml
  gosig live --symbol ETHUSDT --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if symbol != "" {
				cfg.Feed.Symbol = symbol
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := tradelog.Open(ctx, cfg.Store, log)
			if err != nil {
				return err
			}
			defer store.Close()

			bcast := live.NewBroadcaster()
			engine, err := live.New(cfg, live.Deps{
				Feed:      feed.NewBinance(cfg.Feed, log),
				Trades:    store,
				Publisher: bcast,
				Logger:    log,
			})
			if err != nil {
				return err
			}
			server := api.New(cfg, engine, store, bcast, log)

			log.Info("live_starting",
				logger.String("symbol", cfg.Feed.Symbol),
				logger.String("interval", cfg.Feed.Interval),
				logger.String("store", cfg.Store.Driver),
				logger.String("addr", cfg.Server.Addr),
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return engine.Run(gctx) })
			g.Go(func() error { return server.Run(gctx) })
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides server.addr)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "Trading pair (overrides feed.symbol)")
	return cmd
}
