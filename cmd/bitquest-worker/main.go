package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitquest/internal/config"
	"bitquest/internal/market"
)

// The worker keeps the shared price series warm so dashboards always read a
// fresh state. Each tick defers to the engine's own staleness window, so a
// worker and any number of API processes can coexist on the same state file.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	engine := market.NewEngine(cfg.MarketStatePath, market.DefaultInstruments(), cfg.MarketRefreshMin, logger)

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("BITQUEST_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if _, err := engine.RefreshIfStale(time.Now()); err != nil {
			logger.Error("refresh failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.WorkerTickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.WorkerTickEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			st, err := engine.RefreshIfStale(time.Now())
			if err != nil {
				logger.Error("market refresh failed", "err", err)
				continue
			}
			logger.Info("market refresh complete", "instruments", len(st.Prices), "history", len(st.History))
		}
	}
}
