package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitquest/internal/api"
	"bitquest/internal/auth"
	"bitquest/internal/config"
	"bitquest/internal/db"
	"bitquest/internal/market"
	"bitquest/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	conn, err := db.Open(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Error("db open failed", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	users := store.New(conn, logger)
	if err := users.Init(ctx); err != nil {
		logger.Error("store init failed", "err", err)
		os.Exit(1)
	}

	engine := market.NewEngine(cfg.MarketStatePath, market.DefaultInstruments(), cfg.MarketRefreshMin, logger)
	registry := auth.NewRegistry()
	server := api.New(cfg, logger, registry, users, engine)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve failed", "err", err)
		os.Exit(1)
	}
	logger.Info("api shutdown")
}
