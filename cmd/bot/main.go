package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mathrand "math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"crossbot/internal/config"
	"crossbot/internal/engine"
	"crossbot/internal/gateway"
	alpacagw "crossbot/internal/gateway/alpaca"
	"crossbot/internal/gateway/sim"
	"crossbot/internal/ledger"
	"crossbot/internal/metrics"
	"crossbot/internal/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	runID := generateRunID()

	journal, err := engine.NewJournal(cfg.DecisionsPath, runID)
	if err != nil {
		logger.Fatal().Err(err).Msg("open decision journal")
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Error().Err(err).Msg("close decision journal")
		}
	}()

	store := state.NewStore()
	ldgr := ledger.New(cfg.Symbol)
	dispatcher := gateway.NewDispatcher(256, logger)

	var sender gateway.RequestSender
	var simGateway *sim.Gateway
	switch cfg.Mode {
	case config.ModeAlpaca:
		sender = alpacagw.New(alpacagw.Config{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
			Feed:      cfg.Feed,
		}, dispatcher, logger)
	default:
		simGateway = sim.New(dispatcher, logger)
		sender = simGateway
	}

	coordinator := engine.New(cfg, sender, store, ldgr, journal, logger)

	metricsServer := metrics.Serve(cfg.MetricsAddr)
	defer func() { _ = metricsServer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		logger.Info().Msg("shutdown signal received")
		// Cancel outstanding orders on the event goroutine, then stop.
		dispatcher.Publish(gateway.CommandEventOf(func() {
			if err := coordinator.CancelAll(); err != nil {
				logger.Error().Err(err).Msg("cancel all on shutdown")
			}
		}))
		time.Sleep(time.Second)
		cancel()
	}()

	if err := sender.Connect(ctx); err != nil {
		logger.Fatal().Err(err).Msg("gateway connect")
	}
	if err := sender.RequestMarketData(cfg.Instrument()); err != nil {
		logger.Fatal().Err(err).Msg("market data request")
	}
	if err := sender.RequestPositions(); err != nil {
		logger.Warn().Err(err).Msg("initial position request")
	}

	if simGateway != nil {
		go driveSimTicks(ctx, simGateway)
	}

	logger.Info().Str("run_id", runID).Str("mode", string(cfg.Mode)).
		Str("symbol", cfg.Symbol).Int("short_window", cfg.ShortWindow).
		Int("long_window", cfg.LongWindow).Int("quantity", cfg.Quantity).
		Msg("starting trading loop")

	dispatcher.Run(ctx, coordinator)

	if err := sender.Disconnect(); err != nil {
		logger.Error().Err(err).Msg("gateway disconnect")
	}
	logger.Info().Msg("shutdown complete")
}

// driveSimTicks feeds the simulated gateway a random walk so sim mode
// exercises the full decision loop without a live feed.
func driveSimTicks(ctx context.Context, g *sim.Gateway) {
	price := 100.0
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			price *= 1 + (mathrand.Float64()-0.5)*0.004
			g.PushTick(price)
		}
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

func generateRunID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return timestamp
	}
	return timestamp + "-" + hex.EncodeToString(randomBytes)
}
