package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"PriceActionBot/internal/alertcache"
	"PriceActionBot/internal/collector"
	"PriceActionBot/internal/config"
	"PriceActionBot/internal/logger"
	"PriceActionBot/internal/notifier"
	"PriceActionBot/internal/recorder"
	"PriceActionBot/internal/scheduler"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logr := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	logr.Info().Str("config", cfgPath).Msg("price action bot starting")
	if err := cfg.Validate(); err != nil {
		logr.Fatal().Err(err).Msg("config validation")
	}
	tfs, _ := cfg.ParsedTimeframes()
	patterns, _ := cfg.PatternConfig()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.BaseURL {
	case "":
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 1.1}
	default:
		fetcher = collector.NewBridgeFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.RequestsPerSecond)
	}
	logr.Info().Str("source", fetcher.Name()).Msg("data source selected")
	col := collector.NewCollector(fetcher)

	// Init Telegram notifier
	tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy,
		logger.Component(logr, "telegram"))
	if err != nil {
		logr.Fatal().Err(err).Msg("init telegram notifier")
	}

	// Init alert cache
	var cache alertcache.Cache
	if cfg.Alerts.RedisAddr != "" {
		rc, err := alertcache.NewRedisCache(ctx, cfg.Alerts.RedisAddr, cfg.Alerts.RedisPassword, cfg.Alerts.RedisDB, cfg.Alerts.Cooldown)
		if err != nil {
			logr.Warn().Err(err).Msg("redis alert cache unavailable, using file cache")
		} else {
			cache = rc
		}
	}
	if cache == nil {
		cache, err = alertcache.NewFileCache(cfg.Alerts.CacheFile, cfg.Alerts.Cooldown)
		if err != nil {
			logr.Warn().Err(err).Msg("alert cache file unreadable, starting empty")
			cache, _ = alertcache.NewFileCache("", cfg.Alerts.Cooldown)
		}
	}
	defer cache.Close()

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger.Component(logr, "recorder"))
		if err != nil {
			logr.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, col, tn, cache, rec, scheduler.Options{
		Symbols:     cfg.Symbols,
		Timeframes:  tfs,
		Patterns:    patterns,
		MinStrength: cfg.MinStrength(),
		BarCount:    cfg.Scan.BarCount,
		Concurrency: cfg.Scan.Concurrency,
		SummaryCron: cfg.Schedule.SummaryCron,
		Location:    cfg.Location(),
	}, logger.Component(logr, "scheduler"))

	if os.Getenv("SCAN_ONCE") == "true" {
		logr.Info().Msg("SCAN_ONCE enabled, scanning once and exiting")
		events, err := sched.ScanNow(ctx)
		if err != nil {
			logr.Error().Err(err).Msg("scan")
		}
		for _, e := range events {
			logr.Info().Str("timeframe", string(e.Timeframe)).Int("detections", e.Detections).
				Int("alerts", e.Alerts).Int("errors", e.Errors).Msg("scan result")
		}
		return
	}

	if err := sched.RegisterAll(); err != nil {
		logr.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()

	if err := tn.SendWithRetry(ctx, notifier.FormatStartup(cfg.Symbols, tfs, patterns.Enabled), 3); err != nil {
		logr.Error().Err(err).Msg("send startup message")
	}

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	logr.Info().Msg("telegram polling started")

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logr.Info().Msg("RUN_ON_START enabled, scanning now")
		go func() {
			if _, err := sched.ScanNow(ctx); err != nil {
				logr.Error().Err(err).Msg("startup scan")
			}
		}()
	}

	logr.Info().Int("symbols", len(cfg.Symbols)).Int("timeframes", len(tfs)).Msg("price action bot is running, press Ctrl+C to stop")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logr.Info().Msg("shutdown signal received, stopping")
	sched.Stop()

	// The run context is about to be cancelled; give the farewell its own deadline.
	sendCtx, sendCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer sendCancel()
	if err := tn.SendWithRetry(sendCtx, notifier.FormatShutdown(sched.Stats()), 1); err != nil {
		logr.Error().Err(err).Msg("send shutdown message")
	}
	cancel()
	logr.Info().Msg("price action bot stopped")
}
