// Command tradecached runs the cache as a sidecar: profile caches behind
// the ops HTTP API, with optional NATS event publishing and DataDog
// metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/southerncoder/tradecache/internal/api"
	"github.com/southerncoder/tradecache/internal/cache"
	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/events"
	"github.com/southerncoder/tradecache/internal/metrics"
	"github.com/southerncoder/tradecache/internal/metrics/datadog"
)

func main() {
	var (
		listenAddr = flag.String("listen", ":8070", "ops API listen address")
		configPath = flag.String("config", "", "base config file (JSON or YAML)")
		profiles   = flag.String("profiles", "news,social,fundamentals,market-data", "comma-separated profiles to preload")
		natsURL    = flag.String("nats-url", "", "NATS server URL for event publishing (empty disables)")
		logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)

	baseCfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	var opts []cache.Option
	opts = append(opts, cache.WithLogger(logger))

	if *natsURL != "" {
		sink, err := events.NewNATSSink(*natsURL, "tradecache.events", logger)
		if err != nil {
			logger.Error("Failed to connect to NATS", "url", *natsURL, "error", err)
			os.Exit(1)
		}
		defer func() { _ = sink.Close() }()
		opts = append(opts, cache.WithEventSinks(sink))
	}

	publisher, err := datadog.NewPublisher(&baseCfg.DataDog, logger)
	if err != nil {
		logger.Error("Failed to create DataDog publisher", "error", err)
		os.Exit(1)
	}
	opts = append(opts, cache.WithMetricsPublisher(publisher))

	registry := cache.NewRegistry(logger, opts...)
	defer func() { _ = registry.DestroyAll(context.Background()) }()

	for _, profile := range strings.Split(*profiles, ",") {
		profile = strings.TrimSpace(profile)
		if profile == "" {
			continue
		}
		if _, err := registry.ForProfile(profile); err != nil {
			logger.Error("Failed to create profile cache", "profile", profile, "error", err)
			os.Exit(1)
		}
	}

	collector := metrics.NewCollector("tradecache")
	server := &http.Server{
		Addr:         *listenAddr,
		Handler:      api.NewServer(registry, collector, logger).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Ops API listening", "address", *listenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("Shutdown incomplete", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
