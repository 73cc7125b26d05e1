package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/climate-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-dashboard/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/climate-dashboard/internal/adapter/mqtt"
	"github.com/couchcryptid/climate-dashboard/internal/config"
	"github.com/couchcryptid/climate-dashboard/internal/dashboard"
	"github.com/couchcryptid/climate-dashboard/internal/dataset"
	"github.com/couchcryptid/climate-dashboard/internal/observability"
	"github.com/couchcryptid/climate-dashboard/internal/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := settings.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open settings store", "driver", cfg.SettingsDriver, "error", err)
		os.Exit(1)
	}
	themes := settings.NewManager(store)
	if theme, err := themes.Load(ctx); err != nil {
		logger.Warn("using default theme", "error", err)
	} else {
		logger.Info("theme preference loaded", "theme", theme)
	}

	var source dataset.Source
	if cfg.DataBaseURL != "" {
		source = dataset.NewHTTPSource(cfg.DataBaseURL, cfg.DataTimeout, logger)
		logger.Info("serving dataset from url", "base_url", cfg.DataBaseURL)
	} else {
		source = dataset.NewDirSource(cfg.DataDir)
		logger.Info("serving dataset from directory", "dir", cfg.DataDir)
	}
	loader := dataset.NewLoader(source, logger)

	opts := []dashboard.Option{
		dashboard.WithFetchDelay(cfg.FetchDelay),
		dashboard.WithCacheSize(cfg.ResultCacheSize),
	}
	closers := []io.Closer{store}

	// Fetch activity events (feature-flagged via EVENTS_SINK).
	switch cfg.EventsSink {
	case config.SinkKafka:
		pub := kafkaadapter.NewPublisher(cfg, logger)
		opts = append(opts, dashboard.WithPublisher(config.SinkKafka, pub))
		closers = append(closers, pub)
		logger.Info("publishing fetch events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	case config.SinkMQTT:
		pub := mqttadapter.NewPublisher(cfg, logger)
		go func() {
			if err := pub.Connect(ctx); err != nil {
				logger.Warn("mqtt connect failed", "broker", cfg.MQTTBroker, "error", err)
			}
		}()
		opts = append(opts, dashboard.WithPublisher(config.SinkMQTT, pub))
		closers = append(closers, pub)
		logger.Info("publishing fetch events to mqtt", "broker", cfg.MQTTBroker, "topic", cfg.MQTTTopic)
	default:
		logger.Info("fetch events disabled")
	}

	ctrl := dashboard.NewController(loader, themes, logger, metrics, opts...)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ctrl, metrics, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Load the static dataset; the page shows a spinner until this finishes.
	go func() {
		_ = ctrl.Load(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := ctrl.Drain(shutdownCtx); err != nil {
		logger.Warn("pending fetch events dropped", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
