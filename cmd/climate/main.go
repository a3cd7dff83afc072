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

	"github.com/couchcryptid/climate-exceedance-service/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/climate-exceedance-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-exceedance-service/internal/adapter/kafka"
	"github.com/couchcryptid/climate-exceedance-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/climate-exceedance-service/internal/adapter/synthetic"
	"github.com/couchcryptid/climate-exceedance-service/internal/analysis"
	"github.com/couchcryptid/climate-exceedance-service/internal/config"
	"github.com/couchcryptid/climate-exceedance-service/internal/domain"
	"github.com/couchcryptid/climate-exceedance-service/internal/observability"
)

// startupPing is the budget for the initial cache connectivity check.
const startupPing = 2 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	source := newSource(cfg, logger, metrics)
	logger.Info("data source configured", "source", source.Name())

	opts := analysis.Options{CacheTTL: cfg.CacheTTL}
	var closers []func()

	switch cfg.CacheBackend {
	case config.CacheMemory:
		opts.Cache = cache.NewMemory(cfg.CacheSize, cache.NewStats(config.CacheMemory, metrics.CacheLookups))
		logger.Info("memory cache enabled", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	case config.CacheValkey:
		client, err := cache.Dial(cfg.ValkeyAddr)
		if err != nil {
			logger.Error("failed to create valkey client", "error", err)
			os.Exit(1)
		}
		vc := cache.NewValkey(client, cfg.ValkeyPrefix, cache.NewStats(config.CacheValkey, metrics.CacheLookups))
		opts.Cache = vc
		closers = append(closers, vc.Close)

		pingCtx, cancel := context.WithTimeout(context.Background(), startupPing)
		if err := vc.Ping(pingCtx); err != nil {
			logger.Warn("valkey ping failed, readiness will report not ready", "error", err)
		}
		cancel()
		logger.Info("valkey cache enabled", "addr", cfg.ValkeyAddr, "ttl", cfg.CacheTTL)
	default:
		logger.Info("report cache disabled")
	}

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
		closers = append(closers, func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		})
		logger.Info("report publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	svc := analysis.New(source, domain.DefaultRegistry(), logger, metrics, opts)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, closeFn := range closers {
		closeFn()
	}

	logger.Info("shutdown complete")
}

func newSource(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.DataSource {
	if cfg.DataSource == config.SourceOpenMeteo {
		logger.Info("open-meteo archive source", "base_url", cfg.OpenMeteoBaseURL,
			"timeout", cfg.OpenMeteoTimeout, "max_retries", cfg.OpenMeteoMaxRetries)
		return openmeteo.NewClient(cfg.OpenMeteoBaseURL, cfg.OpenMeteoTimeout, cfg.OpenMeteoMaxRetries, logger, metrics)
	}
	return synthetic.New(cfg.SyntheticSeed)
}
