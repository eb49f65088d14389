package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/irve-station-etl/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/irve-station-etl/internal/adapter/http"
	"github.com/couchcryptid/irve-station-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/irve-station-etl/internal/adapter/opencage"
	"github.com/couchcryptid/irve-station-etl/internal/adapter/regions"
	"github.com/couchcryptid/irve-station-etl/internal/config"
	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/couchcryptid/irve-station-etl/internal/observability"
	"github.com/couchcryptid/irve-station-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	regs, err := regions.LoadFile(cfg.RegionsPath)
	if err != nil {
		logger.Error("failed to load region polygons", "path", cfg.RegionsPath, "error", err)
		os.Exit(1)
	}
	logger.Info("region polygons loaded", "path", cfg.RegionsPath, "regions", len(regs))

	snapshotOpts := pipeline.SnapshotOptions{Bucket: cfg.SnapshotBucket, CacheSize: cfg.SnapshotCacheSize}
	store := pipeline.NewSnapshotStore(feed.NewClient(cfg.FeedTimeout, logger, metrics), snapshotOpts, nil, logger, metrics)
	logger.Info("snapshot store configured", "feed", cfg.FeedURL, "options", snapshotOpts.String())

	resolver := domain.NewPlaceResolver(newGeocoder(cfg, logger, metrics), logger)
	opts := domain.DashboardOptions{GrowthStartYear: cfg.GrowthStartYear, FastChargeKW: cfg.FastChargeKW}
	svc := pipeline.NewService(store, regs, resolver, cfg.FeedURL, opts, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Build the first snapshot so /readyz flips without waiting for a request.
	go func() {
		if err := svc.Warmup(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("snapshot warmup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// newGeocoder returns the configured provider client, or nil when place
// search is disabled.
func newGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Geocoder {
	if !cfg.GeocoderEnabled {
		logger.Info("place search disabled")
		return nil
	}
	logger.Info("place search enabled",
		"provider", cfg.GeocoderProvider,
		"timeout", cfg.GeocoderTimeout,
		"rate", cfg.GeocoderRate,
		"country", cfg.GeocoderCountry,
	)
	switch cfg.GeocoderProvider {
	case config.ProviderMapbox:
		return mapbox.NewClient(cfg.MapboxToken, cfg.GeocoderCountry, cfg.GeocoderTimeout, cfg.GeocoderRate, logger, metrics)
	default:
		return opencage.NewClient(cfg.OpenCageKey, cfg.GeocoderCountry, cfg.GeocoderTimeout, cfg.GeocoderRate, logger, metrics)
	}
}
