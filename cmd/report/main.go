// Command report builds one dashboard from the configured feed and prints it
// as JSON. With -place it also runs a place search; with -publish it writes
// the dashboard to the Kafka sink topic.
//
// Usage:
//
//	go run ./cmd/report -place Lyon -publish
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/irve-station-etl/internal/adapter/feed"
	kafkaadapter "github.com/couchcryptid/irve-station-etl/internal/adapter/kafka"
	"github.com/couchcryptid/irve-station-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/irve-station-etl/internal/adapter/opencage"
	"github.com/couchcryptid/irve-station-etl/internal/adapter/regions"
	"github.com/couchcryptid/irve-station-etl/internal/config"
	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/couchcryptid/irve-station-etl/internal/observability"
	"github.com/couchcryptid/irve-station-etl/internal/pipeline"
)

// output is the document printed to stdout.
type output struct {
	Dashboard   domain.Dashboard   `json:"dashboard"`
	PlaceSearch *domain.PlaceMatch `json:"place_search,omitempty"`
	PlaceError  string             `json:"place_error,omitempty"`
}

func main() {
	place := flag.String("place", "", "optional place name to search station names for")
	publish := flag.Bool("publish", false, "publish the dashboard to KAFKA_SINK_TOPIC")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *publish && !cfg.KafkaEnabled() {
		slog.Error("-publish requires KAFKA_BROKERS")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, *place, *publish, observability.NewLogger(cfg), observability.NewMetrics(), os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, place string, publish bool, logger *slog.Logger, metrics *observability.Metrics, stdout io.Writer) int {

	regs, err := regions.LoadFile(cfg.RegionsPath)
	if err != nil {
		logger.Error("failed to load region polygons", "path", cfg.RegionsPath, "error", err)
		return 1
	}

	store := pipeline.NewSnapshotStore(feed.NewClient(cfg.FeedTimeout, logger, metrics),
		pipeline.SnapshotOptions{CacheSize: 1}, nil, logger, metrics)
	resolver := domain.NewPlaceResolver(newGeocoder(cfg, logger, metrics), logger)
	opts := domain.DashboardOptions{GrowthStartYear: cfg.GrowthStartYear, FastChargeKW: cfg.FastChargeKW}
	svc := pipeline.NewService(store, regs, resolver, cfg.FeedURL, opts, logger, metrics)

	d, err := svc.Dashboard(ctx)
	if err != nil {
		logger.Error("dashboard failed", "error", err, "fatal", domain.IsFatal(err))
		return 1
	}
	out := output{Dashboard: d}

	if place != "" {
		match, err := svc.FindStations(ctx, place)
		switch {
		case err == nil:
			out.PlaceSearch = &match
		case domain.IsFatal(err):
			logger.Error("place search failed", "place", place, "error", err)
			return 1
		default:
			out.PlaceError = placeMessage(err)
		}
	}

	if publish {
		writer := kafkaadapter.NewWriter(cfg, logger, metrics)
		defer writer.Close()
		if err := writer.LoadDashboard(ctx, d); err != nil {
			logger.Error("publish failed", "topic", cfg.KafkaSinkTopic, "error", err)
			return 1
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("write output", "error", err)
		return 1
	}
	return 0
}

// placeMessage turns a resolution failure into the text shown to a user.
func placeMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyPlaceName):
		return "Please enter a place name."
	case errors.Is(err, domain.ErrPlaceNotFound):
		return "No location found for this place name."
	case errors.Is(err, domain.ErrGeocoderDisabled):
		return "Place search is not configured."
	default:
		return fmt.Sprintf("Place search is temporarily unavailable: %v", err)
	}
}

func newGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Geocoder {
	if !cfg.GeocoderEnabled {
		return nil
	}
	if cfg.GeocoderProvider == config.ProviderMapbox {
		return mapbox.NewClient(cfg.MapboxToken, cfg.GeocoderCountry, cfg.GeocoderTimeout, cfg.GeocoderRate, logger, metrics)
	}
	return opencage.NewClient(cfg.OpenCageKey, cfg.GeocoderCountry, cfg.GeocoderTimeout, cfg.GeocoderRate, logger, metrics)
}
