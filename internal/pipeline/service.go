package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/couchcryptid/irve-station-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// Warmup backoff: start at 1s, double each retry, cap at 1m.
const (
	warmupInitialBackoff = time.Second
	warmupMaxBackoff     = time.Minute
)

// SnapshotSource returns the current normalized snapshot of a feed.
type SnapshotSource interface {
	Get(ctx context.Context, url string) (*domain.Snapshot, error)
	Built() bool
}

// Resolver turns a place name into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, name string) (domain.Geo, error)
	Enabled() bool
}

// Service answers the dashboard queries against the memoized snapshot.
type Service struct {
	snapshots SnapshotSource
	regions   []domain.Region
	resolver  Resolver
	feedURL   string
	opts      domain.DashboardOptions
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService wires the query service. regions are read-only after this call.
func NewService(
	snapshots SnapshotSource,
	regions []domain.Region,
	resolver Resolver,
	feedURL string,
	opts domain.DashboardOptions,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Service {
	enabled := 0.0
	if resolver != nil && resolver.Enabled() {
		enabled = 1
	}
	metrics.GeocodeEnabled.Set(enabled)

	return &Service{
		snapshots: snapshots,
		regions:   regions,
		resolver:  resolver,
		feedURL:   feedURL,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// Dashboard derives growth, region aggregates and fleet tallies from the
// current snapshot. Fatal pipeline errors are returned unchanged; a region
// join mismatch only adds a warning.
func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	snap, err := s.snapshots.Get(ctx, s.feedURL)
	if err != nil {
		return domain.Dashboard{}, err
	}

	d := domain.BuildDashboard(snap, s.regions, s.opts)
	if d.JoinMismatch {
		s.metrics.JoinMismatches.Inc()
		s.logger.Warn("region join mismatch",
			"snapshot", snap.Key,
			"stations", d.Stations,
			"regions", len(s.regions),
			"unmatched", len(d.Regions.Unmatched),
		)
	}
	return d, nil
}

// FindStations resolves place and returns the stations whose name contains
// it. Resolution failures are returned before the snapshot is consulted.
func (s *Service) FindStations(ctx context.Context, place string) (domain.PlaceMatch, error) {
	if s.resolver == nil {
		s.metrics.PlaceSearches.WithLabelValues("disabled").Inc()
		return domain.PlaceMatch{}, &domain.GeocodeServiceError{Query: place, Err: domain.ErrGeocoderDisabled}
	}

	center, err := s.resolver.Resolve(ctx, place)
	if err != nil {
		s.metrics.PlaceSearches.WithLabelValues(searchOutcome(err)).Inc()
		return domain.PlaceMatch{}, err
	}

	snap, err := s.snapshots.Get(ctx, s.feedURL)
	if err != nil {
		return domain.PlaceMatch{}, err
	}

	s.metrics.PlaceSearches.WithLabelValues("found").Inc()
	match := domain.FilterByPlace(snap.Stations, center, place)
	s.logger.Debug("place search",
		"place", place,
		"lat", center.Lat,
		"lon", center.Lon,
		"matched", match.Matched,
		"markers", len(match.Markers),
	)
	return match, nil
}

// Regions returns the polygons dashboards are aggregated against.
func (s *Service) Regions() []domain.Region {
	return s.regions
}

// PlaceSearchEnabled reports whether a geocoder is configured.
func (s *Service) PlaceSearchEnabled() bool {
	return s.resolver != nil && s.resolver.Enabled()
}

// CheckReadiness returns nil once a snapshot has been built.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.snapshots.Built() {
		return errors.New("no snapshot has been built yet")
	}
	return nil
}

// Warmup builds the first snapshot, retrying with exponential backoff until it
// succeeds or ctx is cancelled.
func (s *Service) Warmup(ctx context.Context) error {
	backoff := warmupInitialBackoff
	for {
		_, err := s.snapshots.Get(ctx, s.feedURL)
		if err == nil {
			s.logger.Info("snapshot warmup complete")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Warn("snapshot warmup failed, retrying", "error", err, "backoff", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, warmupMaxBackoff)
	}
}

func searchOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyPlaceName):
		return "empty"
	case errors.Is(err, domain.ErrPlaceNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrGeocoderDisabled):
		return "disabled"
	default:
		return "service_error"
	}
}
