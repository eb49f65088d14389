package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/couchcryptid/irve-station-etl/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// Fetcher downloads and decodes the feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (domain.Document, error)
}

// SnapshotOptions controls snapshot memoization.
type SnapshotOptions struct {
	// Bucket is the width of the fetch-time window that shares one snapshot.
	// Zero keeps the first snapshot for the whole process lifetime.
	Bucket time.Duration
	// CacheSize bounds how many snapshots are retained.
	CacheSize int
}

// SnapshotStore builds normalized snapshots on demand and memoizes them per
// URL and time bucket. Concurrent callers asking for the same key share a
// single build; failed builds are not cached.
type SnapshotStore struct {
	fetcher Fetcher
	opts    SnapshotOptions
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	group singleflight.Group
	cache *lruCache[string, *domain.Snapshot]
	built atomic.Bool
}

// NewSnapshotStore creates a store around fetcher. A nil clock uses real time.
func NewSnapshotStore(fetcher Fetcher, opts SnapshotOptions, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *SnapshotStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SnapshotStore{
		fetcher: fetcher,
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		cache:   newLRUCache[string, *domain.Snapshot](opts.CacheSize),
	}
}

// Get returns the snapshot for url in the current time bucket, building it if
// needed. The returned snapshot is shared and must not be modified.
func (s *SnapshotStore) Get(ctx context.Context, url string) (*domain.Snapshot, error) {
	key := s.Key(url)
	if snap, ok := s.cache.get(key); ok {
		s.metrics.SnapshotCache.WithLabelValues("hit").Inc()
		return snap, nil
	}
	s.metrics.SnapshotCache.WithLabelValues("miss").Inc()

	// The shared build ignores caller cancellation; each caller stops
	// waiting on its own context.
	ch := s.group.DoChan(key, func() (any, error) {
		return s.build(context.WithoutCancel(ctx), url, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Snapshot), nil
	}
}

// Key returns the memoization key for url at the current time.
func (s *SnapshotStore) Key(url string) string {
	if s.opts.Bucket <= 0 {
		return url
	}
	start := s.clock.Now().UTC().Truncate(s.opts.Bucket)
	return url + "@" + start.Format(time.RFC3339)
}

// Built reports whether at least one snapshot has been published.
func (s *SnapshotStore) Built() bool {
	return s.built.Load()
}

func (s *SnapshotStore) build(ctx context.Context, url, key string) (*domain.Snapshot, error) {
	// Another build for this key may have finished between the cache miss
	// and joining the flight.
	if snap, ok := s.cache.get(key); ok {
		return snap, nil
	}

	start := s.clock.Now()
	s.logger.Info("building snapshot", "url", url, "key", key)

	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	stations, err := domain.Normalize(doc.Text)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	snap := &domain.Snapshot{
		Key:        key,
		URL:        url,
		FetchedAt:  start.UTC(),
		Encoding:   doc.Encoding,
		Confidence: doc.Confidence,
		Stations:   stations,
	}
	s.cache.put(key, snap)
	s.built.Store(true)

	elapsed := s.clock.Since(start)
	s.metrics.SnapshotBuildDuration.Observe(elapsed.Seconds())
	s.metrics.SnapshotStations.Set(float64(len(stations)))
	s.logger.Info("snapshot built",
		"key", key,
		"stations", len(stations),
		"encoding", doc.Encoding,
		"duration", elapsed,
	)
	return snap, nil
}

func (s *SnapshotStore) recordFailure(err error) {
	s.metrics.PipelineErrors.WithLabelValues(errorKind(err)).Inc()
	s.logger.Error("snapshot build failed", "error", err)
}

// errorKind labels a pipeline failure for metrics.
func errorKind(err error) string {
	var netErr *domain.NetworkError
	var decErr *domain.DecodeError
	var parseErr *domain.ParseError
	switch {
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &decErr):
		return "decode"
	case errors.As(err, &parseErr):
		return "parse"
	default:
		return "other"
	}
}

// String describes the store configuration for logs.
func (o SnapshotOptions) String() string {
	if o.Bucket <= 0 {
		return fmt.Sprintf("bucket=none cache=%d", o.CacheSize)
	}
	return fmt.Sprintf("bucket=%s cache=%d", o.Bucket, o.CacheSize)
}
