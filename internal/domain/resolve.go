package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// PlaceResolver turns a free-text place name into map coordinates. Failures are
// returned as values and never escape as panics; they only concern place search.
type PlaceResolver struct {
	geocoder Geocoder
	logger   *slog.Logger
}

// NewPlaceResolver creates a resolver around geocoder. A nil geocoder yields a
// resolver that reports ErrGeocoderDisabled.
func NewPlaceResolver(geocoder Geocoder, logger *slog.Logger) *PlaceResolver {
	return &PlaceResolver{geocoder: geocoder, logger: logger}
}

// Enabled reports whether a geocoder is configured.
func (r *PlaceResolver) Enabled() bool {
	return r.geocoder != nil
}

// Resolve makes a single geocoder call and returns the first candidate.
// It returns ErrEmptyPlaceName for blank input, ErrPlaceNotFound when there is
// no candidate, and *GeocodeServiceError when the provider fails.
func (r *PlaceResolver) Resolve(ctx context.Context, name string) (point Geo, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Geo{}, ErrEmptyPlaceName
	}
	if r.geocoder == nil {
		return Geo{}, &GeocodeServiceError{Query: name, Err: ErrGeocoderDisabled}
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("geocoder panicked", "place", name, "panic", p)
			point, err = Geo{}, &GeocodeServiceError{Query: name, Err: fmt.Errorf("geocoder panic: %v", p)}
		}
	}()

	candidates, err := r.geocoder.ForwardGeocode(ctx, name)
	if err != nil {
		r.logger.Warn("place resolution failed", "place", name, "error", err)
		return Geo{}, &GeocodeServiceError{Query: name, Err: err}
	}
	if len(candidates) == 0 {
		r.logger.Info("place not found", "place", name)
		return Geo{}, ErrPlaceNotFound
	}

	best := candidates[0]
	r.logger.Debug("place resolved",
		"place", name,
		"lat", best.Lat,
		"lon", best.Lon,
		"address", best.FormattedAddress,
		"candidates", len(candidates),
	)
	return Geo{Lat: best.Lat, Lon: best.Lon}, nil
}
