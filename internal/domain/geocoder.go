package domain

import "context"

// GeocodingResult is one candidate returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	Confidence       float64 // 0.0–1.0, normalized across providers
}

// Geocoder resolves free text to candidate locations.
type Geocoder interface {
	// ForwardGeocode returns candidates for query, best first. An empty slice
	// with a nil error means the provider found nothing.
	ForwardGeocode(ctx context.Context, query string) ([]GeocodingResult, error)
}
