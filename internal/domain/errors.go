package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPlaceNotFound means the geocoder answered but returned no candidate.
	ErrPlaceNotFound = errors.New("place not found")

	// ErrEmptyPlaceName is returned for blank place queries.
	ErrEmptyPlaceName = errors.New("place name is empty")

	// ErrGeocoderDisabled means no geocoding credential was configured.
	ErrGeocoderDisabled = errors.New("geocoding is disabled")
)

// NetworkError reports a failed feed download: a transport failure or a
// non-success HTTP status. It aborts the pipeline.
type NetworkError struct {
	URL        string
	StatusCode int // zero for transport failures
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports that the feed bytes could not be turned into text with
// the detected encoding. It aborts the pipeline.
type DecodeError struct {
	Encoding string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Encoding == "" {
		return fmt.Sprintf("decode feed: %v", e.Err)
	}
	return fmt.Sprintf("decode feed as %s: %v", e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ParseError reports a structural CSV failure (missing header columns, ragged
// rows, broken quoting). Bad values inside well-formed rows never produce it.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse feed: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// JoinKeyMismatchError is a non-fatal diagnostic: no station region code matched
// any polygon code, which usually means the feed schema drifted. The aggregation
// result accompanying it is still complete (all zeros).
type JoinKeyMismatchError struct {
	Stations     int
	Polygons     int
	SampleCodes  []string // a few station region codes that failed to match
	PolygonCodes []string // a few polygon codes, for comparison
}

func (e *JoinKeyMismatchError) Error() string {
	return fmt.Sprintf("region join matched no polygon: %d stations, %d polygons (station codes %s, polygon codes %s)",
		e.Stations, e.Polygons, quoteList(e.SampleCodes), quoteList(e.PolygonCodes))
}

// GeocodeServiceError wraps a failure of the geocoding collaborator. It only
// disables place search; the rest of the dashboard keeps working.
type GeocodeServiceError struct {
	Query string
	Err   error
}

func (e *GeocodeServiceError) Error() string {
	return fmt.Sprintf("geocode %q: %v", e.Query, e.Err)
}

func (e *GeocodeServiceError) Unwrap() error { return e.Err }

// IsFatal reports whether err belongs to the pipeline-aborting class.
func IsFatal(err error) bool {
	var netErr *NetworkError
	var decErr *DecodeError
	var parseErr *ParseError
	return errors.As(err, &netErr) || errors.As(err, &decErr) || errors.As(err, &parseErr)
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, " ") + "]"
}
