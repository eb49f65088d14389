// Package regions loads the administrative polygons that stations are
// aggregated against.
package regions

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
)

// Property names read from each feature.
const (
	codeProperty = "code"
	nomProperty  = "nom"
	nameProperty = "name"
)

// LoadFile reads a GeoJSON FeatureCollection from path.
func LoadFile(path string) ([]domain.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions: %w", err)
	}
	regions, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load regions from %s: %w", path, err)
	}
	return regions, nil
}

// Parse decodes a GeoJSON FeatureCollection into regions, preserving feature
// order. Every feature needs a unique non-empty code property and a Polygon or
// MultiPolygon geometry.
func Parse(data []byte) ([]domain.Region, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, errors.New("feature collection has no features")
	}

	out := make([]domain.Region, 0, len(fc.Features))
	seen := make(map[string]int, len(fc.Features))
	for i, f := range fc.Features {
		region, err := toRegion(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		if prev, ok := seen[region.Code]; ok {
			return nil, fmt.Errorf("feature %d: duplicate code %q (first seen at feature %d)", i, region.Code, prev)
		}
		seen[region.Code] = i
		out = append(out, region)
	}
	return out, nil
}

func toRegion(f *geojson.Feature) (domain.Region, error) {
	code, err := propertyCode(f.Properties[codeProperty])
	if err != nil {
		return domain.Region{}, err
	}

	switch f.Geometry.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
	case nil:
		return domain.Region{}, fmt.Errorf("region %s: missing geometry", code)
	default:
		return domain.Region{}, fmt.Errorf("region %s: unsupported geometry %T", code, f.Geometry)
	}

	return domain.Region{
		Code:     code,
		Name:     propertyName(f.Properties),
		Geometry: f.Geometry,
		Centroid: centroid(f.Geometry),
	}, nil
}

// propertyCode accepts string codes as-is and integral numbers zero-padded to
// two digits, so 1 and "01" name the same department.
func propertyCode(v any) (string, error) {
	switch c := v.(type) {
	case string:
		if s := strings.TrimSpace(c); s != "" {
			return s, nil
		}
	case float64:
		if c == math.Trunc(c) && c >= 0 {
			s := strconv.FormatFloat(c, 'f', -1, 64)
			if len(s) < 2 {
				s = "0" + s
			}
			return s, nil
		}
		return "", fmt.Errorf("non-integral %s property %v", codeProperty, c)
	}
	return "", fmt.Errorf("missing %s property", codeProperty)
}

func propertyName(props map[string]any) string {
	for _, key := range []string{nomProperty, nameProperty} {
		if s, ok := props[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// centroid prefers the area centroid and falls back to the bounds center for
// degenerate rings.
func centroid(g geom.T) domain.Geo {
	if c, err := xy.Centroid(g); err == nil && len(c) >= 2 && !math.IsNaN(c[0]) && !math.IsNaN(c[1]) {
		return domain.Geo{Lat: c[1], Lon: c[0]}
	}
	b := g.Bounds()
	return domain.Geo{
		Lat: (b.Min(1) + b.Max(1)) / 2,
		Lon: (b.Min(0) + b.Max(0)) / 2,
	}
}
