package domain

import (
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// maxMismatchSamples bounds the codes quoted in a JoinKeyMismatchError.
const maxMismatchSamples = 5

// Region is an administrative polygon keyed by its two-character code.
type Region struct {
	Code     string
	Name     string
	Geometry geom.T // *geom.Polygon or *geom.MultiPolygon
	Centroid Geo
}

// Contains reports whether the point lies inside the region: inside an outer
// ring and outside that polygon's holes.
func (r Region) Contains(lat, lon float64) bool {
	pt := geom.Coord{lon, lat}
	switch g := r.Geometry.(type) {
	case *geom.Polygon:
		return polygonContains(g, pt)
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if polygonContains(g.Polygon(i), pt) {
				return true
			}
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, pt geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(p.Layout(), pt, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), pt, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// RegionAggregate is the choropleth value of one polygon.
type RegionAggregate struct {
	RegionCode   string `json:"region_code"`
	RegionName   string `json:"region_name,omitempty"`
	StationCount int    `json:"station_count"`
	Centroid     Geo    `json:"centroid"`
}

// RegionReport is the result of joining stations to region polygons.
type RegionReport struct {
	// Aggregates has exactly one entry per polygon, in polygon order.
	Aggregates []RegionAggregate `json:"aggregates"`
	// Unmatched counts stations whose region code has no polygon. The key ""
	// is the unknown bucket (empty or malformed postal code).
	Unmatched       map[string]int `json:"unmatched"`
	MatchedStations int            `json:"matched_stations"`
}

// CountByRegion groups stations by region code. The empty code is kept as its
// own bucket.
func CountByRegion(stations []StationRecord) map[string]int {
	counts := make(map[string]int)
	for i := range stations {
		counts[stations[i].RegionCode]++
	}
	return counts
}

// AggregateByRegion left-outer-joins polygons to per-region station counts.
// Every polygon gets an aggregate (zero when unmatched) in polygon order. When
// no station matches any polygon the full all-zero report is returned along
// with a *JoinKeyMismatchError.
func AggregateByRegion(stations []StationRecord, regions []Region) (RegionReport, error) {
	counts := CountByRegion(stations)

	report := RegionReport{
		Aggregates: make([]RegionAggregate, len(regions)),
		Unmatched:  make(map[string]int),
	}
	known := make(map[string]struct{}, len(regions))
	for i, r := range regions {
		known[r.Code] = struct{}{}
		n := counts[r.Code]
		report.Aggregates[i] = RegionAggregate{
			RegionCode:   r.Code,
			RegionName:   r.Name,
			StationCount: n,
			Centroid:     r.Centroid,
		}
		report.MatchedStations += n
	}
	for code, n := range counts {
		if _, ok := known[code]; !ok {
			report.Unmatched[code] = n
		}
	}

	if report.MatchedStations == 0 {
		return report, &JoinKeyMismatchError{
			Stations:     len(stations),
			Polygons:     len(regions),
			SampleCodes:  sampleKeys(counts),
			PolygonCodes: samplePolygonCodes(regions),
		}
	}
	return report, nil
}

func sampleKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxMismatchSamples {
		keys = keys[:maxMismatchSamples]
	}
	return keys
}

func samplePolygonCodes(regions []Region) []string {
	n := min(len(regions), maxMismatchSamples)
	codes := make([]string, n)
	for i := range n {
		codes[i] = regions[i].Code
	}
	return codes
}
