package regions

import (
	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Choropleth pairs each polygon with its station count so a map layer can
// shade it. Features follow the order of regs; polygons absent from the
// report get a zero count.
func Choropleth(regs []domain.Region, report domain.RegionReport) *geojson.FeatureCollection {
	counts := make(map[string]int, len(report.Aggregates))
	for _, agg := range report.Aggregates {
		counts[agg.RegionCode] = agg.StationCount
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(regs))}
	for _, r := range regs {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.Code,
			Geometry: r.Geometry,
			Properties: map[string]any{
				codeProperty:    r.Code,
				nomProperty:     r.Name,
				"station_count": counts[r.Code],
				"centroid":      []float64{r.Centroid.Lon, r.Centroid.Lat},
			},
		})
	}
	return fc
}
