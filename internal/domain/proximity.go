package domain

import (
	"strings"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"
	"golang.org/x/text/cases"
)

const (
	// earthRadiusKm is the mean Earth radius used to scale s2 angles.
	earthRadiusKm = 6371.0088

	// markerGeohashPrecision gives cells of roughly 150 m, enough to group
	// charging points of the same site.
	markerGeohashPrecision = 7
)

// Marker is a point annotation for one matched station.
type Marker struct {
	Name             string  `json:"name"`
	InstallationType string  `json:"installation_type,omitempty"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	DistanceKm       float64 `json:"distance_km"`
	Geohash          string  `json:"geohash"`
}

// PlaceMatch is the result of a place search.
type PlaceMatch struct {
	Query  string `json:"query"`
	Center Geo    `json:"center"`
	// Matched counts every station whose name matched, with or without
	// coordinates.
	Matched  int             `json:"matched"`
	Stations []StationRecord `json:"stations"`
	Markers  []Marker        `json:"markers"`
}

// FilterByPlace keeps stations whose name contains place, compared with Unicode
// case folding, in source order. The center only positions the map: it is
// neither a filter nor a sort key. Stations without coordinates are counted but
// produce no marker.
func FilterByPlace(stations []StationRecord, center Geo, place string) PlaceMatch {
	match := PlaceMatch{
		Query:    place,
		Center:   center,
		Stations: []StationRecord{},
		Markers:  []Marker{},
	}

	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(place))
	if needle == "" {
		return match
	}

	origin := s2.LatLngFromDegrees(center.Lat, center.Lon)
	for i := range stations {
		st := stations[i]
		if !strings.Contains(folder.String(st.Name), needle) {
			continue
		}
		match.Stations = append(match.Stations, st)

		pos, ok := st.Coordinates()
		if !ok {
			continue
		}
		m := Marker{
			Name:       st.Name,
			Lat:        pos.Lat,
			Lon:        pos.Lon,
			DistanceKm: origin.Distance(s2.LatLngFromDegrees(pos.Lat, pos.Lon)).Radians() * earthRadiusKm,
			Geohash:    geohash.EncodeWithPrecision(pos.Lat, pos.Lon, markerGeohashPrecision),
		}
		if st.InstallationType != nil {
			m.InstallationType = *st.InstallationType
		}
		match.Markers = append(match.Markers, m)
	}
	match.Matched = len(match.Stations)

	return match
}
