package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/irve-station-etl/internal/adapter/feed"
	"github.com/couchcryptid/irve-station-etl/internal/adapter/regions"
	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/couchcryptid/irve-station-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileFetcher serves a local snapshot through the same decoding path as the
// HTTP feed client.
type fileFetcher struct {
	path string
}

func (f fileFetcher) Fetch(_ context.Context, _ string) (domain.Document, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return domain.Document{}, &domain.NetworkError{URL: f.path, Err: err}
	}
	return feed.Decode(data)
}

func mockPath(name string) string {
	return filepath.Join("..", "..", "data", "mock", name)
}

func newMockService(t *testing.T, resolver pipeline.Resolver) *pipeline.Service {
	t.Helper()

	polygons, err := regions.LoadFile(mockPath("departements_sample.geojson"))
	require.NoError(t, err)

	metrics := newTestMetrics()
	store := pipeline.NewSnapshotStore(fileFetcher{path: mockPath("irve_sample.csv")},
		pipeline.SnapshotOptions{CacheSize: 1}, nil, discardLogger(), metrics)
	return pipeline.NewService(store, polygons, resolver, testFeedURL, domain.DefaultDashboardOptions(), discardLogger(), metrics)
}

func TestMockData_Dashboard(t *testing.T) {
	svc := newMockService(t, nil)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, d.Stations)
	assert.Equal(t, "UTF-8", d.Encoding)
	assert.False(t, d.JoinMismatch)
	assert.Empty(t, d.Warnings)

	t.Run("growth", func(t *testing.T) {
		expected := []domain.YearlyCumulativeCount{
			{Year: 2015, Added: 1, Cumulative: 1},
			{Year: 2016, Added: 1, Cumulative: 2},
			{Year: 2017, Added: 0, Cumulative: 2},
			{Year: 2018, Added: 2, Cumulative: 4},
			{Year: 2019, Added: 1, Cumulative: 5},
			{Year: 2020, Added: 1, Cumulative: 6},
			{Year: 2021, Added: 1, Cumulative: 7},
			{Year: 2022, Added: 1, Cumulative: 8},
			{Year: 2023, Added: 2, Cumulative: 10},
		}
		assert.Equal(t, expected, d.Growth)
	})

	t.Run("regions", func(t *testing.T) {
		got := map[string]int{}
		order := make([]string, 0, len(d.Regions.Aggregates))
		for _, agg := range d.Regions.Aggregates {
			got[agg.RegionCode] = agg.StationCount
			order = append(order, agg.RegionCode)
		}
		assert.Equal(t, []string{"75", "69", "13", "2A"}, order)
		assert.Equal(t, map[string]int{"75": 3, "69": 4, "13": 3, "2A": 0}, got)
		assert.Equal(t, 10, d.Regions.MatchedStations)
		// Corsican postal codes start with 20, not 2A/2B.
		assert.Equal(t, map[string]int{"20": 1, "42": 1}, d.Regions.Unmatched)
	})

	t.Run("summary", func(t *testing.T) {
		s := d.Summary
		assert.Equal(t, 12, s.Total)
		assert.Equal(t, 2, s.Free)
		assert.Equal(t, 10, s.Paid)
		assert.Equal(t, domain.ConnectorCounts{TypeEF: 2, Type2: 11, ComboCCS: 5, CHAdeMO: 2}, s.Connectors)
		assert.Equal(t, 4, s.FastCharge)
		assert.Equal(t, 8, s.NormalCharge)
		assert.Equal(t, []domain.CategoryCount{
			{Name: "Voirie", Count: 6},
			{Name: "Parking public", Count: 3},
			{Name: "Parking privé à usage public", Count: 1},
			{Name: "Station dédiée à la recharge rapide", Count: 1},
		}, s.InstallationTypes)
	})
}

func TestMockData_FindStations(t *testing.T) {
	lyon := domain.Geo{Lat: 45.764, Lon: 4.8357}
	svc := newMockService(t, &mockResolver{center: lyon})

	match, err := svc.FindStations(context.Background(), "Lyon")
	require.NoError(t, err)

	names := make([]string, len(match.Stations))
	for i, s := range match.Stations {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		"Gare de Lyon - Hall 1",
		"Lyon Part-Dieu Parking",
		"Lyon Confluence",
		"Lyon Perrache",
	}, names)
	assert.Len(t, match.Markers, 4)
	assert.Greater(t, match.Markers[0].DistanceKm, 300.0, "Gare de Lyon is in Paris")
}

func TestMockData_NormalizedRows(t *testing.T) {
	doc, err := fileFetcher{path: mockPath("irve_sample.csv")}.Fetch(context.Background(), "")
	require.NoError(t, err)

	stations, err := domain.Normalize(doc.Text)
	require.NoError(t, err)
	require.Len(t, stations, 12)

	aix := stations[4]
	assert.Equal(t, "Aix-en-Provence Rotonde", aix.Name)
	require.NotNil(t, aix.NominalPowerKW)
	assert.Equal(t, 22.0, *aix.NominalPowerKW, "decimal comma")

	stEtienne := stations[7]
	assert.Equal(t, "Saint-Étienne Châteaucreux", stEtienne.Name)
	assert.Nil(t, stEtienne.CommissioningDate)
	assert.Nil(t, stEtienne.NominalPowerKW)
	assert.Nil(t, stEtienne.InstallationType)
	assert.False(t, stEtienne.Free)
	_, ok := stEtienne.Coordinates()
	assert.False(t, ok)

	montparnasse := stations[9]
	require.NotNil(t, montparnasse.CommissioningDate)
	assert.Equal(t, "2020-10-17", montparnasse.CommissioningDate.Format("2006-01-02"))
}
