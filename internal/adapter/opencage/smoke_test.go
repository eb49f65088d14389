//go:build opencage

package opencage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/irve-station-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real OpenCage API and require OPENCAGE_API_KEY.
// Run with: go test -tags=opencage ./internal/adapter/opencage/ -v -count=1

func TestSmoke_ForwardGeocode(t *testing.T) {
	key := os.Getenv("OPENCAGE_API_KEY")
	if key == "" {
		t.Fatal("OPENCAGE_API_KEY must be set to run smoke tests")
	}
	c := NewClient(key, "fr", 10*time.Second, 1, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	results, err := c.ForwardGeocode(context.Background(), "Lyon")
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.InDelta(t, 45.76, results[0].Lat, 0.1)
	assert.InDelta(t, 4.84, results[0].Lon, 0.1)
	assert.Contains(t, results[0].FormattedAddress, "Lyon")
}
