package http

import (
	"encoding/json"
	"io"

	"github.com/couchcryptid/irve-station-etl/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type growthResponse struct {
	SnapshotKey string                         `json:"snapshot_key"`
	Series      []domain.YearlyCumulativeCount `json:"series"`
}

type regionsResponse struct {
	SnapshotKey string `json:"snapshot_key"`
	domain.RegionReport
	JoinMismatch bool     `json:"join_mismatch"`
	Warnings     []string `json:"warnings"`
}

type summaryResponse struct {
	SnapshotKey string `json:"snapshot_key"`
	domain.FleetSummary
}

func writeBody(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
