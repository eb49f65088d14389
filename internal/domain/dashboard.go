package domain

import (
	"errors"
	"time"
)

// DashboardOptions tunes the derived series.
type DashboardOptions struct {
	GrowthStartYear int
	FastChargeKW    float64
}

// DefaultDashboardOptions returns the thresholds used by the original dashboard.
func DefaultDashboardOptions() DashboardOptions {
	return DashboardOptions{
		GrowthStartYear: DefaultGrowthStartYear,
		FastChargeKW:    DefaultFastChargeKW,
	}
}

// Dashboard gathers everything the presentation layer renders for a snapshot.
type Dashboard struct {
	SnapshotKey  string                  `json:"snapshot_key"`
	FetchedAt    time.Time               `json:"fetched_at"`
	GeneratedAt  time.Time               `json:"generated_at"`
	Encoding     string                  `json:"encoding"`
	Stations     int                     `json:"stations"`
	Growth       []YearlyCumulativeCount `json:"growth"`
	Regions      RegionReport            `json:"regions"`
	Summary      FleetSummary            `json:"summary"`
	JoinMismatch bool                    `json:"join_mismatch"`
	Warnings     []string                `json:"warnings"`
}

// BuildDashboard derives the growth series, region aggregates and tallies from
// a snapshot. A region join mismatch is recorded as a warning; it never fails
// the build.
func BuildDashboard(snap *Snapshot, regions []Region, opts DashboardOptions) Dashboard {
	d := Dashboard{
		SnapshotKey: snap.Key,
		FetchedAt:   snap.FetchedAt,
		GeneratedAt: now(),
		Encoding:    snap.Encoding,
		Stations:    len(snap.Stations),
		Growth:      CumulativeGrowth(snap.Stations, opts.GrowthStartYear),
		Summary:     Summarize(snap.Stations, opts.FastChargeKW),
		Warnings:    []string{},
	}

	report, err := AggregateByRegion(snap.Stations, regions)
	d.Regions = report
	var mismatch *JoinKeyMismatchError
	if errors.As(err, &mismatch) {
		d.JoinMismatch = true
		d.Warnings = append(d.Warnings, mismatch.Error())
	}

	return d
}
