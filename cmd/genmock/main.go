// Command genmock samples a local copy of the IRVE feed into a small fixture
// CSV and writes the normalized records next to it. It runs the real decoder
// and normalizer so the fixtures match pipeline behavior. With -regions it also
// writes the dashboard computed from the sample.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -feed irve-consolidation.csv \
//	  -every 5000 \
//	  -csv-out data/mock/irve_sample.csv \
//	  -json-out data/mock/irve_sample_normalized.json \
//	  -regions data/mock/departements_sample.geojson \
//	  -dashboard-out data/mock/irve_sample_dashboard.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/irve-station-etl/internal/adapter/feed"
	"github.com/couchcryptid/irve-station-etl/internal/adapter/regions"
	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// fixtureTime stamps generated dashboards so fixtures are reproducible.
var fixtureTime = time.Date(2023, time.October, 22, 6, 0, 0, 0, time.UTC)

type options struct {
	feedPath     string
	every        int
	limit        int
	csvOut       string
	jsonOut      string
	regionsPath  string
	dashboardOut string
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var o options
	flag.StringVar(&o.feedPath, "feed", "", "path to a local IRVE CSV download")
	flag.IntVar(&o.every, "every", 1, "keep one data row out of every N")
	flag.IntVar(&o.limit, "limit", 0, "maximum rows to keep (0 keeps all sampled rows)")
	flag.StringVar(&o.csvOut, "csv-out", "", "output path for the fixture CSV (UTF-8)")
	flag.StringVar(&o.jsonOut, "json-out", "", "output path for the normalized JSON fixture")
	flag.StringVar(&o.regionsPath, "regions", "", "optional department polygons for a dashboard fixture")
	flag.StringVar(&o.dashboardOut, "dashboard-out", "", "output path for the dashboard JSON fixture")
	flag.Parse()

	if o.feedPath == "" || o.csvOut == "" || o.jsonOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -feed, -csv-out, -json-out")
	}
	if (o.regionsPath == "") != (o.dashboardOut == "") {
		return fmt.Errorf("-regions and -dashboard-out must be set together")
	}
	if o.every < 1 {
		return fmt.Errorf("-every must be at least 1")
	}

	return generate(o)
}

func generate(o options) error {
	body, err := os.ReadFile(o.feedPath)
	if err != nil {
		return fmt.Errorf("reading feed: %w", err)
	}
	doc, err := feed.Decode(body)
	if err != nil {
		return err
	}
	log.Printf("decoded %s: %d bytes as %s (confidence %d)", o.feedPath, len(body), doc.Encoding, doc.Confidence)

	rows, err := csv.NewReader(strings.NewReader(doc.Text)).ReadAll()
	if err != nil {
		return fmt.Errorf("reading csv: %w", err)
	}
	if len(rows) < 2 {
		return fmt.Errorf("no data rows")
	}

	sample := sampleRows(rows[1:], o.every, o.limit)
	log.Printf("sampled %d of %d rows", len(sample), len(rows)-1)

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(rows[0]); err != nil {
		return err
	}
	if err := w.WriteAll(sample); err != nil {
		return fmt.Errorf("writing sample: %w", err)
	}

	stations, err := domain.Normalize(sb.String())
	if err != nil {
		return fmt.Errorf("normalizing sample: %w", err)
	}

	if err := writeFile(o.csvOut, []byte(sb.String())); err != nil {
		return fmt.Errorf("writing CSV fixture: %w", err)
	}
	log.Printf("wrote CSV fixture: %s", o.csvOut)

	if err := writeJSON(o.jsonOut, stations); err != nil {
		return fmt.Errorf("writing JSON fixture: %w", err)
	}
	log.Printf("wrote JSON fixture: %s", o.jsonOut)

	if o.regionsPath != "" {
		if err := writeDashboard(o, doc, stations); err != nil {
			return err
		}
	}

	printStats(stations)
	return nil
}

// sampleRows keeps every n-th row, stopping after limit rows when limit > 0.
func sampleRows(rows [][]string, every, limit int) [][]string {
	var out [][]string //nolint:prealloc // size depends on sampling
	for i := 0; i < len(rows); i += every {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, rows[i])
	}
	return out
}

func writeDashboard(o options, doc domain.Document, stations []domain.StationRecord) error {
	regs, err := regions.LoadFile(o.regionsPath)
	if err != nil {
		return err
	}

	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	snap := &domain.Snapshot{
		Key:        filepath.Base(o.feedPath),
		URL:        o.feedPath,
		FetchedAt:  fixtureTime,
		Encoding:   doc.Encoding,
		Confidence: doc.Confidence,
		Stations:   stations,
	}
	d := domain.BuildDashboard(snap, regs, domain.DefaultDashboardOptions())
	for _, w := range d.Warnings {
		log.Printf("warning: %s", w)
	}

	if err := writeJSON(o.dashboardOut, d); err != nil {
		return fmt.Errorf("writing dashboard fixture: %w", err)
	}
	log.Printf("wrote dashboard fixture: %s", o.dashboardOut)
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return writeFile(path, data)
}

type codeCount struct {
	code  string
	count int
}

// printStats prints the counts test assertions are written against.
func printStats(stations []domain.StationRecord) {
	s := domain.Summarize(stations, domain.DefaultFastChargeKW)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", s.Total)
	fmt.Printf("Free: %d, paid: %d\n", s.Free, s.Paid)
	fmt.Printf("Connectors: EF=%d, T2=%d, CCS=%d, CHAdeMO=%d\n",
		s.Connectors.TypeEF, s.Connectors.Type2, s.Connectors.ComboCCS, s.Connectors.CHAdeMO)
	fmt.Printf("Fast (>%g kW): %d, normal: %d\n", s.FastChargeThresholdKW, s.FastCharge, s.NormalCharge)

	counts := domain.CountByRegion(stations)
	cc := make([]codeCount, 0, len(counts))
	for code, n := range counts {
		cc = append(cc, codeCount{code, n})
	}
	sort.Slice(cc, func(i, j int) bool {
		if cc[i].count != cc[j].count {
			return cc[i].count > cc[j].count
		}
		return cc[i].code < cc[j].code
	})
	fmt.Printf("Region codes (%d):", len(cc))
	for _, c := range cc {
		label := c.code
		if label == "" {
			label = "?"
		}
		fmt.Printf(" %s=%d", label, c.count)
	}
	fmt.Println()

	fmt.Print("Growth:")
	for _, y := range domain.CumulativeGrowth(stations, domain.DefaultGrowthStartYear) {
		fmt.Printf(" %d=%d", y.Year, y.Cumulative)
	}
	fmt.Println()
}
