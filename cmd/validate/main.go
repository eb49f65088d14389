// Command validate checks a local IRVE CSV snapshot against a polygon file
// before it is used as a fixture or served. It runs the real decoder and
// normalizer, then verifies the header schema, the postal-code join against
// the polygons, and that station coordinates fall inside their department.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/mock/irve_sample.csv \
//	  -regions data/mock/departements_sample.geojson \
//	  -expected data/mock/irve_sample_normalized.json
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/couchcryptid/irve-station-etl/internal/adapter/feed"
	"github.com/couchcryptid/irve-station-etl/internal/adapter/regions"
	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/jszwec/csvutil"
)

// maxPhaseErrors bounds the detail lines kept per phase.
const maxPhaseErrors = 20

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	errors  []string
	info    []string
	dropped int
}

func (p *phase) errorf(format string, args ...any) {
	if len(p.errors) >= maxPhaseErrors {
		p.dropped++
		return
	}
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// dataset is everything the phases look at.
type dataset struct {
	header   []string
	doc      domain.Document
	stations []domain.StationRecord
	parseErr error
	regions  []domain.Region
}

func main() {
	csvPath := flag.String("csv", "", "path to a local IRVE CSV snapshot")
	regionsPath := flag.String("regions", "", "path to the department polygons GeoJSON")
	expectedPath := flag.String("expected", "", "optional normalized JSON written by genmock")
	flag.Parse()

	if *csvPath == "" || *regionsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath, *regionsPath, *expectedPath, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath, regionsPath, expectedPath string, out io.Writer) int {
	fmt.Fprintln(out, "=== IRVE Snapshot Validation ===")
	fmt.Fprintln(out)

	ds, err := load(csvPath, regionsPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{validateSchema(ds)}
	if expectedPath != "" {
		phases = append(phases, validateFixture(ds, expectedPath))
	}
	phases = append(phases, validateRegionJoin(ds), validateCoordinates(ds))

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors)+p.dropped)
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
		for _, line := range p.info {
			fmt.Fprintf(out, "    info: %s\n", line)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Stations: %d (encoding %s, confidence %d), polygons: %d\n",
		len(ds.stations), ds.doc.Encoding, ds.doc.Confidence, len(ds.regions))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
		if p.dropped > 0 {
			fmt.Fprintf(out, "  ... and %d more\n", p.dropped)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func load(csvPath, regionsPath string) (*dataset, error) {
	body, err := os.ReadFile(csvPath)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	doc, err := feed.Decode(body)
	if err != nil {
		return nil, err
	}

	header, err := csv.NewReader(strings.NewReader(doc.Text)).Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	regs, err := regions.LoadFile(regionsPath)
	if err != nil {
		return nil, err
	}

	ds := &dataset{header: header, doc: doc, regions: regs}
	ds.stations, ds.parseErr = domain.Normalize(doc.Text)
	return ds, nil
}

// ── Phases ──

// validateSchema checks that every column the normalizer reads is present and
// that the file parses.
func validateSchema(ds *dataset) *phase {
	p := &phase{name: "Schema (header + parse)"}

	required, err := csvutil.Header(domain.RawRecord{}, "csv")
	if err != nil {
		p.errorf("derive required columns: %v", err)
		return p
	}
	for _, col := range required {
		if !slices.Contains(ds.header, col) {
			p.errorf("missing column %q", col)
		}
	}
	if ds.parseErr != nil {
		p.errorf("%v", ds.parseErr)
		return p
	}
	if len(ds.stations) == 0 {
		p.errorf("no data rows")
	}
	for i, s := range ds.stations {
		if strings.TrimSpace(s.Name) == "" {
			p.errorf("row %d: empty nom_station", i+2)
		}
	}
	return p
}

// validateFixture compares the normalized stations with a previously written
// genmock fixture.
func validateFixture(ds *dataset, expectedPath string) *phase {
	p := &phase{name: "Fixture parity (normalized JSON)"}

	data, err := os.ReadFile(expectedPath)
	if err != nil {
		p.errorf("read expected fixture: %v", err)
		return p
	}
	var want []domain.StationRecord
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&want); err != nil {
		p.errorf("decode expected fixture: %v", err)
		return p
	}

	if len(want) != len(ds.stations) {
		p.errorf("station count: got %d, fixture has %d", len(ds.stations), len(want))
		return p
	}
	for i := range want {
		if diff := cmp.Diff(want[i], ds.stations[i]); diff != "" {
			p.errorf("row %d (%s) differs (-fixture +normalized):\n%s", i+2, want[i].Name, diff)
		}
	}
	return p
}

// validateRegionJoin fails only when no station matches any polygon.
// Unmatched codes are listed for information.
func validateRegionJoin(ds *dataset) *phase {
	p := &phase{name: "Region join (postal code prefix)"}
	if ds.parseErr != nil {
		p.errorf("skipped: feed did not parse")
		return p
	}

	report, err := domain.AggregateByRegion(ds.stations, ds.regions)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	codes := make([]string, 0, len(report.Unmatched))
	for code := range report.Unmatched {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		label := code
		if label == "" {
			label = "(unknown)"
		}
		p.info = append(p.info, fmt.Sprintf("%d stations with region code %s have no polygon", report.Unmatched[code], label))
	}
	return p
}

// validateCoordinates checks that each station lies inside the polygon its
// postal code maps to. Stations without coordinates or without a polygon are
// not checked.
func validateCoordinates(ds *dataset) *phase {
	p := &phase{name: "Coordinate consistency (point in polygon)"}
	if ds.parseErr != nil {
		p.errorf("skipped: feed did not parse")
		return p
	}

	byCode := make(map[string]domain.Region, len(ds.regions))
	for _, r := range ds.regions {
		byCode[r.Code] = r
	}

	for i, s := range ds.stations {
		r, ok := byCode[s.RegionCode]
		if !ok {
			continue
		}
		pt, ok := s.Coordinates()
		if !ok {
			continue
		}
		if r.Contains(pt.Lat, pt.Lon) {
			continue
		}
		if r.Contains(pt.Lon, pt.Lat) {
			p.errorf("row %d (%s): latitude and longitude look swapped (%g, %g) for %s",
				i+2, s.Name, pt.Lat, pt.Lon, r.Code)
			continue
		}
		p.errorf("row %d (%s): (%g, %g) is outside department %s", i+2, s.Name, pt.Lat, pt.Lon, r.Code)
	}
	return p
}
