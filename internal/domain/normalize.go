package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
)

// commissioningLayouts are tried in order by ParseCommissioningDate. The feed
// uses the first; the others cover older consolidations and hand-edited rows.
var commissioningLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
}

// Normalize parses decoded CSV text (comma-delimited, header row) into station
// records, preserving row order. Only structural problems are reported, as a
// *ParseError; every value coercion is total.
func Normalize(text string) ([]StationRecord, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = ','
	r.ReuseRecord = true

	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Err: errors.New("feed is empty")}
		}
		return nil, &ParseError{Line: 1, Err: fmt.Errorf("read header: %w", err)}
	}
	dec.DisallowMissingColumns = true

	var stations []StationRecord
	for {
		var raw RawRecord
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Line: errorLine(err, len(stations)), Err: err}
		}
		stations = append(stations, NormalizeRecord(raw))
	}

	return stations, nil
}

// errorLine prefers the position reported by encoding/csv; otherwise it assumes
// one line per record after the header.
func errorLine(err error, decoded int) int {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return csvErr.Line
	}
	return decoded + 2
}

// NormalizeRecord converts one raw row into its canonical form.
func NormalizeRecord(raw RawRecord) StationRecord {
	postal := strings.TrimSpace(raw.PostalCode)
	return StationRecord{
		Name:              strings.TrimSpace(raw.StationName),
		CommissioningDate: ParseCommissioningDate(raw.CommissioningDate),
		PostalCode:        postal,
		RegionCode:        DeriveRegionCode(postal),
		Free:              DeriveBool(raw.Free),
		Connectors: Connectors{
			TypeEF:   DeriveBool(raw.PlugTypeEF),
			Type2:    DeriveBool(raw.PlugType2),
			ComboCCS: DeriveBool(raw.PlugComboCCS),
			CHAdeMO:  DeriveBool(raw.PlugCHAdeMO),
		},
		NominalPowerKW:   parseOptionalFloat(raw.NominalPower),
		InstallationType: optionalString(raw.InstallationType),
		Latitude:         parseOptionalFloat(raw.Latitude),
		Longitude:        parseOptionalFloat(raw.Longitude),
	}
}

// DeriveBool maps the feed's textual booleans: lower-cased "true" is true and
// everything else, including "false", empty and garbage, is false. A missing
// value and an explicit "false" are deliberately indistinguishable.
func DeriveBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	default:
		return false
	}
}

// DeriveRegionCode returns the département code: the first two characters of
// the postal code. Postal codes shorter than two characters yield "".
func DeriveRegionCode(postal string) string {
	runes := []rune(strings.TrimSpace(postal))
	if len(runes) < 2 {
		return ""
	}
	return string(runes[:2])
}

// ParseCommissioningDate returns the commissioning date at UTC midnight, or nil
// when the value is empty or matches none of the known layouts.
func ParseCommissioningDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range commissioningLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		y, m, d := t.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &day
	}
	return nil
}

// parseOptionalFloat parses a decimal (point or comma separator), returning nil
// on failure or for non-finite values.
func parseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
