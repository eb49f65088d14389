package domain

import "time"

// RawRecord is one row of the IRVE CSV. Every field is text as read from the
// file; typed values are produced by Normalize.
type RawRecord struct {
	StationName       string `csv:"nom_station"`
	CommissioningDate string `csv:"date_mise_en_service"`
	PostalCode        string `csv:"consolidated_code_postal"`
	Free              string `csv:"gratuit"`
	PlugTypeEF        string `csv:"prise_type_ef"`
	PlugType2         string `csv:"prise_type_2"`
	PlugComboCCS      string `csv:"prise_type_combo_ccs"`
	PlugCHAdeMO       string `csv:"prise_type_chademo"`
	NominalPower      string `csv:"puissance_nominale"`
	InstallationType  string `csv:"implantation_station"`
	Latitude          string `csv:"consolidated_latitude"`
	Longitude         string `csv:"consolidated_longitude"`
}

// Connectors holds the per-plug availability flags of a charging point.
type Connectors struct {
	TypeEF   bool `json:"type_ef"`
	Type2    bool `json:"type_2"`
	ComboCCS bool `json:"combo_ccs"`
	CHAdeMO  bool `json:"chademo"`
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// StationRecord is the canonical, typed form of a charging point.
type StationRecord struct {
	Name              string     `json:"name"`
	CommissioningDate *time.Time `json:"commissioning_date,omitempty"`
	PostalCode        string     `json:"postal_code"`
	RegionCode        string     `json:"region_code"`
	Free              bool       `json:"free"`
	Connectors        Connectors `json:"connectors"`
	NominalPowerKW    *float64   `json:"nominal_power_kw,omitempty"`
	InstallationType  *string    `json:"installation_type,omitempty"`
	Latitude          *float64   `json:"latitude,omitempty"`
	Longitude         *float64   `json:"longitude,omitempty"`
}

// Coordinates returns the station position and whether both axes are known.
func (s StationRecord) Coordinates() (Geo, bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return Geo{}, false
	}
	return Geo{Lat: *s.Latitude, Lon: *s.Longitude}, true
}

// Document is decoded feed text along with what the detector found.
type Document struct {
	Text       string
	Encoding   string
	Confidence int // 0-100 detector confidence
	Bytes      int
}

// Snapshot is a normalized dataset built from one fetch of the feed. It is
// immutable once returned by the snapshot store and shared between readers.
type Snapshot struct {
	Key        string
	URL        string
	FetchedAt  time.Time
	Encoding   string
	Confidence int
	Stations   []StationRecord
}
