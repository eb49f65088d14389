package domain

import "sort"

// DefaultFastChargeKW is the nominal power above which a point counts as fast
// charging.
const DefaultFastChargeKW = 43.0

// ConnectorCounts tallies charging points offering each plug type.
type ConnectorCounts struct {
	TypeEF   int `json:"type_ef"`
	Type2    int `json:"type_2"`
	ComboCCS int `json:"combo_ccs"`
	CHAdeMO  int `json:"chademo"`
}

// CategoryCount is a label with its number of occurrences.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FleetSummary holds the simple tallies shown next to the map.
type FleetSummary struct {
	Total                 int             `json:"total"`
	Free                  int             `json:"free"`
	Paid                  int             `json:"paid"`
	Connectors            ConnectorCounts `json:"connectors"`
	InstallationTypes     []CategoryCount `json:"installation_types"`
	FastCharge            int             `json:"fast_charge"`
	NormalCharge          int             `json:"normal_charge"`
	FastChargeThresholdKW float64         `json:"fast_charge_threshold_kw"`
}

// Summarize computes free/paid, connector, installation-type and charging-speed
// tallies. Points with unknown power count as normal charging; points with no
// installation type are left out of that breakdown.
func Summarize(stations []StationRecord, fastChargeKW float64) FleetSummary {
	s := FleetSummary{
		Total:                 len(stations),
		FastChargeThresholdKW: fastChargeKW,
	}
	installations := make(map[string]int)

	for i := range stations {
		st := &stations[i]
		if st.Free {
			s.Free++
		} else {
			s.Paid++
		}

		if st.Connectors.TypeEF {
			s.Connectors.TypeEF++
		}
		if st.Connectors.Type2 {
			s.Connectors.Type2++
		}
		if st.Connectors.ComboCCS {
			s.Connectors.ComboCCS++
		}
		if st.Connectors.CHAdeMO {
			s.Connectors.CHAdeMO++
		}

		if st.NominalPowerKW != nil && *st.NominalPowerKW > fastChargeKW {
			s.FastCharge++
		} else {
			s.NormalCharge++
		}

		if st.InstallationType != nil {
			installations[*st.InstallationType]++
		}
	}

	s.InstallationTypes = make([]CategoryCount, 0, len(installations))
	for name, n := range installations {
		s.InstallationTypes = append(s.InstallationTypes, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(s.InstallationTypes, func(i, j int) bool {
		a, b := s.InstallationTypes[i], s.InstallationTypes[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})

	return s
}
