package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	voirie := "Voirie"
	parking := "Parking public"
	stations := []StationRecord{
		{Name: "a", Free: true, Connectors: Connectors{Type2: true}, NominalPowerKW: ptr(22.0), InstallationType: &voirie},
		{Name: "b", Free: false, Connectors: Connectors{Type2: true, ComboCCS: true}, NominalPowerKW: ptr(150.0), InstallationType: &parking},
		{Name: "c", Free: false, Connectors: Connectors{TypeEF: true, CHAdeMO: true, ComboCCS: true}, NominalPowerKW: ptr(43.0), InstallationType: &voirie},
		{Name: "d", Free: true},
	}

	s := Summarize(stations, DefaultFastChargeKW)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Free)
	assert.Equal(t, 2, s.Paid)
	assert.Equal(t, ConnectorCounts{TypeEF: 1, Type2: 2, ComboCCS: 2, CHAdeMO: 1}, s.Connectors)
	assert.Equal(t, 1, s.FastCharge, "43 kW is not above the threshold")
	assert.Equal(t, 3, s.NormalCharge, "unknown power counts as normal")
	assert.Equal(t, DefaultFastChargeKW, s.FastChargeThresholdKW)
	assert.Equal(t, []CategoryCount{
		{Name: "Voirie", Count: 2},
		{Name: "Parking public", Count: 1},
	}, s.InstallationTypes)
}

func TestSummarize_InstallationTieBreak(t *testing.T) {
	b, a := "B", "A"
	s := Summarize([]StationRecord{{InstallationType: &b}, {InstallationType: &a}}, DefaultFastChargeKW)

	assert.Equal(t, []CategoryCount{{Name: "A", Count: 1}, {Name: "B", Count: 1}}, s.InstallationTypes)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 50)

	assert.Zero(t, s.Total)
	assert.Empty(t, s.InstallationTypes)
	assert.NotNil(t, s.InstallationTypes)
	assert.Equal(t, 50.0, s.FastChargeThresholdKW)
}
