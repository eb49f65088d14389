package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "nom_station,date_mise_en_service,consolidated_code_postal,gratuit," +
	"prise_type_ef,prise_type_2,prise_type_combo_ccs,prise_type_chademo," +
	"puissance_nominale,implantation_station,consolidated_latitude,consolidated_longitude"

// csvText joins the test header and rows into feed text.
func csvText(rows ...string) string {
	return testHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestNormalize(t *testing.T) {
	t.Run("full row", func(t *testing.T) {
		text := csvText(`Gare de LYON,2021-03-04,75012,true,false,TRUE,true,false,22,Voirie,48.8443,2.3743`)

		stations, err := Normalize(text)
		require.NoError(t, err)
		require.Len(t, stations, 1)

		st := stations[0]
		assert.Equal(t, "Gare de LYON", st.Name)
		require.NotNil(t, st.CommissioningDate)
		assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), *st.CommissioningDate)
		assert.Equal(t, "75012", st.PostalCode)
		assert.Equal(t, "75", st.RegionCode)
		assert.True(t, st.Free)
		assert.Equal(t, Connectors{TypeEF: false, Type2: true, ComboCCS: true, CHAdeMO: false}, st.Connectors)
		require.NotNil(t, st.NominalPowerKW)
		assert.Equal(t, 22.0, *st.NominalPowerKW)
		require.NotNil(t, st.InstallationType)
		assert.Equal(t, "Voirie", *st.InstallationType)
		require.NotNil(t, st.Latitude)
		require.NotNil(t, st.Longitude)
		assert.Equal(t, 48.8443, *st.Latitude)
		assert.Equal(t, 2.3743, *st.Longitude)
	})

	t.Run("missing values stay nil", func(t *testing.T) {
		stations, err := Normalize(csvText(`Borne X,,,,,,,,,,,`))
		require.NoError(t, err)
		require.Len(t, stations, 1)

		st := stations[0]
		assert.Nil(t, st.CommissioningDate)
		assert.Empty(t, st.RegionCode)
		assert.False(t, st.Free)
		assert.Equal(t, Connectors{}, st.Connectors)
		assert.Nil(t, st.NominalPowerKW)
		assert.Nil(t, st.InstallationType)
		assert.Nil(t, st.Latitude)
		assert.Nil(t, st.Longitude)
	})

	t.Run("garbage values are coerced, not rejected", func(t *testing.T) {
		stations, err := Normalize(csvText(`Borne Y,yesterday,13001,oui,1,yes,NaN,?,beaucoup,,north,east`))
		require.NoError(t, err)
		require.Len(t, stations, 1)

		st := stations[0]
		assert.Nil(t, st.CommissioningDate)
		assert.Equal(t, "13", st.RegionCode)
		assert.False(t, st.Free)
		assert.Equal(t, Connectors{}, st.Connectors)
		assert.Nil(t, st.NominalPowerKW)
		assert.Nil(t, st.Latitude)
		assert.Nil(t, st.Longitude)
	})

	t.Run("preserves row order", func(t *testing.T) {
		stations, err := Normalize(csvText(
			`C,,,,,,,,,,,`,
			`A,,,,,,,,,,,`,
			`B,,,,,,,,,,,`,
		))
		require.NoError(t, err)
		names := make([]string, len(stations))
		for i, st := range stations {
			names[i] = st.Name
		}
		assert.Equal(t, []string{"C", "A", "B"}, names)
	})

	t.Run("column order does not matter", func(t *testing.T) {
		text := "consolidated_code_postal,nom_station,gratuit,date_mise_en_service," +
			"prise_type_ef,prise_type_2,prise_type_combo_ccs,prise_type_chademo," +
			"puissance_nominale,implantation_station,consolidated_latitude,consolidated_longitude,id_pdc_itinerance\n" +
			"69003,Lyon Part-Dieu,TRUE,2019-06-01,,,,,,,,,FRXYZ\n"
		stations, err := Normalize(text)
		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, "Lyon Part-Dieu", stations[0].Name)
		assert.Equal(t, "69", stations[0].RegionCode)
		assert.True(t, stations[0].Free)
	})

	t.Run("quoted names with commas", func(t *testing.T) {
		stations, err := Normalize(csvText(`"Parking, niveau -1",2020-01-01,33000,false,,,,,,,,`))
		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, "Parking, niveau -1", stations[0].Name)
	})

	t.Run("leading byte order mark", func(t *testing.T) {
		stations, err := Normalize("\ufeff" + csvText(`Borne BOM,,06000,,,,,,,,,`))
		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, "06", stations[0].RegionCode)
	})

	t.Run("header only", func(t *testing.T) {
		stations, err := Normalize(testHeader + "\n")
		require.NoError(t, err)
		assert.Empty(t, stations)
	})
}

func TestNormalize_StructuralFailures(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := Normalize("")
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("missing upstream column", func(t *testing.T) {
		text := "nom_station,date_mise_en_service\nBorne,2020-01-01\n"
		_, err := Normalize(text)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, err.Error(), "consolidated_code_postal")
	})

	t.Run("ragged row", func(t *testing.T) {
		_, err := Normalize(csvText(`Borne,2020-01-01,75001`))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, 2, parseErr.Line)
	})

	t.Run("broken quoting", func(t *testing.T) {
		_, err := Normalize(csvText(`"Borne,2020-01-01,75001,,,,,,,,,`))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.True(t, IsFatal(err))
	})
}

func TestNormalize_Idempotent(t *testing.T) {
	text := csvText(
		`Gare de LYON,2021-03-04,75012,true,false,TRUE,true,false,22,Voirie,48.8443,2.3743`,
		`Borne X,,,,,,,,,,,`,
		`Aix Centre,2016-11-30,13100,FALSE,true,true,false,true,"50,5",Parking public,43.52,5.44`,
	)

	first, err := Normalize(text)
	require.NoError(t, err)
	second, err := Normalize(text)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("normalization not idempotent (-first +second):\n%s", diff)
	}
}

func TestNormalize_RegionCodeScenario(t *testing.T) {
	stations, err := Normalize(csvText(
		`Paris 1,,75001,,,,,,,,,`,
		`Marseille 1,,13001,,,,,,,,,`,
		`Nowhere,,,,,,,,,,,`,
	))
	require.NoError(t, err)

	codes := make([]string, len(stations))
	for i, st := range stations {
		codes[i] = st.RegionCode
	}
	assert.Equal(t, []string{"75", "13", ""}, codes)
}

func TestNormalize_FreeColumnScenario(t *testing.T) {
	stations, err := Normalize(csvText(
		`A,,,true,,,,,,,,`,
		`B,,,FALSE,,,,,,,,`,
		`C,,,,,,,,,,,`,
		`D,,,TRUE,,,,,,,,`,
	))
	require.NoError(t, err)

	free := make([]bool, len(stations))
	for i, st := range stations {
		free[i] = st.Free
	}
	assert.Equal(t, []bool{true, false, false, true}, free)
}

func TestDeriveBool(t *testing.T) {
	tests := []struct {
		raw      string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"True", true},
		{"tRuE", true},
		{"false", false},
		{"FALSE", false},
		{"False", false},
		{"", false},
		{" true", false},
		{"true ", false},
		{"1", false},
		{"0", false},
		{"oui", false},
		{"nan", false},
		{"NaN", false},
		{"null", false},
		{"\x00\xff", false},
		{"truest", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveBool(tt.raw))
		})
	}
}

func TestDeriveRegionCode(t *testing.T) {
	tests := []struct {
		name     string
		postal   string
		expected string
	}{
		{"paris", "75001", "75"},
		{"leading zero kept", "01000", "01"},
		{"corsica", "2A004", "2A"},
		{"surrounding spaces", " 13001 ", "13"},
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"single character", "7", ""},
		{"exactly two", "69", "69"},
		{"non ascii", "éé123", "éé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveRegionCode(tt.postal))
		})
	}
}

func TestParseCommissioningDate(t *testing.T) {
	day := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		raw      string
		expected *time.Time
	}{
		{"iso date", "2021-03-04", &day},
		{"rfc3339", "2021-03-04T10:20:30+01:00", &day},
		{"date time", "2021-03-04 23:59:59", &day},
		{"date time with T", "2021-03-04T08:00:00", &day},
		{"french format", "04/03/2021", &day},
		{"spaces", " 2021-03-04 ", &day},
		{"empty", "", nil},
		{"garbage", "soon", nil},
		{"impossible date", "2021-02-30", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommissioningDate(tt.raw)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.expected.Equal(*got), "got %s", got)
		})
	}
}

func TestParseOptionalFloat(t *testing.T) {
	tests := []struct {
		raw      string
		expected *float64
	}{
		{"22", ptr(22.0)},
		{"7.4", ptr(7.4)},
		{"50,5", ptr(50.5)},
		{" 3.7 ", ptr(3.7)},
		{"-1.5", ptr(-1.5)},
		{"", nil},
		{"NaN", nil},
		{"Inf", nil},
		{"abc", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseOptionalFloat(tt.raw))
		})
	}
}

func TestParseError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ParseError{Line: 3, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "parse feed: line 3: boom", err.Error())
}

func ptr[T any](v T) *T { return &v }
