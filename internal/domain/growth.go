package domain

// DefaultGrowthStartYear is the first year counted by CumulativeGrowth.
const DefaultGrowthStartYear = 2015

// YearlyCumulativeCount is one point of the network growth series.
type YearlyCumulativeCount struct {
	Year       int `json:"year"`
	Added      int `json:"added"`
	Cumulative int `json:"cumulative"`
}

// CumulativeGrowth counts stations commissioned per year from startYear on and
// returns the running total in ascending year order. Years between the first
// and last one present are materialized even when nothing was commissioned, so
// the series has no gaps. Stations with no commissioning date are skipped.
func CumulativeGrowth(stations []StationRecord, startYear int) []YearlyCumulativeCount {
	perYear := make(map[int]int)
	first, last := 0, 0
	for i := range stations {
		d := stations[i].CommissioningDate
		if d == nil {
			continue
		}
		y := d.Year()
		if y < startYear {
			continue
		}
		if len(perYear) == 0 || y < first {
			first = y
		}
		if len(perYear) == 0 || y > last {
			last = y
		}
		perYear[y]++
	}
	if len(perYear) == 0 {
		return []YearlyCumulativeCount{}
	}

	series := make([]YearlyCumulativeCount, 0, last-first+1)
	total := 0
	for y := first; y <= last; y++ {
		added := perYear[y]
		total += added
		series = append(series, YearlyCumulativeCount{Year: y, Added: added, Cumulative: total})
	}
	return series
}
