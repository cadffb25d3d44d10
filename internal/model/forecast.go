package model

import "time"

// Series identifiers used as snapshot keys.
const (
	SeriesForecast = "forecast"
	SeriesPrices   = "prices"
)

const (
	// SlotDuration is the granularity of the normalised forecast grid.
	SlotDuration = 15 * time.Minute
	// SlotHours converts an instantaneous kW estimate into kWh for one slot.
	SlotHours = 0.25
)

// ForecastPoint is one solar production estimate, in kW, with its percentile band.
type ForecastPoint struct {
	Timestamp    time.Time `json:"period_end"`
	PVEstimate   float64   `json:"pv_estimate"`
	PVEstimate10 float64   `json:"pv_estimate10"`
	PVEstimate90 float64   `json:"pv_estimate90"`
}

// ForecastSeries is ordered by timestamp with unique entries.
type ForecastSeries []ForecastPoint

// Earliest returns the first timestamp, or false for an empty series.
func (s ForecastSeries) Earliest() (time.Time, bool) {
	if len(s) == 0 {
		return time.Time{}, false
	}
	return s[0].Timestamp, true
}

// In returns a copy of the series with every timestamp converted to loc.
func (s ForecastSeries) In(loc *time.Location) ForecastSeries {
	out := make(ForecastSeries, len(s))
	for i, p := range s {
		p.Timestamp = p.Timestamp.In(loc)
		out[i] = p
	}
	return out
}
