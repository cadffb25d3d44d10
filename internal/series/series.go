// Package series normalises forecast and price series onto a common grid.
package series

import (
	"math"
	"sort"
	"time"

	"SolarBudget/internal/model"
)

// DefaultPricePeriod is assumed when a price series is too short to infer its spacing.
const DefaultPricePeriod = time.Hour

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NormalizeForecast drops non-finite points, sorts, and keeps the first
// point for any duplicated timestamp.
func NormalizeForecast(in model.ForecastSeries) model.ForecastSeries {
	out := make(model.ForecastSeries, 0, len(in))
	for _, p := range in {
		if finite(p.PVEstimate, p.PVEstimate10, p.PVEstimate90) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return dedupeForecast(out)
}

func dedupeForecast(s model.ForecastSeries) model.ForecastSeries {
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, p := range s[1:] {
		if !p.Timestamp.Equal(out[len(out)-1].Timestamp) {
			out = append(out, p)
		}
	}
	return out
}

// NormalizePrices drops non-finite prices, sorts, and dedupes by timestamp.
func NormalizePrices(in model.PriceSeries) model.PriceSeries {
	out := make(model.PriceSeries, 0, len(in))
	for _, p := range in {
		if finite(p.Price) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if len(out) < 2 {
		return out
	}
	dedup := out[:1]
	for _, p := range out[1:] {
		if !p.Timestamp.Equal(dedup[len(dedup)-1].Timestamp) {
			dedup = append(dedup, p)
		}
	}
	return dedup
}

// Resample places the series on every step-aligned instant in [min, max]
// using time-based linear interpolation. The same operator serves for
// upsampling and downsampling, and an already aligned series is returned
// unchanged. A series too short to span one grid instant is returned normalised.
func Resample(in model.ForecastSeries, step time.Duration) model.ForecastSeries {
	pts := NormalizeForecast(in)
	if len(pts) == 0 {
		return pts
	}
	first, last := pts[0].Timestamp, pts[len(pts)-1].Timestamp
	start := first.Truncate(step)
	if start.Before(first) {
		start = start.Add(step)
	}
	end := last.Truncate(step)
	if end.Before(start) {
		return pts
	}

	loc := first.Location()
	out := make(model.ForecastSeries, 0, int(end.Sub(start)/step)+1)
	seg := 0
	for t := start; !t.After(end); t = t.Add(step) {
		for seg < len(pts)-1 && !pts[seg+1].Timestamp.After(t) {
			seg++
		}
		a := pts[seg]
		if a.Timestamp.Equal(t) || seg == len(pts)-1 {
			a.Timestamp = t.In(loc)
			out = append(out, a)
			continue
		}
		b := pts[seg+1]
		frac := float64(t.Sub(a.Timestamp)) / float64(b.Timestamp.Sub(a.Timestamp))
		out = append(out, model.ForecastPoint{
			Timestamp:    t.In(loc),
			PVEstimate:   lerp(a.PVEstimate, b.PVEstimate, frac),
			PVEstimate10: lerp(a.PVEstimate10, b.PVEstimate10, frac),
			PVEstimate90: lerp(a.PVEstimate90, b.PVEstimate90, frac),
		})
	}
	return out
}

func lerp(a, b, frac float64) float64 { return a + (b-a)*frac }

// PricePeriod infers the market period as the smallest positive spacing.
func PricePeriod(prices model.PriceSeries) time.Duration {
	var period time.Duration
	for i := 1; i < len(prices); i++ {
		d := prices[i].Timestamp.Sub(prices[i-1].Timestamp)
		if d > 0 && (period == 0 || d < period) {
			period = d
		}
	}
	if period == 0 {
		return DefaultPricePeriod
	}
	return period
}

// ForwardFill returns the most recent price at or before t. Gaps between
// known prices are filled with the earlier price however long they are;
// only the last price is bounded, holding for one period. Instants before
// the first price or past the end of the last period have no price.
func ForwardFill(prices model.PriceSeries, t time.Time, period time.Duration) (model.PricePoint, bool) {
	i := sort.Search(len(prices), func(i int) bool { return prices[i].Timestamp.After(t) })
	if i == 0 {
		return model.PricePoint{}, false
	}
	p := prices[i-1]
	if i == len(prices) && t.Sub(p.Timestamp) >= period {
		return model.PricePoint{}, false
	}
	return p, true
}
