package model

import "time"

// ValuedPoint is a forecast slot priced at the market rate in force for it.
type ValuedPoint struct {
	ForecastPoint
	Price   float64 `json:"price"`
	Value   float64 `json:"value"`
	Value10 float64 `json:"value10"`
	Value90 float64 `json:"value90"`
}

// Estimate carries a quantity for the central estimate and both percentiles.
type Estimate struct {
	Central float64 `json:"central"`
	P10     float64 `json:"p10"`
	P90     float64 `json:"p90"`
}

// Add returns the component-wise sum.
func (e Estimate) Add(o Estimate) Estimate {
	return Estimate{Central: e.Central + o.Central, P10: e.P10 + o.P10, P90: e.P90 + o.P90}
}

// DailyTotal aggregates energy (kWh) and value (currency) for one local calendar date.
type DailyTotal struct {
	Date   string   `json:"date"`
	Energy Estimate `json:"energy"`
	Value  Estimate `json:"value"`
}

// Split holds energy and value for one side of the produced/remaining partition.
type Split struct {
	Energy Estimate `json:"energy"`
	Value  Estimate `json:"value"`
}

// Summary is the aggregated view handed to the presentation layer.
type Summary struct {
	GeneratedAt    time.Time     `json:"generated_at"`
	Points         []ValuedPoint `json:"points"`
	DailyTotals    []DailyTotal  `json:"daily_totals"`
	Produced       Split         `json:"produced"`
	Remaining      Split         `json:"remaining"`
	CurrentPrice   *PricePoint   `json:"current_price,omitempty"`
	Today          []ValuedPoint `json:"today"`
	Tomorrow       []ValuedPoint `json:"tomorrow"`
	PricesToday    PriceSeries   `json:"prices_today"`
	PricesTomorrow PriceSeries   `json:"prices_tomorrow"`
}

// DailyTotal returns the total for date, if present.
func (s *Summary) DailyTotal(date string) (DailyTotal, bool) {
	for _, d := range s.DailyTotals {
		if d.Date == date {
			return d, true
		}
	}
	return DailyTotal{}, false
}
