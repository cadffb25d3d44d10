package model

import "time"

// PricePoint is a day-ahead market price in currency per MWh for the period starting at Timestamp.
type PricePoint struct {
	Timestamp time.Time `json:"datetime"`
	Price     float64   `json:"price"`
}

// PriceSeries is ordered by timestamp, one entry per market period.
type PriceSeries []PricePoint

// In returns a copy of the series with every timestamp converted to loc.
func (s PriceSeries) In(loc *time.Location) PriceSeries {
	out := make(PriceSeries, len(s))
	for i, p := range s {
		p.Timestamp = p.Timestamp.In(loc)
		out[i] = p
	}
	return out
}

// HasDate reports whether any point falls on the calendar date of day in loc.
func (s PriceSeries) HasDate(day time.Time, loc *time.Location) bool {
	want := DateOf(day, loc)
	for _, p := range s {
		if DateOf(p.Timestamp, loc) == want {
			return true
		}
	}
	return false
}

// DateOf formats the local calendar date of t as YYYY-MM-DD.
func DateOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

// SameDate reports whether a and b share a calendar date in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	return DateOf(a, loc) == DateOf(b, loc)
}
