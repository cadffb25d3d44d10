// Package aggregate values a forecast at market prices and summarises it per day.
package aggregate

import (
	"sort"
	"time"

	"SolarBudget/internal/model"
	"SolarBudget/internal/series"
)

// kWhPerMWh converts a per-MWh price to per-kWh.
const kWhPerMWh = 1000

// SlotValue is the value of one slot's production at the given price.
func SlotValue(pv, pricePerMWh float64) float64 {
	return pv * pricePerMWh / kWhPerMWh * model.SlotHours
}

// ValueRatio maps energy onto money for the percentile band. It is 0 when
// there is no production.
func ValueRatio(value, pv float64) float64 {
	if pv == 0 {
		return 0
	}
	return value / pv
}

// Value prices every forecast slot that falls inside a known price period.
// Gaps between prices carry the earlier price. Slots before the first
// price, or past the last period, are left out.
func Value(forecast model.ForecastSeries, prices model.PriceSeries) []model.ValuedPoint {
	period := series.PricePeriod(prices)
	out := make([]model.ValuedPoint, 0, len(forecast))
	for _, p := range forecast {
		price, ok := series.ForwardFill(prices, p.Timestamp, period)
		if !ok {
			continue
		}
		value := SlotValue(p.PVEstimate, price.Price)
		ratio := ValueRatio(value, p.PVEstimate)
		out = append(out, model.ValuedPoint{
			ForecastPoint: p,
			Price:         price.Price,
			Value:         value,
			Value10:       p.PVEstimate10 * ratio,
			Value90:       p.PVEstimate90 * ratio,
		})
	}
	return out
}

func energy(p model.ForecastPoint) model.Estimate {
	return model.Estimate{
		Central: p.PVEstimate * model.SlotHours,
		P10:     p.PVEstimate10 * model.SlotHours,
		P90:     p.PVEstimate90 * model.SlotHours,
	}
}

func value(v model.ValuedPoint) model.Estimate {
	return model.Estimate{Central: v.Value, P10: v.Value10, P90: v.Value90}
}

// Aggregate merges the reconciled series into the summary shown to users.
// Both series are converted to loc; now decides "today" and the
// produced/remaining split.
func Aggregate(forecast model.ForecastSeries, prices model.PriceSeries, now time.Time, loc *time.Location) model.Summary {
	now = now.In(loc)
	f := series.NormalizeForecast(forecast.In(loc))
	p := series.NormalizePrices(prices.In(loc))
	valued := Value(f, p)

	today := model.DateOf(now, loc)
	tomorrow := model.DateOf(now.AddDate(0, 0, 1), loc)

	sum := model.Summary{
		GeneratedAt:    now,
		Points:         valued,
		Today:          []model.ValuedPoint{},
		Tomorrow:       []model.ValuedPoint{},
		PricesToday:    model.PriceSeries{},
		PricesTomorrow: model.PriceSeries{},
	}

	byDate := map[string]*model.DailyTotal{}
	total := func(date string) *model.DailyTotal {
		d, ok := byDate[date]
		if !ok {
			d = &model.DailyTotal{Date: date}
			byDate[date] = d
		}
		return d
	}

	for _, pt := range f {
		date := model.DateOf(pt.Timestamp, loc)
		e := energy(pt)
		total(date).Energy = total(date).Energy.Add(e)
		if date != today {
			continue
		}
		if pt.Timestamp.After(now) {
			sum.Remaining.Energy = sum.Remaining.Energy.Add(e)
		} else {
			sum.Produced.Energy = sum.Produced.Energy.Add(e)
		}
	}

	for _, v := range valued {
		date := model.DateOf(v.Timestamp, loc)
		total(date).Value = total(date).Value.Add(value(v))
		switch date {
		case today:
			sum.Today = append(sum.Today, v)
			if v.Timestamp.After(now) {
				sum.Remaining.Value = sum.Remaining.Value.Add(value(v))
			} else {
				sum.Produced.Value = sum.Produced.Value.Add(value(v))
			}
		case tomorrow:
			sum.Tomorrow = append(sum.Tomorrow, v)
		}
	}

	sum.DailyTotals = make([]model.DailyTotal, 0, len(byDate))
	for _, d := range byDate {
		sum.DailyTotals = append(sum.DailyTotals, *d)
	}
	sort.Slice(sum.DailyTotals, func(i, j int) bool { return sum.DailyTotals[i].Date < sum.DailyTotals[j].Date })

	for _, pp := range p {
		switch model.DateOf(pp.Timestamp, loc) {
		case today:
			sum.PricesToday = append(sum.PricesToday, pp)
		case tomorrow:
			sum.PricesTomorrow = append(sum.PricesTomorrow, pp)
		}
	}
	sum.CurrentPrice = CurrentPrice(sum.PricesToday, now)
	return sum
}

// CurrentPrice picks the price closest to the start of now's hour. Ties
// go to the earlier timestamp; prices must be sorted.
func CurrentPrice(prices model.PriceSeries, now time.Time) *model.PricePoint {
	if len(prices) == 0 {
		return nil
	}
	// Rebuilding the wall-clock date is ambiguous inside a repeated DST hour.
	hour := now.Add(-time.Duration(now.Minute())*time.Minute -
		time.Duration(now.Second())*time.Second -
		time.Duration(now.Nanosecond()))
	best := 0
	bestDiff := absDuration(prices[0].Timestamp.Sub(hour))
	for i := 1; i < len(prices); i++ {
		if d := absDuration(prices[i].Timestamp.Sub(hour)); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	cp := prices[best]
	return &cp
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
