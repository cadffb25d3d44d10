package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SolarBudget/internal/collector"
	"SolarBudget/internal/model"
)

var warsaw = mustLoad("Europe/Warsaw")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(day, h, m int) time.Time {
	return time.Date(2025, 6, day, h, m, 0, 0, warsaw)
}

// bell builds a day of 15-minute slots from 05:00 to 21:00 peaking at 13:00.
func bell(day int) model.ForecastSeries {
	var out model.ForecastSeries
	for t := at(day, 5, 0); !t.After(at(day, 21, 0)); t = t.Add(model.SlotDuration) {
		x := t.Sub(at(day, 13, 0)).Hours() / 8
		pv := math.Max(0, 4*(1-x*x))
		out = append(out, model.ForecastPoint{Timestamp: t, PVEstimate: pv, PVEstimate10: pv * 0.6, PVEstimate90: pv * 1.3})
	}
	return out
}

func hourly(day int) model.PriceSeries {
	return collector.HourlyPrices(at(day, 0, 0), warsaw, func(h int) float64 { return 300 + float64(h)*10 })
}

func TestValueRatioZeroProduction(t *testing.T) {
	assert.Equal(t, 0.0, ValueRatio(0, 0))
	assert.InDelta(t, 0.125, ValueRatio(SlotValue(2, 500), 2), 1e-12)
}

func TestValueFormula(t *testing.T) {
	forecast := append(bell(10), bell(11)...)
	sum := Aggregate(forecast, hourly(10), at(10, 12, 10), warsaw)

	require.NotEmpty(t, sum.Points)
	for _, p := range sum.Points {
		assert.InDelta(t, p.PVEstimate*p.Price/1000*0.25, p.Value, 1e-9, p.Timestamp)
		if p.PVEstimate == 0 {
			assert.Zero(t, p.Value10)
			assert.Zero(t, p.Value90)
		} else {
			assert.InDelta(t, p.PVEstimate10*p.Value/p.PVEstimate, p.Value10, 1e-9)
			assert.InDelta(t, p.PVEstimate90*p.Value/p.PVEstimate, p.Value90, 1e-9)
		}
	}
}

func TestSlotPricedByItsHour(t *testing.T) {
	sum := Aggregate(bell(10), hourly(10), at(10, 12, 10), warsaw)
	for _, p := range sum.Points {
		assert.Equal(t, 300+float64(p.Timestamp.Hour())*10, p.Price)
	}
}

func TestDailyTotalsEqualSlotSums(t *testing.T) {
	forecast := append(bell(10), bell(11)...)
	sum := Aggregate(forecast, hourly(10), at(10, 12, 10), warsaw)

	require.Len(t, sum.DailyTotals, 2)
	assert.Equal(t, "2025-06-10", sum.DailyTotals[0].Date)
	assert.Equal(t, "2025-06-11", sum.DailyTotals[1].Date)

	for _, d := range sum.DailyTotals {
		var energy, value float64
		for _, p := range forecast {
			if model.DateOf(p.Timestamp, warsaw) == d.Date {
				energy += p.PVEstimate * model.SlotHours
			}
		}
		for _, p := range sum.Points {
			if model.DateOf(p.Timestamp, warsaw) == d.Date {
				value += p.Value
			}
		}
		assert.InDelta(t, energy, d.Energy.Central, 1e-9, d.Date)
		assert.InDelta(t, value, d.Value.Central, 1e-9, d.Date)
	}

	tomorrow, ok := sum.DailyTotal("2025-06-11")
	require.True(t, ok)
	assert.Greater(t, tomorrow.Energy.Central, 0.0)
	assert.Zero(t, tomorrow.Value.Central, "no prices published for tomorrow")
	assert.Empty(t, sum.Tomorrow)
}

func TestProducedPlusRemainingIsDayTotal(t *testing.T) {
	for _, now := range []time.Time{at(10, 4, 0), at(10, 12, 10), at(10, 13, 0), at(10, 23, 0)} {
		sum := Aggregate(bell(10), hourly(10), now, warsaw)
		day, ok := sum.DailyTotal("2025-06-10")
		require.True(t, ok)

		assert.InDelta(t, day.Energy.Central, sum.Produced.Energy.Central+sum.Remaining.Energy.Central, 1e-9)
		assert.InDelta(t, day.Energy.P10, sum.Produced.Energy.P10+sum.Remaining.Energy.P10, 1e-9)
		assert.InDelta(t, day.Energy.P90, sum.Produced.Energy.P90+sum.Remaining.Energy.P90, 1e-9)
		assert.InDelta(t, day.Value.Central, sum.Produced.Value.Central+sum.Remaining.Value.Central, 1e-9)
		assert.InDelta(t, day.Value.P90, sum.Produced.Value.P90+sum.Remaining.Value.P90, 1e-9)
	}
}

func TestProducedIncludesSlotAtNow(t *testing.T) {
	forecast := model.ForecastSeries{
		{Timestamp: at(10, 12, 0), PVEstimate: 4},
		{Timestamp: at(10, 12, 15), PVEstimate: 2},
	}
	sum := Aggregate(forecast, hourly(10), at(10, 12, 0), warsaw)
	assert.InDelta(t, 1.0, sum.Produced.Energy.Central, 1e-12)
	assert.InDelta(t, 0.5, sum.Remaining.Energy.Central, 1e-12)
}

func TestNoPriceBeforeFirstPrice(t *testing.T) {
	var prices model.PriceSeries
	for _, p := range hourly(10) {
		if p.Timestamp.Hour() >= 8 {
			prices = append(prices, p)
		}
	}
	sum := Aggregate(bell(10), prices, at(10, 12, 10), warsaw)

	require.NotEmpty(t, sum.Points)
	assert.True(t, sum.Points[0].Timestamp.Equal(at(10, 8, 0)))
	for _, p := range sum.Points {
		assert.False(t, p.Timestamp.Before(at(10, 8, 0)))
	}
}

func TestNoPricePastLastPeriod(t *testing.T) {
	var prices model.PriceSeries
	for _, p := range hourly(10) {
		if p.Timestamp.Hour() <= 10 {
			prices = append(prices, p)
		}
	}
	sum := Aggregate(bell(10), prices, at(10, 12, 10), warsaw)

	last := sum.Points[len(sum.Points)-1]
	assert.True(t, last.Timestamp.Equal(at(10, 10, 45)))
	assert.Equal(t, 400.0, last.Price)
}

func TestValueCarriesPriceAcrossInteriorGap(t *testing.T) {
	var forecast model.ForecastSeries
	for ts := at(10, 10, 0); !ts.After(at(10, 13, 45)); ts = ts.Add(model.SlotDuration) {
		forecast = append(forecast, model.ForecastPoint{Timestamp: ts, PVEstimate: 4, PVEstimate10: 2, PVEstimate90: 6})
	}
	prices := model.PriceSeries{
		{Timestamp: at(10, 10, 0), Price: 400},
		{Timestamp: at(10, 11, 0), Price: 500},
		{Timestamp: at(10, 13, 0), Price: 600},
	}

	valued := Value(forecast, prices)
	require.Len(t, valued, 16)
	for _, v := range valued {
		if v.Timestamp.Hour() == 12 {
			assert.Equal(t, 500.0, v.Price, v.Timestamp.Format("15:04"))
			assert.InDelta(t, SlotValue(4, 500), v.Value, 1e-12)
		}
	}
	assert.Equal(t, 600.0, valued[15].Price)
}

func TestCurrentPrice(t *testing.T) {
	sum := Aggregate(bell(10), hourly(10), at(10, 12, 10), warsaw)
	require.NotNil(t, sum.CurrentPrice)
	assert.True(t, sum.CurrentPrice.Timestamp.Equal(at(10, 12, 0)))
	assert.Equal(t, 420.0, sum.CurrentPrice.Price)
}

func TestCurrentPriceInRepeatedDSTHour(t *testing.T) {
	start := time.Date(2025, 10, 25, 22, 0, 0, 0, time.UTC) // 2025-10-26 00:00 CEST
	var prices model.PriceSeries
	for i := 0; i < 25; i++ {
		prices = append(prices, model.PricePoint{Timestamp: start.Add(time.Duration(i) * time.Hour), Price: float64(i)})
	}
	// 02:10 CET, the second pass through the 02:00 hour.
	now := time.Date(2025, 10, 26, 1, 10, 0, 0, time.UTC).In(warsaw)
	require.Equal(t, 2, now.Hour())

	cp := CurrentPrice(prices, now)
	require.NotNil(t, cp)
	assert.True(t, cp.Timestamp.Equal(time.Date(2025, 10, 26, 1, 0, 0, 0, time.UTC)), cp.Timestamp.String())
	assert.Equal(t, 3.0, cp.Price)
}

func TestCurrentPriceTieGoesToEarlier(t *testing.T) {
	prices := model.PriceSeries{
		{Timestamp: at(10, 11, 30), Price: 1},
		{Timestamp: at(10, 12, 30), Price: 2},
	}
	cp := CurrentPrice(prices, at(10, 12, 10))
	require.NotNil(t, cp)
	assert.Equal(t, 1.0, cp.Price)
}

func TestCurrentPriceIgnoresOtherDays(t *testing.T) {
	sum := Aggregate(bell(10), hourly(9), at(10, 12, 10), warsaw)
	assert.Nil(t, sum.CurrentPrice)
	assert.Empty(t, sum.PricesToday)
}

func TestTodayTomorrowSplits(t *testing.T) {
	forecast := append(bell(10), bell(11)...)
	prices := append(hourly(10), hourly(11)...)
	sum := Aggregate(forecast, prices, at(10, 17, 0), warsaw)

	assert.Len(t, sum.PricesToday, 24)
	assert.Len(t, sum.PricesTomorrow, 24)
	assert.Len(t, sum.Today, len(bell(10)))
	assert.Len(t, sum.Tomorrow, len(bell(11)))
	for _, p := range sum.Tomorrow {
		assert.Equal(t, "2025-06-11", model.DateOf(p.Timestamp, warsaw))
	}
}

func TestAggregateConvertsToLocation(t *testing.T) {
	forecast := model.ForecastSeries{{Timestamp: time.Date(2025, 6, 9, 22, 30, 0, 0, time.UTC), PVEstimate: 1}}
	prices := model.PriceSeries{{Timestamp: time.Date(2025, 6, 9, 22, 0, 0, 0, time.UTC), Price: 100}}
	sum := Aggregate(forecast, prices, at(10, 9, 0), warsaw)

	require.Len(t, sum.Points, 1)
	assert.Equal(t, warsaw, sum.Points[0].Timestamp.Location())
	require.Len(t, sum.DailyTotals, 1)
	assert.Equal(t, "2025-06-10", sum.DailyTotals[0].Date)
}
