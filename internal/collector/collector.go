package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"SolarBudget/internal/model"
)

// MockForecastFetcher returns controllable fixed data for development and testing.
type MockForecastFetcher struct {
	Series model.ForecastSeries
	Err    error
	// Delay holds each call open, unless the context ends first.
	Delay time.Duration

	calls atomic.Int32
}

func (m *MockForecastFetcher) Name() string { return "mock" }

func (m *MockForecastFetcher) FetchForecast(ctx context.Context) (model.ForecastSeries, error) {
	m.calls.Add(1)
	if err := wait(ctx, m.Delay); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return append(model.ForecastSeries(nil), m.Series...), nil
}

// Calls returns how many fetches were issued.
func (m *MockForecastFetcher) Calls() int { return int(m.calls.Load()) }

// MockPriceFetcher serves prices keyed by local date (YYYY-MM-DD).
type MockPriceFetcher struct {
	Location *time.Location
	ByDate   map[string]model.PriceSeries
	// Errs fails fetches for the given dates.
	Errs  map[string]error
	Delay time.Duration

	mu       sync.Mutex
	requests []string
}

func (m *MockPriceFetcher) Name() string { return "mock" }

func (m *MockPriceFetcher) FetchPrices(ctx context.Context, day time.Time) (model.PriceSeries, error) {
	loc := m.Location
	if loc == nil {
		loc = time.UTC
	}
	date := model.DateOf(day, loc)
	m.mu.Lock()
	m.requests = append(m.requests, date)
	m.mu.Unlock()

	if err := wait(ctx, m.Delay); err != nil {
		return nil, err
	}
	if err := m.Errs[date]; err != nil {
		return nil, err
	}
	return append(model.PriceSeries(nil), m.ByDate[date]...), nil
}

// Requests returns the dates requested so far, in call order.
func (m *MockPriceFetcher) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// HourlyPrices builds a day of hourly prices starting at local midnight, for mocks and tests.
func HourlyPrices(day time.Time, loc *time.Location, price func(hour int) float64) model.PriceSeries {
	d := day.In(loc)
	midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	out := make(model.PriceSeries, 0, 24)
	for h := 0; h < 24; h++ {
		out = append(out, model.PricePoint{Timestamp: midnight.Add(time.Duration(h) * time.Hour), Price: price(h)})
	}
	return out
}
