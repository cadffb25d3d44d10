package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SolarBudget/internal/budget"
	"SolarBudget/internal/collector"
	"SolarBudget/internal/model"
	"SolarBudget/internal/reconcile"
	"SolarBudget/internal/store"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) SendWithRetry(_ context.Context, text string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return nil
}

func (r *recordingSender) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

var now = time.Date(2025, 6, 10, 17, 0, 0, 0, time.UTC)

func newScheduler(t *testing.T, forecastErr error) (*Scheduler, *recordingSender, *collector.MockPriceFetcher) {
	t.Helper()
	var series model.ForecastSeries
	for ts := time.Date(2025, 6, 10, 5, 0, 0, 0, time.UTC); ts.Before(time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)); ts = ts.Add(model.SlotDuration) {
		series = append(series, model.ForecastPoint{Timestamp: ts, PVEstimate: 1, PVEstimate10: 0.5, PVEstimate90: 1.5})
	}
	forecast := &collector.MockForecastFetcher{Series: series, Err: forecastErr}
	prices := &collector.MockPriceFetcher{Location: time.UTC, ByDate: map[string]model.PriceSeries{
		"2025-06-10": collector.HourlyPrices(now, time.UTC, func(h int) float64 { return 100 + float64(h) }),
		"2025-06-11": collector.HourlyPrices(now.AddDate(0, 0, 1), time.UTC, func(h int) float64 { return 200 + float64(h) }),
	}}
	rc := reconcile.NewContext(fixedClock(now), store.NewMemoryStore(), forecast, prices, reconcile.DefaultPolicy(time.UTC))
	sender := &recordingSender{}
	return NewScheduler(context.Background(), budget.New(rc, time.Second), sender, "PLN"), sender, prices
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newScheduler(t, nil)
	require.NoError(t, s.RegisterAll(Schedule{Forecast: "0 */30 * * * *", Prices: "0 5 0,16 * * *", Report: "0 0 20 * * *"}))
	assert.Len(t, s.Cron.Entries(), 3)
}

func TestRegisterAllWithoutNotifierSkipsReport(t *testing.T) {
	s, _, _ := newScheduler(t, nil)
	s.Notifier = nil
	require.NoError(t, s.RegisterAll(Schedule{Forecast: "0 */30 * * * *", Prices: "0 5 0,16 * * *", Report: "0 0 20 * * *"}))
	assert.Len(t, s.Cron.Entries(), 2)
}

func TestRegisterAllRejectsBadSpec(t *testing.T) {
	s, _, _ := newScheduler(t, nil)
	err := s.RegisterAll(Schedule{Forecast: "every half hour", Prices: "0 5 0,16 * * *", Report: "0 0 20 * * *"})
	assert.ErrorContains(t, err, "register forecast task")
}

func TestWarmupFetchesBothDaysAfterPublication(t *testing.T) {
	s, _, prices := newScheduler(t, nil)
	s.RunWarmupNow()
	assert.Equal(t, []string{"2025-06-10", "2025-06-11"}, prices.Requests())

	// second warm-up is served from the cache
	s.RunWarmupNow()
	assert.Len(t, prices.Requests(), 2)
}

func TestDailyReportSends(t *testing.T) {
	s, sender, _ := newScheduler(t, nil)
	s.dailyReport()
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Remaining today")
	assert.Contains(t, msgs[0], "Tomorrow</b> (2025-06-11)")
}

func TestDailyReportSendsUnavailable(t *testing.T) {
	s, sender, _ := newScheduler(t, errors.New("connection refused"))
	s.dailyReport()
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "unavailable")
}

func TestHandleCommand(t *testing.T) {
	s, _, _ := newScheduler(t, nil)
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/today"), "2025-06-10")
	assert.Contains(t, s.HandleCommand(ctx, "/tomorrow@SolarBudgetBot"), "2025-06-11")
	assert.Contains(t, s.HandleCommand(ctx, "/PRICE"), "Spot price")
	assert.Contains(t, s.HandleCommand(ctx, "/report"), "Produced so far")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "Available commands")
	assert.Contains(t, s.HandleCommand(ctx, ""), "Available commands")
}

func TestHandleCommandUnavailable(t *testing.T) {
	s, _, _ := newScheduler(t, errors.New("connection refused"))
	assert.Contains(t, s.HandleCommand(context.Background(), "/today"), "Data unavailable")
}
