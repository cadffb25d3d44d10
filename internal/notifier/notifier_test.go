package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SolarBudget/internal/model"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []map[string]string
	failures int32
	updates  []string
	served   atomic.Bool
}

func (f *fakeBot) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if atomic.AddInt32(&f.failures, -1) >= 0 {
				http.Error(w, "flood", http.StatusTooManyRequests)
				return
			}
			var payload map[string]string
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.mu.Lock()
			f.sent = append(f.sent, payload)
			f.mu.Unlock()
			fmt.Fprint(w, `{"ok":true}`)
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if f.served.Swap(true) {
				fmt.Fprint(w, `{"ok":true,"result":[]}`)
				return
			}
			var parts []string
			for i, text := range f.updates {
				parts = append(parts, fmt.Sprintf(`{"update_id":%d,"message":{"text":%q}}`, i+1, text))
			}
			fmt.Fprintf(w, `{"ok":true,"result":[%s]}`, strings.Join(parts, ","))
		default:
			http.NotFound(w, r)
		}
	}
}

func (f *fakeBot) messages() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.sent...)
}

func newBot(t *testing.T, f *fakeBot) *TelegramNotifier {
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.APIBase = srv.URL
	return tn
}

func TestSend(t *testing.T) {
	f := &fakeBot{}
	tn := newBot(t, f)

	require.NoError(t, tn.Send(context.Background(), "<b>hi</b>"))
	msgs := f.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "42", msgs[0]["chat_id"])
	assert.Equal(t, "HTML", msgs[0]["parse_mode"])
	assert.Equal(t, "<b>hi</b>", msgs[0]["text"])
}

func TestSendReportsAPIError(t *testing.T) {
	f := &fakeBot{failures: 1}
	tn := newBot(t, f)
	err := tn.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestSendWithRetryRecovers(t *testing.T) {
	f := &fakeBot{failures: 2}
	tn := newBot(t, f)
	require.NoError(t, tn.sendWithBackoff(context.Background(), "hi", 3, time.Millisecond))
	assert.Len(t, f.messages(), 1)
}

func TestSendWithRetryExhausted(t *testing.T) {
	f := &fakeBot{failures: 10}
	tn := newBot(t, f)
	err := tn.sendWithBackoff(context.Background(), "hi", 1, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")
}

func TestPollingRepliesToCommands(t *testing.T) {
	f := &fakeBot{updates: []string{" /price ", "/unknown"}}
	tn := newBot(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []string
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		tn.StartPolling(ctx, func(_ context.Context, cmd string) string {
			mu.Lock()
			got = append(got, cmd)
			mu.Unlock()
			if cmd == "/price" {
				return "price reply"
			}
			return ""
		})
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/price", "/unknown"}, got)
	assert.Equal(t, "price reply", f.messages()[0]["text"])
}

func TestMoney(t *testing.T) {
	assert.Equal(t, money.New(123457, "PLN").Display(), Money(1234.567, "PLN"))
	assert.Equal(t, money.New(-50, "EUR").Display(), Money(-0.5, "EUR"))
	assert.Equal(t, "1.50 XYZ", Money(1.5, "XYZ"))
}

func summaryFixture() *model.Summary {
	loc := time.UTC
	at := func(d, h int) time.Time { return time.Date(2025, 6, d, h, 0, 0, 0, loc) }
	vp := func(ts time.Time, pv, price float64) model.ValuedPoint {
		v := pv * price / 1000 * 0.25
		return model.ValuedPoint{
			ForecastPoint: model.ForecastPoint{Timestamp: ts, PVEstimate: pv, PVEstimate10: pv / 2, PVEstimate90: pv * 2},
			Price:         price, Value: v, Value10: v / 2, Value90: v * 2,
		}
	}
	today := []model.ValuedPoint{vp(at(10, 11), 2, 400), vp(at(10, 13), 4, 300)}
	return &model.Summary{
		GeneratedAt: at(10, 12),
		Points:      today,
		Today:       today,
		DailyTotals: []model.DailyTotal{
			{Date: "2025-06-10", Energy: model.Estimate{Central: 1.5, P10: 0.75, P90: 3}, Value: model.Estimate{Central: 0.5, P10: 0.25, P90: 1}},
			{Date: "2025-06-11", Energy: model.Estimate{Central: 20, P10: 10, P90: 30}},
		},
		Produced:     model.Split{Energy: model.Estimate{Central: 0.5}, Value: model.Estimate{Central: 0.2}},
		Remaining:    model.Split{Energy: model.Estimate{Central: 1}, Value: model.Estimate{Central: 0.3}},
		CurrentPrice: &model.PricePoint{Timestamp: at(10, 12), Price: 350},
		PricesToday: model.PriceSeries{
			{Timestamp: at(10, 11), Price: 400},
			{Timestamp: at(10, 12), Price: 350},
			{Timestamp: at(10, 13), Price: 300},
		},
	}
}

func TestFormatDailyReport(t *testing.T) {
	out := FormatDailyReport(summaryFixture(), "PLN")
	assert.Contains(t, out, "2025-06-10")
	assert.Contains(t, out, "Produced so far")
	assert.Contains(t, out, "0.50 kWh")
	assert.Contains(t, out, "Tomorrow</b> (2025-06-11)")
	assert.Contains(t, out, "prices not published yet")
}

func TestFormatDay(t *testing.T) {
	sum := summaryFixture()
	out := FormatDay(sum, sum.Today, "2025-06-10", "PLN")
	assert.Contains(t, out, "1.50 kWh")
	assert.Contains(t, out, "Best slot: 13:00")

	assert.Contains(t, FormatDay(sum, nil, "2025-06-11", "PLN"), "prices not published yet")
	assert.Contains(t, FormatDay(sum, nil, "2025-06-12", "PLN"), "No forecast")
}

func TestFormatPrice(t *testing.T) {
	out := FormatPrice(summaryFixture(), "PLN")
	assert.Contains(t, out, "12:00")
	assert.Contains(t, out, Money(350, "PLN"))
	assert.Contains(t, out, "low: "+Money(300, "PLN")+"/MWh at 13:00")
	assert.Contains(t, out, "high: "+Money(400, "PLN")+"/MWh at 11:00")
	assert.Contains(t, out, "average: "+Money(350, "PLN"))
	assert.Contains(t, out, "(average)")

	assert.Contains(t, FormatPrice(&model.Summary{}, "PLN"), "No price")
}

func TestFormatUnavailable(t *testing.T) {
	assert.Contains(t, FormatUnavailable(errors.New("boom")), "boom")
}
