package reconcile

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"SolarBudget/internal/apperror"
	"SolarBudget/internal/codec"
	"SolarBudget/internal/metrics"
	"SolarBudget/internal/model"
	"SolarBudget/internal/series"
)

// PriceReconciler serves day-ahead prices, refetching on daily rollover and
// once tomorrow's prices should have been published.
type PriceReconciler struct {
	rc *Context
}

func NewPriceReconciler(rc *Context) *PriceReconciler {
	return &PriceReconciler{rc: rc}
}

// Get returns today's prices, plus tomorrow's once published. It fails
// only when no usable snapshot exists and every fetch attempt fails.
func (r *PriceReconciler) Get(ctx context.Context) (model.PriceSeries, error) {
	now := r.rc.now()
	latest, cached := r.load(ctx)
	stale := r.Stale(now, latest, cached)

	out, _, err := firstOf(ctx, r.rc, model.SeriesPrices,
		strategy[model.PriceSeries]{metrics.SourceCache, func(context.Context) (model.PriceSeries, error) {
			if stale {
				return nil, errSkip
			}
			return cached, nil
		}},
		strategy[model.PriceSeries]{metrics.SourceUpstream, func(ctx context.Context) (model.PriceSeries, error) {
			return r.refresh(ctx, now)
		}},
		strategy[model.PriceSeries]{metrics.SourceStaleCache, func(context.Context) (model.PriceSeries, error) {
			if len(cached) == 0 {
				return nil, errSkip
			}
			return cached, nil
		}},
	)
	if err != nil {
		return nil, err
	}
	return out.In(r.rc.Policy.Location), nil
}

// Stale reports whether the latest snapshot must be refreshed: it is
// missing or unparseable, it was fetched on an earlier local date, or the
// publication hour has passed without tomorrow's prices in it.
func (r *PriceReconciler) Stale(now time.Time, latest *model.Snapshot, cached model.PriceSeries) bool {
	loc := r.rc.Policy.Location
	switch {
	case latest == nil, len(cached) == 0:
		return true
	case model.DateOf(latest.FetchedAt, loc) < model.DateOf(now, loc):
		return true
	case now.In(loc).Hour() >= r.rc.Policy.PricePublicationHour && !cached.HasDate(now.AddDate(0, 0, 1), loc):
		return true
	}
	return false
}

// load reads the newest snapshot. Individual bad records are dropped; a
// payload with no usable record yields an empty series.
func (r *PriceReconciler) load(ctx context.Context) (*model.Snapshot, model.PriceSeries) {
	snaps, err := r.rc.Store.ReadLatest(ctx, model.SeriesPrices, 1)
	if err != nil {
		r.rc.recovered(model.SeriesPrices, "read", apperror.New(apperror.KindStore, "read snapshots", err))
		return nil, nil
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	latest := snaps[0]
	rep, err := codec.DecodePrices(latest.Payload, r.rc.Policy.Location)
	if err != nil {
		r.rc.recovered(model.SeriesPrices, "parse cache", err)
		return &latest, nil
	}
	for _, issue := range rep.Issues {
		r.rc.log.WithFields(logrus.Fields{"series": model.SeriesPrices, "snapshot": latest.ID, "issue": issue.String()}).
			Warn("dropping malformed cached price")
	}
	metrics.DroppedRecords.WithLabelValues(model.SeriesPrices).Add(float64(rep.Dropped()))
	return &latest, series.NormalizePrices(rep.Values)
}

// refresh fetches today, and tomorrow once the publication hour has passed,
// through the single-flight gate. A failed tomorrow fetch keeps today.
func (r *PriceReconciler) refresh(ctx context.Context, now time.Time) (model.PriceSeries, error) {
	v, err := r.rc.gate.do(ctx, model.SeriesPrices, func(ctx context.Context) (any, error) {
		combined, err := r.rc.Prices.FetchPrices(ctx, now)
		if err != nil {
			return nil, err
		}
		if now.In(r.rc.Policy.Location).Hour() >= r.rc.Policy.PricePublicationHour {
			tomorrow, err := r.rc.Prices.FetchPrices(ctx, now.AddDate(0, 0, 1))
			if err != nil {
				r.rc.recovered(model.SeriesPrices, "fetch tomorrow", err)
			} else {
				combined = append(combined, tomorrow...)
			}
		}
		combined = series.NormalizePrices(combined.In(r.rc.Policy.Location))
		if len(combined) == 0 {
			return nil, apperror.Malformed("no prices published for "+model.DateOf(now, r.rc.Policy.Location), nil)
		}

		payload, err := codec.EncodePrices(combined)
		if err != nil {
			return nil, err
		}
		_, err = r.rc.Store.Write(ctx, model.SeriesPrices, payload, now)
		metrics.ObserveWrite(model.SeriesPrices, err)
		if err != nil {
			r.rc.recovered(model.SeriesPrices, "write", apperror.New(apperror.KindStore, "write snapshot", err))
		}
		return combined, nil
	})
	if err != nil {
		return nil, err
	}
	return append(model.PriceSeries(nil), v.(model.PriceSeries)...), nil
}
