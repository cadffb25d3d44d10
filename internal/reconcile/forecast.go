package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"SolarBudget/internal/apperror"
	"SolarBudget/internal/codec"
	"SolarBudget/internal/metrics"
	"SolarBudget/internal/model"
	"SolarBudget/internal/series"
)

// forecastReadDepth leaves room for one invalid snapshot ahead of latest and previous.
const forecastReadDepth = 3

// cachedForecast is a stored snapshot that passed validation.
type cachedForecast struct {
	snap   model.Snapshot
	series model.ForecastSeries
}

// ForecastReconciler serves a validated, gap-repaired forecast on the 15-minute grid.
type ForecastReconciler struct {
	rc *Context
}

func NewForecastReconciler(rc *Context) *ForecastReconciler {
	return &ForecastReconciler{rc: rc}
}

// Get returns the forecast, refetching when the latest snapshot is older
// than the policy allows. It fails only when no valid snapshot exists and
// the upstream fetch fails, with an error for which apperror.IsUnavailable holds.
func (r *ForecastReconciler) Get(ctx context.Context) (model.ForecastSeries, error) {
	now := r.rc.now()
	latest, previous := r.load(ctx)

	out, _, err := firstOf(ctx, r.rc, model.SeriesForecast,
		strategy[model.ForecastSeries]{metrics.SourceCache, func(context.Context) (model.ForecastSeries, error) {
			if latest == nil || now.Sub(latest.snap.FetchedAt) > r.rc.Policy.ForecastMaxAge {
				return nil, errSkip
			}
			return r.backfill(latest.series, now, previous), nil
		}},
		strategy[model.ForecastSeries]{metrics.SourceUpstream, func(ctx context.Context) (model.ForecastSeries, error) {
			return r.refresh(ctx, now, latest, previous)
		}},
		strategy[model.ForecastSeries]{metrics.SourceStaleCache, func(context.Context) (model.ForecastSeries, error) {
			if latest == nil {
				return nil, errSkip
			}
			return r.backfill(latest.series, now, previous), nil
		}},
	)
	if err != nil {
		return nil, err
	}
	return out.In(r.rc.Policy.Location), nil
}

// load returns the two newest valid snapshots. A snapshot that fails
// validation is treated as absent and flagged in the store, so an older
// valid one takes its place.
func (r *ForecastReconciler) load(ctx context.Context) (latest, previous *cachedForecast) {
	snaps, err := r.rc.Store.ReadLatest(ctx, model.SeriesForecast, forecastReadDepth)
	if err != nil {
		r.rc.recovered(model.SeriesForecast, "read", apperror.New(apperror.KindStore, "read snapshots", err))
		return nil, nil
	}
	var valid []*cachedForecast
	for _, snap := range snaps {
		if len(valid) == 2 {
			break
		}
		s, err := r.validate(snap)
		if err != nil {
			r.evict(ctx, snap, err)
			continue
		}
		valid = append(valid, &cachedForecast{snap: snap, series: s})
	}
	switch len(valid) {
	case 0:
		return nil, nil
	case 1:
		return valid[0], nil
	}
	return valid[0], valid[1]
}

func (r *ForecastReconciler) validate(snap model.Snapshot) (model.ForecastSeries, error) {
	rep, err := codec.DecodeForecast(snap.Payload, r.rc.Policy.Location)
	if err != nil {
		return nil, err
	}
	if len(rep.Issues) > 0 {
		return nil, apperror.Malformed(fmt.Sprintf("%d malformed records", len(rep.Issues)), fmt.Errorf("%s", rep.Issues[0]))
	}
	if len(rep.Values) == 0 {
		return nil, apperror.Malformed("empty forecast", nil)
	}
	return series.NormalizeForecast(rep.Values), nil
}

func (r *ForecastReconciler) evict(ctx context.Context, snap model.Snapshot, reason error) {
	metrics.InvalidSnapshots.WithLabelValues(model.SeriesForecast).Inc()
	r.rc.log.WithFields(logrus.Fields{"series": model.SeriesForecast, "snapshot": snap.ID}).
		WithError(reason).Warn("discarding invalid snapshot")
	if err := r.rc.Store.MarkInvalid(ctx, snap.ID); err != nil {
		r.rc.log.WithError(err).WithField("snapshot", snap.ID).Error("mark snapshot invalid")
	}
}

// refresh fetches through the single-flight gate, resamples, repairs the
// morning gap from the snapshots it supersedes and persists the result.
func (r *ForecastReconciler) refresh(ctx context.Context, now time.Time, latest, previous *cachedForecast) (model.ForecastSeries, error) {
	v, err := r.rc.gate.do(ctx, model.SeriesForecast, func(ctx context.Context) (any, error) {
		fetched, err := r.rc.Forecast.FetchForecast(ctx)
		if err != nil {
			return nil, err
		}
		s := series.Resample(fetched.In(r.rc.Policy.Location), model.SlotDuration)
		if len(s) == 0 {
			return nil, apperror.Malformed("forecast empty after normalisation", nil)
		}
		s = r.backfill(s, now, latest, previous)

		payload, err := codec.EncodeForecast(s)
		if err != nil {
			return nil, err
		}
		_, err = r.rc.Store.Write(ctx, model.SeriesForecast, payload, now)
		metrics.ObserveWrite(model.SeriesForecast, err)
		if err != nil {
			r.rc.recovered(model.SeriesForecast, "write", apperror.New(apperror.KindStore, "write snapshot", err))
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return append(model.ForecastSeries(nil), v.(model.ForecastSeries)...), nil
}

func (r *ForecastReconciler) backfill(s model.ForecastSeries, now time.Time, sources ...*cachedForecast) model.ForecastSeries {
	var src []model.ForecastSeries
	for _, c := range sources {
		if c != nil {
			src = append(src, c.series)
		}
	}
	out, added := Backfill(s, r.rc.Policy.expectedStart(now), now, r.rc.Policy.Location, src...)
	if added > 0 {
		r.rc.log.WithFields(logrus.Fields{"series": model.SeriesForecast, "points": added}).Info("backfilled morning gap")
	}
	return out
}

// Backfill repairs a forecast that begins after expectedStart by prepending
// points from older series that fall on now's local date and strictly
// before the current earliest point. Sources are tried in order. Existing
// points are never replaced and nothing later than the earliest point is added.
func Backfill(s model.ForecastSeries, expectedStart, now time.Time, loc *time.Location, sources ...model.ForecastSeries) (model.ForecastSeries, int) {
	earliest, ok := s.Earliest()
	if !ok {
		return s, 0
	}
	out := append(model.ForecastSeries(nil), s...)
	added := 0
	for _, src := range sources {
		if !earliest.After(expectedStart) {
			break
		}
		var prefix model.ForecastSeries
		for _, p := range src {
			if p.Timestamp.Before(earliest) && model.SameDate(p.Timestamp, now, loc) {
				prefix = append(prefix, p)
			}
		}
		if len(prefix) == 0 {
			continue
		}
		out = append(prefix, out...)
		out = series.NormalizeForecast(out)
		added += len(prefix)
		earliest = out[0].Timestamp
	}
	return out, added
}
