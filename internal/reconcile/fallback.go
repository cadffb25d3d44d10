package reconcile

import (
	"context"
	"errors"

	"SolarBudget/internal/apperror"
	"SolarBudget/internal/metrics"
)

// errSkip marks a strategy that does not apply to the current state.
var errSkip = errors.New("strategy does not apply")

type strategy[T any] struct {
	source string
	run    func(ctx context.Context) (T, error)
}

// firstOf evaluates strategies in order and returns the first success.
// Failures before a success are reported as recovered; if nothing
// succeeds the caller gets an Unavailable error wrapping every failure.
func firstOf[T any](ctx context.Context, c *Context, series string, strategies ...strategy[T]) (T, string, error) {
	type failure struct {
		source string
		err    error
	}
	var failures []failure
	for _, s := range strategies {
		v, err := s.run(ctx)
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			failures = append(failures, failure{s.source, err})
			continue
		}
		for _, f := range failures {
			c.recovered(series, f.source, f.err)
		}
		metrics.Served.WithLabelValues(series, s.source).Inc()
		return v, s.source, nil
	}

	var zero T
	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, f.err)
	}
	metrics.Unavailable.WithLabelValues(series).Inc()
	err := apperror.Unavailable(series, errors.Join(errs...))
	c.log.WithField("series", series).WithError(err).Error("no valid data from any source")
	return zero, "", err
}
