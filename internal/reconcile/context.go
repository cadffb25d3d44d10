// Package reconcile decides when cached snapshots are fresh enough to serve,
// refreshes them from upstream when they are not, and repairs what it serves.
package reconcile

import (
	"time"

	"github.com/sirupsen/logrus"

	"SolarBudget/internal/apperror"
	"SolarBudget/internal/collector"
	"SolarBudget/internal/logger"
	"SolarBudget/internal/metrics"
	"SolarBudget/internal/store"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Policy holds the staleness and repair thresholds.
type Policy struct {
	// ForecastMaxAge is how old the latest forecast snapshot may be before a refetch.
	ForecastMaxAge time.Duration
	// DayStart is the local wall-clock offset from midnight at which a forecast is expected to begin.
	DayStart time.Duration
	// PricePublicationHour is the local hour from which tomorrow's prices are expected.
	PricePublicationHour int
	// UpstreamTimeout bounds a refresh, including the snapshot write.
	UpstreamTimeout time.Duration
	Location        *time.Location
}

// DefaultPolicy returns the thresholds the service has always run with.
func DefaultPolicy(loc *time.Location) Policy {
	if loc == nil {
		loc = time.UTC
	}
	return Policy{
		ForecastMaxAge:       30 * time.Minute,
		DayStart:             5 * time.Hour,
		PricePublicationHour: 16,
		UpstreamTimeout:      45 * time.Second,
		Location:             loc,
	}
}

// expectedStart is DayStart as wall-clock time on now's local date.
func (p Policy) expectedStart(now time.Time) time.Time {
	d := now.In(p.Location)
	h := int(p.DayStart / time.Hour)
	m := int((p.DayStart % time.Hour) / time.Minute)
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, p.Location)
}

// Context carries the collaborators shared by both reconcilers. Build it
// once at startup; it is safe for concurrent use.
type Context struct {
	Clock    Clock
	Store    store.SnapshotStore
	Forecast collector.ForecastFetcher
	Prices   collector.PriceFetcher
	Policy   Policy

	gate *gate
	log  *logrus.Entry
}

// NewContext wires the collaborators. A nil clock means the system clock.
func NewContext(clock Clock, st store.SnapshotStore, forecast collector.ForecastFetcher, prices collector.PriceFetcher, policy Policy) *Context {
	if clock == nil {
		clock = SystemClock{}
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &Context{
		Clock:    clock,
		Store:    st,
		Forecast: forecast,
		Prices:   prices,
		Policy:   policy,
		gate:     newGate(policy.UpstreamTimeout),
		log:      logger.Component("reconcile"),
	}
}

func (c *Context) now() time.Time {
	return c.Clock.Now().In(c.Policy.Location)
}

// recovered makes an error that did not fail the request observable.
func (c *Context) recovered(series, stage string, err error) {
	kind := apperror.KindOf(err)
	metrics.RecoveredErrors.WithLabelValues(series, string(kind)).Inc()
	c.log.WithFields(logrus.Fields{
		"series": series,
		"stage":  stage,
		"kind":   kind,
	}).WithError(err).Warn("recovered from error")
}
