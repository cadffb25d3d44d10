// Package budget runs the reconcile-then-aggregate pipeline behind one call.
package budget

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"SolarBudget/internal/aggregate"
	"SolarBudget/internal/logger"
	"SolarBudget/internal/model"
	"SolarBudget/internal/reconcile"
)

// Service is the presentation boundary: everything that renders a summary
// (HTTP, Telegram, CLI) goes through it.
type Service struct {
	rc       *reconcile.Context
	forecast *reconcile.ForecastReconciler
	prices   *reconcile.PriceReconciler
	timeout  time.Duration
	log      *logrus.Entry
}

// New builds the service. requestTimeout bounds each call; zero means no
// bound beyond the caller's context.
func New(rc *reconcile.Context, requestTimeout time.Duration) *Service {
	return &Service{
		rc:       rc,
		forecast: reconcile.NewForecastReconciler(rc),
		prices:   reconcile.NewPriceReconciler(rc),
		timeout:  requestTimeout,
		log:      logger.Component("budget"),
	}
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Forecast returns the reconciled forecast.
func (s *Service) Forecast(ctx context.Context) (model.ForecastSeries, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.forecast.Get(ctx)
}

// Prices returns the reconciled prices.
func (s *Service) Prices(ctx context.Context) (model.PriceSeries, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.prices.Get(ctx)
}

// Summary reconciles both series concurrently and aggregates them. Either
// series being unavailable fails the call.
func (s *Service) Summary(ctx context.Context) (model.Summary, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		forecast model.ForecastSeries
		prices   model.PriceSeries
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		forecast, err = s.forecast.Get(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		prices, err = s.prices.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.WithError(err).Error("summary failed")
		return model.Summary{}, err
	}

	sum := aggregate.Aggregate(forecast, prices, s.rc.Clock.Now(), s.rc.Policy.Location)
	s.log.WithFields(logrus.Fields{
		"forecast_points": len(forecast),
		"price_points":    len(prices),
		"valued_points":   len(sum.Points),
	}).Debug("summary built")
	return sum, nil
}
