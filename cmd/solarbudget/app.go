package main

import (
	"fmt"
	"time"

	"SolarBudget/internal/budget"
	"SolarBudget/internal/collector"
	"SolarBudget/internal/config"
	"SolarBudget/internal/logger"
	"SolarBudget/internal/reconcile"
	"SolarBudget/internal/store"
)

// loadConfig reads the config and applies its logging section.
func loadConfig(path string, requireUpstream bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if requireUpstream {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, nil
}

func policyFrom(cfg *config.Config, loc *time.Location) reconcile.Policy {
	p := reconcile.DefaultPolicy(loc)
	p.ForecastMaxAge = cfg.Policy.ForecastMaxAge
	p.DayStart = cfg.Policy.DayStart
	p.PricePublicationHour = cfg.Policy.PricePublicationHour
	p.UpstreamTimeout = cfg.Policy.UpstreamTimeout
	return p
}

// newService wires store, upstream clients and reconcilers into the budget service.
func newService(cfg *config.Config, st store.SnapshotStore) (*budget.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	httpOpts := collector.HTTPOptions{
		ProxyURL: cfg.Proxy,
		Timeout:  30 * time.Second,
		RPS:      cfg.HTTP.RPS,
		Burst:    cfg.HTTP.Burst,
	}
	forecast := collector.NewSolcastFetcher(collector.SolcastOptions{
		BaseURL:  cfg.Solcast.BaseURL,
		SiteID:   cfg.Solcast.SiteID,
		APIKey:   cfg.Solcast.APIKey,
		AuthMode: collector.AuthMode(cfg.Solcast.AuthMode),
		Location: loc,
		HTTP:     httpOpts,
	})
	prices := collector.NewPSEFetcher(collector.PSEOptions{
		BaseURL:     cfg.PSE.BaseURL,
		FilterField: cfg.PSE.FilterField,
		Location:    loc,
		HTTP:        httpOpts,
	})
	logger.Component("main").WithField("forecast", forecast.Name()).WithField("prices", prices.Name()).Info("upstreams configured")

	rc := reconcile.NewContext(reconcile.SystemClock{}, st, forecast, prices, policyFrom(cfg, loc))
	return budget.New(rc, cfg.Policy.RequestTimeout), nil
}
