package collector

import (
	"context"
	"time"

	"SolarBudget/internal/model"
)

// ForecastFetcher retrieves the current solar production forecast.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context) (model.ForecastSeries, error)
	Name() string
}

// PriceFetcher retrieves day-ahead prices for one delivery date.
type PriceFetcher interface {
	FetchPrices(ctx context.Context, day time.Time) (model.PriceSeries, error)
	Name() string
}
