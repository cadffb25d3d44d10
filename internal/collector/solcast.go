package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"SolarBudget/internal/apperror"
	"SolarBudget/internal/codec"
	"SolarBudget/internal/logger"
	"SolarBudget/internal/metrics"
	"SolarBudget/internal/model"
)

// DefaultSolcastBaseURL is the public Solcast API.
const DefaultSolcastBaseURL = "https://api.solcast.com.au"

// AuthMode selects how the API key is presented.
type AuthMode string

const (
	AuthBearer AuthMode = "bearer"
	AuthAPIKey AuthMode = "api_key"
)

// SolcastOptions configures SolcastFetcher.
type SolcastOptions struct {
	BaseURL  string
	SiteID   string
	APIKey   string
	AuthMode AuthMode
	Location *time.Location
	HTTP     HTTPOptions
}

// SolcastFetcher implements ForecastFetcher using the Solcast rooftop sites API.
type SolcastFetcher struct {
	BaseURL  string
	SiteID   string
	APIKey   string
	AuthMode AuthMode
	Location *time.Location

	http *upstream
	log  *logrus.Entry
}

// NewSolcastFetcher creates a fetcher. BaseURL may point at a proxy serving the same path contract.
func NewSolcastFetcher(opts SolcastOptions) *SolcastFetcher {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultSolcastBaseURL
	}
	mode := opts.AuthMode
	if mode == "" {
		mode = AuthBearer
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &SolcastFetcher{
		BaseURL:  base,
		SiteID:   opts.SiteID,
		APIKey:   opts.APIKey,
		AuthMode: mode,
		Location: loc,
		http:     newUpstream(opts.HTTP),
		log:      logger.Component("collector").WithField("provider", "solcast"),
	}
}

func (f *SolcastFetcher) Name() string { return "solcast" }

func (f *SolcastFetcher) endpoint() string {
	q := url.Values{"format": {"json"}}
	if f.AuthMode == AuthAPIKey && f.APIKey != "" {
		q.Set("api_key", f.APIKey)
	}
	return fmt.Sprintf("%s/rooftop_sites/%s/forecasts?%s", f.BaseURL, url.PathEscape(f.SiteID), q.Encode())
}

func (f *SolcastFetcher) FetchForecast(ctx context.Context) (series model.ForecastSeries, err error) {
	start := time.Now()
	defer func() { metrics.ObserveFetch(model.SeriesForecast, start, err) }()

	header := http.Header{}
	if f.AuthMode == AuthBearer && f.APIKey != "" {
		header.Set("Authorization", "Bearer "+f.APIKey)
	}
	body, err := f.http.get(ctx, f.endpoint(), header)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}

	var result struct {
		Forecasts *[]codec.Record `json:"forecasts"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperror.Malformed("decode forecast", err)
	}
	if result.Forecasts == nil {
		return nil, apperror.Malformed("response has no forecasts key", nil)
	}

	rep := codec.ForecastRecords(*result.Forecasts, f.Location)
	for _, issue := range rep.Issues {
		f.log.WithField("issue", issue.String()).Warn("dropping malformed forecast record")
	}
	metrics.DroppedRecords.WithLabelValues(model.SeriesForecast).Add(float64(rep.Dropped()))
	if err := rep.Err(); err != nil {
		return nil, err
	}
	if len(rep.Values) == 0 {
		return nil, apperror.Malformed("forecast list is empty", nil)
	}

	return model.ForecastSeries(rep.Values), nil
}
