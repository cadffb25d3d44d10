package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"SolarBudget/internal/apperror"
	"SolarBudget/internal/codec"
	"SolarBudget/internal/logger"
	"SolarBudget/internal/metrics"
	"SolarBudget/internal/model"
	"SolarBudget/internal/parse"
)

// DefaultPSEBaseURL is the PSE RCE price report endpoint.
const DefaultPSEBaseURL = "https://api.raporty.pse.pl/api/rce-pln"

// PriceRecordFormat identifies one of the known PSE response shapes.
type PriceRecordFormat int

const (
	FormatUnknown PriceRecordFormat = iota
	// FormatLegacyList is a bare list of {doba, udtczas_oreb, rce_pln}.
	FormatLegacyList
	// FormatValueEnvelope is {value: [{business_date|doba, dtime|period|udtczas_oreb, rce_pln}]}.
	FormatValueEnvelope
)

func (f PriceRecordFormat) String() string {
	switch f {
	case FormatLegacyList:
		return "legacy_list"
	case FormatValueEnvelope:
		return "value_envelope"
	default:
		return "unknown"
	}
}

// DetectPriceFormat inspects the top-level JSON shape of a PSE response.
func DetectPriceFormat(body []byte) PriceRecordFormat {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return FormatUnknown
	}
	switch trimmed[0] {
	case '[':
		return FormatLegacyList
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return FormatUnknown
		}
		if _, ok := envelope["value"]; ok {
			return FormatValueEnvelope
		}
	}
	return FormatUnknown
}

// ParsePriceResponse detects the response format and parses its records.
func ParsePriceResponse(body []byte, loc *time.Location) (PriceRecordFormat, parse.Report[model.PricePoint], error) {
	format := DetectPriceFormat(body)
	var (
		recs []codec.Record
		err  error
		rec  func(int, codec.Record, *time.Location) parse.Result[model.PricePoint]
	)
	switch format {
	case FormatLegacyList:
		recs, err = codec.DecodeRecords(body)
		rec = legacyPriceRecord
	case FormatValueEnvelope:
		var env struct {
			Value []codec.Record `json:"value"`
		}
		if err = json.Unmarshal(body, &env); err != nil {
			err = apperror.Malformed("decode value envelope", err)
		}
		recs = env.Value
		rec = currentPriceRecord
	default:
		return format, parse.Report[model.PricePoint]{}, apperror.Malformed("unrecognised price response shape", nil)
	}
	if err != nil {
		return format, parse.Report[model.PricePoint]{}, err
	}

	results := make([]parse.Result[model.PricePoint], len(recs))
	for i, r := range recs {
		results[i] = rec(i, r, loc)
	}
	return format, parse.Collect(results), nil
}

func str(rec codec.Record, names ...string) string {
	for _, n := range names {
		if raw, ok := rec[n]; ok {
			if s, ok := parse.String(raw); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func priceOf(i int, rec codec.Record, ts time.Time) parse.Result[model.PricePoint] {
	raw, ok := rec["rce_pln"]
	if !ok {
		return parse.Fail[model.PricePoint](i, "missing rce_pln", nil)
	}
	price, err := parse.Number(raw)
	if err != nil {
		return parse.Fail[model.PricePoint](i, "rce_pln", err)
	}
	return parse.Ok(model.PricePoint{Timestamp: ts, Price: price})
}

func legacyPriceRecord(i int, rec codec.Record, loc *time.Location) parse.Result[model.PricePoint] {
	ts, err := parse.DateAndTime(str(rec, "doba"), str(rec, "udtczas_oreb"), loc)
	if err != nil {
		return parse.Fail[model.PricePoint](i, "doba/udtczas_oreb", err)
	}
	return priceOf(i, rec, ts)
}

// currentPriceRecord prefers the full dtime string and otherwise combines
// the business date with the period or legacy time range.
func currentPriceRecord(i int, rec codec.Record, loc *time.Location) parse.Result[model.PricePoint] {
	var (
		ts  time.Time
		err error
	)
	if dtime := str(rec, "dtime"); dtime != "" {
		ts, err = parse.Instant(dtime, loc)
	} else {
		ts, err = parse.DateAndTime(str(rec, "business_date", "doba"), str(rec, "period", "udtczas_oreb"), loc)
	}
	if err != nil {
		return parse.Fail[model.PricePoint](i, "timestamp", err)
	}
	return priceOf(i, rec, ts)
}

// PSEOptions configures PSEFetcher.
type PSEOptions struct {
	BaseURL string
	// FilterField is the OData date field, "business_date" or the legacy "doba".
	FilterField string
	Location    *time.Location
	HTTP        HTTPOptions
}

// PSEFetcher implements PriceFetcher using the PSE RCE report API.
type PSEFetcher struct {
	BaseURL     string
	FilterField string
	Location    *time.Location

	http *upstream
	log  *logrus.Entry
}

func NewPSEFetcher(opts PSEOptions) *PSEFetcher {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultPSEBaseURL
	}
	field := opts.FilterField
	if field == "" {
		field = "business_date"
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &PSEFetcher{
		BaseURL:     base,
		FilterField: field,
		Location:    loc,
		http:        newUpstream(opts.HTTP),
		log:         logger.Component("collector").WithField("provider", "pse"),
	}
}

func (f *PSEFetcher) Name() string { return "pse" }

func (f *PSEFetcher) endpoint(day time.Time) string {
	q := url.Values{"$filter": {fmt.Sprintf("%s eq '%s'", f.FilterField, model.DateOf(day, f.Location))}}
	return f.BaseURL + "?" + q.Encode()
}

// FetchPrices returns the prices published for day's local date, in the
// order the provider listed them. An empty series with a nil error means
// the provider has not published that date yet.
func (f *PSEFetcher) FetchPrices(ctx context.Context, day time.Time) (series model.PriceSeries, err error) {
	start := time.Now()
	defer func() { metrics.ObserveFetch(model.SeriesPrices, start, err) }()

	body, err := f.http.get(ctx, f.endpoint(day), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch prices for %s: %w", model.DateOf(day, f.Location), err)
	}
	format, rep, err := ParsePriceResponse(body, f.Location)
	if err != nil {
		return nil, err
	}
	for _, issue := range rep.Issues {
		f.log.WithFields(logrus.Fields{"format": format.String(), "issue": issue.String()}).Warn("dropping malformed price record")
	}
	metrics.DroppedRecords.WithLabelValues(model.SeriesPrices).Add(float64(rep.Dropped()))
	if err := rep.Err(); err != nil {
		return nil, err
	}

	return model.PriceSeries(rep.Values), nil
}
