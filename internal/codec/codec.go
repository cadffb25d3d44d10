// Package codec converts between model series and their JSON record form,
// used both for upstream forecast records and for stored snapshot payloads.
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"SolarBudget/internal/apperror"
	"SolarBudget/internal/model"
	"SolarBudget/internal/parse"
)

// Record is one loosely-typed JSON object.
type Record map[string]json.RawMessage

// DecodeRecords splits a JSON list payload into records.
func DecodeRecords(payload []byte) ([]Record, error) {
	var recs []Record
	if err := json.Unmarshal(payload, &recs); err != nil {
		return nil, apperror.Malformed("payload is not a list of objects", err)
	}
	return recs, nil
}

func field(rec Record, name string) (json.RawMessage, bool) {
	raw, ok := rec[name]
	if !ok || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

// ForecastRecord parses {period_end, pv_estimate, pv_estimate10, pv_estimate90}.
func ForecastRecord(i int, rec Record, loc *time.Location) parse.Result[model.ForecastPoint] {
	raw, ok := field(rec, "period_end")
	if !ok {
		return parse.Fail[model.ForecastPoint](i, "missing period_end", nil)
	}
	s, _ := parse.String(raw)
	ts, err := parse.Instant(s, loc)
	if err != nil {
		return parse.Fail[model.ForecastPoint](i, "period_end", err)
	}

	var vals [3]float64
	for k, name := range []string{"pv_estimate", "pv_estimate10", "pv_estimate90"} {
		raw, ok := field(rec, name)
		if !ok {
			return parse.Fail[model.ForecastPoint](i, "missing "+name, nil)
		}
		if vals[k], err = parse.Number(raw); err != nil {
			return parse.Fail[model.ForecastPoint](i, name, err)
		}
	}
	return parse.Ok(model.ForecastPoint{
		Timestamp:    ts,
		PVEstimate:   vals[0],
		PVEstimate10: vals[1],
		PVEstimate90: vals[2],
	})
}

// ForecastRecords parses every record, keeping failures in the report.
func ForecastRecords(recs []Record, loc *time.Location) parse.Report[model.ForecastPoint] {
	results := make([]parse.Result[model.ForecastPoint], len(recs))
	for i, rec := range recs {
		results[i] = ForecastRecord(i, rec, loc)
	}
	return parse.Collect(results)
}

// DecodeForecast parses a stored forecast payload.
func DecodeForecast(payload []byte, loc *time.Location) (parse.Report[model.ForecastPoint], error) {
	recs, err := DecodeRecords(payload)
	if err != nil {
		return parse.Report[model.ForecastPoint]{}, err
	}
	return ForecastRecords(recs, loc), nil
}

// EncodeForecast renders a series as a stored payload.
func EncodeForecast(s model.ForecastSeries) ([]byte, error) {
	if s == nil {
		s = model.ForecastSeries{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode forecast: %w", err)
	}
	return b, nil
}

// PriceRecord parses a stored {datetime, price} record. Legacy range
// timestamps such as "2025-03-24-13:00 - 14:00" are accepted.
func PriceRecord(i int, rec Record, loc *time.Location) parse.Result[model.PricePoint] {
	raw, ok := field(rec, "datetime")
	if !ok {
		return parse.Fail[model.PricePoint](i, "missing datetime", nil)
	}
	s, _ := parse.String(raw)
	ts, err := parse.Instant(s, loc)
	if err != nil {
		return parse.Fail[model.PricePoint](i, "datetime", err)
	}
	raw, ok = field(rec, "price")
	if !ok {
		return parse.Fail[model.PricePoint](i, "missing price", nil)
	}
	price, err := parse.Number(raw)
	if err != nil {
		return parse.Fail[model.PricePoint](i, "price", err)
	}
	return parse.Ok(model.PricePoint{Timestamp: ts, Price: price})
}

// DecodePrices parses a stored price payload.
func DecodePrices(payload []byte, loc *time.Location) (parse.Report[model.PricePoint], error) {
	recs, err := DecodeRecords(payload)
	if err != nil {
		return parse.Report[model.PricePoint]{}, err
	}
	results := make([]parse.Result[model.PricePoint], len(recs))
	for i, rec := range recs {
		results[i] = PriceRecord(i, rec, loc)
	}
	return parse.Collect(results), nil
}

// EncodePrices renders a series as a stored payload.
func EncodePrices(s model.PriceSeries) ([]byte, error) {
	if s == nil {
		s = model.PriceSeries{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode prices: %w", err)
	}
	return b, nil
}
