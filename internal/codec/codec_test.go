package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SolarBudget/internal/apperror"
	"SolarBudget/internal/model"
)

func TestForecastRoundTripKeepsInstants(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	in := model.ForecastSeries{
		{Timestamp: time.Date(2025, 6, 10, 7, 0, 0, 0, loc), PVEstimate: 1.5, PVEstimate10: 1, PVEstimate90: 2},
		{Timestamp: time.Date(2025, 6, 10, 7, 15, 0, 0, loc), PVEstimate: 1.75, PVEstimate10: 1.2, PVEstimate90: 2.4},
	}
	payload, err := EncodeForecast(in)
	require.NoError(t, err)

	rep, err := DecodeForecast(payload, loc)
	require.NoError(t, err)
	require.Len(t, rep.Values, 2)
	assert.Empty(t, rep.Issues)
	assert.True(t, rep.Values[0].Timestamp.Equal(in[0].Timestamp))
	assert.Equal(t, 2.4, rep.Values[1].PVEstimate90)
}

func TestDecodeForecastDropsBadRecords(t *testing.T) {
	payload := []byte(`[
		{"period_end":"2025-06-10T05:00:00Z","pv_estimate":1,"pv_estimate10":0.5,"pv_estimate90":1.5},
		{"period_end":"2025-06-10T05:15:00Z","pv_estimate":1},
		{"pv_estimate":1,"pv_estimate10":0.5,"pv_estimate90":1.5},
		{"period_end":"soon","pv_estimate":1,"pv_estimate10":0.5,"pv_estimate90":1.5}
	]`)
	rep, err := DecodeForecast(payload, time.UTC)
	require.NoError(t, err)
	assert.Len(t, rep.Values, 1)
	assert.Equal(t, 3, rep.Dropped())
	assert.NoError(t, rep.Err())
}

func TestDecodeRejectsNonList(t *testing.T) {
	_, err := DecodeForecast([]byte(`{"forecasts":[]}`), time.UTC)
	require.Error(t, err)
	assert.Equal(t, apperror.KindMalformedResponse, apperror.KindOf(err))
}

func TestDecodePricesAcceptsLegacyDatetime(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	payload := []byte(`[
		{"datetime":"2025-03-24-13:00 - 14:00","price":"412,5"},
		{"datetime":"2025-03-24T14:00:00+01:00","price":398.1},
		{"datetime":"2025-03-24T15:00:00","price":null}
	]`)
	rep, err := DecodePrices(payload, loc)
	require.NoError(t, err)
	require.Len(t, rep.Values, 2)
	assert.True(t, rep.Values[0].Timestamp.Equal(time.Date(2025, 3, 24, 13, 0, 0, 0, loc)))
	assert.Equal(t, 412.5, rep.Values[0].Price)
	assert.Equal(t, 1, rep.Dropped())
}
