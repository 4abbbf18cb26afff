package weather

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	historical map[string][]WeatherRecord
	forecast   []WeatherRecord
	err        error
	calls      int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Historical(_ context.Context, req HistoricalRequest) ([]WeatherRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]WeatherRecord(nil), f.historical[req.Location]...), nil
}

func (f *fakeProvider) Forecast(_ context.Context, _ ForecastRequest) ([]WeatherRecord, error) {
	f.calls++
	return f.forecast, f.err
}

func day(d int) time.Time {
	return time.Date(2025, 12, d, 0, 0, 0, 0, time.UTC)
}

func rec(d int, temp float64) WeatherRecord {
	return WeatherRecord{Date: day(d), TemperatureMean: temp, PrecipitationSum: 1, WindSpeedMax: 2, WindDirectionDominant: 3}
}

func TestHistoricalOrdersAndBoundsRecords(t *testing.T) {
	p := &fakeProvider{historical: map[string][]WeatherRecord{
		"umea": {rec(27, 3), rec(24, 0), rec(26, 2), rec(23, -1), rec(25, math.NaN()), rec(26, 2)},
	}}
	svc := NewService(p, nil)

	out, err := svc.Historical(context.Background(), HistoricalRequest{
		Location: "umea", Latitude: 63.83, Longitude: 20.26,
		Start: day(24), End: day(27),
	})
	require.NoError(t, err)

	var dates []time.Time
	for _, r := range out {
		dates = append(dates, r.Date)
		assert.Equal(t, "umea", r.LocationTag)
	}
	assert.Equal(t, []time.Time{day(24), day(26), day(27)}, dates)

	for i := 1; i < len(out); i++ {
		assert.True(t, out[i].Date.After(out[i-1].Date), "dates must be strictly increasing")
	}
}

func TestHistoricalRejectsInvalidRequests(t *testing.T) {
	p := &fakeProvider{}
	svc := NewService(p, nil)

	tests := []struct {
		name string
		req  HistoricalRequest
	}{
		{"start after end", HistoricalRequest{Location: "a", Latitude: 10, Longitude: 10, Start: day(25), End: day(24)}},
		{"latitude out of range", HistoricalRequest{Location: "a", Latitude: 91, Longitude: 10, Start: day(24), End: day(25)}},
		{"longitude out of range", HistoricalRequest{Location: "a", Latitude: 10, Longitude: -181, Start: day(24), End: day(25)}},
		{"missing location", HistoricalRequest{Latitude: 10, Longitude: 10, Start: day(24), End: day(25)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Historical(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
		})
	}
	assert.Zero(t, p.calls, "invalid requests must not reach the provider")
}

func TestHistoricalSingleDayRange(t *testing.T) {
	p := &fakeProvider{historical: map[string][]WeatherRecord{"a": {rec(24, 1)}}}
	out, err := NewService(p, nil).Historical(context.Background(), HistoricalRequest{
		Location: "a", Latitude: 0, Longitude: 0, Start: day(24), End: day(24),
	})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestProviderErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakeProvider{err: boom}, nil)

	_, err := svc.Forecast(context.Background(), ForecastRequest{Location: "a", Latitude: 1, Longitude: 1})
	assert.ErrorIs(t, err, boom)
}

func TestFeatureRowsPivotsPerLocation(t *testing.T) {
	p := &fakeProvider{historical: map[string][]WeatherRecord{
		"umea": {rec(24, 1), rec(25, 2), rec(26, 3)},
		"ange": {rec(25, 20), rec(26, 30)},
	}}
	svc := NewService(p, nil)

	locs := []Location{{Tag: "umea", Latitude: 63.83, Longitude: 20.26}, {Tag: "ange", Latitude: 62.52, Longitude: 15.66}}
	rows, err := svc.FeatureRows(context.Background(), locs, day(24), day(26))
	require.NoError(t, err)

	require.Len(t, rows, 2, "the 24th is missing for ange and must be dropped")
	assert.Equal(t, day(25), rows[0].Date)
	assert.Equal(t, 2.0, rows[0].Values["temperature_2m_mean_umea"])
	assert.Equal(t, 20.0, rows[0].Values["temperature_2m_mean_ange"])
	assert.Len(t, rows[0].Values, 8)
	assert.ElementsMatch(t, FeatureColumns([]string{"umea", "ange"}), rows[1].Columns())
}

func TestFeatureColumnsOrder(t *testing.T) {
	cols := FeatureColumns([]string{"flasjon", "umea"})
	assert.Equal(t, []string{
		"temperature_2m_mean_flasjon", "precipitation_sum_flasjon",
		"wind_speed_10m_max_flasjon", "wind_direction_10m_dominant_flasjon",
		"temperature_2m_mean_umea", "precipitation_sum_umea",
		"wind_speed_10m_max_umea", "wind_direction_10m_dominant_umea",
	}, cols)
}

func TestAggregateDaily(t *testing.T) {
	base := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	hourly := []WeatherRecord{
		{Date: base.Add(25 * time.Hour), TemperatureMean: 4, PrecipitationSum: 1, WindSpeedMax: 5, WindDirectionDominant: 90, LocationTag: "umea"},
		{Date: base, TemperatureMean: 1, PrecipitationSum: 0.5, WindSpeedMax: 3, WindDirectionDominant: 350, LocationTag: "umea"},
		{Date: base.Add(time.Hour), TemperatureMean: 3, PrecipitationSum: 0.25, WindSpeedMax: 7, WindDirectionDominant: 10, LocationTag: "umea"},
	}

	daily := AggregateDaily(hourly)
	require.Len(t, daily, 2)

	assert.Equal(t, base, daily[0].Date)
	assert.Equal(t, 2.0, daily[0].TemperatureMean)
	assert.Equal(t, 0.75, daily[0].PrecipitationSum)
	assert.Equal(t, 7.0, daily[0].WindSpeedMax)
	// 350 and 10 degrees average to north, not south.
	assert.InDelta(t, 0.0, daily[0].WindDirectionDominant, 1e-6)

	assert.Equal(t, base.AddDate(0, 0, 1), daily[1].Date)
	assert.Equal(t, 90.0, daily[1].WindDirectionDominant)
	assert.Equal(t, "umea", daily[1].LocationTag)

	assert.Nil(t, AggregateDaily(nil))
}

func TestForecastFeatureRowsAggregatesDays(t *testing.T) {
	base := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	p := &fakeProvider{forecast: []WeatherRecord{
		{Date: base, TemperatureMean: -2, PrecipitationSum: 0.1, WindSpeedMax: 4, WindDirectionDominant: 90},
		{Date: base.Add(time.Hour), TemperatureMean: -4, PrecipitationSum: 0.3, WindSpeedMax: 6, WindDirectionDominant: 90},
		{Date: base.Add(24 * time.Hour), TemperatureMean: 1, PrecipitationSum: 0, WindSpeedMax: 3, WindDirectionDominant: 180},
	}}
	svc := NewService(p, nil)

	rows, err := svc.ForecastFeatureRows(context.Background(), []Location{{Tag: "umea", Latitude: 63.83, Longitude: 20.26}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, base, rows[0].Date)
	assert.Equal(t, -3.0, rows[0].Values["temperature_2m_mean_umea"])
	assert.InDelta(t, 0.4, rows[0].Values["precipitation_sum_umea"], 1e-9)
	assert.Equal(t, 6.0, rows[0].Values["wind_speed_10m_max_umea"])
}
