package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/energy-price-forecast/internal/common"
	"github.com/i474232898/energy-price-forecast/internal/transport"
	"github.com/i474232898/energy-price-forecast/internal/weather"
)

const (
	DefaultArchiveURL  = "https://archive-api.open-meteo.com/v1/archive"
	DefaultForecastURL = "https://api.open-meteo.com/v1/ecmwf"
)

// The order of variables matters: values are read back in the same order.
var (
	dailyVariables  = []string{"temperature_2m_mean", "precipitation_sum", "wind_speed_10m_max", "wind_direction_10m_dominant"}
	hourlyVariables = []string{"temperature_2m", "precipitation", "wind_speed_10m", "wind_direction_10m"}
)

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// Archive responses are cached indefinitely; forecasts for forecastTTL.
type OpenMeteoProvider struct {
	name        string
	archiveURL  string
	forecastURL string
	forecastTTL time.Duration
	client      *transport.Client
}

func NewOpenMeteoProvider(client *transport.Client, archiveURL, forecastURL string, forecastTTL time.Duration) *OpenMeteoProvider {
	if archiveURL == "" {
		archiveURL = DefaultArchiveURL
	}
	if forecastURL == "" {
		forecastURL = DefaultForecastURL
	}
	if forecastTTL <= 0 {
		forecastTTL = time.Hour
	}
	return &OpenMeteoProvider{
		name:        "openmeteo",
		archiveURL:  archiveURL,
		forecastURL: forecastURL,
		forecastTTL: forecastTTL,
		client:      client,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Historical fetches daily archive data.
func (p *OpenMeteoProvider) Historical(ctx context.Context, req weather.HistoricalRequest) ([]weather.WeatherRecord, error) {
	values := coordinates(req.Latitude, req.Longitude)
	values.Set("start_date", req.Start.Format(common.DateLayout))
	values.Set("end_date", req.End.Format(common.DateLayout))
	values.Set("daily", strings.Join(dailyVariables, ","))

	u := fmt.Sprintf("%s?%s", p.archiveURL, values.Encode())
	body, err := p.client.Get(ctx, u, transport.CacheForever)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Daily series `json:"daily"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: openmeteo archive payload: %w", transport.ErrNetwork, err)
	}
	return payload.Daily.records(dailyVariables, req.Location)
}

// Forecast fetches the hourly ECMWF forecast.
func (p *OpenMeteoProvider) Forecast(ctx context.Context, req weather.ForecastRequest) ([]weather.WeatherRecord, error) {
	values := coordinates(req.Latitude, req.Longitude)
	values.Set("hourly", strings.Join(hourlyVariables, ","))

	u := fmt.Sprintf("%s?%s", p.forecastURL, values.Encode())
	body, err := p.client.Get(ctx, u, transport.CacheFor(p.forecastTTL))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Hourly series `json:"hourly"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: openmeteo forecast payload: %w", transport.ErrNetwork, err)
	}
	return payload.Hourly.records(hourlyVariables, req.Location)
}

func coordinates(lat, lon float64) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("timeformat", "unixtime")
	values.Set("timezone", "GMT")
	return values
}

// series is the column-oriented block Open-Meteo returns: a time axis plus
// one array per requested variable. Missing values arrive as null.
type series map[string]json.RawMessage

func (s series) records(variables []string, tag string) ([]weather.WeatherRecord, error) {
	var times []int64
	if err := decodeColumn(s, "time", &times); err != nil {
		return nil, err
	}

	cols := make([][]*float64, len(variables))
	for i, name := range variables {
		if err := decodeColumn(s, name, &cols[i]); err != nil {
			return nil, err
		}
		if len(cols[i]) != len(times) {
			return nil, fmt.Errorf("%w: openmeteo variable %s has %d values for %d timestamps",
				transport.ErrNetwork, name, len(cols[i]), len(times))
		}
	}

	out := make([]weather.WeatherRecord, 0, len(times))
rows:
	for i, ts := range times {
		v := make([]float64, len(variables))
		for j := range variables {
			if cols[j][i] == nil {
				continue rows
			}
			v[j] = *cols[j][i]
		}
		out = append(out, weather.WeatherRecord{
			Date:                  time.Unix(ts, 0).UTC(),
			TemperatureMean:       v[0],
			PrecipitationSum:      v[1],
			WindSpeedMax:          v[2],
			WindDirectionDominant: v[3],
			LocationTag:           tag,
		})
	}
	return out, nil
}

func decodeColumn(s series, name string, dst any) error {
	raw, ok := s[name]
	if !ok {
		return fmt.Errorf("%w: openmeteo payload missing %q", transport.ErrNetwork, name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: openmeteo column %q: %w", transport.ErrNetwork, name, err)
	}
	return nil
}
