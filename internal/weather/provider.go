package weather

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest is returned for out-of-range coordinates or date ranges.
var ErrInvalidRequest = errors.New("invalid weather request")

// Mode distinguishes archive lookups from forecasts.
type Mode string

const (
	ModeHistorical Mode = "historical"
	ModeForecast   Mode = "forecast"
)

// HistoricalRequest asks for daily weather between Start and End inclusive.
type HistoricalRequest struct {
	Location  string    `validate:"required"`
	Latitude  float64   `validate:"latitude"`
	Longitude float64   `validate:"longitude"`
	Start     time.Time `validate:"required"`
	End       time.Time `validate:"required,gtefield=Start"`
}

// ForecastRequest asks for the hourly forecast window at a location.
type ForecastRequest struct {
	Location  string  `validate:"required"`
	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`
}

// Provider abstracts a weather data source (e.g. Open-Meteo).
type Provider interface {
	Name() string
	Historical(ctx context.Context, req HistoricalRequest) ([]WeatherRecord, error)
	Forecast(ctx context.Context, req ForecastRequest) ([]WeatherRecord, error)
}
