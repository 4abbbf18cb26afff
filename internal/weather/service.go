package weather

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/energy-price-forecast/internal/common"
	"github.com/i474232898/energy-price-forecast/internal/featurestore"
	"github.com/i474232898/energy-price-forecast/internal/metrics"
)

var validate = validator.New()

// Service validates weather requests, delegates them to a Provider and
// cleans the returned series.
type Service struct {
	provider Provider
	metrics  *metrics.Recorder
}

// NewService creates a new Service.
func NewService(provider Provider, m *metrics.Recorder) *Service {
	return &Service{
		provider: provider,
		metrics:  m,
	}
}

// Historical returns daily records for req.Location within [Start, End],
// ordered by date ascending with incomplete rows removed.
func (s *Service) Historical(ctx context.Context, req HistoricalRequest) ([]WeatherRecord, error) {
	req.Start = common.CalendarDate(req.Start)
	req.End = common.CalendarDate(req.End)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRequest, req.Location, err)
	}

	records, err := s.provider.Historical(ctx, req)
	s.metrics.WeatherFetch(string(ModeHistorical), err)
	if err != nil {
		log.Printf("ERROR: provider %s historical fetch failed for %s: %v", s.provider.Name(), req.Location, err)
		return nil, err
	}

	records = clean(records, req.Location)
	out := records[:0]
	for _, r := range records {
		d := common.CalendarDate(r.Date)
		if d.Before(req.Start) || d.After(req.End) {
			continue
		}
		r.Date = d
		out = append(out, r)
	}

	log.Printf("DEBUG: fetched %d historical records for %s (%s..%s)", len(out), req.Location,
		req.Start.Format(common.DateLayout), req.End.Format(common.DateLayout))
	return out, nil
}

// Forecast returns the hourly forecast for req.Location ordered by time.
func (s *Service) Forecast(ctx context.Context, req ForecastRequest) ([]WeatherRecord, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRequest, req.Location, err)
	}

	records, err := s.provider.Forecast(ctx, req)
	s.metrics.WeatherFetch(string(ModeForecast), err)
	if err != nil {
		log.Printf("ERROR: provider %s forecast failed for %s: %v", s.provider.Name(), req.Location, err)
		return nil, err
	}
	return clean(records, req.Location), nil
}

// DailyForecast aggregates the hourly forecast into calendar days.
func (s *Service) DailyForecast(ctx context.Context, req ForecastRequest) ([]WeatherRecord, error) {
	hourly, err := s.Forecast(ctx, req)
	if err != nil {
		return nil, err
	}
	return AggregateDaily(hourly), nil
}

// FeatureRows fetches historical weather for every location and pivots it
// into one row per date with per-location columns. Dates missing for any
// location are dropped so every row carries the full column set.
func (s *Service) FeatureRows(ctx context.Context, locs []Location, start, end time.Time) ([]featurestore.FeatureRow, error) {
	return pivot(locs, func(loc Location) ([]WeatherRecord, error) {
		return s.Historical(ctx, HistoricalRequest{
			Location:  loc.Key(),
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Start:     start,
			End:       end,
		})
	})
}

// ForecastFeatureRows is FeatureRows over the daily-aggregated forecast.
func (s *Service) ForecastFeatureRows(ctx context.Context, locs []Location) ([]featurestore.FeatureRow, error) {
	return pivot(locs, func(loc Location) ([]WeatherRecord, error) {
		return s.DailyForecast(ctx, ForecastRequest{
			Location:  loc.Key(),
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		})
	})
}

func pivot(locs []Location, fetch func(Location) ([]WeatherRecord, error)) ([]featurestore.FeatureRow, error) {
	if len(locs) == 0 {
		return nil, fmt.Errorf("%w: no locations configured", ErrInvalidRequest)
	}

	rows := make(map[time.Time]map[string]float64)
	seen := make(map[time.Time]int)

	for _, loc := range locs {
		records, err := fetch(loc)
		if err != nil {
			return nil, err
		}

		for _, r := range records {
			date := common.CalendarDate(r.Date)
			vals, ok := rows[date]
			if !ok {
				vals = make(map[string]float64, len(locs)*len(Variables))
				rows[date] = vals
			}
			for name, v := range r.Values() {
				vals[ColumnName(name, loc.Key())] = v
			}
			seen[date]++
		}
	}

	out := make([]featurestore.FeatureRow, 0, len(rows))
	for date, vals := range rows {
		if seen[date] != len(locs) {
			continue
		}
		out = append(out, featurestore.FeatureRow{Date: date, Values: vals})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// clean drops records with missing values, stamps the location tag, sorts by
// date and removes duplicate timestamps.
func clean(records []WeatherRecord, tag string) []WeatherRecord {
	out := make([]WeatherRecord, 0, len(records))
	for _, r := range records {
		if hasNaN(r) {
			continue
		}
		r.Date = r.Date.UTC()
		r.LocationTag = tag
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, r := range out {
		if len(dedup) > 0 && r.Date.Equal(dedup[len(dedup)-1].Date) {
			continue
		}
		dedup = append(dedup, r)
	}
	return dedup
}

func hasNaN(r WeatherRecord) bool {
	for _, v := range []float64{r.TemperatureMean, r.PrecipitationSum, r.WindSpeedMax, r.WindDirectionDominant} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
