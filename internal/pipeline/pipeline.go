// Package pipeline runs the scheduled feature ingest and monitoring backfill.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/i474232898/energy-price-forecast/internal/chart"
	"github.com/i474232898/energy-price-forecast/internal/common"
	"github.com/i474232898/energy-price-forecast/internal/featurestore"
	"github.com/i474232898/energy-price-forecast/internal/monitoring"
	"github.com/i474232898/energy-price-forecast/internal/price"
	"github.com/i474232898/energy-price-forecast/internal/weather"
)

// Group is a feature group that can be both read and written.
type Group interface {
	featurestore.FeatureReader
	featurestore.FeatureWriter
}

// GroupOpener returns a handle to a feature group version.
type GroupOpener func(ctx context.Context, name string, version int) (Group, error)

// Config names the groups and output locations used by a Pipeline.
type Config struct {
	Locations      []weather.Location
	WeatherGroup   string
	MonitorGroup   string
	GroupVersion   int
	IngestLookback int // days
	OutputDir      string
}

// Pipeline ingests weather features and backfills monitoring predictions.
type Pipeline struct {
	cfg        Config
	weather    *weather.Service
	openGroup  GroupOpener
	prices     *price.Table
	model      monitoring.Predictor
	backfiller *monitoring.Backfiller
	mirrors    []featurestore.FeatureWriter
	now        func() time.Time
}

func New(
	cfg Config,
	weatherService *weather.Service,
	openGroup GroupOpener,
	prices *price.Table,
	model monitoring.Predictor,
	backfiller *monitoring.Backfiller,
	mirrors ...featurestore.FeatureWriter,
) *Pipeline {
	if cfg.GroupVersion <= 0 {
		cfg.GroupVersion = 1
	}
	if cfg.IngestLookback <= 0 {
		cfg.IngestLookback = 30
	}
	return &Pipeline{
		cfg:        cfg,
		weather:    weatherService,
		openGroup:  openGroup,
		prices:     prices,
		model:      model,
		backfiller: backfiller,
		mirrors:    mirrors,
		now:        time.Now,
	}
}

// Ingest fetches historical weather for every location up to yesterday and
// upserts the pivoted rows into the weather feature group.
func (p *Pipeline) Ingest(ctx context.Context) (int, error) {
	today := common.CalendarDate(p.now())
	end := today.AddDate(0, 0, -1)
	start := today.AddDate(0, 0, -p.cfg.IngestLookback)

	rows, err := p.weather.FeatureRows(ctx, p.cfg.Locations, start, end)
	if err != nil {
		return 0, err
	}

	group, err := p.openGroup(ctx, p.cfg.WeatherGroup, p.cfg.GroupVersion)
	if err != nil {
		return 0, err
	}
	if err := group.Insert(ctx, rows, featurestore.WriteOptions{WaitForJob: true}); err != nil {
		return 0, err
	}
	log.Printf("INFO: ingested %d weather rows (%s..%s)", len(rows),
		start.Format(common.DateLayout), end.Format(common.DateLayout))
	return len(rows), nil
}

// Backfill predicts prices for the recent window and writes them to the
// monitoring group, then renders the hindcast plot and Parquet export.
func (p *Pipeline) Backfill(ctx context.Context) (monitoring.Result, error) {
	features, err := p.openGroup(ctx, p.cfg.WeatherGroup, p.cfg.GroupVersion)
	if err != nil {
		return monitoring.Result{}, err
	}
	monitor, err := p.openGroup(ctx, p.cfg.MonitorGroup, p.cfg.GroupVersion)
	if err != nil {
		return monitoring.Result{}, err
	}

	sink := append(monitoring.MultiSink{monitor}, p.mirrors...)
	res, err := p.backfiller.Run(ctx, features, p.prices.Records(), sink, p.model)
	if err != nil {
		return monitoring.Result{}, err
	}

	if p.cfg.OutputDir != "" {
		plotPath := filepath.Join(p.cfg.OutputDir, "energy_price_hindcast.png")
		if _, err := chart.RenderForecast("Energy price hindcast", monitoring.ChartTable(res.Hindcast), plotPath, true); err != nil {
			return res, fmt.Errorf("hindcast plot: %w", err)
		}
		exportPath := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("hindcast_%s.parquet", res.RunID))
		if err := monitoring.ExportParquet(res, exportPath); err != nil {
			return res, fmt.Errorf("hindcast export: %w", err)
		}
	}
	return res, nil
}

// ForecastRow is a next-day price prediction from forecast weather.
type ForecastRow struct {
	Date           time.Time
	PredictedPrice float64
}

// Predict runs the model over the daily weather forecast of every location
// and renders the predicted series.
func (p *Pipeline) Predict(ctx context.Context) ([]ForecastRow, error) {
	rows, err := p.weather.ForecastFeatureRows(ctx, p.cfg.Locations)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: forecast returned no complete days", monitoring.ErrInsufficientData)
	}

	cols := p.model.FeatureNames()
	inputs := make([][]float64, len(rows))
	for i, r := range rows {
		vec := make([]float64, len(cols))
		for j, c := range cols {
			v, ok := r.Values[c]
			if !ok {
				return nil, fmt.Errorf("%w: %s", monitoring.ErrMissingFeatureColumns, c)
			}
			vec[j] = v
		}
		inputs[i] = vec
	}

	predictions, err := p.model.Predict(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}
	if len(predictions) != len(rows) {
		return nil, fmt.Errorf("model returned %d predictions for %d rows", len(predictions), len(rows))
	}

	out := make([]ForecastRow, len(rows))
	table := chart.Table{Points: make([]chart.Point, len(rows))}
	for i, r := range rows {
		out[i] = ForecastRow{Date: r.Date, PredictedPrice: predictions[i]}
		table.Points[i] = chart.Point{Date: r.Date, Predicted: predictions[i]}
	}

	if p.cfg.OutputDir != "" {
		path := filepath.Join(p.cfg.OutputDir, "energy_price_forecast.png")
		if _, err := chart.RenderForecast("Energy price forecast", table, path, false); err != nil {
			return out, fmt.Errorf("forecast plot: %w", err)
		}
	}
	return out, nil
}

// Run performs an ingest followed by a backfill.
func (p *Pipeline) Run(ctx context.Context) error {
	if _, err := p.Ingest(ctx); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if _, err := p.Backfill(ctx); err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	return nil
}
