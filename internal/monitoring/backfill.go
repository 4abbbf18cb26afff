// Package monitoring backfills next-day price predictions for hindcast
// comparison against observed prices.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/i474232898/energy-price-forecast/internal/common"
	"github.com/i474232898/energy-price-forecast/internal/featurestore"
	"github.com/i474232898/energy-price-forecast/internal/metrics"
	"github.com/i474232898/energy-price-forecast/internal/price"
)

var (
	ErrMissingFeatureColumns = errors.New("missing feature columns")
	ErrInsufficientData      = errors.New("insufficient overlapping data")
)

const (
	ColumnPrice          = "price"
	ColumnPredictedPrice = "predicted_price"
	ColumnDaysBefore     = "days_before_forecast_day"

	// DefaultWindow is how many of the most recent joined days are kept.
	DefaultWindow = 20
)

// Predictor is a trained model applied to rows of named features.
type Predictor interface {
	// FeatureNames lists the input columns in the order Predict expects them.
	FeatureNames() []string
	Predict(ctx context.Context, inputs [][]float64) ([]float64, error)
}

// HindcastRow pairs a prediction with the price observed for that day.
type HindcastRow struct {
	Date           time.Time       `json:"date"`
	PredictedPrice float64         `json:"predicted_price"`
	Price          decimal.Decimal `json:"price"`
}

// Result is the outcome of one backfill run.
type Result struct {
	RunID    string
	Hindcast []HindcastRow
}

// Backfiller joins weather features with prices, predicts and writes the
// predictions to a monitoring sink.
type Backfiller struct {
	window  int
	metrics *metrics.Recorder
	now     func() time.Time
}

func NewBackfiller(window int, m *metrics.Recorder) *Backfiller {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Backfiller{window: window, metrics: m, now: time.Now}
}

type joinedRow struct {
	date     time.Time
	features map[string]float64
	price    decimal.Decimal
}

// Run executes one backfill. Rows written to sink carry the features, the
// prediction and days_before_forecast_day but never the observed price.
func (b *Backfiller) Run(
	ctx context.Context,
	features featurestore.FeatureReader,
	prices []price.Record,
	sink featurestore.FeatureWriter,
	model Predictor,
) (Result, error) {
	started := b.now()
	runID := uuid.NewString()

	weatherRows, err := features.Read(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read weather features: %w", err)
	}

	joined := join(weatherRows, prices)
	if len(joined) == 0 {
		return Result{}, fmt.Errorf("%w: %d weather rows and %d prices share no date", ErrInsufficientData, len(weatherRows), len(prices))
	}
	if len(joined) > b.window {
		joined = joined[len(joined)-b.window:]
	}

	cols := model.FeatureNames()
	if missing := missingColumns(joined, cols); len(missing) > 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingFeatureColumns, strings.Join(missing, ", "))
	}

	inputs := make([][]float64, len(joined))
	for i, r := range joined {
		vec := make([]float64, len(cols))
		for j, c := range cols {
			vec[j] = r.features[c]
		}
		inputs[i] = vec
	}

	predictions, err := model.Predict(ctx, inputs)
	if err != nil {
		return Result{}, fmt.Errorf("prediction failed: %w", err)
	}
	if len(predictions) != len(joined) {
		return Result{}, fmt.Errorf("model returned %d predictions for %d rows", len(predictions), len(joined))
	}

	out := make([]featurestore.FeatureRow, len(joined))
	hindcast := make([]HindcastRow, len(joined))
	for i, r := range joined {
		values := make(map[string]float64, len(r.features)+2)
		for k, v := range r.features {
			values[k] = v
		}
		delete(values, ColumnPrice)
		values[ColumnPredictedPrice] = predictions[i]
		values[ColumnDaysBefore] = 1

		out[i] = featurestore.FeatureRow{Date: r.date, Values: values}
		hindcast[i] = HindcastRow{Date: r.date, PredictedPrice: predictions[i], Price: r.price}
	}

	if err := sink.Insert(ctx, out, featurestore.WriteOptions{WaitForJob: true}); err != nil {
		return Result{}, fmt.Errorf("failed to write monitoring rows: %w", err)
	}

	elapsed := b.now().Sub(started)
	b.metrics.BackfillRun(len(joined), len(out), elapsed.Seconds())
	log.Printf("INFO: backfill %s wrote %d rows (%s..%s) in %s", runID, len(out),
		joined[0].date.Format(common.DateLayout), joined[len(joined)-1].date.Format(common.DateLayout), elapsed)

	return Result{RunID: runID, Hindcast: hindcast}, nil
}

// join inner-joins weather rows and prices on calendar date, sorted ascending.
func join(weatherRows []featurestore.FeatureRow, prices []price.Record) []joinedRow {
	byDate := make(map[time.Time]decimal.Decimal, len(prices))
	for _, p := range prices {
		byDate[common.CalendarDate(p.Date)] = p.Price
	}

	seen := make(map[time.Time]bool, len(weatherRows))
	out := make([]joinedRow, 0, len(weatherRows))
	for _, w := range weatherRows {
		d := common.CalendarDate(w.Date)
		p, ok := byDate[d]
		if !ok || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, joinedRow{date: d, features: w.Values, price: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}

func missingColumns(rows []joinedRow, cols []string) []string {
	var missing []string
	for _, c := range cols {
		for _, r := range rows {
			if _, ok := r.features[c]; !ok {
				missing = append(missing, c)
				break
			}
		}
	}
	return missing
}
