package chart

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(rows int, withActual bool) Table {
	start := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	t := Table{HasActual: withActual}
	for i := 0; i < rows; i++ {
		t.Points = append(t.Points, Point{
			Date:      start.AddDate(0, 0, i),
			Predicted: float64(100 + i),
			Actual:    float64(90 + i),
		})
	}
	return t
}

func TestTickSpacing(t *testing.T) {
	tests := []struct {
		rows int
		want int
	}{
		{rows: 1, want: 1},
		{rows: 11, want: 1},
		{rows: 12, want: 1},
		{rows: 15, want: 1},
		{rows: 20, want: 2},
		{rows: 35, want: 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TickSpacing(tt.rows), "rows=%d", tt.rows)
	}
}

func TestRenderForecastPredictedOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "forecast.png")

	fig, err := RenderForecast("Energy price forecast", table(15, true), path, false)
	require.NoError(t, err)
	assert.Equal(t, []string{SeriesPredicted}, fig.Series)
	assert.Equal(t, 1, fig.TickSpacing)
	assert.True(t, CheckFilePath(path))
}

func TestRenderForecastHindcast(t *testing.T) {
	dir := t.TempDir()

	fig, err := RenderForecast("Hindcast", table(20, true), filepath.Join(dir, "hindcast.png"), true)
	require.NoError(t, err)
	assert.Equal(t, []string{SeriesPredicted, SeriesActual}, fig.Series)
	assert.Equal(t, 2, fig.TickSpacing)

	// no actual column: the flag alone is not enough
	fig, err = RenderForecast("Hindcast", table(5, false), filepath.Join(dir, "partial.png"), true)
	require.NoError(t, err)
	assert.Equal(t, []string{SeriesPredicted}, fig.Series)
}

func TestRenderForecastEmpty(t *testing.T) {
	_, err := RenderForecast("x", Table{}, filepath.Join(t.TempDir(), "x.png"), false)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestDateTickerLabelsEveryNth(t *testing.T) {
	tt := table(20, false)
	dates := make([]time.Time, len(tt.Points))
	for i, p := range tt.Points {
		dates[i] = p.Date
	}

	ticks := dateTicker{dates: dates, every: 2}.Ticks(0, 19)
	require.Len(t, ticks, 20)
	assert.Equal(t, "2025-12-24", ticks[0].Label)
	assert.Empty(t, ticks[1].Label)
	assert.Equal(t, "2025-12-26", ticks[2].Label)
}

func TestCheckFilePath(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, CheckFilePath(filepath.Join(dir, "missing.png")))
	assert.False(t, CheckFilePath(dir))
}
