// Package chart renders price forecasts and hindcasts to image files.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg"

	"github.com/i474232898/energy-price-forecast/internal/common"
)

const (
	SeriesPredicted = "Predicted price"
	SeriesActual    = "Actual price"
)

var ErrNoRows = errors.New("no rows to plot")

// Point is one row of a forecast table.
type Point struct {
	Date      time.Time
	Predicted float64
	Actual    float64
}

// Table holds the rows to plot. HasActual reports whether the actual price
// column exists at all.
type Table struct {
	Points    []Point
	HasActual bool
}

// Figure is the rendered plot plus the names of the series drawn on it.
type Figure struct {
	*plot.Plot
	Series      []string
	TickSpacing int
}

// TickSpacing returns how many rows apart x-axis labels are placed.
func TickSpacing(rows int) int {
	if rows > 11 {
		if s := rows / 10; s > 0 {
			return s
		}
	}
	return 1
}

// RenderForecast draws the predicted series and, when hindcast is set and the
// table has actual prices, the actual series. The image format follows the
// extension of path.
func RenderForecast(title string, t Table, path string, hindcast bool) (*Figure, error) {
	if len(t.Points) == 0 {
		return nil, ErrNoRows
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Energy price"
	p.Legend.Top = true

	spacing := TickSpacing(len(t.Points))
	dates := make([]time.Time, len(t.Points))
	for i, pt := range t.Points {
		dates[i] = pt.Date
	}
	p.X.Tick.Marker = dateTicker{dates: dates, every: spacing}

	fig := &Figure{Plot: p, TickSpacing: spacing}

	predicted := make(plotter.XYs, len(t.Points))
	for i, pt := range t.Points {
		predicted[i].X = float64(i)
		predicted[i].Y = pt.Predicted
	}
	if err := addSeries(p, SeriesPredicted, predicted,
		color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255}, draw.CircleGlyph{}); err != nil {
		return nil, err
	}
	fig.Series = append(fig.Series, SeriesPredicted)

	if hindcast && t.HasActual {
		actual := make(plotter.XYs, len(t.Points))
		for i, pt := range t.Points {
			actual[i].X = float64(i)
			actual[i].Y = pt.Actual
		}
		if err := addSeries(p, SeriesActual, actual,
			color.Black, color.Gray{Y: 128}, draw.TriangleGlyph{}); err != nil {
			return nil, err
		}
		fig.Series = append(fig.Series, SeriesActual)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create plot directory %s: %w", dir, err)
		}
	}
	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return nil, fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	log.Printf("INFO: forecast plot written to %s (%d rows, hindcast=%t)", path, len(t.Points), hindcast)
	return fig, nil
}

func addSeries(p *plot.Plot, name string, xys plotter.XYs, lineColor, markerColor color.Color, shape draw.GlyphDrawer) error {
	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("%s line: %w", name, err)
	}
	line.Color = lineColor
	line.Width = vg.Points(2)

	points, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("%s markers: %w", name, err)
	}
	points.GlyphStyle.Color = markerColor
	points.GlyphStyle.Shape = shape
	points.GlyphStyle.Radius = vg.Points(3)

	p.Add(line, points)
	p.Legend.Add(name, line, points)
	return nil
}

// dateTicker labels every n-th row with its calendar date.
type dateTicker struct {
	dates []time.Time
	every int
}

func (d dateTicker) Ticks(min, max float64) []plot.Tick {
	every := d.every
	if every < 1 {
		every = 1
	}
	var ticks []plot.Tick
	for i, date := range d.dates {
		x := float64(i)
		if x < min || x > max {
			continue
		}
		if i%every == 0 {
			ticks = append(ticks, plot.Tick{Value: x, Label: date.Format(common.DateLayout)})
		} else {
			ticks = append(ticks, plot.Tick{Value: x})
		}
	}
	return ticks
}

// CheckFilePath reports whether a regular file exists at path.
func CheckFilePath(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("DEBUG: file not found at %s", path)
		return false
	}
	return !info.IsDir()
}
