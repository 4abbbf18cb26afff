package monitoring

import "github.com/i474232898/energy-price-forecast/internal/chart"

// ChartTable converts a hindcast into plot rows with the actual price column.
func ChartTable(rows []HindcastRow) chart.Table {
	t := chart.Table{HasActual: true, Points: make([]chart.Point, len(rows))}
	for i, r := range rows {
		t.Points[i] = chart.Point{Date: r.Date, Predicted: r.PredictedPrice, Actual: r.Price.InexactFloat64()}
	}
	return t
}
