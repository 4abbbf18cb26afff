package weather

import (
	"math"
	"sort"
	"time"

	"github.com/i474232898/energy-price-forecast/internal/common"
)

// AggregateDaily folds hourly records into one record per calendar day:
// temperature is averaged, precipitation summed, wind speed maximised and the
// dominant wind direction taken as the circular mean of the hourly directions.
// The result is ordered by date ascending.
func AggregateDaily(hourly []WeatherRecord) []WeatherRecord {
	if len(hourly) == 0 {
		return nil
	}

	type acc struct {
		tag      string
		n        int
		sumTemp  float64
		sumPrec  float64
		maxWind  float64
		sumSin   float64
		sumCos   float64
		hasWinds bool
	}

	days := make(map[time.Time]*acc)
	for _, r := range hourly {
		day := common.CalendarDate(r.Date)
		a, ok := days[day]
		if !ok {
			a = &acc{tag: r.LocationTag}
			days[day] = a
		}

		a.n++
		a.sumTemp += r.TemperatureMean
		a.sumPrec += r.PrecipitationSum
		if !a.hasWinds || r.WindSpeedMax > a.maxWind {
			a.maxWind = r.WindSpeedMax
			a.hasWinds = true
		}

		rad := r.WindDirectionDominant * math.Pi / 180
		a.sumSin += math.Sin(rad)
		a.sumCos += math.Cos(rad)
	}

	out := make([]WeatherRecord, 0, len(days))
	for day, a := range days {
		out = append(out, WeatherRecord{
			Date:                  day,
			TemperatureMean:       a.sumTemp / float64(a.n),
			PrecipitationSum:      a.sumPrec,
			WindSpeedMax:          a.maxWind,
			WindDirectionDominant: circularMeanDegrees(a.sumSin, a.sumCos),
			LocationTag:           a.tag,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func circularMeanDegrees(sumSin, sumCos float64) float64 {
	deg := math.Atan2(sumSin, sumCos) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	// Round away float noise so 90.0000000001 reads as 90.
	deg = math.Round(deg*1e6) / 1e6
	if deg >= 360 {
		deg -= 360
	}
	return deg
}
