package weather

import (
	"strings"
	"time"
)

// Feature variable names, in the order the provider is queried.
const (
	VarTemperatureMean       = "temperature_2m_mean"
	VarPrecipitationSum      = "precipitation_sum"
	VarWindSpeedMax          = "wind_speed_10m_max"
	VarWindDirectionDominant = "wind_direction_10m_dominant"
)

// Variables lists the per-location feature variables in model order.
var Variables = []string{
	VarTemperatureMean,
	VarPrecipitationSum,
	VarWindSpeedMax,
	VarWindDirectionDominant,
}

// Location is a monitored place. Tag is the short suffix used in feature
// column names, e.g. "umea".
type Location struct {
	Tag       string  `yaml:"tag" json:"tag"`
	Name      string  `yaml:"name" json:"name"`
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	if l.Tag != "" {
		return l.Tag
	}
	return strings.ToLower(l.Name)
}

// WeatherRecord is one day (historical) or one hour (forecast) of weather at
// a location.
type WeatherRecord struct {
	Date                  time.Time `json:"date"` // always UTC
	TemperatureMean       float64   `json:"temperature_2m_mean"`
	PrecipitationSum      float64   `json:"precipitation_sum"`
	WindSpeedMax          float64   `json:"wind_speed_10m_max"`
	WindDirectionDominant float64   `json:"wind_direction_10m_dominant"`
	LocationTag           string    `json:"city"`
}

// Values returns the record's variables keyed by variable name.
func (r WeatherRecord) Values() map[string]float64 {
	return map[string]float64{
		VarTemperatureMean:       r.TemperatureMean,
		VarPrecipitationSum:      r.PrecipitationSum,
		VarWindSpeedMax:          r.WindSpeedMax,
		VarWindDirectionDominant: r.WindDirectionDominant,
	}
}

// ColumnName returns the feature column of variable at the given location tag.
func ColumnName(variable, tag string) string {
	return variable + "_" + tag
}

// FeatureColumns returns the ordered per-location feature columns: all
// variables of the first tag, then all of the second, and so on.
func FeatureColumns(tags []string) []string {
	cols := make([]string, 0, len(tags)*len(Variables))
	for _, tag := range tags {
		for _, v := range Variables {
			cols = append(cols, ColumnName(v, tag))
		}
	}
	return cols
}

// Tags returns the tags of locs in order.
func Tags(locs []Location) []string {
	tags := make([]string, 0, len(locs))
	for _, l := range locs {
		tags = append(tags, l.Key())
	}
	return tags
}
