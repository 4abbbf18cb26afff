// Package geocode maps place names to coordinates.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrLocationNotFound is returned when the geocoding service has no match.
var ErrLocationNotFound = errors.New("location not found")

// Coordinates are decimal degrees rounded to two digits.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Resolver looks up the coordinates of a place name.
type Resolver interface {
	Resolve(ctx context.Context, place string) (Coordinates, error)
}

func notFound(place string) error {
	return fmt.Errorf("%w: %q", ErrLocationNotFound, place)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func rounded(lat, lon float64) Coordinates {
	return Coordinates{Latitude: round2(lat), Longitude: round2(lon)}
}
