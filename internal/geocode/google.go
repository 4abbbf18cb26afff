package geocode

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/energy-price-forecast/internal/common"
	"github.com/i474232898/energy-price-forecast/internal/transport"
)

// geocoder keeps its API key in a package variable.
var googleMu sync.Mutex

// GoogleResolver resolves place names with the Google Geocoding API.
type GoogleResolver struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleResolver(apiKey string) *GoogleResolver {
	return &GoogleResolver{apiKey: apiKey, lookup: geocoder.Geocoding}
}

func (r *GoogleResolver) Resolve(ctx context.Context, place string) (Coordinates, error) {
	if r.apiKey == "" {
		return Coordinates{}, fmt.Errorf("google geocoder api key is not configured")
	}
	place = strings.TrimSpace(place)
	if place == "" {
		return Coordinates{}, notFound(place)
	}
	if err := ctx.Err(); err != nil {
		return Coordinates{}, err
	}

	googleMu.Lock()
	geocoder.ApiKey = r.apiKey
	loc, err := r.lookup(geocoder.Address{City: place})
	googleMu.Unlock()

	if err != nil {
		return Coordinates{}, classifyGoogleError(place, err)
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return Coordinates{}, notFound(place)
	}
	return rounded(loc.Latitude, loc.Longitude), nil
}

func classifyGoogleError(place string, err error) error {
	if common.HasAny(err.Error(), "ZERO_RESULTS", "no results", "not found") {
		return fmt.Errorf("%w: %v", notFound(place), err)
	}
	return fmt.Errorf("%w: google geocoding %q: %w", transport.ErrNetwork, place, err)
}
