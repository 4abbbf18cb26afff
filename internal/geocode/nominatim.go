package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/energy-price-forecast/internal/transport"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// NominatimResolver resolves place names with OpenStreetMap Nominatim.
// Nominatim rejects requests without a User-Agent, so the transport must set one.
type NominatimResolver struct {
	baseURL string
	client  *transport.Client
}

func NewNominatimResolver(client *transport.Client, baseURL string) *NominatimResolver {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &NominatimResolver{baseURL: baseURL, client: client}
}

func (r *NominatimResolver) Resolve(ctx context.Context, place string) (Coordinates, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return Coordinates{}, notFound(place)
	}

	values := url.Values{}
	values.Set("q", place)
	values.Set("format", "json")
	values.Set("limit", "1")

	// Places do not move; keep the answer.
	body, err := r.client.Get(ctx, fmt.Sprintf("%s?%s", r.baseURL, values.Encode()), transport.CacheForever)
	if err != nil {
		return Coordinates{}, err
	}

	var matches []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(body, &matches); err != nil {
		return Coordinates{}, fmt.Errorf("%w: nominatim payload: %w", transport.ErrNetwork, err)
	}
	if len(matches) == 0 {
		return Coordinates{}, notFound(place)
	}

	lat, err := strconv.ParseFloat(matches[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: nominatim latitude %q: %w", transport.ErrNetwork, matches[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(matches[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: nominatim longitude %q: %w", transport.ErrNetwork, matches[0].Lon, err)
	}
	return rounded(lat, lon), nil
}
