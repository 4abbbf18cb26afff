package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/energy-price-forecast/internal/transport"
)

func nominatim(t *testing.T, body string) *NominatimResolver {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "energy-price-forecast-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := transport.New(transport.Config{
		Client:    srv.Client(),
		Backoff:   transport.BackoffConfig{MaxRetries: 0, InitialInterval: time.Millisecond},
		UserAgent: "energy-price-forecast-test",
	})
	return NewNominatimResolver(client, srv.URL)
}

func TestNominatimRoundsToTwoDigits(t *testing.T) {
	r := nominatim(t, `[{"lat":"63.8256568","lon":"20.2630745","display_name":"Umeå"}]`)

	c, err := r.Resolve(context.Background(), "Umeå")
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Latitude: 63.83, Longitude: 20.26}, c)
}

func TestNominatimNoMatch(t *testing.T) {
	r := nominatim(t, `[]`)

	_, err := r.Resolve(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocationNotFound))
	assert.Contains(t, err.Error(), "Atlantis")
}

func TestGoogleResolver(t *testing.T) {
	r := NewGoogleResolver("key")

	r.lookup = func(a geocoder.Address) (geocoder.Location, error) {
		assert.Equal(t, "Hudiksvall", a.City)
		return geocoder.Location{Latitude: 61.7289, Longitude: 17.1036}, nil
	}
	c, err := r.Resolve(context.Background(), "Hudiksvall")
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Latitude: 61.73, Longitude: 17.1}, c)

	r.lookup = func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, errors.New("ZERO_RESULTS")
	}
	_, err = r.Resolve(context.Background(), "Nowhere")
	assert.True(t, errors.Is(err, ErrLocationNotFound))

	r.lookup = func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, errors.New("REQUEST_DENIED")
	}
	_, err = r.Resolve(context.Background(), "Umea")
	assert.True(t, errors.Is(err, transport.ErrNetwork))
}

func TestGoogleResolverRequiresKey(t *testing.T) {
	_, err := NewGoogleResolver("").Resolve(context.Background(), "Umea")
	assert.Error(t, err)
}
