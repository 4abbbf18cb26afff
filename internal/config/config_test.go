package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/energy-price-forecast/internal/weather"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // no .env
	t.Setenv("LOCATIONS_FILE", "")
	t.Setenv("BACKFILL_SCHEDULE", "")
	t.Setenv("HTTP_RETRIES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.HTTPRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.HTTPBackoff)
	assert.Equal(t, time.Hour, cfg.ForecastCacheTTL)
	assert.Equal(t, 20, cfg.MonitorWindow)
	assert.Equal(t, "0 6 * * *", cfg.BackfillSchedule)
	assert.Equal(t,
		[]string{"flasjon", "hudiksvall", "ange", "solleftea", "umea"},
		weather.Tags(cfg.Locations))
}

func TestLoadRejectsBadSchedule(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BACKFILL_SCHEDULE", "every day")

	_, err := Load()
	assert.ErrorContains(t, err, "BACKFILL_SCHEDULE")
}

func TestLocationsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locations.yaml")
	require.NoError(t, os.WriteFile(path, []byte("locations:\n  - {tag: lulea, name: Luleå, latitude: 65.58, longitude: 22.15}\n"), 0o644))

	locs, err := loadLocations(path)
	require.NoError(t, err)
	assert.Equal(t, []weather.Location{{Tag: "lulea", Name: "Luleå", Latitude: 65.58, Longitude: 22.15}}, locs)
}

func TestParseLocationsValidation(t *testing.T) {
	tests := map[string]string{
		"empty":     "locations: []",
		"duplicate": "locations: [{tag: a}, {tag: a}]",
		"unnamed":   "locations: [{latitude: 1}]",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseLocations(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
