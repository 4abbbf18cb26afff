package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/energy-price-forecast/internal/featurestore/hopsworks"
	"github.com/i474232898/energy-price-forecast/internal/weather"
)

//go:embed locations.yaml
var defaultLocations []byte

type AppConfig struct {
	Port string

	// Outbound HTTP.
	HTTPTimeout time.Duration
	HTTPRetries int
	HTTPBackoff time.Duration // first retry delay, doubled per attempt
	UserAgent   string

	ArchiveURL       string
	ForecastURL      string
	ForecastCacheTTL time.Duration

	Geocoder     string // nominatim | google
	NominatimURL string
	GoogleAPIKey string

	CacheBackend    string // memory | redis
	CacheMaxEntries int
	RedisAddr       string

	FeatureStore     string // local | hopsworks
	LocalStoreDriver string // sqlite | postgres
	LocalStoreDSN    string
	Hopsworks        hopsworks.Config

	WeatherGroup   string
	MonitorGroup   string
	GroupVersion   int
	IngestLookback int // days

	KafkaBrokers      []string
	KafkaMonitorTopic string

	MonitorWindow    int
	BackfillSchedule string

	ModelFile       string
	ModelName       string
	ModelServingURL string

	OutputDir string

	// Locations to monitor, in model input order.
	Locations []weather.Location
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	cfg.HTTPRetries = getenvInt("HTTP_RETRIES", 5)
	if cfg.HTTPBackoff, err = getenvDuration("HTTP_BACKOFF_FACTOR", "200ms"); err != nil {
		return nil, err
	}
	cfg.UserAgent = getenvDefault("HTTP_USER_AGENT", "energy-price-forecast/1.0")

	cfg.ArchiveURL = os.Getenv("OPEN_METEO_ARCHIVE_URL")
	cfg.ForecastURL = os.Getenv("OPEN_METEO_FORECAST_URL")
	if cfg.ForecastCacheTTL, err = getenvDuration("FORECAST_CACHE_TTL", "1h"); err != nil {
		return nil, err
	}

	cfg.Geocoder = strings.ToLower(getenvDefault("GEOCODER", "nominatim"))
	cfg.NominatimURL = os.Getenv("NOMINATIM_URL")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")
	if cfg.Geocoder != "nominatim" && cfg.Geocoder != "google" {
		return nil, fmt.Errorf("invalid GEOCODER %q: want nominatim or google", cfg.Geocoder)
	}

	cfg.CacheBackend = strings.ToLower(getenvDefault("CACHE_BACKEND", "memory"))
	cfg.CacheMaxEntries = getenvInt("CACHE_MAX_ENTRIES", 1024)
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")

	cfg.FeatureStore = strings.ToLower(getenvDefault("FEATURE_STORE", "local"))
	cfg.LocalStoreDriver = getenvDefault("LOCAL_STORE_DRIVER", "sqlite")
	cfg.LocalStoreDSN = getenvDefault("LOCAL_STORE_DSN", "energy-price-forecast.db")
	cfg.Hopsworks = hopsworks.Config{
		Host:            os.Getenv("HOPSWORKS_HOST"),
		APIKey:          os.Getenv("HOPSWORKS_API_KEY"),
		ProjectID:       getenvInt("HOPSWORKS_PROJECT_ID", 0),
		FeatureStoreID:  getenvInt("HOPSWORKS_FEATURE_STORE_ID", 0),
		ModelRegistryID: getenvInt("HOPSWORKS_MODEL_REGISTRY_ID", 0),
	}

	cfg.WeatherGroup = getenvDefault("WEATHER_GROUP", "weather")
	cfg.MonitorGroup = getenvDefault("MONITOR_GROUP", "aq_predictions")
	cfg.GroupVersion = getenvInt("GROUP_VERSION", 1)
	cfg.IngestLookback = getenvInt("INGEST_LOOKBACK_DAYS", 30)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	cfg.KafkaMonitorTopic = getenvDefault("KAFKA_MONITOR_TOPIC", "energy-price-monitoring")

	cfg.MonitorWindow = getenvInt("MONITOR_WINDOW", 20)
	cfg.BackfillSchedule = getenvDefault("BACKFILL_SCHEDULE", "0 6 * * *")
	if _, err := cron.ParseStandard(cfg.BackfillSchedule); err != nil {
		return nil, fmt.Errorf("invalid BACKFILL_SCHEDULE: %w", err)
	}

	cfg.ModelFile = os.Getenv("MODEL_FILE")
	cfg.ModelName = getenvDefault("MODEL_NAME", "energy_price_model")
	cfg.ModelServingURL = os.Getenv("MODEL_SERVING_URL")

	cfg.OutputDir = getenvDefault("OUTPUT_DIR", "output")

	locs, err := loadLocations(os.Getenv("LOCATIONS_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

// loadLocations reads the locations file, or the built-in list when path is empty.
func loadLocations(path string) ([]weather.Location, error) {
	var r io.Reader = bytes.NewReader(defaultLocations)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open LOCATIONS_FILE: %w", err)
		}
		defer f.Close()
		r = f
	}
	return parseLocations(r)
}

func parseLocations(r io.Reader) ([]weather.Location, error) {
	var doc struct {
		Locations []weather.Location `yaml:"locations"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid locations file: %w", err)
	}
	if len(doc.Locations) == 0 {
		return nil, fmt.Errorf("no locations configured")
	}
	seen := make(map[string]bool, len(doc.Locations))
	for _, l := range doc.Locations {
		if l.Key() == "" {
			return nil, fmt.Errorf("location without tag or name")
		}
		if seen[l.Key()] {
			return nil, fmt.Errorf("duplicate location tag %q", l.Key())
		}
		seen[l.Key()] = true
	}
	return doc.Locations, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
