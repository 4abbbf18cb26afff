package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/i474232898/energy-price-forecast/internal/cache"
	"github.com/i474232898/energy-price-forecast/internal/config"
	"github.com/i474232898/energy-price-forecast/internal/featurestore"
	"github.com/i474232898/energy-price-forecast/internal/featurestore/hopsworks"
	"github.com/i474232898/energy-price-forecast/internal/featurestore/local"
	"github.com/i474232898/energy-price-forecast/internal/geocode"
	"github.com/i474232898/energy-price-forecast/internal/metrics"
	"github.com/i474232898/energy-price-forecast/internal/monitoring"
	"github.com/i474232898/energy-price-forecast/internal/pipeline"
	"github.com/i474232898/energy-price-forecast/internal/price"
	"github.com/i474232898/energy-price-forecast/internal/transport"
	"github.com/i474232898/energy-price-forecast/internal/weather"
	"github.com/i474232898/energy-price-forecast/internal/weather/providers"
)

// app holds the wired services shared by all commands.
type app struct {
	cfg      *config.AppConfig
	metrics  *metrics.Recorder
	cache    cache.Store
	weather  *weather.Service
	geocoder geocode.Resolver
	prices   *price.Table
	store    *local.Store

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.NewRecorder()}

	switch cfg.CacheBackend {
	case "redis":
		rs, err := cache.NewRedisStore(ctx, cfg.RedisAddr, "energy-price-forecast:")
		if err != nil {
			return nil, err
		}
		a.cache = rs
		a.closers = append(a.closers, rs.Close)
	case "memory":
		a.cache = cache.NewMemoryStore(cfg.CacheMaxEntries)
	default:
		return nil, fmt.Errorf("unsupported CACHE_BACKEND %q", cfg.CacheBackend)
	}

	provider := providers.NewOpenMeteoProvider(a.client("openmeteo", true), cfg.ArchiveURL, cfg.ForecastURL, cfg.ForecastCacheTTL)
	a.weather = weather.NewService(provider, a.metrics)

	switch cfg.Geocoder {
	case "google":
		a.geocoder = geocode.NewGoogleResolver(cfg.GoogleAPIKey)
	default:
		a.geocoder = geocode.NewNominatimResolver(a.client("nominatim", true), cfg.NominatimURL)
	}

	prices, err := price.Default()
	if err != nil {
		return nil, err
	}
	a.prices = prices

	store, err := local.Open(cfg.LocalStoreDriver, cfg.LocalStoreDSN)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	return a, nil
}

// client builds a resilient HTTP client; cached clients share the response cache.
func (a *app) client(name string, cached bool) *transport.Client {
	cfg := transport.Config{
		Name:   name,
		Client: &http.Client{Timeout: a.cfg.HTTPTimeout},
		Backoff: transport.BackoffConfig{
			MaxRetries:      a.cfg.HTTPRetries,
			InitialInterval: a.cfg.HTTPBackoff,
			MaxInterval:     10 * time.Second,
		},
		UserAgent: a.cfg.UserAgent,
		Metrics:   a.metrics,
	}
	if cached {
		cfg.Cache = a.cache
	}
	return transport.New(cfg)
}

// admin returns the teardown admin for the configured platform.
func (a *app) admin() (*featurestore.Admin, error) {
	if a.cfg.FeatureStore == "hopsworks" {
		hw, err := hopsworks.NewClient(a.cfg.Hopsworks, a.client("hopsworks", false))
		if err != nil {
			return nil, err
		}
		return featurestore.NewAdmin(hw, hw, hw, a.metrics), nil
	}
	return featurestore.NewAdmin(a.store, a.store, a.store, a.metrics), nil
}

// predictor picks the model: a serving endpoint, a model file, or the latest
// version in the local registry, in that order.
func (a *app) predictor(ctx context.Context) (monitoring.Predictor, error) {
	switch {
	case a.cfg.ModelServingURL != "":
		cols := weather.FeatureColumns(weather.Tags(a.cfg.Locations))
		return monitoring.NewHTTPPredictor(a.cfg.ModelServingURL, cols, a.client("model-serving", false)), nil
	case a.cfg.ModelFile != "":
		return monitoring.LoadLinearModelFile(a.cfg.ModelFile)
	default:
		artifact, err := a.store.ModelArtifact(ctx, a.cfg.ModelName, 0)
		if err != nil {
			return nil, fmt.Errorf("no MODEL_FILE or MODEL_SERVING_URL and no registered model: %w", err)
		}
		return monitoring.LoadLinearModel(bytes.NewReader(artifact))
	}
}

func (a *app) pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	model, err := a.predictor(ctx)
	if err != nil {
		return nil, err
	}

	var mirrors []featurestore.FeatureWriter
	if len(a.cfg.KafkaBrokers) > 0 {
		sink := monitoring.NewKafkaSink(a.cfg.KafkaBrokers, a.cfg.KafkaMonitorTopic)
		a.closers = append(a.closers, sink.Close)
		mirrors = append(mirrors, sink)
	}

	return pipeline.New(pipeline.Config{
		Locations:      a.cfg.Locations,
		WeatherGroup:   a.cfg.WeatherGroup,
		MonitorGroup:   a.cfg.MonitorGroup,
		GroupVersion:   a.cfg.GroupVersion,
		IngestLookback: a.cfg.IngestLookback,
		OutputDir:      a.cfg.OutputDir,
	},
		a.weather,
		func(ctx context.Context, name string, version int) (pipeline.Group, error) {
			return a.store.FeatureGroup(ctx, name, version)
		},
		a.prices,
		model,
		monitoring.NewBackfiller(a.cfg.MonitorWindow, a.metrics),
		mirrors...,
	), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("ERROR: shutdown: %v", err)
		}
	}
	a.closers = nil
}
