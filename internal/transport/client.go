package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/energy-price-forecast/internal/cache"
	"github.com/i474232898/energy-price-forecast/internal/metrics"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Config bundles the HTTP client, resilience and cache settings.
type Config struct {
	Name      string
	Client    *http.Client
	Backoff   BackoffConfig
	Cache     cache.Store // optional
	UserAgent string
	Metrics   *metrics.Recorder // optional
}

// CachePolicy tells Get whether and for how long to keep a response.
type CachePolicy struct {
	Enabled bool
	TTL     time.Duration
}

var (
	// NoCache always goes to the network.
	NoCache = CachePolicy{}
	// CacheForever keeps the response until the cache evicts it.
	CacheForever = CachePolicy{Enabled: true, TTL: cache.NoExpiry}
)

// CacheFor keeps the response for ttl.
func CacheFor(ttl time.Duration) CachePolicy {
	return CachePolicy{Enabled: true, TTL: ttl}
}

var (
	// ErrNetwork wraps every failure of a remote call: transport errors,
	// non-success statuses and undecodable payloads.
	ErrNetwork = errors.New("network error")

	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// StatusError reports a non-success HTTP status.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("unexpected status code %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// IsStatus reports whether err carries a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client executes requests with retries, exponential backoff, a circuit
// breaker and an optional response cache.
type Client struct {
	cfg     Config
	circuit *gobreaker.CircuitBreaker
}

// New creates a Client. The breaker opens after five consecutive failures.
func New(cfg Config) *Client {
	if cfg.Name == "" {
		cfg.Name = "http"
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Client{cfg: cfg, circuit: cb}
}

// Get issues a GET request for rawURL, consulting the cache first when the
// policy enables it. Only successful responses are cached.
func (c *Client) Get(ctx context.Context, rawURL string, policy CachePolicy) ([]byte, error) {
	useCache := policy.Enabled && c.cfg.Cache != nil

	if useCache {
		body, ok, err := c.cfg.Cache.Get(ctx, rawURL)
		if err != nil {
			// A broken cache must not block the fetch.
			c.cfg.Metrics.CacheLookup(c.cfg.Name, false)
			logCacheError(c.cfg.Name, err)
		} else if ok {
			c.cfg.Metrics.CacheLookup(c.cfg.Name, true)
			return body, nil
		} else {
			c.cfg.Metrics.CacheLookup(c.cfg.Name, false)
		}
	}

	body, err := c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	})
	if err != nil {
		return nil, err
	}

	if useCache {
		if err := c.cfg.Cache.Set(ctx, rawURL, body, policy.TTL); err != nil {
			logCacheError(c.cfg.Name, err)
		}
	}
	return body, nil
}

// GetJSON fetches rawURL without caching and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	body, err := c.Get(ctx, rawURL, NoCache)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response from %s: %w", ErrNetwork, rawURL, err)
	}
	return nil
}

// Do executes the request produced by buildRequest and returns the body of a
// 2xx response. buildRequest is invoked once per attempt.
func (c *Client) Do(ctx context.Context, buildRequest func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	body, err := c.do(ctx, buildRequest)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrNetwork, c.cfg.Name, err)
	}
	return body, nil
}

type result struct {
	status int
	url    string
	body   []byte
}

func (c *Client) do(ctx context.Context, buildRequest func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	cfg := c.cfg
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest(ctx)
		if err != nil {
			return nil, err
		}
		if cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", cfg.UserAgent)
		}

		out, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			defer resp.Body.Close()

			// Handle rate limiting and server errors explicitly.
			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			}

			body, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return nil, readErr
			}
			// Client errors are the caller's problem, not the remote's health.
			return result{status: resp.StatusCode, url: req.URL.String(), body: body}, nil
		})

		if err == nil {
			res, ok := out.(result)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			if res.status < 200 || res.status >= 300 {
				return nil, &StatusError{StatusCode: res.status, URL: res.url, Body: truncate(string(res.body), 256)}
			}
			return res.body, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= cfg.Backoff.MaxRetries {
			return nil, lastErr
		}

		// Backoff with exponential delay.
		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			// continue to next attempt
		}

		attempt++
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func logCacheError(name string, err error) {
	log.Printf("ERROR: %s: response cache unavailable: %v", name, err)
}
