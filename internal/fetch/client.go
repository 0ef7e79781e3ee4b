package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/vizlet/vizlet/internal/resilience"
	"github.com/vizlet/vizlet/internal/types"
)

// Fetcher retrieves raw payloads for live data sources.
type Fetcher interface {
	Fetch(ctx context.Context, source types.SourceConfig) (any, error)
}

// Config controls the fetch client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
	// RequestsPerSecond of 0 means unlimited.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns production defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		Timeout:    10 * time.Second,
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}
}

// Client wraps resty with retries, rate limiting, and a circuit breaker
// for the data proxy.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	baseURL string
}

// New creates a fetch client.
func New(config Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = config.MaxRetries
	retryClient.RetryWaitMin = config.MinWait
	retryClient.RetryWaitMax = config.MaxWait
	retryClient.Logger = nil

	restyClient := resty.New()
	restyClient.
		SetTimeout(config.Timeout).
		SetRetryCount(config.MaxRetries).
		SetRetryWaitTime(config.MinWait).
		SetRetryMaxWaitTime(config.MaxWait).
		SetHeader("User-Agent", "Vizlet-Fetch/1.0").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	// Upstream integrations vary in reliability; trip only on sustained
	// failure so one flaky source does not dark out the proxy.
	breaker := resilience.New("data-proxy", resilience.Settings{
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 10 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		baseURL: config.BaseURL,
	}
}

// request is the body of the data proxy call.
type request struct {
	SourceID string         `json:"sourceId"`
	Endpoint string         `json:"endpoint"`
	Params   map[string]any `json:"params,omitempty"`
}

// response is the proxy's envelope. Data carries whatever shape the
// upstream API returned.
type response struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// Fetch requests the source's payload through the data proxy. The raw
// payload comes back untouched; callers normalize it afterwards.
func (c *Client) Fetch(ctx context.Context, source types.SourceConfig) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	data, err := c.breaker.Execute(func() (any, error) {
		var out response
		resp, err := c.resty.R().
			SetContext(ctx).
			SetBody(request{
				SourceID: source.SourceID,
				Endpoint: source.Endpoint,
				Params:   source.Params,
			}).
			SetResult(&out).
			Post(c.baseURL + "/api/fetch-data")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status %d", resp.StatusCode())
		}
		if out.Error != "" {
			return nil, fmt.Errorf("%s", out.Error)
		}
		return out.Data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source.SourceID, err)
	}
	return data, nil
}
