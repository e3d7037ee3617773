package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/movers/pkg/config"
	"github.com/wonny/movers/pkg/logger"
)

// DefaultUserAgent mimics a browser; the exchange rejects bare Go clients
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client wraps http.Client with retries, an optional rate limit and request logs
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	retryConfig RetryConfig
	limiter     *rate.Limiter
}

// RetryConfig controls backoff between attempts
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

const defaultTimeout = 30 * time.Second

// DefaultRetryConfig retries three times, 1s doubling up to 10s
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Enabled: true}
}

// New creates the feed client: TWSE timeout, three retries, optional rate limit
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.TWSE.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		logger:      log,
		retryConfig: DefaultRetryConfig(),
	}
	if cfg.TWSE.RateLimit > 0 {
		c.WithRateLimit(cfg.TWSE.RateLimit, 1)
	}
	return c
}

// WithRetry enables retries with exponential backoff from initialDelay
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = true
	return c
}

// DisableRetry sends every request exactly once
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithRateLimit limits outgoing requests to rps with the given burst
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// Get issues a GET with the browser headers the exchange expects
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build GET %s: %w", url, err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")

	return c.Do(ctx, req)
}

// Do sends req after the rate limiter admits it, retrying when enabled.
// The caller owns the response body.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	log := c.logger.WithFields(map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})
	started := time.Now()

	attempts := 1
	if c.retryConfig.Enabled && c.retryConfig.MaxRetries > 0 {
		attempts += c.retryConfig.MaxRetries
	}
	resp, err := c.send(ctx, req, attempts, log)

	elapsed := time.Since(started)
	if err != nil {
		log.WithError(err).WithField("duration", elapsed).Error("HTTP request failed")
		return nil, err
	}
	log.WithFields(map[string]interface{}{
		"status_code": resp.StatusCode,
		"duration":    elapsed,
	}).Debug("HTTP request completed")
	return resp, nil
}

// send tries req up to attempts times with exponential backoff. A retryable
// status on the last attempt is returned as a response, not an error.
func (c *Client) send(ctx context.Context, req *http.Request, attempts int, log *logger.Logger) (*http.Response, error) {
	delay := c.retryConfig.InitialDelay
	for attempt := 1; ; attempt++ {
		resp, err := c.httpClient.Do(req)
		retryable := err != nil || IsRetryableError(resp.StatusCode)
		if !retryable || attempt >= attempts {
			return resp, err
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		log.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("Retrying HTTP request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > c.retryConfig.MaxDelay {
			delay = c.retryConfig.MaxDelay
		}
	}
}

// IsRetryableError reports whether a status is worth another attempt (5xx, 429)
func IsRetryableError(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
