package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// NewRateLimitedHTTPClient creates an HTTP client whose requests are
// throttled to ratePerSecond. A rate of 0 disables throttling. Used for the
// test-management server and REST trackers, which reject request bursts.
func NewRateLimitedHTTPClient(timeout time.Duration, ratePerSecond float64) *http.Client {
	client := NewDefaultHTTPClient(timeout)
	if ratePerSecond > 0 {
		client.Transport = &rateLimitedTransport{
			base:    http.DefaultTransport,
			limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		}
	}
	return client
}

// rateLimitedTransport blocks each request until the limiter grants a token.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return t.base.RoundTrip(req)
}
