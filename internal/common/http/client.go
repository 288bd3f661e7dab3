package http

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is the outbound HTTP client shared by hub calls. An optional
// limiter keeps request volume under the hub's throttling threshold.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithRateLimit caps outbound requests at rps with the given burst; rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying client, e.g. with an httptest server client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoWithContext waits for the limiter, then sends req bound to ctx.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}
