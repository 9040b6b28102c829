// Package httpclient is the outbound transport for the storefront core: a
// pooled client with bounded retries plus an optional circuit breaker. The
// gateway drives it exclusively through Do.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Config controls timeouts, retry bounds and connection pooling.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns defaults tuned for a storefront session talking to
// one backend host: short waits, a small pool, two retries.
func DefaultConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    4 * time.Second,
		MaxConnsPerHost: 20,
	}
}

// Client issues requests with bounded retries. Transient failures, meaning
// network errors and 5xx answers other than 501, are retried with
// exponential backoff; the last response or error is returned unchanged
// once MaxRetries is exhausted.
type Client struct {
	hc  *http.Client
	cfg Config
}

// New creates a pooled client from the configuration.
func New(cfg Config) *Client {
	return &Client{
		hc: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        cfg.MaxConnsPerHost,
				MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
				MaxConnsPerHost:     cfg.MaxConnsPerHost,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		cfg: cfg,
	}
}

// Do executes the request, retrying transient failures. Requests built with
// http.NewRequestWithContext from an in-memory reader carry a GetBody, so
// the body is rewound before each retry.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	var resp *http.Response
	var err error

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if waitErr := c.wait(ctx, attempt); waitErr != nil {
				return nil, waitErr
			}
			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, fmt.Errorf("rewind request body: %w", bodyErr)
				}
				req.Body = body
			}
		}

		resp, err = c.hc.Do(req)
		if !retryable(resp, err) || attempt == c.cfg.MaxRetries {
			break
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
	}

	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

// wait sleeps for the backoff of the given attempt, or until the context
// is done.
func (c *Client) wait(ctx context.Context, attempt int) error {
	d := c.cfg.RetryWaitMin << (attempt - 1)
	if c.cfg.RetryWaitMax > 0 && d > c.cfg.RetryWaitMax {
		d = c.cfg.RetryWaitMax
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryable reports whether the outcome of one attempt is worth another.
// Context expiry is terminal even when it surfaces as a net.Error.
func retryable(resp *http.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		var netErr net.Error
		return errors.As(err, &netErr)
	}
	return resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented
}
