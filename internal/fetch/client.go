package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"carwatch-engine/internal/logging"
	"carwatch-engine/internal/proxy"
)

// ErrProxyExhausted is returned when rotation is required, the pool is empty
// and direct fallback is disabled. The crawl loop treats it as a skipped
// cycle, not a crash.
var ErrProxyExhausted = errors.New("proxy pool exhausted and direct fallback disabled")

// Config carries the fetch-related values from the config surface.
type Config struct {
	Rotate         bool          // select a proxy per request
	DirectFallback bool          // go direct when no proxy is available
	Timeout        time.Duration // per-request bound
	MinDelay       time.Duration // randomized pre-request delay window
	MaxDelay       time.Duration
}

// Client performs one GET per call through a proxy picked from the pool,
// with a randomized pre-request delay and a rotating browser identity. It
// never retries; retry policy belongs to the crawl loop.
type Client struct {
	pool    *proxy.Pool
	cfg     Config
	limiter *HostLimiter
}

func NewClient(pool *proxy.Pool, cfg Config, limiter *HostLimiter) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{pool: pool, cfg: cfg, limiter: limiter}
}

// Fetch gets url and returns the body and status code. Transport errors and
// non-2xx statuses are reported to the pool against the endpoint used and
// surface as retryable errors.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, int, error) {
	l := logging.WithComponent("fetch")

	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, url); err != nil {
			return nil, 0, err
		}
	}
	if err := c.throttle(ctx); err != nil {
		return nil, 0, err
	}

	var ep *proxy.Endpoint
	if c.cfg.Rotate && c.pool != nil {
		ep = c.pool.Select()
		if ep == nil && !c.cfg.DirectFallback {
			return nil, 0, ErrProxyExhausted
		}
	}

	tr, err := proxy.NewTransport(ep, c.cfg.Timeout)
	if err != nil {
		// A malformed endpoint counts as a failure against it.
		c.reportFailure(ep)
		return nil, 0, err
	}
	defer tr.CloseIdleConnections()

	client := &http.Client{Transport: tr, Timeout: c.cfg.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	decorate(req)

	resp, err := client.Do(req)
	if err != nil {
		c.reportFailure(ep)
		if ep != nil {
			l.Debug().Err(err).Str("proxy", ep.Key()).Msg("fetch failed via proxy")
		}
		return nil, 0, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.reportFailure(ep)
		return nil, resp.StatusCode, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.reportFailure(ep)
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", url, err)
	}

	c.reportSuccess(ep)
	return body, resp.StatusCode, nil
}

// throttle sleeps a random duration inside the configured window. This is
// pacing against the target site, not jitter for its own sake.
func (c *Client) throttle(ctx context.Context) error {
	if c.cfg.MaxDelay <= 0 {
		return nil
	}
	d := c.cfg.MinDelay
	if span := c.cfg.MaxDelay - c.cfg.MinDelay; span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *Client) reportSuccess(ep *proxy.Endpoint) {
	if ep != nil && c.pool != nil {
		c.pool.ReportSuccess(ep.Key())
	}
}

func (c *Client) reportFailure(ep *proxy.Endpoint) {
	if ep != nil && c.pool != nil {
		c.pool.ReportFailure(ep.Key())
	}
}
