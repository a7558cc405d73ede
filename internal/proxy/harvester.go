package proxy

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"carwatch-engine/internal/logging"
)

// hostPortRe matches ip:port anywhere in a source line, so sources that wrap
// entries in extra text still yield candidates.
var hostPortRe = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}:\d{2,5}\b`)

// HarvesterConfig carries the plain values the harvester needs; they come
// from the config surface.
type HarvesterConfig struct {
	Sources      []string
	ProbeURL     string
	ProbeTimeout time.Duration
	FetchTimeout time.Duration
	Concurrency  int
}

// Harvester fetches free proxy lists from public sources, probes each
// candidate for liveness, and merges survivors into the pool.
type Harvester struct {
	pool   *Pool
	cfg    HarvesterConfig
	client *http.Client

	mu      sync.Mutex
	running bool
}

func NewHarvester(pool *Pool, cfg HarvesterConfig) *Harvester {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	return &Harvester{
		pool:   pool,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// Run executes one full harvest pass. A pass already in flight is skipped so
// the timer and the manual trigger cannot pile up. Source failures are logged
// and never abort the remaining sources.
func (h *Harvester) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
	}()

	l := logging.WithComponent("proxy/harvester")

	var candidates []*Endpoint
	seen := make(map[string]struct{})
	for i, src := range h.cfg.Sources {
		if i > 0 {
			// Spread source fetches out so we don't trip rate limits on the
			// list sites themselves.
			delay := time.Second + time.Duration(rand.Int63n(int64(2*time.Second)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		eps, err := h.fetchSource(ctx, src)
		if err != nil {
			l.Warn().Err(err).Str("source", src).Msg("source fetch failed, skipping")
			continue
		}
		for _, ep := range eps {
			if _, dup := seen[ep.Key()]; dup {
				continue
			}
			seen[ep.Key()] = struct{}{}
			candidates = append(candidates, ep)
		}
		l.Info().Str("source", src).Int("candidates", len(eps)).Msg("source fetched")
	}

	if len(candidates) == 0 {
		l.Info().Msg("harvest pass found no candidates")
		return nil
	}

	alive := h.probeAll(ctx, candidates)
	added := h.pool.Merge(alive)
	l.Info().
		Int("candidates", len(candidates)).
		Int("alive", len(alive)).
		Int("added", added).
		Msg("harvest pass finished")
	return nil
}

// fetchSource downloads one source list and parses it into candidate
// endpoints. Malformed lines are skipped individually.
func (h *Harvester) fetchSource(ctx context.Context, src string) ([]*Endpoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/plain,*/*;q=0.9")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source %s: status %d", src, resp.StatusCode)
	}

	var out []*Endpoint
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		for _, m := range hostPortRe.FindAllString(sc.Text(), -1) {
			host, port, err := net.SplitHostPort(m)
			if err != nil || net.ParseIP(host) == nil {
				continue
			}
			ep, err := ParseEndpoint(net.JoinHostPort(host, port), OriginHarvested)
			if err != nil {
				continue
			}
			out = append(out, ep)
		}
	}
	if err := sc.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// probeAll runs liveness probes with bounded concurrency and returns the
// candidates that answered.
func (h *Harvester) probeAll(ctx context.Context, candidates []*Endpoint) []*Endpoint {
	var (
		mu    sync.Mutex
		alive []*Endpoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Concurrency)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			if err := Probe(gctx, c, h.cfg.ProbeURL, h.cfg.ProbeTimeout); err != nil {
				return nil // dead candidate, not an error for the pass
			}
			// A passed probe counts as a success, so eviction prefers stale
			// entries over candidates that just answered.
			c.Status = StatusUntested
			c.LastSuccess = time.Now().UTC()
			mu.Lock()
			alive = append(alive, c)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return alive
}
