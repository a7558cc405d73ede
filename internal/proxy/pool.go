package proxy

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"carwatch-engine/internal/logging"
)

// Stats is a read-only snapshot of the pool for the admin surface.
type Stats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Failed    int `json:"failed"`
	Manual    int `json:"manual"`
	Harvested int `json:"harvested"`
}

// Pool owns the set of egress endpoints. All methods are safe for concurrent
// use by the crawl workers and the harvester.
type Pool struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
	threshold int // consecutive failures before an endpoint is marked failed
	maxSize   int // cap on pool size; manual entries are never evicted for it
}

func NewPool(failureThreshold, maxSize int) *Pool {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	return &Pool{
		endpoints: make(map[string]*Endpoint),
		threshold: failureThreshold,
		maxSize:   maxSize,
	}
}

// Add inserts one endpoint, overwriting nothing: an existing key wins so that
// health state survives config reloads and repeat harvests. It reports
// whether the endpoint was new.
func (p *Pool) Add(ep *Endpoint) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.endpoints[ep.Key()]; exists {
		return false
	}
	p.endpoints[ep.Key()] = ep
	return true
}

// Select returns a uniformly random non-failed endpoint. When every endpoint
// is failed it degrades to a uniformly random pick from the whole pool rather
// than blocking the crawl; an empty pool returns nil.
func (p *Pool) Select() *Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.endpoints) == 0 {
		return nil
	}

	candidates := make([]*Endpoint, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		if ep.Status != StatusFailed {
			candidates = append(candidates, ep)
		}
	}
	if len(candidates) == 0 {
		for _, ep := range p.endpoints {
			candidates = append(candidates, ep)
		}
	}

	pick := candidates[rand.Intn(len(candidates))]
	cp := *pick
	return &cp
}

// ReportSuccess resets the failure counter and marks the endpoint healthy.
func (p *Pool) ReportSuccess(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ep, ok := p.endpoints[key]
	if !ok {
		return
	}
	ep.Failures = 0
	ep.Status = StatusHealthy
	ep.LastSuccess = time.Now().UTC()
}

// ReportFailure increments the failure counter and flips the endpoint to
// failed once it crosses the threshold.
func (p *Pool) ReportFailure(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ep, ok := p.endpoints[key]
	if !ok {
		return
	}
	ep.Failures++
	if ep.Failures >= p.threshold {
		ep.Status = StatusFailed
	}
}

// Merge adds harvested candidates, evicting to stay under the cap. Eviction
// order: harvested failed endpoints first, then harvested with the oldest
// last success. Manual endpoints are never evicted to make room.
func (p *Pool) Merge(candidates []*Endpoint) int {
	l := logging.WithComponent("proxy/pool")

	p.mu.Lock()
	defer p.mu.Unlock()

	added := 0
	for _, c := range candidates {
		if _, exists := p.endpoints[c.Key()]; exists {
			continue
		}
		p.endpoints[c.Key()] = c
		added++
	}

	if p.maxSize > 0 && len(p.endpoints) > p.maxSize {
		evicted := p.evictLocked(len(p.endpoints) - p.maxSize)
		l.Debug().Int("evicted", evicted).Int("size", len(p.endpoints)).Msg("pool over cap, evicted harvested entries")
	}

	if added > 0 {
		l.Info().Int("added", added).Int("total", len(p.endpoints)).Msg("merged harvested proxies")
	}
	return added
}

// evictLocked removes up to n harvested endpoints, weakest first. Caller
// holds the write lock.
func (p *Pool) evictLocked(n int) int {
	victims := make([]*Endpoint, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		if ep.Origin == OriginHarvested {
			victims = append(victims, ep)
		}
	}
	sort.Slice(victims, func(i, j int) bool {
		fi, fj := victims[i].Status == StatusFailed, victims[j].Status == StatusFailed
		if fi != fj {
			return fi
		}
		return victims[i].LastSuccess.Before(victims[j].LastSuccess)
	})

	removed := 0
	for _, v := range victims {
		if removed >= n {
			break
		}
		delete(p.endpoints, v.Key())
		removed++
	}
	return removed
}

// ResetFailed moves every failed endpoint back to untested so it can be
// retried, used to recover from transient global blocking.
func (p *Pool) ResetFailed() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	reset := 0
	for _, ep := range p.endpoints {
		if ep.Status == StatusFailed {
			ep.Status = StatusUntested
			ep.Failures = 0
			reset++
		}
	}
	return reset
}

func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var s Stats
	s.Total = len(p.endpoints)
	for _, ep := range p.endpoints {
		if ep.Status == StatusFailed {
			s.Failed++
		} else {
			s.Available++
		}
		if ep.Origin == OriginManual {
			s.Manual++
		} else {
			s.Harvested++
		}
	}
	return s
}

// Snapshot returns a copy of every endpoint, sorted by key for a stable
// admin view.
func (p *Pool) Snapshot() []Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Endpoint, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		out = append(out, *ep)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})
	return out
}
