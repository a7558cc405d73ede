package crawl

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"carwatch-engine/internal/domain"
	"carwatch-engine/internal/logging"
)

// Fetcher gets one page. Satisfied by fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body []byte, status int, err error)
}

// Parser turns raw markup into listings. An unparseable page yields an empty
// slice, never an error.
type Parser interface {
	Parse(body []byte) []domain.Listing
}

// Status is the health snapshot exposed on the admin surface, in the shape
// operators poll.
type Status struct {
	LastRunAt     string `json:"last_run_at"`
	LastOkAt      string `json:"last_ok_at"`
	LastError     string `json:"last_error"`
	LastNew       int    `json:"last_new"`
	TotalCycles   int64  `json:"total_cycles"`
	TotalListings int64  `json:"total_listings"`
}

// Config carries the crawl-related values from the config surface.
type Config struct {
	TargetURL string
	Interval  time.Duration
	Workers   int
}

// Crawler drives periodic fetch→parse→diff cycles over a bounded worker
// pool and hands each newly seen listing to onNew in page order.
type Crawler struct {
	fetcher Fetcher
	parser  Parser
	seen    *SeenSet
	cfg     Config
	onNew   func(domain.Listing)

	workers chan struct{}
	wg      sync.WaitGroup

	// statusMu serializes the read-modify-write in storeStatus across
	// overlapping cycles; reads go through the atomic.Value lock-free.
	statusMu      sync.Mutex
	status        atomic.Value // Status
	totalCycles   atomic.Int64
	totalListings atomic.Int64
}

func New(fetcher Fetcher, parser Parser, seen *SeenSet, cfg Config, onNew func(domain.Listing)) *Crawler {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	c := &Crawler{
		fetcher: fetcher,
		parser:  parser,
		seen:    seen,
		cfg:     cfg,
		onNew:   onNew,
		workers: make(chan struct{}, cfg.Workers),
	}
	c.status.Store(Status{})
	return c
}

// Run blocks until ctx is cancelled. A tick that arrives while every worker
// is busy is skipped: backpressure by saturation, so a slow target cannot
// queue up an unbounded fetch backlog. In-flight cycles finish or time out
// on their own after cancellation.
func (c *Crawler) Run(ctx context.Context) {
	l := logging.WithComponent("crawl")
	l.Info().
		Str("target", c.cfg.TargetURL).
		Dur("interval", c.cfg.Interval).
		Int("workers", c.cfg.Workers).
		Msg("crawl loop starting")

	t := time.NewTicker(c.cfg.Interval)
	defer t.Stop()

	c.dispatch(ctx)
	for {
		select {
		case <-ctx.Done():
			c.wg.Wait()
			l.Info().Msg("crawl loop stopped")
			return
		case <-t.C:
			c.dispatch(ctx)
		}
	}
}

func (c *Crawler) dispatch(ctx context.Context) {
	select {
	case c.workers <- struct{}{}:
	default:
		l := logging.WithComponent("crawl")
		l.Debug().Msg("all workers busy, tick skipped")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() { <-c.workers }()
		c.RunOnce(ctx)
	}()
}

// RunOnce executes a single fetch→parse→diff cycle and returns how many new
// listings it emitted. A fetch failure logs, records status and skips the
// cycle; it never takes the loop down.
func (c *Crawler) RunOnce(ctx context.Context) int {
	l := logging.WithComponent("crawl")
	started := time.Now().UTC()

	body, _, err := c.fetcher.Fetch(ctx, c.cfg.TargetURL)
	if err != nil {
		l.Warn().Err(err).Msg("fetch failed, cycle skipped")
		c.storeStatus(started, time.Time{}, err, 0)
		return 0
	}

	listings := c.parser.Parse(body)
	c.totalCycles.Add(1)
	c.totalListings.Add(int64(len(listings)))

	// Diff in page order; a duplicate id within the same page is emitted
	// only once.
	emitted := 0
	inCycle := make(map[string]struct{}, len(listings))
	for _, listing := range listings {
		if _, dup := inCycle[listing.ID]; dup {
			continue
		}
		inCycle[listing.ID] = struct{}{}

		if !c.seen.TestAndInsert(listing.ID) {
			continue
		}
		if c.onNew != nil {
			c.onNew(listing)
		}
		emitted++
	}

	if emitted > 0 {
		l.Info().Int("new", emitted).Int("on_page", len(listings)).Msg("new listings found")
	}
	c.storeStatus(started, time.Now().UTC(), nil, emitted)
	return emitted
}

func (c *Crawler) storeStatus(runAt, okAt time.Time, err error, added int) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	st := c.status.Load().(Status)
	st.LastRunAt = runAt.Format(time.RFC3339)
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = okAt.Format(time.RFC3339)
		st.LastNew = added
	}
	st.TotalCycles = c.totalCycles.Load()
	st.TotalListings = c.totalListings.Load()
	c.status.Store(st)
}

func (c *Crawler) Status() Status {
	return c.status.Load().(Status)
}

// ResetSeen clears the seen set so every listing is eligible to be reported
// again.
func (c *Crawler) ResetSeen() {
	c.seen.Reset()
}

// SeenCount reports the current seen-set size for the health surface.
func (c *Crawler) SeenCount() int {
	return c.seen.Len()
}
