package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"carwatch-engine/internal/config"
	"carwatch-engine/internal/crawl"
	"carwatch-engine/internal/domain"
	"carwatch-engine/internal/events"
	"carwatch-engine/internal/fetch"
	"carwatch-engine/internal/httpapi"
	"carwatch-engine/internal/logging"
	"carwatch-engine/internal/parse"
	"carwatch-engine/internal/proxy"
	"carwatch-engine/internal/scheduler"
	"carwatch-engine/internal/store"
)

func main() {
	log := logging.WithComponent("main")

	dataDir := os.Getenv("CARWATCH_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("data dir")
	}

	// One engine per data dir; a second instance would fight over the db and
	// double-crawl the target.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		log.Fatal().Err(err).Str("dir", dataDir).Msg("another instance holds the data dir lock")
	}
	defer lock.Unlock()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config bootstrap failed")
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		if err := config.OverlayProxies(&cfg, filepath.Join(dataDir, "proxies.yml")); err != nil {
			return cfg, err
		}
		normalized, vr := config.NormalizeAndValidate(cfg)
		cl := logging.WithComponent("config")
		for _, w := range vr.Warnings {
			cl.Warn().Msg(w)
		}
		if !vr.OK() {
			cl.Error().Strs("errors", vr.Errors).Msg("config invalid")
		}
		return normalized, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatal().Err(err).Str("path", userCfgPath).Msg("config load failed")
	}
	cfgVal.Store(cfg)

	logging.Init(cfg.Log.Level)
	log = logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(filepath.Join(dataDir, "carwatch.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal().Err(err).Msg("migrate db")
	}

	// Warm-start the seen set from the archive so a restart doesn't
	// re-announce every listing already on the page.
	seen := crawl.NewSeenSet()
	if ids, err := store.AllListingIDs(ctx, db.Pool); err != nil {
		log.Warn().Err(err).Msg("seen warm-start failed, starting cold")
	} else {
		seen.AddAll(ids)
		log.Info().Int("ids", len(ids)).Msg("seen set warm-started from archive")
	}

	pool := proxy.NewPool(cfg.Proxy.FailureThreshold, cfg.Proxy.MaxPoolSize)
	for _, raw := range cfg.Proxy.Manual {
		ep, err := proxy.ParseEndpoint(raw, proxy.OriginManual)
		if err != nil {
			log.Warn().Err(err).Str("proxy", raw).Msg("skipping bad manual proxy")
			continue
		}
		pool.Add(ep)
	}

	var triggerHarvest func(ctx context.Context) error
	if cfg.Harvest.Enabled {
		harvester := proxy.NewHarvester(pool, proxy.HarvesterConfig{
			Sources:      cfg.Harvest.Sources,
			ProbeURL:     cfg.Harvest.ProbeURL,
			ProbeTimeout: time.Duration(cfg.Harvest.ProbeTimeoutSeconds) * time.Second,
			Concurrency:  cfg.Harvest.Concurrency,
		})
		triggerHarvest = harvester.Run
		go scheduler.Every(ctx, time.Duration(cfg.Harvest.IntervalSeconds)*time.Second, "harvest", harvester.Run)
	}

	hub := events.NewHub()
	backlog := events.NewBacklog(1000)

	client := fetch.NewClient(pool, fetch.Config{
		Rotate:         cfg.Proxy.Rotate,
		DirectFallback: cfg.Proxy.DirectFallback,
		Timeout:        time.Duration(cfg.Crawl.RequestTimeoutSeconds) * time.Second,
		MinDelay:       time.Duration(cfg.Crawl.MinDelayMS) * time.Millisecond,
		MaxDelay:       time.Duration(cfg.Crawl.MaxDelayMS) * time.Millisecond,
	}, fetch.NewHostLimiter(2, 4))

	parser := parse.New(cfg.Crawl.TargetURL, cfg.Crawl.Source)

	onNew := func(l domain.Listing) {
		if _, err := store.InsertListingIgnore(db.Pool, l); err != nil {
			log.Warn().Err(err).Str("id", l.ID).Msg("archive insert failed")
		}
		backlog.Add(l)
		hub.Publish(events.Make(events.TypeNewListing, l))
	}

	crawler := crawl.New(client, parser, seen, crawl.Config{
		TargetURL: cfg.Crawl.TargetURL,
		Interval:  time.Duration(cfg.Crawl.IntervalSeconds) * time.Second,
		Workers:   cfg.Crawl.Workers,
	}, onNew)
	go crawler.Run(ctx)

	mux := httpapi.NewMux(httpapi.Deps{
		DB:             db.Pool,
		Hub:            hub,
		Backlog:        backlog,
		Pool:           pool,
		Crawler:        crawler,
		CfgVal:         &cfgVal,
		UserCfgPath:    userCfgPath,
		LoadCfg:        loadCfg,
		TriggerHarvest: triggerHarvest,
		StartedAt:      time.Now().UTC(),
	})

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", addr).Msg("listen failed")
	}
	log.Info().Str("addr", "http://"+addr).Str("target", cfg.Crawl.TargetURL).Msg("engine listening")

	srv := &http.Server{
		Handler:           httpapi.Chain(mux, httpapi.RequestID, httpapi.Recover, httpapi.AccessLog, httpapi.Cors),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("engine stopped")
}
