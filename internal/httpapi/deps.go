package httpapi

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"carwatch-engine/internal/config"
	"carwatch-engine/internal/crawl"
	"carwatch-engine/internal/events"
	"carwatch-engine/internal/proxy"
)

type Deps struct {
	DB *sql.DB

	Hub     *events.Hub
	Backlog *events.Backlog

	Pool    *proxy.Pool
	Crawler *crawl.Crawler

	// Atomic store for the live config
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Harvest entrypoint (inject for testability); nil when harvesting is off
	TriggerHarvest func(ctx context.Context) error

	StartedAt time.Time
}
