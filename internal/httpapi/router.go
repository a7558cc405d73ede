package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still wrap it in middleware.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Health
	hh := HealthHandler{Hub: d.Hub, Crawler: d.Crawler, Pool: d.Pool, StartedAt: d.StartedAt}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Listings
	lh := ListingsHandler{DB: d.DB, Backlog: d.Backlog}
	mux.HandleFunc("/listings", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.List,
	}))

	// Proxies
	ph := ProxiesHandler{Pool: d.Pool, CfgVal: d.CfgVal, TriggerHarvest: d.TriggerHarvest}
	mux.HandleFunc("/proxies", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  ph.List,
		http.MethodPost: ph.Add,
	}))
	mux.HandleFunc("/proxies/stats", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.Stats,
	}))
	mux.HandleFunc("/proxies/harvest", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ph.Harvest,
	}))
	mux.HandleFunc("/proxies/reset-failed", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ph.ResetFailed,
	}))

	// Crawl
	crh := CrawlHandler{Crawler: d.Crawler}
	mux.HandleFunc("/crawl/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: crh.Status,
	}))
	mux.HandleFunc("/crawl/reset-seen", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: crh.ResetSeen,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// WebSocket
	wh := WSHandler{Hub: d.Hub, Backlog: d.Backlog}
	mux.HandleFunc("/ws", wh.ServeWS)

	return mux
}
