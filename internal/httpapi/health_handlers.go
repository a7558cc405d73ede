package httpapi

import (
	"net/http"
	"time"

	"carwatch-engine/internal/crawl"
	"carwatch-engine/internal/events"
	"carwatch-engine/internal/proxy"
)

type HealthHandler struct {
	Hub       *events.Hub
	Crawler   *crawl.Crawler
	Pool      *proxy.Pool
	StartedAt time.Time
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"ok":             true,
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
		"subscribers":    h.Hub.Count(),
	}
	if h.Crawler != nil {
		resp["seen"] = h.Crawler.SeenCount()
		resp["crawl"] = h.Crawler.Status()
	}
	if h.Pool != nil {
		resp["proxies"] = h.Pool.Stats()
	}
	WriteJSON(w, http.StatusOK, resp)
}
