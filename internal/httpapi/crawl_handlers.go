package httpapi

import (
	"net/http"

	"carwatch-engine/internal/crawl"
)

type CrawlHandler struct {
	Crawler *crawl.Crawler
}

func (h CrawlHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Crawler.Status())
}

// ResetSeen clears the seen set. The next cycle re-announces everything on
// the page, which is exactly what callers asking for this want.
func (h CrawlHandler) ResetSeen(w http.ResponseWriter, r *http.Request) {
	h.Crawler.ResetSeen()
	WriteJSON(w, http.StatusOK, map[string]any{"reset": true})
}
