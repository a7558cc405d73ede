package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"carwatch-engine/internal/proxy"
)

type ProxiesHandler struct {
	Pool           *proxy.Pool
	CfgVal         *atomic.Value
	TriggerHarvest func(ctx context.Context) error
}

func (h ProxiesHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"proxies": h.Pool.Snapshot()})
}

func (h ProxiesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Pool.Stats())
}

// Add registers manual proxies at runtime. They survive eviction but not a
// restart; persistent entries belong in the config.
func (h ProxiesHandler) Add(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Proxies []string `json:"proxies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid JSON: "+err.Error())
		return
	}
	if len(body.Proxies) == 0 {
		WriteError(w, r, http.StatusBadRequest, "empty", "proxies must be a non-empty array")
		return
	}

	added := 0
	var rejected []string
	for _, raw := range body.Proxies {
		ep, err := proxy.ParseEndpoint(raw, proxy.OriginManual)
		if err != nil {
			rejected = append(rejected, raw)
			continue
		}
		if h.Pool.Add(ep) {
			added++
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"added": added, "rejected": rejected})
}

// Harvest triggers a harvest pass in the background and returns immediately.
func (h ProxiesHandler) Harvest(w http.ResponseWriter, r *http.Request) {
	if h.TriggerHarvest == nil {
		WriteError(w, r, http.StatusConflict, "harvest_disabled", "harvesting is not configured")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_ = h.TriggerHarvest(ctx)
	}()

	WriteJSON(w, http.StatusAccepted, map[string]any{"started": true})
}

func (h ProxiesHandler) ResetFailed(w http.ResponseWriter, r *http.Request) {
	n := h.Pool.ResetFailed()
	WriteJSON(w, http.StatusOK, map[string]any{"reset": n})
}
