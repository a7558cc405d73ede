package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"

	"carwatch-engine/internal/domain"
	"carwatch-engine/internal/events"
	"carwatch-engine/internal/store"
)

type ListingsHandler struct {
	DB      *sql.DB
	Backlog *events.Backlog
}

// List returns recent listings, newest first. ?source=memory serves straight
// from the in-memory backlog, anything else reads the archive.
func (h ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("source") == "memory" {
		WriteJSON(w, http.StatusOK, map[string]any{"listings": h.Backlog.Snapshot()})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, r, http.StatusBadRequest, "bad_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	listings, err := store.RecentListings(r.Context(), h.DB, limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if listings == nil {
		listings = []domain.Listing{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"listings": listings})
}
