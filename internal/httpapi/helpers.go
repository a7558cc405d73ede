package httpapi

import "net/http"

// methodMux dispatches one route by HTTP method, answering 405 with the
// allowed set for anything unmapped.
func methodMux(m map[string]http.HandlerFunc) http.HandlerFunc {
	allowed := ""
	for method := range m {
		if allowed != "" {
			allowed += ", "
		}
		allowed += method
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := m[r.Method]; ok {
			h(w, r)
			return
		}
		w.Header().Set("Allow", allowed)
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// writeJSON answers 200 with a JSON body; handlers that need another status
// use WriteJSON directly.
func writeJSON(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, v)
}
