package api

import "net/http"

// handleCacheStats serves GET /api/v1/cache/stats.
func (r *Router) handleCacheStats(w http.ResponseWriter, req *http.Request) {
	if r.cache == nil {
		writeError(w, http.StatusNotFound, "track cache disabled")
		return
	}
	st, err := r.cache.Stats(req.Context())
	if err != nil {
		r.logger.Error("reading cache stats", "error", err)
		writeError(w, http.StatusInternalServerError, "reading cache stats failed")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleCacheClear serves DELETE /api/v1/cache.
func (r *Router) handleCacheClear(w http.ResponseWriter, req *http.Request) {
	if r.cache == nil {
		writeError(w, http.StatusNotFound, "track cache disabled")
		return
	}
	if err := r.cache.Clear(req.Context()); err != nil {
		r.logger.Error("clearing cache", "error", err)
		writeError(w, http.StatusInternalServerError, "clearing cache failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
