package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sydlexius/creditgraph/internal/assembler"
	"github.com/sydlexius/creditgraph/internal/provider"
	"github.com/sydlexius/creditgraph/internal/version"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// writeResult answers a graph request. A not-found result is still a
// graph, sent with 404.
func writeResult(w http.ResponseWriter, res *assembler.Result) {
	status := http.StatusOK
	if !res.Found {
		status = http.StatusNotFound
	}
	writeJSON(w, status, res)
}

// writeGraphError maps assembly failures to HTTP statuses.
func (r *Router) writeGraphError(w http.ResponseWriter, req *http.Request, err error) {
	var (
		rl *provider.ErrRateLimited
		pu *provider.ErrProviderUnavailable
		ar *provider.ErrAuthRequired
	)
	switch {
	case errors.Is(err, assembler.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assembler.ErrUnsupported):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "upstream catalogs did not answer in time")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the answer.
		w.WriteHeader(499)
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(max(int(rl.RetryAfter/time.Second), 1)))
		writeError(w, http.StatusServiceUnavailable, "upstream catalog is rate limiting")
	case errors.As(err, &pu), errors.As(err, &ar):
		writeError(w, http.StatusBadGateway, "upstream catalog unavailable")
	default:
		r.logger.Error("graph request failed",
			"path", req.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
