// Package api serves the credit graph over HTTP as JSON.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sydlexius/creditgraph/internal/api/middleware"
	"github.com/sydlexius/creditgraph/internal/assembler"
	"github.com/sydlexius/creditgraph/internal/cache"
)

// defaultGraphTimeout bounds one graph request, upstream waits included.
const defaultGraphTimeout = 60 * time.Second

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Assembler *assembler.Assembler
	Cache     *cache.TrackCache
	Limiter   *middleware.ClientRateLimiter
	Logger    *slog.Logger
	BasePath  string
	Timeout   time.Duration
}

// Router sets up all HTTP routes for the application.
type Router struct {
	assembler *assembler.Assembler
	cache     *cache.TrackCache
	limiter   *middleware.ClientRateLimiter
	logger    *slog.Logger
	basePath  string
	timeout   time.Duration
}

// NewRouter creates a new Router.
func NewRouter(deps RouterDeps) *Router {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultGraphTimeout
	}
	return &Router{
		assembler: deps.Assembler,
		cache:     deps.Cache,
		limiter:   deps.Limiter,
		logger:    deps.Logger.With(slog.String("component", "api")),
		basePath:  deps.BasePath,
		timeout:   timeout,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.Handle("GET "+bp+"/metrics", promhttp.Handler())

	mux.Handle("GET "+bp+"/api/v1/graph/track", r.limited(r.handleTrackGraph))
	mux.Handle("GET "+bp+"/api/v1/graph/discography", r.limited(r.handleDiscography))
	mux.Handle("POST "+bp+"/api/v1/graph/expand", r.limited(r.handleExpand))

	mux.HandleFunc("GET "+bp+"/api/v1/cache/stats", r.handleCacheStats)
	mux.HandleFunc("DELETE "+bp+"/api/v1/cache", r.handleCacheClear)

	return middleware.RequestID(middleware.SecurityHeaders(middleware.Logging(r.logger)(mux)))
}

// limited applies the per-client limiter to routes that reach upstream.
func (r *Router) limited(fn http.HandlerFunc) http.Handler {
	if r.limiter == nil {
		return fn
	}
	return r.limiter.Middleware(fn)
}
