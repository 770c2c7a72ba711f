package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sydlexius/creditgraph/internal/assembler"
	"github.com/sydlexius/creditgraph/internal/graph"
)

func (r *Router) graphContext(req *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(req.Context(), r.timeout)
}

// handleTrackGraph serves GET /api/v1/graph/track?artist=&track=&album=.
func (r *Router) handleTrackGraph(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	ctx, cancel := r.graphContext(req)
	defer cancel()

	res, err := r.assembler.TrackGraph(ctx, assembler.TrackRequest{
		Artist: q.Get("artist"),
		Track:  q.Get("track"),
		Album:  q.Get("album"),
	})
	if err != nil {
		r.writeGraphError(w, req, err)
		return
	}
	writeResult(w, res)
}

// handleDiscography serves GET /api/v1/graph/discography?artist=.
func (r *Router) handleDiscography(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := r.graphContext(req)
	defer cancel()

	res, err := r.assembler.Discography(ctx, req.URL.Query().Get("artist"))
	if err != nil {
		r.writeGraphError(w, req, err)
		return
	}
	writeResult(w, res)
}

// handleExpand serves POST /api/v1/graph/expand with an entity as body.
func (r *Router) handleExpand(w http.ResponseWriter, req *http.Request) {
	var e graph.Entity
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBody))
	if err := dec.Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := r.graphContext(req)
	defer cancel()

	res, err := r.assembler.Expand(ctx, e)
	if err != nil {
		r.writeGraphError(w, req, err)
		return
	}
	writeResult(w, res)
}
