// Package alias resolves alternate artist names to one canonical graph
// identity. A Resolver is a constructed service: its alias table lives as long
// as the Resolver does and is cleared only by Reset.
package alias

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sydlexius/creditgraph/internal/graph"
	"github.com/sydlexius/creditgraph/internal/metrics"
	"github.com/sydlexius/creditgraph/internal/normalize"
)

// Fetcher supplies the alias names of a catalog artist.
type Fetcher interface {
	GetArtistAliases(ctx context.Context, id string) ([]string, error)
}

// Layer identifies which resolution rule matched.
type Layer int

// Resolution layers, in evaluation order.
const (
	LayerNone Layer = iota
	LayerID
	LayerName
	LayerAlias
)

func (l Layer) String() string {
	switch l {
	case LayerID:
		return "id"
	case LayerName:
		return "name"
	case LayerAlias:
		return "alias"
	default:
		return "none"
	}
}

// Resolution is the identity a credit resolved to. Name is the canonical
// display name when one is known.
type Resolution struct {
	ID    string
	Name  string
	Layer Layer
}

// Artist identifies a primary artist whose aliases should be loaded.
type Artist struct {
	CatalogID string
	EntityID  string
	Name      string
}

// Resolver maps credits to existing entities by catalog ID, normalized name,
// then alias table. It is safe for concurrent use.
type Resolver struct {
	fetcher Fetcher
	logger  *slog.Logger
	group   singleflight.Group

	mu      sync.RWMutex
	aliases map[string]string // normalize.Artist(alias) -> canonical entity ID
	names   map[string]string // canonical entity ID -> display name
	fetched map[string]bool   // catalog IDs whose aliases were requested
}

// New returns an empty Resolver.
func New(fetcher Fetcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		logger:  logger.With(slog.String("component", "alias")),
		aliases: make(map[string]string),
		names:   make(map[string]string),
		fetched: make(map[string]bool),
	}
}

// Register records canonical as the identity for name and every alias. An
// alias already claimed by another identity keeps its first owner.
func (r *Resolver) Register(entityID, name string, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[entityID]; !ok && name != "" {
		r.names[entityID] = name
	}
	for _, a := range append([]string{name}, aliases...) {
		key := normalize.Artist(a)
		if key == "" {
			continue
		}
		if owner, taken := r.aliases[key]; taken && owner != entityID {
			r.logger.Debug("alias already claimed",
				slog.String("alias", a),
				slog.String("owner", owner),
				slog.String("ignored", entityID))
			continue
		}
		r.aliases[key] = entityID
	}
}

// Resolve applies the three layers to a credit and returns the first match.
// ok is false when no layer matched; the caller should then create a new
// entity under candidateID.
func (r *Resolver) Resolve(b *graph.Builder, candidateID, name string) (res Resolution, ok bool) {
	defer func() {
		metrics.AliasResolutions.WithLabelValues(res.Layer.String()).Inc()
	}()

	if candidateID != "" && b.HasEntity(candidateID) {
		e, _ := b.Entity(candidateID)
		return Resolution{ID: candidateID, Name: e.Name, Layer: LayerID}, true
	}
	if id, found := b.ArtistByName(name); found {
		e, _ := b.Entity(id)
		return Resolution{ID: id, Name: e.Name, Layer: LayerName}, true
	}
	if id, found := r.Lookup(name); found {
		canonical, _ := r.CanonicalName(id)
		if e, inGraph := b.Entity(id); inGraph {
			canonical = e.Name
		}
		return Resolution{ID: id, Name: canonical, Layer: LayerAlias}, true
	}
	return Resolution{ID: candidateID, Name: name, Layer: LayerNone}, false
}

// Lookup returns the canonical entity ID registered for name, if any.
func (r *Resolver) Lookup(name string) (string, bool) {
	key := normalize.Artist(name)
	if key == "" {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.aliases[key]
	return id, ok
}

// CanonicalName returns the display name registered for a canonical ID.
func (r *Resolver) CanonicalName(entityID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.names[entityID]
	return n, ok
}

// Fetched reports whether aliases for catalogID have been requested.
func (r *Resolver) Fetched(catalogID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fetched[catalogID]
}

// EnsureFetched loads the aliases of one artist at most once per Resolver
// lifetime. Concurrent callers for the same artist share one request. A
// failed fetch is logged and still counts as fetched. Cancelling ctx stops
// the wait, not the request.
func (r *Resolver) EnsureFetched(ctx context.Context, a Artist) {
	if a.CatalogID == "" || r.Fetched(a.CatalogID) {
		return
	}

	ch := r.group.DoChan(a.CatalogID, func() (any, error) {
		if r.Fetched(a.CatalogID) {
			return nil, nil
		}
		// Detached so an abandoned waiter does not cancel the shared fetch.
		aliases, err := r.fetcher.GetArtistAliases(context.WithoutCancel(ctx), a.CatalogID)
		r.mu.Lock()
		r.fetched[a.CatalogID] = true
		r.mu.Unlock()
		if err != nil {
			r.logger.Warn("alias fetch failed",
				slog.String("artist", a.Name),
				slog.String("catalog_id", a.CatalogID),
				slog.String("error", err.Error()))
			return nil, nil
		}
		r.Register(a.EntityID, a.Name, aliases...)
		r.logger.Debug("aliases loaded",
			slog.String("artist", a.Name),
			slog.Int("count", len(aliases)))
		return nil, nil
	})

	select {
	case <-ch:
	case <-ctx.Done():
	}
}

// Prefetch loads aliases for every artist concurrently and waits for all of
// them. Per-source rate limiting still serializes the upstream calls.
func (r *Resolver) Prefetch(ctx context.Context, artists []Artist) {
	var g errgroup.Group
	for _, a := range artists {
		g.Go(func() error {
			r.EnsureFetched(ctx, a)
			return nil
		})
	}
	_ = g.Wait()
}

// Len returns the number of registered alias keys.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.aliases)
}

// Reset drops the alias table and the fetched set.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases = make(map[string]string)
	r.names = make(map[string]string)
	r.fetched = make(map[string]bool)
}
