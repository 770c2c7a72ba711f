package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sydlexius/creditgraph/internal/event"
	"github.com/sydlexius/creditgraph/internal/graph"
	"github.com/sydlexius/creditgraph/internal/metrics"
	"github.com/sydlexius/creditgraph/internal/provider"
)

// Expand grows the graph one level below e. An album yields its tracks, a
// track its performers and personnel, an artist its release groups. New
// entities carry parentId e.ID and depth e.Depth+1. The returned graph
// includes e itself.
func (a *Assembler) Expand(ctx context.Context, e graph.Entity) (*Result, error) {
	if e.ID == "" {
		return nil, fmt.Errorf("%w: entity id is required", ErrInvalidRequest)
	}
	start := time.Now()
	defer func() {
		metrics.AssemblyDuration.WithLabelValues("expand").Observe(time.Since(start).Seconds())
	}()

	var (
		res *Result
		err error
	)
	switch e.Type {
	case graph.TypeAlbum:
		res, err = a.expandAlbum(ctx, e)
	case graph.TypeTrack:
		res, err = a.expandTrack(ctx, e)
	case graph.TypeArtist:
		res, err = a.expandArtist(ctx, e)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, e.Type)
	}
	if err != nil || !res.Found {
		return res, err
	}

	res.RootID = e.ID
	a.bus.Publish(event.Event{Type: event.ExpandCompleted, Data: map[string]any{
		"entity_id": e.ID,
		"type":      string(e.Type),
		"entities":  len(res.Entities),
	}})
	a.logger.Debug("entity expanded",
		slog.String("entity", e.ID),
		slog.Int("entities", len(res.Entities)),
		slog.Int("relationships", len(res.Relationships)))
	return res, nil
}

func (a *Assembler) expandAlbum(ctx context.Context, e graph.Entity) (*Result, error) {
	rel, err := a.albumRelease(ctx, e)
	if provider.IsNotFound(err) || (err == nil && rel == nil) {
		return notFound(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("expanding album %s: %w", e.ID, err)
	}

	b := graph.NewBuilder()
	b.AddEntity(e)
	for _, tr := range rel.Tracks {
		if tr.RecordingID == "" {
			continue
		}
		id := graph.TrackID(tr.RecordingID)
		b.AddEntity(graph.Entity{
			ID:       id,
			Name:     tr.Title,
			Type:     graph.TypeTrack,
			SourceID: tr.RecordingID,
			ParentID: e.ID,
			Depth:    e.Depth + 1,
		})
		b.AddRelationship(e.ID, id, graph.RoleContains)
	}
	return &Result{Graph: b.Graph(), Found: true}, nil
}

// albumRelease returns the release behind an album entity. Release-group
// albums open the best-scoring release of the group.
func (a *Assembler) albumRelease(ctx context.Context, e graph.Entity) (*provider.ReleaseDetail, error) {
	if strings.HasPrefix(e.ID, graph.ReleaseGroupAlbumID("")) {
		groupID := sourceID(e, graph.ReleaseGroupAlbumID(""))
		refs, err := a.catalog.BrowseReleases(ctx, groupID)
		if err != nil {
			return nil, err
		}
		best, ok := a.matcher.BestReleaseOf(e.Name, refs)
		if !ok {
			return nil, nil
		}
		return a.catalog.GetRelease(ctx, best.ID)
	}
	return a.catalog.GetRelease(ctx, sourceID(e, graph.AlbumID("")))
}

func (a *Assembler) expandTrack(ctx context.Context, e graph.Entity) (*Result, error) {
	rec, err := a.catalog.GetRecording(ctx, sourceID(e, graph.TrackID("")))
	if provider.IsNotFound(err) {
		return notFound(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("expanding track %s: %w", e.ID, err)
	}

	b := graph.NewBuilder()
	b.AddEntity(e)
	primary := a.merger.AddArtistCredits(b, e.ID, rec.Credits)
	a.aliases.Prefetch(ctx, primary)
	a.merger.AddRelations(b, e.ID, rec.Relations)
	a.addWorkCredits(ctx, b, e.ID, rec.Works)
	if a.images != nil {
		a.images.Decorate(ctx, b, entityIDs(primary))
	}
	return &Result{Graph: withParent(b.Graph(), e), Found: true}, nil
}

func (a *Assembler) expandArtist(ctx context.Context, e graph.Entity) (*Result, error) {
	id := sourceID(e, graph.ArtistID(""))
	if id == "" || strings.HasPrefix(id, "dc-") {
		// Discogs-only artists have no catalog discography.
		return notFound(), nil
	}
	b := graph.NewBuilder()
	b.AddEntity(e)
	sections, err := a.addReleaseGroups(ctx, b, e.ID, id, e.Depth+1)
	if err != nil {
		return nil, err
	}
	if a.images != nil {
		a.images.Decorate(ctx, b, nil)
	}
	return &Result{Graph: b.Graph(), Found: true, Sections: sections}, nil
}

// sourceID returns the catalog identifier of e, falling back to its ID
// without the type prefix.
func sourceID(e graph.Entity, prefix string) string {
	if e.SourceID != "" {
		return e.SourceID
	}
	return strings.TrimPrefix(e.ID, prefix)
}

// withParent hangs every entity other than root below it.
func withParent(g graph.Graph, root graph.Entity) graph.Graph {
	for i := range g.Entities {
		if g.Entities[i].ID == root.ID || g.Entities[i].ParentID != "" {
			continue
		}
		g.Entities[i].ParentID = root.ID
		g.Entities[i].Depth = root.Depth + 1
	}
	return g
}
