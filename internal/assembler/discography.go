package assembler

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sydlexius/creditgraph/internal/event"
	"github.com/sydlexius/creditgraph/internal/graph"
	"github.com/sydlexius/creditgraph/internal/metrics"
	"github.com/sydlexius/creditgraph/internal/normalize"
	"github.com/sydlexius/creditgraph/internal/provider"
)

// otherType labels release groups without a primary type.
const otherType = "Other"

// typeOrder ranks release group primary types for display.
var typeOrder = map[string]int{
	"album":     0,
	"ep":        1,
	"single":    2,
	"broadcast": 3,
}

func typeRank(t string) int {
	if r, ok := typeOrder[strings.ToLower(t)]; ok {
		return r
	}
	return len(typeOrder)
}

// Discography returns an artist and one album entity per release group,
// grouped by primary type (albums, EPs, singles, then the rest) and ordered
// by first release date within a group.
func (a *Assembler) Discography(ctx context.Context, artistName string) (*Result, error) {
	name := strings.TrimSpace(artistName)
	if name == "" {
		return nil, fmt.Errorf("%w: artist is required", ErrInvalidRequest)
	}
	start := time.Now()
	defer func() {
		metrics.AssemblyDuration.WithLabelValues("discography").Observe(time.Since(start).Seconds())
	}()

	refs, err := a.catalog.SearchArtist(ctx, name)
	if err != nil && !provider.IsNotFound(err) {
		return nil, fmt.Errorf("searching artist %q: %w", name, err)
	}
	ref, ok := pickArtist(name, refs)
	if !ok {
		a.logger.Info("artist not found", slog.String("artist", name))
		return notFound(), nil
	}

	b := graph.NewBuilder()
	artistID := a.merger.ResolveArtist(b, ref.ID, ref.Name)
	sections, err := a.addReleaseGroups(ctx, b, artistID, ref.ID, 1)
	if err != nil {
		return nil, err
	}
	if a.images != nil {
		a.images.Decorate(ctx, b, []string{artistID})
	}

	g := b.Graph()
	a.bus.Publish(event.Event{Type: event.DiscographyResolved, Data: map[string]any{
		"artist_id": artistID,
		"albums":    len(g.Entities) - 1,
	}})
	a.logger.Info("discography assembled",
		slog.String("artist", ref.Name),
		slog.Int("albums", len(g.Entities)-1))
	return &Result{Graph: g, Found: true, RootID: artistID, Sections: sections}, nil
}

// addReleaseGroups adds every release group of catalogID as an album under
// artistID at the given depth and returns the grouping.
func (a *Assembler) addReleaseGroups(ctx context.Context, b *graph.Builder, artistID, catalogID string, depth int) ([]Section, error) {
	groups, err := a.catalog.BrowseReleaseGroups(ctx, catalogID)
	if err != nil && !provider.IsNotFound(err) {
		return nil, fmt.Errorf("browsing release groups of %s: %w", catalogID, err)
	}
	groups = slices.Clone(groups)
	slices.SortStableFunc(groups, func(x, y provider.ReleaseGroup) int {
		if c := cmp.Compare(typeRank(x.PrimaryType), typeRank(y.PrimaryType)); c != 0 {
			return c
		}
		return cmp.Compare(x.FirstReleaseDate, y.FirstReleaseDate)
	})

	var sections []Section
	for _, rg := range groups {
		if rg.ID == "" {
			continue
		}
		kind := rg.PrimaryType
		if kind == "" {
			kind = otherType
		}
		id := graph.ReleaseGroupAlbumID(rg.ID)
		b.AddEntity(graph.Entity{
			ID:          id,
			Name:        rg.Title,
			Type:        graph.TypeAlbum,
			SourceID:    rg.ID,
			ParentID:    artistID,
			Depth:       depth,
			ReleaseType: kind,
		})
		b.AddRelationship(artistID, id, graph.RolePrimaryArtist)

		if n := len(sections); n > 0 && strings.EqualFold(sections[n-1].Type, kind) {
			sections[n-1].AlbumIDs = append(sections[n-1].AlbumIDs, id)
			continue
		}
		sections = append(sections, Section{Type: kind, AlbumIDs: []string{id}})
	}
	return sections, nil
}

// pickArtist prefers the first search hit whose normalized name equals the
// query, then the top hit.
func pickArtist(name string, refs []provider.ArtistRef) (provider.ArtistRef, bool) {
	want := normalize.Artist(name)
	for _, r := range refs {
		if r.ID != "" && normalize.Artist(r.Name) == want {
			return r, true
		}
	}
	for _, r := range refs {
		if r.ID != "" {
			return r, true
		}
	}
	return provider.ArtistRef{}, false
}
