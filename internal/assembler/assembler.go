// Package assembler builds credit subgraphs from the catalog adapters. It
// owns the per-process alias table and image cache and consults the
// persistent track cache before doing any upstream work.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sydlexius/creditgraph/internal/alias"
	"github.com/sydlexius/creditgraph/internal/cache"
	"github.com/sydlexius/creditgraph/internal/credit"
	"github.com/sydlexius/creditgraph/internal/event"
	"github.com/sydlexius/creditgraph/internal/graph"
	"github.com/sydlexius/creditgraph/internal/match"
	"github.com/sydlexius/creditgraph/internal/metrics"
	"github.com/sydlexius/creditgraph/internal/provider"
)

// workFetchLimit caps concurrent work credit fetches for one recording.
const workFetchLimit = 4

var (
	// ErrInvalidRequest is returned when a required request field is empty.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnsupported is returned by Expand for entity types it cannot grow.
	ErrUnsupported = errors.New("entity type cannot be expanded")
)

// CreditFinder supplies a supplemental credit sheet for a track.
type CreditFinder interface {
	FindReleaseCredits(ctx context.Context, track, artist, album string) (*provider.ReleaseCredits, error)
}

// AlbumHinter guesses the album of a bare (artist, track) pair.
type AlbumHinter interface {
	AlbumHint(ctx context.Context, artist, track string) string
}

// Decorator attaches images to the entities of a builder.
type Decorator interface {
	Decorate(ctx context.Context, b *graph.Builder, primary []string) int
}

// TrackRequest names a track. Album is optional.
type TrackRequest struct {
	Artist string `json:"artist"`
	Track  string `json:"track"`
	Album  string `json:"album,omitempty"`
}

func (r TrackRequest) trimmed() TrackRequest {
	return TrackRequest{
		Artist: strings.TrimSpace(r.Artist),
		Track:  strings.TrimSpace(r.Track),
		Album:  strings.TrimSpace(r.Album),
	}
}

// MatchInfo explains how a track request was resolved.
type MatchInfo struct {
	Strategy  match.Strategy `json:"strategy"`
	Score     int            `json:"score"`
	Reasons   []string       `json:"reasons,omitempty"`
	AlbumHint string         `json:"albumHint,omitempty"`
}

// Section lists the album entities of one release type in a discography.
type Section struct {
	Type     string   `json:"type"`
	AlbumIDs []string `json:"albumIds"`
}

// Result is an assembled subgraph. Found is false when the requested
// recording or artist does not exist upstream; the graph is then empty.
type Result struct {
	graph.Graph
	Found    bool       `json:"found"`
	Cached   bool       `json:"cached,omitzero"`
	RootID   string     `json:"rootId,omitempty"`
	Match    *MatchInfo `json:"match,omitempty"`
	Sections []Section  `json:"sections,omitempty"`
}

func notFound() *Result {
	return &Result{Graph: graph.Graph{Entities: []graph.Entity{}, Relationships: []graph.Relationship{}}}
}

// Deps are the collaborators of an Assembler. Catalog is required; nil
// optional fields disable the step they serve.
type Deps struct {
	Catalog provider.Catalog
	Matcher *match.Matcher
	Aliases *alias.Resolver
	Merger  *credit.Merger
	Credits CreditFinder
	Hints   AlbumHinter
	Images  Decorator
	Cache   *cache.TrackCache
	Bus     *event.Bus
}

// Assembler is the entry point for graph construction. It is safe for
// concurrent use; identical concurrent track requests share one assembly.
type Assembler struct {
	catalog  provider.Catalog
	matcher  *match.Matcher
	resolver *match.Resolver
	aliases  *alias.Resolver
	merger   *credit.Merger
	credits  CreditFinder
	hints    AlbumHinter
	images   Decorator
	cache    *cache.TrackCache
	bus      *event.Bus
	logger   *slog.Logger
	group    singleflight.Group
}

// New returns an Assembler. Missing matcher, alias resolver and merger are
// built with defaults around the catalog.
func New(d Deps, logger *slog.Logger) *Assembler {
	if d.Matcher == nil {
		d.Matcher = match.New(match.DefaultWeights())
	}
	if d.Aliases == nil {
		d.Aliases = alias.New(d.Catalog, logger)
	}
	if d.Merger == nil {
		d.Merger = credit.NewMerger(credit.NewMapper(logger, d.Bus), d.Aliases, logger)
	}
	return &Assembler{
		catalog:  d.Catalog,
		matcher:  d.Matcher,
		resolver: match.NewResolver(d.Matcher, d.Catalog, logger),
		aliases:  d.Aliases,
		merger:   d.Merger,
		credits:  d.Credits,
		hints:    d.Hints,
		images:   d.Images,
		cache:    d.Cache,
		bus:      d.Bus,
		logger:   logger.With(slog.String("component", "assembler")),
	}
}

// Aliases returns the alias resolver owned by the assembler.
func (a *Assembler) Aliases() *alias.Resolver { return a.aliases }

// TrackGraph returns the flat credit graph of one track: the recording, its
// performers and personnel, its release and label, and supplemental credits.
// Cached graphs are returned without touching any catalog.
func (a *Assembler) TrackGraph(ctx context.Context, req TrackRequest) (*Result, error) {
	req = req.trimmed()
	if req.Artist == "" || req.Track == "" {
		return nil, fmt.Errorf("%w: artist and track are required", ErrInvalidRequest)
	}

	key := cache.Key(req.Artist, req.Track, req.Album)
	if a.cache != nil {
		key = a.cache.Key(req.Artist, req.Track, req.Album)
		if e, ok := a.cache.Get(ctx, key); ok {
			g := e.Graph()
			return &Result{Graph: g, Found: true, Cached: true, RootID: firstOfType(g, graph.TypeTrack)}, nil
		}
	}

	// Waiters that give up leave the assembly running so the cache still
	// gets filled for the next caller.
	ch := a.group.DoChan(key, func() (any, error) {
		return a.assembleTrack(context.WithoutCancel(ctx), req, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := *r.Val.(*Result)
		return &res, nil
	}
}

func (a *Assembler) assembleTrack(ctx context.Context, req TrackRequest, key string) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.AssemblyDuration.WithLabelValues("track").Observe(time.Since(start).Seconds())
	}()
	log := a.logger.With(slog.String("artist", req.Artist), slog.String("track", req.Track))

	target := match.Target{Track: req.Track, Artist: req.Artist, Album: req.Album}
	var hint string
	if target.Album == "" && a.hints != nil {
		hint = a.hints.AlbumHint(ctx, req.Artist, req.Track)
		target.Album = hint
		if hint != "" {
			log.Debug("album hint", slog.String("album", hint))
		}
	}

	res, err := a.resolver.Resolve(ctx, target)
	if errors.Is(err, match.ErrNoMatch) {
		log.Info("no matching recording")
		return notFound(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving track: %w", err)
	}

	rec, err := a.catalog.GetRecording(ctx, res.RecordingID)
	if provider.IsNotFound(err) {
		log.Info("matched recording vanished", slog.String("recording", res.RecordingID))
		return notFound(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching recording %s: %w", res.RecordingID, err)
	}

	b := graph.NewBuilder()
	trackID := graph.TrackID(rec.ID)
	b.AddEntity(graph.Entity{ID: trackID, Name: rec.Title, Type: graph.TypeTrack, SourceID: rec.ID})
	primary := a.merger.AddArtistCredits(b, trackID, rec.Credits)
	// Relations and credits below may name a primary artist by an alias.
	a.aliases.Prefetch(ctx, primary)

	albumTitle := target.Album
	var number string
	if rel := a.release(ctx, res); rel != nil {
		number = attachRelease(b, trackID, rec.ID, rel, primary)
		albumTitle = rel.Title
	}

	a.merger.AddRelations(b, trackID, rec.Relations)
	a.addWorkCredits(ctx, b, trackID, rec.Works)

	if a.credits != nil {
		artist := req.Artist
		if len(primary) > 0 {
			artist = primary[0].Name
		}
		rc, err := a.credits.FindReleaseCredits(ctx, rec.Title, artist, albumTitle)
		switch {
		case err == nil:
			a.merger.MergeSupplemental(b, trackID, credit.TrackPosition{Position: number, Title: rec.Title}, rc)
		case !provider.IsNotFound(err):
			log.Warn("supplemental credits unavailable", slog.String("error", err.Error()))
		}
	}

	if a.images != nil {
		a.images.Decorate(ctx, b, entityIDs(primary))
	}

	g := b.Graph()
	if a.cache != nil {
		if err := a.cache.Put(ctx, key, g); err != nil {
			log.Warn("caching track graph", slog.String("error", err.Error()))
		}
	}

	a.bus.Publish(event.Event{Type: event.TrackResolved, Data: map[string]any{
		"track_id":      trackID,
		"strategy":      string(res.Strategy),
		"entities":      len(g.Entities),
		"relationships": len(g.Relationships),
	}})
	log.Info("track graph assembled",
		slog.String("recording", rec.ID),
		slog.String("strategy", string(res.Strategy)),
		slog.Int("entities", len(g.Entities)),
		slog.Int("relationships", len(g.Relationships)))

	return &Result{
		Graph:  g,
		Found:  true,
		RootID: trackID,
		Match: &MatchInfo{
			Strategy:  res.Strategy,
			Score:     res.Score,
			Reasons:   res.Reasons,
			AlbumHint: hint,
		},
	}, nil
}

// release returns the release the resolution settled on, fetching it when
// recording search only named it.
func (a *Assembler) release(ctx context.Context, res *match.Resolution) *provider.ReleaseDetail {
	if res.Release != nil {
		return res.Release
	}
	if res.ReleaseID == "" {
		return nil
	}
	rel, err := a.catalog.GetRelease(ctx, res.ReleaseID)
	if err != nil {
		a.logger.Debug("release unavailable",
			slog.String("release", res.ReleaseID),
			slog.String("error", err.Error()))
		return nil
	}
	return rel
}

// attachRelease links the track to its album and the album's labels to the
// primary artists. It returns the printed position of the recording on the
// release, or "" when the track list does not contain it.
func attachRelease(b *graph.Builder, trackID, recordingID string, rel *provider.ReleaseDetail, primary []alias.Artist) string {
	albumID := graph.AlbumID(rel.ID)
	b.AddEntity(graph.Entity{
		ID:          albumID,
		Name:        rel.Title,
		Type:        graph.TypeAlbum,
		SourceID:    rel.ID,
		ReleaseType: rel.PrimaryType,
	})
	b.AddRelationship(trackID, albumID, graph.RoleReleasedOn)

	for _, l := range rel.Labels {
		if l.ID == "" || l.Name == "" {
			continue
		}
		labelID := graph.LabelID(l.ID)
		b.AddEntity(graph.Entity{ID: labelID, Name: l.Name, Type: graph.TypeLabel, SourceID: l.ID})
		for _, p := range primary {
			b.AddRelationship(p.EntityID, labelID, graph.RoleSignedTo)
		}
	}

	for _, tr := range rel.Tracks {
		if tr.RecordingID != recordingID {
			continue
		}
		if tr.Number != "" {
			return tr.Number
		}
		if tr.Position > 0 {
			return strconv.Itoa(tr.Position)
		}
	}
	return ""
}

// addWorkCredits fetches the writing credits of every work concurrently and
// applies them in work order. Failures leave the work uncredited.
func (a *Assembler) addWorkCredits(ctx context.Context, b *graph.Builder, targetID string, works []provider.WorkRef) {
	if len(works) == 0 {
		return
	}
	rels := make([][]provider.Relation, len(works))
	var g errgroup.Group
	g.SetLimit(workFetchLimit)
	for i, w := range works {
		g.Go(func() error {
			r, err := a.catalog.GetWorkCredits(ctx, w.ID)
			if err != nil {
				if !provider.IsNotFound(err) {
					a.logger.Warn("work credits unavailable",
						slog.String("work", w.ID),
						slog.String("error", err.Error()))
				}
				return nil
			}
			rels[i] = r
			return nil
		})
	}
	_ = g.Wait()
	for _, r := range rels {
		a.merger.AddRelations(b, targetID, r)
	}
}

func entityIDs(artists []alias.Artist) []string {
	ids := make([]string, 0, len(artists))
	for _, a := range artists {
		ids = append(ids, a.EntityID)
	}
	return ids
}

func firstOfType(g graph.Graph, t graph.EntityType) string {
	for _, e := range g.Entities {
		if e.Type == t {
			return e.ID
		}
	}
	return ""
}
