package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sydlexius/creditgraph/internal/normalize"
	"github.com/sydlexius/creditgraph/internal/provider"
)

// ErrNoMatch is returned when no catalog search produced any candidate.
var ErrNoMatch = errors.New("no matching recording")

// Strategy names how a recording was found.
type Strategy string

// Lookup strategies.
const (
	StrategyReleaseFirst Strategy = "release_first"
	StrategyRecording    Strategy = "recording_search"
)

// Resolution is the outcome of resolving a Target to one recording.
type Resolution struct {
	RecordingID string
	Strategy    Strategy
	Score       int
	Reasons     []string

	// Release is set by release-first lookup, which has already fetched it.
	Release *provider.ReleaseDetail
	// ReleaseID is the release to attach; empty when the recording has none.
	ReleaseID string
}

// Resolver finds the best recording for a target against a catalog.
type Resolver struct {
	matcher *Matcher
	catalog provider.Catalog
	logger  *slog.Logger
}

// NewResolver returns a Resolver.
func NewResolver(m *Matcher, catalog provider.Catalog, logger *slog.Logger) *Resolver {
	return &Resolver{
		matcher: m,
		catalog: catalog,
		logger:  logger.With(slog.String("component", "match")),
	}
}

// Resolve tries release-first lookup when the target names an album, then
// falls back to recording search. ErrNoMatch means every search came back
// empty; other errors come from the catalog.
func (r *Resolver) Resolve(ctx context.Context, t Target) (*Resolution, error) {
	if t.Album != "" {
		res, err := r.ReleaseFirst(ctx, t)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if res != nil {
			return res, nil
		}
		if err != nil && !errors.Is(err, ErrNoMatch) {
			r.logger.Debug("release-first lookup failed, falling back",
				slog.String("album", t.Album),
				slog.String("error", err.Error()))
		}
	}
	return r.RecordingSearch(ctx, t)
}

// ReleaseFirst searches releases by album and artist, ranks them, and scans
// the track lists of the top-ranked ones for an exact normalized title.
func (r *Resolver) ReleaseFirst(ctx context.Context, t Target) (*Resolution, error) {
	cands, err := r.catalog.SearchRelease(ctx, t.Album, t.Artist)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, ErrNoMatch
		}
		return nil, fmt.Errorf("searching releases: %w", err)
	}

	ranked := r.matcher.RankReleases(t.Album, cands)
	depth := r.matcher.w.ReleaseFirstDepth
	if depth > len(ranked) {
		depth = len(ranked)
	}
	want := normalize.Name(t.Track)

	for _, sc := range ranked[:depth] {
		rel, err := r.catalog.GetRelease(ctx, sc.Candidate.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Debug("opening release failed",
				slog.String("release", sc.Candidate.ID),
				slog.String("error", err.Error()))
			continue
		}
		for _, tr := range rel.Tracks {
			if tr.RecordingID == "" || normalize.Name(tr.Title) != want {
				continue
			}
			r.logger.Debug("release-first hit",
				slog.String("release", rel.ID),
				slog.String("recording", tr.RecordingID),
				slog.Int("score", sc.Score))
			return &Resolution{
				RecordingID: tr.RecordingID,
				Strategy:    StrategyReleaseFirst,
				Score:       sc.Score,
				Reasons:     sc.Reasons,
				Release:     rel,
				ReleaseID:   rel.ID,
			}, nil
		}
	}
	return nil, ErrNoMatch
}

// RecordingSearch searches recordings (with the album when given, then
// without it if that returns nothing) and picks the best candidate and its
// best release.
func (r *Resolver) RecordingSearch(ctx context.Context, t Target) (*Resolution, error) {
	cands, err := r.catalog.SearchRecording(ctx, t.Track, t.Artist, t.Album)
	if err != nil && !provider.IsNotFound(err) {
		return nil, fmt.Errorf("searching recordings: %w", err)
	}
	if len(cands) == 0 && t.Album != "" {
		cands, err = r.catalog.SearchRecording(ctx, t.Track, t.Artist, "")
		if err != nil && !provider.IsNotFound(err) {
			return nil, fmt.Errorf("searching recordings: %w", err)
		}
	}

	best, ok := r.matcher.BestRecording(t, cands)
	if !ok {
		return nil, ErrNoMatch
	}
	res := &Resolution{
		RecordingID: best.Candidate.ID,
		Strategy:    StrategyRecording,
		Score:       best.Score,
		Reasons:     best.Reasons,
	}
	if rel, ok := r.matcher.BestReleaseOf(t.Album, best.Candidate.Releases); ok {
		res.ReleaseID = rel.ID
	}
	r.logger.Debug("recording search match",
		slog.String("recording", res.RecordingID),
		slog.Int("score", res.Score),
		slog.Int("candidates", len(cands)))
	return res, nil
}
