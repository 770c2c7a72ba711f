package provider

import (
	"context"
	"errors"
	"log/slog"
)

// Orchestrator queries sources in priority order and returns the first
// usable answer.
type Orchestrator struct {
	registry *Registry
	logger   *slog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(registry *Registry, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// Name reports the orchestrator as the primary image source.
func (o *Orchestrator) Name() ProviderName { return "orchestrator" }

// GetArtistImage tries each image source in order. Sources without a match,
// without credentials, or failing transiently are skipped. ErrNotFound is
// returned when every source misses.
func (o *Orchestrator) GetArtistImage(ctx context.Context, name, mbid string) (*ImageResult, error) {
	for _, src := range o.registry.ImageSources() {
		img, err := src.GetArtistImage(ctx, name, mbid)
		if err == nil && img != nil && img.URL != "" {
			return img, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil && !IsNotFound(err) {
			o.logger.Debug("image source failed",
				slog.String("source", string(src.Name())),
				slog.String("artist", name),
				slog.String("error", err.Error()))
		}
	}
	return nil, &ErrNotFound{Provider: o.Name(), ID: name}
}

// GetReleaseCover tries each cover source in order.
func (o *Orchestrator) GetReleaseCover(ctx context.Context, releaseID string) (*ImageResult, error) {
	return o.cover(ctx, releaseID, CoverSource.GetReleaseCover)
}

// GetReleaseGroupCover tries each cover source in order.
func (o *Orchestrator) GetReleaseGroupCover(ctx context.Context, groupID string) (*ImageResult, error) {
	return o.cover(ctx, groupID, CoverSource.GetReleaseGroupCover)
}

func (o *Orchestrator) cover(ctx context.Context, id string, get func(CoverSource, context.Context, string) (*ImageResult, error)) (*ImageResult, error) {
	for _, src := range o.registry.CoverSources() {
		img, err := get(src, ctx, id)
		if err == nil && img != nil && img.URL != "" {
			return img, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, &ErrNotFound{Provider: o.Name(), ID: id}
}

// FindReleaseCredits returns the first credit sheet any source can find.
func (o *Orchestrator) FindReleaseCredits(ctx context.Context, track, artist, album string) (*ReleaseCredits, error) {
	var lastErr error
	for _, src := range o.registry.CreditSources() {
		rc, err := src.FindReleaseCredits(ctx, track, artist, album)
		if err == nil && rc != nil {
			return rc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &ErrNotFound{Provider: o.Name(), ID: artist + " - " + track}
	}
	return nil, lastErr
}

// AlbumHint asks each track-info source for the album of a bare
// (artist, track) pair. Returns "" when no source knows.
func (o *Orchestrator) AlbumHint(ctx context.Context, artist, track string) string {
	for _, src := range o.registry.TrackInfoSources() {
		info, err := src.GetTrackInfo(ctx, artist, track)
		if err == nil && info != nil && info.Album != "" {
			return info.Album
		}
		var auth *ErrAuthRequired
		if err != nil && !errors.As(err, &auth) && !IsNotFound(err) {
			o.logger.Debug("track info source failed",
				slog.String("source", string(src.Name())),
				slog.String("error", err.Error()))
		}
	}
	return ""
}
