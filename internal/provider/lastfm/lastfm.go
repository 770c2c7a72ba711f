package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/creditgraph/internal/provider"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0"

// Adapter implements provider.TrackInfoSource for Last.fm.
type Adapter struct {
	fetch   *provider.Fetcher
	apiKey  string
	logger  *slog.Logger
	baseURL string
}

// New creates a Last.fm adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, apiKey, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Last.fm adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger, baseURL string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameLastFM)))
	return &Adapter{
		fetch:   provider.NewFetcher(provider.NameLastFM, limiter, provider.DefaultRetryBackoff, logger),
		apiKey:  apiKey,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// WithRetryBackoff sets the delay before retrying a rate-limited request.
func (a *Adapter) WithRetryBackoff(d time.Duration) *Adapter {
	a.fetch.Backoff = d
	return a
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameLastFM }

// GetTrackInfo looks up a track by artist and title, returning the album
// Last.fm associates with it when there is one.
func (a *Adapter) GetTrackInfo(ctx context.Context, artist, track string) (*provider.TrackInfo, error) {
	if a.apiKey == "" {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameLastFM}
	}

	params := url.Values{
		"method":      {"track.getInfo"},
		"artist":      {artist},
		"track":       {track},
		"autocorrect": {"1"},
		"api_key":     {a.apiKey},
		"format":      {"json"},
	}
	id := artist + " - " + track
	body, err := a.fetch.Get(ctx, a.baseURL+"/?"+params.Encode(), id)
	if err != nil {
		return nil, err
	}

	var resp TrackInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing track info: %w", err)
	}
	if resp.Error != 0 {
		return nil, mapError(resp.Error, resp.Message, id)
	}
	if resp.Track == nil || resp.Track.Name == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: id}
	}

	info := &provider.TrackInfo{
		Artist: resp.Track.Artist.Name,
		Title:  resp.Track.Name,
		MBID:   resp.Track.MBID,
	}
	if resp.Track.Album != nil {
		info.Album = resp.Track.Album.Title
	}
	return info, nil
}

func mapError(code int, msg, id string) error {
	switch code {
	case errInvalidParameters:
		return &provider.ErrNotFound{Provider: provider.NameLastFM, ID: id}
	case errInvalidAPIKey, errSuspendedAPIKey:
		return &provider.ErrAuthRequired{Provider: provider.NameLastFM}
	case errRateLimitExceeded:
		return &provider.ErrRateLimited{Provider: provider.NameLastFM, RetryAfter: provider.DefaultRetryBackoff}
	default:
		return &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("error %d: %s", code, msg),
		}
	}
}
