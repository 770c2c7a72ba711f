package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/creditgraph/internal/provider"
)

const defaultBaseURL = "https://api.discogs.com"

// Adapter implements provider.CreditSource for Discogs.
type Adapter struct {
	fetch   *provider.Fetcher
	token   string
	logger  *slog.Logger
	baseURL string
}

// New creates a Discogs adapter with the default base URL. An empty token
// makes every call fail with ErrAuthRequired.
func New(limiter *provider.RateLimiterMap, token string, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, token, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Discogs adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, token string, logger *slog.Logger, baseURL string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameDiscogs)))
	f := provider.NewFetcher(provider.NameDiscogs, limiter, provider.DefaultRetryBackoff, logger)
	if token != "" {
		f.Header.Set("Authorization", "Discogs token="+token)
	}
	return &Adapter{
		fetch:   f,
		token:   token,
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
func (a *Adapter) Name() provider.ProviderName { return provider.NameDiscogs }

// FindReleaseCredits searches for the release that carries the given track
// and returns its full credit sheet. The album narrows the search when known;
// otherwise the track title is used.
func (a *Adapter) FindReleaseCredits(ctx context.Context, track, artist, album string) (*provider.ReleaseCredits, error) {
	if a.token == "" {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameDiscogs}
	}

	id, err := a.searchRelease(ctx, track, artist, album)
	if err != nil {
		return nil, err
	}
	return a.GetRelease(ctx, id)
}

// GetRelease fetches one release by Discogs ID.
func (a *Adapter) GetRelease(ctx context.Context, id int) (*provider.ReleaseCredits, error) {
	if a.token == "" {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameDiscogs}
	}

	idStr := strconv.Itoa(id)
	body, err := a.fetch.Get(ctx, a.baseURL+"/releases/"+idStr, idStr)
	if err != nil {
		return nil, err
	}
	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("parsing release response: %w", err)
	}
	return mapRelease(&rel), nil
}

func (a *Adapter) searchRelease(ctx context.Context, track, artist, album string) (int, error) {
	params := url.Values{
		"type":     {"release"},
		"artist":   {artist},
		"per_page": {"5"},
	}
	if album != "" {
		params.Set("release_title", album)
	} else {
		params.Set("track", track)
	}
	reqURL := a.baseURL + "/database/search?" + params.Encode()

	body, err := a.fetch.Get(ctx, reqURL, artist+" - "+track)
	if err != nil {
		return 0, err
	}
	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parsing search response: %w", err)
	}
	for _, r := range resp.Results {
		if r.Type == "" || r.Type == "release" {
			return r.ID, nil
		}
	}
	return 0, &provider.ErrNotFound{Provider: provider.NameDiscogs, ID: artist + " - " + track}
}

func mapRelease(rel *Release) *provider.ReleaseCredits {
	out := &provider.ReleaseCredits{
		Source:    provider.NameDiscogs,
		ReleaseID: strconv.Itoa(rel.ID),
		Title:     rel.Title,
		Credits:   mapCredits(rel.ExtraArtists),
	}
	for _, t := range rel.Tracklist {
		if t.Type != "" && t.Type != "track" {
			continue
		}
		out.Tracklist = append(out.Tracklist, provider.SupplementalTrack{
			Position: strings.TrimSpace(t.Position),
			Title:    t.Title,
			Credits:  mapCredits(t.ExtraArtists),
		})
	}
	return out
}

func mapCredits(in []ArtistRef) []provider.SupplementalCredit {
	if len(in) == 0 {
		return nil
	}
	out := make([]provider.SupplementalCredit, 0, len(in))
	for _, ar := range in {
		if ar.Name == "" || ar.Role == "" {
			continue
		}
		c := provider.SupplementalCredit{
			Name:   ar.Name,
			Role:   ar.Role,
			Tracks: strings.TrimSpace(ar.Tracks),
		}
		if ar.ID > 0 {
			c.ID = strconv.Itoa(ar.ID)
		}
		out = append(out, c)
	}
	return out
}
