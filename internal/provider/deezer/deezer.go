package deezer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/creditgraph/internal/normalize"
	"github.com/sydlexius/creditgraph/internal/provider"
)

const defaultBaseURL = "https://api.deezer.com"

// Adapter implements provider.ImageSource for Deezer's public API.
// No authentication is required.
type Adapter struct {
	fetch   *provider.Fetcher
	logger  *slog.Logger
	baseURL string
}

// New creates a Deezer adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Deezer adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameDeezer)))
	return &Adapter{
		fetch:   provider.NewFetcher(provider.NameDeezer, limiter, provider.DefaultRetryBackoff, logger),
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// WithRetryBackoff sets the delay before retrying a rate-limited request.
func (a *Adapter) WithRetryBackoff(d time.Duration) *Adapter {
	a.fetch.Backoff = d
	return a
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.ProviderName { return provider.NameDeezer }

// GetArtistImage searches Deezer by artist name and returns the picture of
// the best match. An exact normalized-name match wins over search order.
// Deezer does not index MusicBrainz IDs, so mbid is ignored.
func (a *Adapter) GetArtistImage(ctx context.Context, name, _ string) (*provider.ImageResult, error) {
	if name == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameDeezer, ID: name}
	}

	params := url.Values{
		"q":     {name},
		"limit": {"10"},
	}
	body, err := a.fetch.Get(ctx, a.baseURL+"/search/artist?"+params.Encode(), name)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	if resp.Error != nil {
		if resp.Error.Code == quotaExceeded {
			return nil, &provider.ErrRateLimited{Provider: provider.NameDeezer, RetryAfter: provider.DefaultRetryBackoff}
		}
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameDeezer,
			Cause:    fmt.Errorf("%s: %s", resp.Error.Type, resp.Error.Message),
		}
	}

	best := pickArtist(resp.Data, name)
	if best == nil {
		return nil, &provider.ErrNotFound{Provider: provider.NameDeezer, ID: name}
	}
	img := imageFromResult(best)
	if img == nil {
		return nil, &provider.ErrNotFound{Provider: provider.NameDeezer, ID: name}
	}

	a.logger.Debug("artist image found",
		slog.String("query", name),
		slog.String("match", best.Name))
	return img, nil
}

// pickArtist returns the first result whose normalized name equals the
// query's, falling back to the top result.
func pickArtist(results []artistResult, name string) *artistResult {
	if len(results) == 0 {
		return nil
	}
	want := normalize.Artist(name)
	for i := range results {
		if normalize.Artist(results[i].Name) == want {
			return &results[i]
		}
	}
	return &results[0]
}

// imageFromResult prefers the XL picture and skips the generic placeholder.
func imageFromResult(r *artistResult) *provider.ImageResult {
	for _, u := range []string{r.PictureXL, r.PictureBig} {
		if u != "" && !isDefaultPicture(u) {
			return &provider.ImageResult{URL: u, Source: provider.NameDeezer}
		}
	}
	return nil
}

// isDefaultPicture reports whether a Deezer picture URL is the generic placeholder.
// Deezer returns URLs containing "/images/artist//" (double slash) for artists
// without a photo.
func isDefaultPicture(u string) bool {
	return strings.Contains(u, "/images/artist//")
}
