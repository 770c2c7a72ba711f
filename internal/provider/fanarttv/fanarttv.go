package fanarttv

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

const defaultBaseURL = "https://webservice.fanart.tv/v3/music"

// Adapter implements provider.ImageSource for Fanart.tv.
type Adapter struct {
	fetch   *provider.Fetcher
	apiKey  string
	logger  *slog.Logger
	baseURL string
}

// New creates a Fanart.tv adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, apiKey, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Fanart.tv adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger, baseURL string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameFanartTV)))
	return &Adapter{
		fetch:   provider.NewFetcher(provider.NameFanartTV, limiter, provider.DefaultRetryBackoff, logger),
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
func (a *Adapter) Name() provider.ProviderName { return provider.NameFanartTV }

// GetArtistImage returns the most liked artist thumbnail for an MBID, falling
// back to the most liked background. Fanart.tv is keyed by MBID only, so a
// call without one returns ErrNotFound.
func (a *Adapter) GetArtistImage(ctx context.Context, name, mbid string) (*provider.ImageResult, error) {
	if mbid == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameFanartTV, ID: name}
	}
	if a.apiKey == "" {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameFanartTV}
	}

	params := url.Values{"api_key": {a.apiKey}}
	reqURL := a.baseURL + "/" + url.PathEscape(mbid) + "?" + params.Encode()
	body, err := a.fetch.Get(ctx, reqURL, mbid)
	if err != nil {
		return nil, err
	}

	var fanart Response
	if err := json.Unmarshal(body, &fanart); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	img := mostLiked(fanart.ArtistThumb)
	if img == nil {
		img = mostLiked(fanart.ArtistBackground)
	}
	if img == nil {
		return nil, &provider.ErrNotFound{Provider: provider.NameFanartTV, ID: mbid}
	}
	return img, nil
}

// mostLiked returns the image with the highest like count; ties keep the
// earlier entry.
func mostLiked(images []FanartImage) *provider.ImageResult {
	var best *provider.ImageResult
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		likes := parseLikes(img.Likes)
		if best == nil || likes > best.Likes {
			best = &provider.ImageResult{
				URL:    img.URL,
				Likes:  likes,
				Source: provider.NameFanartTV,
			}
		}
	}
	return best
}

func parseLikes(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
