package image

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/semaphore"

	"github.com/sydlexius/creditgraph/internal/graph"
	"github.com/sydlexius/creditgraph/internal/metrics"
	"github.com/sydlexius/creditgraph/internal/normalize"
	"github.com/sydlexius/creditgraph/internal/provider"
)

// Defaults for Options.
const (
	DefaultTimeout        = 15 * time.Second
	DefaultSecondaryLimit = 5
	DefaultCacheSize      = 1000
	DefaultCacheTTL       = 24 * time.Hour
)

// Options configures a Resolver. Zero values take the defaults.
type Options struct {
	// Timeout bounds one Decorate call.
	Timeout time.Duration
	// SecondaryLimit caps concurrent lookups for non-primary entities.
	SecondaryLimit int
	CacheSize      int
	CacheTTL       time.Duration
	// MinSide rejects probed images smaller than this on either side.
	// Only applies when a Prober is set.
	MinSide int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.SecondaryLimit <= 0 {
		o.SecondaryLimit = DefaultSecondaryLimit
	}
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	return o
}

// ArtistImages resolves an artist image by name and optional MBID.
type ArtistImages interface {
	GetArtistImage(ctx context.Context, name, mbid string) (*provider.ImageResult, error)
}

// Covers resolves release and release-group artwork.
type Covers interface {
	GetReleaseCover(ctx context.Context, releaseID string) (*provider.ImageResult, error)
	GetReleaseGroupCover(ctx context.Context, groupID string) (*provider.ImageResult, error)
}

// Resolver decorates graph entities with image URLs. Results, including
// misses, are remembered in an in-memory LRU for the configured TTL. It is
// a constructed service: the cache lives as long as the Resolver.
type Resolver struct {
	artists ArtistImages
	covers  Covers
	prober  *Prober
	opts    Options
	cache   *expirable.LRU[string, string]
	logger  *slog.Logger
}

// NewResolver returns a Resolver. covers and prober may be nil.
func NewResolver(artists ArtistImages, covers Covers, prober *Prober, opts Options, logger *slog.Logger) *Resolver {
	opts = opts.withDefaults()
	return &Resolver{
		artists: artists,
		covers:  covers,
		prober:  prober,
		opts:    opts,
		cache:   expirable.NewLRU[string, string](opts.CacheSize, nil, opts.CacheTTL),
		logger:  logger.With(slog.String("component", "image")),
	}
}

// Decorate looks up images for every imageless artist and album in b.
// Artists in primary are looked up without a concurrency cap; everything
// else shares SecondaryLimit slots. The whole call is bounded by Timeout;
// entities still unresolved when it expires stay imageless. It returns the
// number of entities that received an image.
func (r *Resolver) Decorate(ctx context.Context, b *graph.Builder, primary []string) int {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	isPrimary := make(map[string]bool, len(primary))
	for _, id := range primary {
		isPrimary[id] = true
	}

	sem := semaphore.NewWeighted(int64(r.opts.SecondaryLimit))
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		decided int
	)
	apply := func(id, url string) {
		if url == "" {
			return
		}
		b.SetImage(id, url)
		mu.Lock()
		decided++
		mu.Unlock()
	}

	for _, e := range b.Entities() {
		if e.Image != "" {
			continue
		}
		var lookup func(context.Context) string
		switch e.Type {
		case graph.TypeArtist:
			lookup = func(ctx context.Context) string { return r.ArtistImage(ctx, e.Name, e.SourceID) }
		case graph.TypeAlbum:
			if r.covers == nil || e.SourceID == "" {
				continue
			}
			group := strings.HasPrefix(e.ID, graph.ReleaseGroupAlbumID(""))
			lookup = func(ctx context.Context) string { return r.Cover(ctx, e.SourceID, group) }
		default:
			continue
		}

		if isPrimary[e.ID] {
			wg.Add(1)
			go func() {
				defer wg.Done()
				apply(e.ID, lookup(ctx))
			}()
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			apply(e.ID, lookup(ctx))
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		r.logger.Debug("image decoration cut short", slog.String("reason", ctx.Err().Error()))
	}
	return decided
}

// ArtistImage returns an image URL for an artist, or "" when none is known.
func (r *Resolver) ArtistImage(ctx context.Context, name, mbid string) string {
	key := "artist:" + normalize.Artist(name) + ":" + mbid
	return r.cached(ctx, key, func(ctx context.Context) (*provider.ImageResult, error) {
		return r.artists.GetArtistImage(ctx, name, mbid)
	})
}

// Cover returns the front cover URL of a release, or of a release group when
// group is set, or "" when none is known.
func (r *Resolver) Cover(ctx context.Context, id string, group bool) string {
	if r.covers == nil {
		return ""
	}
	if group {
		return r.cached(ctx, "release-group:"+id, func(ctx context.Context) (*provider.ImageResult, error) {
			return r.covers.GetReleaseGroupCover(ctx, id)
		})
	}
	return r.cached(ctx, "release:"+id, func(ctx context.Context) (*provider.ImageResult, error) {
		return r.covers.GetReleaseCover(ctx, id)
	})
}

func (r *Resolver) cached(ctx context.Context, key string, fetch func(context.Context) (*provider.ImageResult, error)) string {
	if url, ok := r.cache.Get(key); ok {
		metrics.ImageLookups.WithLabelValues("cached").Inc()
		return url
	}

	img, err := fetch(ctx)
	switch {
	case err == nil && img != nil && img.URL != "":
	case err == nil, provider.IsNotFound(err):
		metrics.ImageLookups.WithLabelValues("missing").Inc()
		r.cache.Add(key, "")
		return ""
	default:
		// Transient failures and timeouts are not remembered.
		metrics.ImageLookups.WithLabelValues("error").Inc()
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			r.logger.Debug("image lookup failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return ""
	}

	if r.prober != nil {
		info, err := r.prober.Probe(ctx, img.URL)
		if err != nil {
			metrics.ImageLookups.WithLabelValues("error").Inc()
			r.logger.Debug("image probe failed", slog.String("url", img.URL), slog.String("error", err.Error()))
			return ""
		}
		if IsLowResolution(info.Width, info.Height, r.opts.MinSide) {
			metrics.ImageLookups.WithLabelValues("rejected").Inc()
			r.cache.Add(key, "")
			return ""
		}
	}

	metrics.ImageLookups.WithLabelValues("found").Inc()
	r.cache.Add(key, img.URL)
	return img.URL
}

// Purge drops every remembered lookup.
func (r *Resolver) Purge() {
	r.cache.Purge()
}

// Len returns the number of remembered lookups.
func (r *Resolver) Len() int {
	return r.cache.Len()
}
