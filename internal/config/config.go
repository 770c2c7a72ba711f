// Package config loads creditgraph settings from a YAML file and CG_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/creditgraph/internal/cache"
	"github.com/sydlexius/creditgraph/internal/image"
	"github.com/sydlexius/creditgraph/internal/logging"
	"github.com/sydlexius/creditgraph/internal/match"
	"github.com/sydlexius/creditgraph/internal/provider"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   logging.Config  `yaml:"logging"`
	Cache     CacheConfig     `yaml:"cache"`
	Providers ProvidersConfig `yaml:"providers"`
	Images    ImagesConfig    `yaml:"images"`
	Matching  match.Weights   `yaml:"matching"`
	Follow    FollowConfig    `yaml:"follow"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen   string `yaml:"listen"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings. A zero CompactInterval disables
// scheduled compaction.
type DatabaseConfig struct {
	Path            string        `yaml:"path"`
	CompactInterval time.Duration `yaml:"compact_interval"`
	MinReclaimBytes int64         `yaml:"min_reclaim_bytes"`
}

// CacheConfig sizes the persistent track cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Capacity   int           `yaml:"capacity"`
	TTL        time.Duration `yaml:"ttl"`
	EvictBurst int           `yaml:"evict_burst"`
	QuotaBytes int64         `yaml:"quota_bytes"`
	KeyLength  int           `yaml:"key_length"`
}

// Options converts the section into cache options.
func (c CacheConfig) Options() cache.Options {
	return cache.Options{
		Capacity:   c.Capacity,
		TTL:        c.TTL,
		EvictBurst: c.EvictBurst,
		KeyLength:  c.KeyLength,
	}
}

// ProviderConfig holds the credentials and endpoint of one catalog. An empty
// BaseURL selects the public endpoint.
type ProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	CoverBaseURL string `yaml:"cover_base_url,omitempty"`
}

// ProvidersConfig holds per-catalog settings plus the shared throttle.
type ProvidersConfig struct {
	MusicBrainz ProviderConfig `yaml:"musicbrainz"`
	Discogs     ProviderConfig `yaml:"discogs"`
	LastFM      ProviderConfig `yaml:"lastfm"`
	Deezer      ProviderConfig `yaml:"deezer"`
	FanartTV    ProviderConfig `yaml:"fanarttv"`

	// Intervals overrides the minimum spacing between requests per source.
	Intervals    map[provider.ProviderName]time.Duration `yaml:"intervals"`
	RetryBackoff time.Duration                          `yaml:"retry_backoff"`
	// ImageOrder is the image source priority list.
	ImageOrder []provider.ProviderName `yaml:"image_order"`
}

// ImagesConfig tunes image decoration.
type ImagesConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Timeout        time.Duration `yaml:"timeout"`
	SecondaryLimit int           `yaml:"secondary_limit"`
	CacheSize      int           `yaml:"cache_size"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	Probe          bool          `yaml:"probe"`
	MinSide        int           `yaml:"min_side"`
}

// Options converts the section into resolver options.
func (c ImagesConfig) Options() image.Options {
	return image.Options{
		Timeout:        c.Timeout,
		SecondaryLimit: c.SecondaryLimit,
		CacheSize:      c.CacheSize,
		CacheTTL:       c.CacheTTL,
		MinSide:        c.MinSide,
	}
}

// FollowConfig configures the now-playing file follower.
type FollowConfig struct {
	Path     string        `yaml:"path"`
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:   "127.0.0.1:8750",
			BasePath: "/",
		},
		Database: DatabaseConfig{
			Path:            defaultDBPath(),
			CompactInterval: 24 * time.Hour,
			MinReclaimBytes: 1 << 20,
		},
		Logging: logging.DefaultConfig(),
		Cache: CacheConfig{
			Enabled:    true,
			Capacity:   cache.DefaultCapacity,
			TTL:        cache.DefaultTTL,
			EvictBurst: cache.DefaultEvictBurst,
			QuotaBytes: 5 << 20,
			KeyLength:  cache.DefaultKeyLength,
		},
		Providers: ProvidersConfig{
			RetryBackoff: provider.DefaultRetryBackoff,
			ImageOrder:   []provider.ProviderName{provider.NameFanartTV, provider.NameDeezer},
		},
		Images: ImagesConfig{
			Enabled:        true,
			Timeout:        image.DefaultTimeout,
			SecondaryLimit: image.DefaultSecondaryLimit,
			CacheSize:      image.DefaultCacheSize,
			CacheTTL:       image.DefaultCacheTTL,
		},
		Matching: match.DefaultWeights(),
		Follow: FollowConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

func defaultDBPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + string(os.PathSeparator) + "creditgraph" + string(os.PathSeparator) + "creditgraph.db"
	}
	return "creditgraph.db"
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	strs := map[string]*string{
		"CG_LISTEN":              &c.Server.Listen,
		"CG_BASE_PATH":           &c.Server.BasePath,
		"CG_DB_PATH":             &c.Database.Path,
		"CG_LOG_LEVEL":           &c.Logging.Level,
		"CG_LOG_FORMAT":          &c.Logging.Format,
		"CG_LOG_FILE":            &c.Logging.FilePath,
		"CG_DISCOGS_TOKEN":       &c.Providers.Discogs.APIKey,
		"CG_LASTFM_API_KEY":      &c.Providers.LastFM.APIKey,
		"CG_FANARTTV_API_KEY":    &c.Providers.FanartTV.APIKey,
		"CG_MUSICBRAINZ_URL":     &c.Providers.MusicBrainz.BaseURL,
		"CG_COVERARTARCHIVE_URL": &c.Providers.MusicBrainz.CoverBaseURL,
		"CG_FOLLOW_PATH":         &c.Follow.Path,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("CG_CACHE_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CG_CACHE_CAPACITY: %w", err)
		}
		c.Cache.Capacity = n
	}
	if v := os.Getenv("CG_CACHE_QUOTA"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CG_CACHE_QUOTA: %w", err)
		}
		c.Cache.QuotaBytes = n
	}
	if v := os.Getenv("CG_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CG_CACHE_TTL: %w", err)
		}
		c.Cache.TTL = d
	}
	if v := os.Getenv("CG_CACHE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CG_CACHE_ENABLED: %w", err)
		}
		c.Cache.Enabled = b
	}
	if v := os.Getenv("CG_IMAGES_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CG_IMAGES_ENABLED: %w", err)
		}
		c.Images.Enabled = b
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server listen address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Database.CompactInterval < 0 {
		return fmt.Errorf("database compact_interval must not be negative: %s", c.Database.CompactInterval)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache capacity must be positive: %d", c.Cache.Capacity)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive: %s", c.Cache.TTL)
	}
	if c.Cache.EvictBurst < 1 {
		return fmt.Errorf("cache evict_burst must be positive: %d", c.Cache.EvictBurst)
	}
	if c.Cache.QuotaBytes < 0 {
		return fmt.Errorf("cache quota_bytes must not be negative: %d", c.Cache.QuotaBytes)
	}
	for name, d := range c.Providers.Intervals {
		if d < 0 {
			return fmt.Errorf("interval for %s must not be negative: %s", name, d)
		}
	}
	for _, name := range c.Providers.ImageOrder {
		if name != provider.NameFanartTV && name != provider.NameDeezer {
			return fmt.Errorf("unknown image source %q", name)
		}
	}
	if c.Images.SecondaryLimit < 1 {
		return fmt.Errorf("images secondary_limit must be positive: %d", c.Images.SecondaryLimit)
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("matching weights: %w", err)
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}
