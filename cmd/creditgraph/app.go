package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sydlexius/creditgraph/internal/assembler"
	"github.com/sydlexius/creditgraph/internal/cache"
	"github.com/sydlexius/creditgraph/internal/config"
	"github.com/sydlexius/creditgraph/internal/database"
	"github.com/sydlexius/creditgraph/internal/event"
	"github.com/sydlexius/creditgraph/internal/image"
	"github.com/sydlexius/creditgraph/internal/logging"
	"github.com/sydlexius/creditgraph/internal/maintenance"
	"github.com/sydlexius/creditgraph/internal/match"
	"github.com/sydlexius/creditgraph/internal/provider"
	"github.com/sydlexius/creditgraph/internal/provider/deezer"
	"github.com/sydlexius/creditgraph/internal/provider/discogs"
	"github.com/sydlexius/creditgraph/internal/provider/fanarttv"
	"github.com/sydlexius/creditgraph/internal/provider/lastfm"
	"github.com/sydlexius/creditgraph/internal/provider/musicbrainz"
)

// defaultConfigPath is CG_CONFIG, or config.yaml under the user config dir.
func defaultConfigPath() string {
	if p := os.Getenv("CG_CONFIG"); p != "" {
		return p
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "creditgraph", "config.yaml")
	}
	return "config.yaml"
}

// app is the wired service graph shared by every command.
type app struct {
	cfg       *config.Config
	logs      *logging.Manager
	logger    *slog.Logger
	db        *sql.DB
	bus       *event.Bus
	cache     *cache.TrackCache
	maint     *maintenance.Service
	assembler *assembler.Assembler
}

// newApp loads config and wires the assembler. The caller must call close.
func newApp() (*app, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logs, logger := logging.NewManager(cfg.Logging)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logs: logs, logger: logger}

	a.bus = event.NewBus(logger, 256)
	go a.bus.Start()
	a.bus.Subscribe(event.RoleUnmapped, func(e event.Event) {
		logger.Debug("unmapped role", slog.Any("data", e.Data))
	})

	if cfg.Cache.Enabled {
		db, err := database.OpenMigrated(cfg.Database.Path)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.db = db
		logger.Debug("database ready", slog.String("path", cfg.Database.Path))
		a.cache = cache.New(cache.NewSQLiteStore(db, cfg.Cache.QuotaBytes), cfg.Cache.Options(), logger, a.bus)
		a.maint = maintenance.NewService(db, cfg.Database.Path, logger)
	}

	limiter := provider.NewRateLimiterMap(cfg.Providers.Intervals)
	registry := buildRegistry(cfg.Providers, limiter, logger)
	orch := provider.NewOrchestrator(registry, logger)

	deps := assembler.Deps{
		Catalog: registry.Catalog(),
		Matcher: match.New(cfg.Matching),
		Credits: orch,
		Hints:   orch,
		Cache:   a.cache,
		Bus:     a.bus,
	}
	if cfg.Images.Enabled {
		var prober *image.Prober
		if cfg.Images.Probe {
			prober = image.NewProber()
		}
		deps.Images = image.NewResolver(orch, orch, prober, cfg.Images.Options(), logger)
	}
	a.assembler = assembler.New(deps, logger)
	return a, nil
}

// buildRegistry registers the catalogs. Image sources are registered in
// the configured priority order.
func buildRegistry(cfg config.ProvidersConfig, limiter *provider.RateLimiterMap, logger *slog.Logger) *provider.Registry {
	reg := provider.NewRegistry()

	mb := musicbrainz.NewWithBaseURL(limiter, logger, cfg.MusicBrainz.BaseURL, cfg.MusicBrainz.CoverBaseURL).
		WithRetryBackoff(cfg.RetryBackoff)
	reg.SetCatalog(mb)
	reg.Register(mb)

	if cfg.Discogs.APIKey != "" {
		d := discogs.New(limiter, cfg.Discogs.APIKey, logger)
		if cfg.Discogs.BaseURL != "" {
			d = discogs.NewWithBaseURL(limiter, cfg.Discogs.APIKey, logger, cfg.Discogs.BaseURL)
		}
		reg.Register(d.WithRetryBackoff(cfg.RetryBackoff))
	} else {
		logger.Info("discogs token not configured, supplemental credits disabled")
	}

	if cfg.LastFM.APIKey != "" {
		l := lastfm.New(limiter, cfg.LastFM.APIKey, logger)
		if cfg.LastFM.BaseURL != "" {
			l = lastfm.NewWithBaseURL(limiter, cfg.LastFM.APIKey, logger, cfg.LastFM.BaseURL)
		}
		reg.Register(l.WithRetryBackoff(cfg.RetryBackoff))
	}

	for _, name := range cfg.ImageOrder {
		switch name {
		case provider.NameFanartTV:
			if cfg.FanartTV.APIKey == "" {
				continue
			}
			f := fanarttv.New(limiter, cfg.FanartTV.APIKey, logger)
			if cfg.FanartTV.BaseURL != "" {
				f = fanarttv.NewWithBaseURL(limiter, cfg.FanartTV.APIKey, logger, cfg.FanartTV.BaseURL)
			}
			reg.Register(f.WithRetryBackoff(cfg.RetryBackoff))
		case provider.NameDeezer:
			d := deezer.New(limiter, logger)
			if cfg.Deezer.BaseURL != "" {
				d = deezer.NewWithBaseURL(limiter, logger, cfg.Deezer.BaseURL)
			}
			reg.Register(d.WithRetryBackoff(cfg.RetryBackoff))
		}
	}

	logger.Debug("providers registered", slog.Any("providers", reg.Names()))
	return reg
}

// close stops the bus and releases the database and log file.
func (a *app) close() {
	if a.bus != nil {
		a.bus.Stop()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("closing database", "error", err)
		}
	}
	a.logs.Close() //nolint:errcheck
}

// requireCache fails commands that need the persistent cache.
func (a *app) requireCache() error {
	if a.cache == nil {
		return fmt.Errorf("track cache is disabled (cache.enabled=false)")
	}
	return nil
}

// withApp runs fn against a freshly wired app.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
