package main

import (
	"context"
	"log/slog"

	"github.com/sydlexius/creditgraph/internal/config"
	"github.com/sydlexius/creditgraph/internal/event"
	"github.com/sydlexius/creditgraph/internal/watcher"
)

// watchConfig re-reads the config file on change and applies its logging
// section. Other sections need a restart.
func watchConfig(w *watcher.Service, path string, a *app) error {
	return w.Watch(path, func(_ context.Context, p string) {
		cfg, err := config.Load(p)
		if err != nil {
			a.logger.Warn("ignoring invalid config change", slog.String("path", p), slog.String("error", err.Error()))
			return
		}
		if cfg.Logging == a.logs.Config() {
			return
		}
		a.logs.Reconfigure(cfg.Logging)
		a.logger.Info("logging reconfigured", slog.String("config", cfg.Logging.String()))
		a.bus.Publish(event.Event{Type: event.ConfigReloaded, Data: map[string]any{
			"path":    p,
			"logging": cfg.Logging.String(),
		}})
	})
}
