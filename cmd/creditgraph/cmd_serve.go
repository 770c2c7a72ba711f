package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sydlexius/creditgraph/internal/api"
	"github.com/sydlexius/creditgraph/internal/api/middleware"
	"github.com/sydlexius/creditgraph/internal/watcher"
)

var serveFlags struct {
	listen     string
	rateEvery  time.Duration
	rateBurst  int
	reqTimeout time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the credit graph over an HTTP JSON API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.listen, "listen", "", "Listen address (overrides server.listen)")
	f.DurationVar(&serveFlags.rateEvery, "rate-every", 2*time.Second, "Per-client spacing of graph requests")
	f.IntVar(&serveFlags.rateBurst, "rate-burst", 10, "Per-client burst of graph requests")
	f.DurationVar(&serveFlags.reqTimeout, "request-timeout", 60*time.Second, "Upper bound for one graph request")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(ctx context.Context, a *app) error {
		addr := a.cfg.Server.Listen
		if serveFlags.listen != "" {
			addr = serveFlags.listen
		}

		router := api.NewRouter(api.RouterDeps{
			Assembler: a.assembler,
			Cache:     a.cache,
			Limiter:   middleware.NewClientRateLimiter(ctx, serveFlags.rateEvery, serveFlags.rateBurst),
			Logger:    a.logger,
			BasePath:  a.cfg.Server.BasePath,
			Timeout:   serveFlags.reqTimeout,
		})
		srv := &http.Server{
			Addr:              addr,
			Handler:           router.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      serveFlags.reqTimeout + 15*time.Second,
			IdleTimeout:       60 * time.Second,
		}

		w := watcher.NewService(a.logger)
		if err := watchConfig(w, rootFlags.configPath, a); err != nil {
			a.logger.Warn("config reload disabled", slog.String("error", err.Error()))
		} else {
			go w.Start(ctx)
		}

		if a.maint != nil && a.cfg.Database.CompactInterval > 0 {
			go a.maint.StartScheduler(ctx, a.cfg.Database.CompactInterval, a.cfg.Database.MinReclaimBytes)
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("server starting",
				slog.String("addr", addr),
				slog.String("base_path", a.cfg.Server.BasePath))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("listening on %s: %w", addr, err)
			}
		case <-ctx.Done():
		}
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
