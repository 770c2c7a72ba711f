package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sydlexius/creditgraph/internal/follow"
	"github.com/sydlexius/creditgraph/internal/watcher"
)

var followFlags struct {
	path  string
	out   string
	probe time.Duration
}

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Assemble the graph of whatever a now-playing file names",
	Long: "follow watches a JSON file of the form {\"artist\", \"track\", \"album\"},\n" +
		"kept current by a scrobbler, and emits the track graph each time the\n" +
		"track changes. Graphs go to stdout as JSON lines, or replace --output.",
	Args: cobra.NoArgs,
	RunE: runFollow,
}

func init() {
	f := followCmd.Flags()
	f.StringVar(&followFlags.path, "path", "", "Now-playing file (overrides follow.path)")
	f.StringVarP(&followFlags.out, "output", "o", "", "Replace this file with each graph instead of printing")
	f.DurationVar(&followFlags.probe, "probe-timeout", 0, "Probe fsnotify on the watched directory and poll if it fails")
}

func runFollow(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(ctx context.Context, a *app) error {
		path := a.cfg.Follow.Path
		if followFlags.path != "" {
			path = followFlags.path
		}
		if path == "" {
			return fmt.Errorf("no now-playing file: set follow.path or --path")
		}

		sink := follow.WriterSink(cmd.OutOrStdout())
		if followFlags.out != "" {
			sink = follow.FileSink(followFlags.out)
		}
		f := follow.New(a.assembler, sink, a.bus, a.logger)

		w := watcher.NewService(a.logger)
		w.SetDebounce(a.cfg.Follow.Debounce)
		if followFlags.probe > 0 {
			w.SetProbeTimeout(followFlags.probe)
		}
		if err := w.Watch(path, f.Handle); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		if err := watchConfig(w, rootFlags.configPath, a); err != nil {
			a.logger.Warn("config reload disabled", slog.String("error", err.Error()))
		}

		// Pick up whatever is already playing.
		f.Handle(ctx, path)

		a.logger.Info("following now-playing file", slog.String("path", path))
		w.Start(ctx)
		return nil
	})
}
