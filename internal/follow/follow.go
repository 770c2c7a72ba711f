// Package follow assembles track graphs for a now-playing file kept up to
// date by a scrobbler.
package follow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/sydlexius/creditgraph/internal/assembler"
	"github.com/sydlexius/creditgraph/internal/cache"
	"github.com/sydlexius/creditgraph/internal/event"
	"github.com/sydlexius/creditgraph/internal/filesystem"
)

// maxFileSize caps how much of the now-playing file is read.
const maxFileSize = 64 << 10

// NowPlaying is the content of the now-playing file.
type NowPlaying struct {
	Artist string `json:"artist"`
	Track  string `json:"track"`
	Album  string `json:"album,omitempty"`
}

// Idle reports whether nothing is playing.
func (np NowPlaying) Idle() bool {
	return np.Artist == "" || np.Track == ""
}

func (np NowPlaying) request() assembler.TrackRequest {
	return assembler.TrackRequest{Artist: np.Artist, Track: np.Track, Album: np.Album}
}

// ReadNowPlaying parses the now-playing file. An empty file means idle.
func ReadNowPlaying(path string) (NowPlaying, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from local config
	if err != nil {
		return NowPlaying{}, fmt.Errorf("opening now-playing file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var np NowPlaying
	if err := json.NewDecoder(io.LimitReader(f, maxFileSize)).Decode(&np); err != nil {
		if errors.Is(err, io.EOF) {
			return NowPlaying{}, nil
		}
		return NowPlaying{}, fmt.Errorf("parsing now-playing file: %w", err)
	}
	np.Artist = strings.TrimSpace(np.Artist)
	np.Track = strings.TrimSpace(np.Track)
	np.Album = strings.TrimSpace(np.Album)
	return np, nil
}

// TrackGrapher builds the graph of one track.
type TrackGrapher interface {
	TrackGraph(ctx context.Context, req assembler.TrackRequest) (*assembler.Result, error)
}

// Sink receives every assembled graph.
type Sink func(ctx context.Context, np NowPlaying, res *assembler.Result) error

// Follower reacts to now-playing changes. Handle matches watcher.Handler.
type Follower struct {
	graphs TrackGrapher
	sink   Sink
	bus    *event.Bus
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

// New returns a Follower that passes each graph to sink.
func New(graphs TrackGrapher, sink Sink, bus *event.Bus, logger *slog.Logger) *Follower {
	return &Follower{
		graphs: graphs,
		sink:   sink,
		bus:    bus,
		logger: logger.With(slog.String("component", "follow")),
	}
}

// Handle reads the now-playing file at path and, when the track changed,
// assembles and emits its graph. Rewrites of the same track are ignored.
func (f *Follower) Handle(ctx context.Context, path string) {
	np, err := ReadNowPlaying(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("reading now-playing file", slog.String("path", path), slog.String("error", err.Error()))
		}
		return
	}
	if np.Idle() {
		f.swap("")
		return
	}
	if !f.swap(cache.Key(np.Artist, np.Track, np.Album)) {
		return
	}

	f.bus.Publish(event.Event{Type: event.NowPlayingChanged, Data: map[string]any{
		"artist": np.Artist,
		"track":  np.Track,
		"album":  np.Album,
	}})
	f.logger.Info("now playing",
		slog.String("artist", np.Artist),
		slog.String("track", np.Track),
		slog.String("album", np.Album))

	res, err := f.graphs.TrackGraph(ctx, np.request())
	if err != nil {
		// Forget the track so the next write retries it.
		f.swap("")
		f.logger.Error("assembling track graph", slog.String("track", np.Track), slog.String("error", err.Error()))
		return
	}
	if !res.Found {
		f.logger.Info("track not found upstream", slog.String("artist", np.Artist), slog.String("track", np.Track))
	}
	if f.sink == nil {
		return
	}
	if err := f.sink(ctx, np, res); err != nil {
		f.logger.Error("writing track graph", slog.String("error", err.Error()))
	}
}

// swap stores key as the current track and reports whether it changed.
func (f *Follower) swap(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key == f.last {
		return false
	}
	f.last = key
	return true
}

// WriterSink encodes each result as one JSON line on w.
func WriterSink(w io.Writer) Sink {
	var mu sync.Mutex
	return func(_ context.Context, _ NowPlaying, res *assembler.Result) error {
		mu.Lock()
		defer mu.Unlock()
		return json.NewEncoder(w).Encode(res)
	}
}

// FileSink replaces the file at path with each result.
func FileSink(path string) Sink {
	return func(_ context.Context, _ NowPlaying, res *assembler.Result) error {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		return filesystem.WriteFileAtomic(path, append(data, '\n'), 0o644)
	}
}
