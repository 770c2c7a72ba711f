// Package watcher follows individual files (the now-playing file, the
// config file) and calls a handler once a burst of writes settles.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler is called with the absolute path of a watched file after it
// changed and stayed quiet for the debounce interval.
type Handler func(ctx context.Context, path string)

type watchedFile struct {
	handler Handler
	modTime time.Time
	size    int64
}

// Service watches files through their parent directories, so writers that
// replace a file by rename are still followed. Directories where fsnotify
// is unavailable or fails the probe are polled instead.
type Service struct {
	logger       *slog.Logger
	debounce     time.Duration
	pollInterval time.Duration
	probeTimeout time.Duration

	mu     sync.Mutex
	files  map[string]*watchedFile
	polled map[string]bool // directories without working fsnotify
}

// NewService creates a file watcher with a 500ms debounce and a 2s poll
// interval. Probing is off until SetProbeTimeout is called.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger:       logger.With(slog.String("component", "watcher")),
		debounce:     500 * time.Millisecond,
		pollInterval: 2 * time.Second,
		files:        make(map[string]*watchedFile),
		polled:       make(map[string]bool),
	}
}

// SetDebounce overrides the debounce interval.
func (s *Service) SetDebounce(d time.Duration) {
	if d > 0 {
		s.debounce = d
	}
}

// SetPollInterval overrides how often polled files are checked.
func (s *Service) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.pollInterval = d
	}
}

// SetProbeTimeout enables an fsnotify probe for every watched directory.
func (s *Service) SetProbeTimeout(d time.Duration) {
	s.probeTimeout = d
}

// Watch registers h for path. The file need not exist yet. Call Watch
// before Start.
func (s *Service) Watch(path string, h Handler) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	wf := &watchedFile{handler: h}
	wf.modTime, wf.size = stat(abs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[abs] = wf
	return nil
}

// Polled reports whether the directory of path fell back to polling.
func (s *Service) Polled(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polled[filepath.Dir(abs)]
}

// Start blocks until ctx is canceled, dispatching handlers for changed
// files. If fsnotify is unavailable every file is polled.
func (s *Service) Start(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, running poll-only", slog.String("error", err.Error()))
	} else {
		defer w.Close() //nolint:errcheck
	}
	s.addDirs(w)

	s.logger.Info("file watcher starting", slog.Int("files", s.count()))

	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()

	// Starts stopped; reset on each change.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	pending := make(map[string]struct{})
	touch := func(path string) {
		pending[path] = struct{}{}
		if !debounceTimer.Stop() {
			select {
			case <-debounceTimer.C:
			default:
			}
		}
		debounceTimer.Reset(s.debounce)
	}

	// Nil channels never receive.
	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if w != nil {
		eventCh = w.Events
		errCh = w.Errors
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("file watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if path, ok := s.relevant(ev); ok {
				touch(path)
			}

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", slog.String("error", err.Error()))

		case <-pollTicker.C:
			for _, path := range s.pollChanged() {
				touch(path)
			}

		case <-debounceTimer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			for _, p := range paths {
				s.dispatch(ctx, p)
			}
		}
	}
}

// addDirs watches the parent directory of every file, falling back to
// polling where that is impossible.
func (s *Service) addDirs(w *fsnotify.Watcher) {
	s.mu.Lock()
	dirs := make(map[string]bool)
	for path := range s.files {
		dirs[filepath.Dir(path)] = true
	}
	s.mu.Unlock()

	for dir := range dirs {
		ok := w != nil
		if ok && s.probeTimeout > 0 && !ProbeFSNotify(dir, s.probeTimeout) {
			s.logger.Info("fsnotify probe failed, polling", slog.String("dir", dir))
			ok = false
		}
		if ok {
			if err := w.Add(dir); err != nil {
				s.logger.Warn("cannot watch directory, polling",
					slog.String("dir", dir),
					slog.String("error", err.Error()))
				ok = false
			}
		}
		if !ok {
			s.mu.Lock()
			s.polled[dir] = true
			s.mu.Unlock()
		}
	}
}

// relevant maps an fsnotify event to a watched file. Removals are ignored;
// the replacement file arrives as a create.
func (s *Service) relevant(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return "", false
	}
	path := filepath.Clean(ev.Name)
	s.mu.Lock()
	_, ok := s.files[path]
	s.mu.Unlock()
	return path, ok
}

// pollChanged returns polled files whose size or modification time moved
// since the last check.
func (s *Service) pollChanged() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed []string
	for path, wf := range s.files {
		if !s.polled[filepath.Dir(path)] {
			continue
		}
		mod, size := stat(path)
		if mod.IsZero() || (mod.Equal(wf.modTime) && size == wf.size) {
			continue
		}
		wf.modTime, wf.size = mod, size
		changed = append(changed, path)
	}
	return changed
}

func (s *Service) dispatch(ctx context.Context, path string) {
	s.mu.Lock()
	wf, ok := s.files[path]
	if ok {
		wf.modTime, wf.size = stat(path)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.logger.Debug("file changed", slog.String("path", path))
	wf.handler(ctx, path)
}

func (s *Service) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func stat(path string) (time.Time, int64) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, 0
	}
	return info.ModTime(), info.Size()
}
