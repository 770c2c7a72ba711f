package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func startService(t *testing.T, svc *Service) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond) // let watcher initialize
	return func() {
		cancel()
		<-done
	}
}

func TestWriteTriggersHandler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nowplaying.json")
	writeFile(t, path, `{}`)

	got := make(chan string, 4)
	svc := NewService(testLogger())
	svc.SetDebounce(50 * time.Millisecond)
	if err := svc.Watch(path, func(_ context.Context, p string) { got <- p }); err != nil {
		t.Fatal(err)
	}
	stop := startService(t, svc)
	defer stop()

	writeFile(t, path, `{"artist":"a","track":"b"}`)

	select {
	case p := <-got:
		if filepath.Base(p) != "nowplaying.json" {
			t.Errorf("handler path = %q", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestBurstOfWritesCoalesces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nowplaying.json")

	var calls atomic.Int32
	svc := NewService(testLogger())
	svc.SetDebounce(100 * time.Millisecond)
	if err := svc.Watch(path, func(context.Context, string) { calls.Add(1) }); err != nil {
		t.Fatal(err)
	}
	stop := startService(t, svc)

	for i := range 5 {
		writeFile(t, path, string(rune('a'+i)))
	}
	time.Sleep(400 * time.Millisecond)
	stop()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 coalesced call, got %d", got)
	}
}

func TestReplaceByRenameIsFollowed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "a: 1\n")

	var calls atomic.Int32
	svc := NewService(testLogger())
	svc.SetDebounce(50 * time.Millisecond)
	if err := svc.Watch(path, func(context.Context, string) { calls.Add(1) }); err != nil {
		t.Fatal(err)
	}
	stop := startService(t, svc)

	tmp := filepath.Join(dir, "config.yaml.tmp")
	writeFile(t, tmp, "a: 2\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	stop()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call after rename, got %d", got)
	}
}

func TestUnrelatedFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nowplaying.json")

	var calls atomic.Int32
	svc := NewService(testLogger())
	svc.SetDebounce(50 * time.Millisecond)
	if err := svc.Watch(path, func(context.Context, string) { calls.Add(1) }); err != nil {
		t.Fatal(err)
	}
	stop := startService(t, svc)

	writeFile(t, filepath.Join(dir, "README.txt"), "hello")
	time.Sleep(300 * time.Millisecond)
	stop()

	if got := calls.Load(); got != 0 {
		t.Errorf("expected 0 calls for unrelated file, got %d", got)
	}
}

func TestPollChanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nowplaying.json")
	writeFile(t, path, "one")

	svc := NewService(testLogger())
	if err := svc.Watch(path, func(context.Context, string) {}); err != nil {
		t.Fatal(err)
	}
	svc.polled[dir] = true

	if got := svc.pollChanged(); len(got) != 0 {
		t.Errorf("unchanged file reported: %v", got)
	}

	writeFile(t, path, "three")
	got := svc.pollChanged()
	if len(got) != 1 || got[0] != path {
		t.Errorf("pollChanged() = %v, want [%s]", got, path)
	}
	if again := svc.pollChanged(); len(again) != 0 {
		t.Errorf("change reported twice: %v", again)
	}
	if !svc.Polled(path) {
		t.Error("Polled() = false for a polled directory")
	}
}

func TestPollMissingFileIgnored(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(testLogger())
	if err := svc.Watch(filepath.Join(dir, "absent.json"), func(context.Context, string) {}); err != nil {
		t.Fatal(err)
	}
	svc.polled[dir] = true
	if got := svc.pollChanged(); len(got) != 0 {
		t.Errorf("missing file reported: %v", got)
	}
}

func TestContextCancellation(t *testing.T) {
	svc := NewService(testLogger())
	if err := svc.Watch(filepath.Join(t.TempDir(), "x.json"), func(context.Context, string) {}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}
