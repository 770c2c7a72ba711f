package fanarttv

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sydlexius/creditgraph/internal/provider"
)

const artistBody = `{
	"name": "Radiohead",
	"mbid_id": "radiohead-id",
	"artistthumb": [
		{"id": "1", "url": "https://assets.fanart.tv/fanart/music/radiohead/artistthumb/a.jpg", "likes": "3", "lang": "en"},
		{"id": "2", "url": "https://assets.fanart.tv/fanart/music/radiohead/artistthumb/b.jpg", "likes": "11", "lang": "en"},
		{"id": "3", "url": "https://assets.fanart.tv/fanart/music/radiohead/artistthumb/c.jpg", "likes": "11", "lang": "en"}
	]
}`

const backgroundOnlyBody = `{
	"name": "Quiet",
	"artistbackground": [
		{"id": "9", "url": "https://assets.fanart.tv/fanart/music/quiet/artistbackground/x.jpg", "likes": "1"}
	]
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/radiohead-id":
			w.Write([]byte(artistBody))
		case "/quiet-id":
			w.Write([]byte(backgroundOnlyBody))
		case "/empty-id":
			w.Write([]byte(`{"name":"Empty"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL, key string) *Adapter {
	t.Helper()
	limiter := provider.NewRateLimiterMap(provider.NoThrottle())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(limiter, key, logger, baseURL).WithRetryBackoff(time.Millisecond)
}

func TestGetArtistImage(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "test-key")

	img, err := a.GetArtistImage(context.Background(), "Radiohead", "radiohead-id")
	if err != nil {
		t.Fatalf("GetArtistImage: %v", err)
	}
	if img.URL != "https://assets.fanart.tv/fanart/music/radiohead/artistthumb/b.jpg" {
		t.Errorf("expected most liked thumb, got %s", img.URL)
	}
	if img.Likes != 11 {
		t.Errorf("expected 11 likes, got %d", img.Likes)
	}
}

func TestGetArtistImageBackgroundFallback(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "test-key")

	img, err := a.GetArtistImage(context.Background(), "Quiet", "quiet-id")
	if err != nil {
		t.Fatalf("GetArtistImage: %v", err)
	}
	if img.URL != "https://assets.fanart.tv/fanart/music/quiet/artistbackground/x.jpg" {
		t.Errorf("unexpected URL %s", img.URL)
	}
}

func TestGetArtistImageMisses(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "test-key")

	tests := []struct {
		name string
		mbid string
	}{
		{"no mbid", ""},
		{"unknown mbid", "missing-id"},
		{"no images", "empty-id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.GetArtistImage(context.Background(), "Someone", tt.mbid)
			if !provider.IsNotFound(err) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestGetArtistImageNoKey(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "")

	_, err := a.GetArtistImage(context.Background(), "Radiohead", "radiohead-id")
	if _, ok := err.(*provider.ErrAuthRequired); !ok {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}
