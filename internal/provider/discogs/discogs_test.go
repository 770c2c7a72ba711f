package discogs

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sydlexius/creditgraph/internal/provider"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func newTestServer(t *testing.T, lastQuery *atomic.Value) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Discogs token=test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/database/search":
			if lastQuery != nil {
				lastQuery.Store(r.URL.Query())
			}
			if r.URL.Query().Get("artist") == "Nobody" {
				w.Write([]byte(`{"pagination":{"items":0},"results":[]}`))
				return
			}
			w.Write(loadFixture(t, "search_release.json"))
		case "/releases/9876543":
			w.Write(loadFixture(t, "release.json"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL, token string) *Adapter {
	t.Helper()
	limiter := provider.NewRateLimiterMap(provider.NoThrottle())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(limiter, token, logger, baseURL).WithRetryBackoff(time.Millisecond)
}

func TestName(t *testing.T) {
	a := newTestAdapter(t, "http://localhost", "")
	if a.Name() != provider.NameDiscogs {
		t.Errorf("expected %s, got %s", provider.NameDiscogs, a.Name())
	}
}

func TestFindReleaseCredits(t *testing.T) {
	var lastQuery atomic.Value
	srv := newTestServer(t, &lastQuery)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "test-token")

	rc, err := a.FindReleaseCredits(context.Background(), "Shape of You", "Ed Sheeran", "÷")
	if err != nil {
		t.Fatalf("FindReleaseCredits: %v", err)
	}

	q := lastQuery.Load().(url.Values)
	if q.Get("release_title") != "÷" || q.Get("track") != "" {
		t.Errorf("album search should use release_title only, got release_title=%q track=%q",
			q.Get("release_title"), q.Get("track"))
	}

	if rc.Source != provider.NameDiscogs || rc.ReleaseID != "9876543" {
		t.Errorf("unexpected release header: %+v", rc)
	}
	wantCredits := []provider.SupplementalCredit{
		{ID: "150105", Name: "Steve Mac", Role: "Producer", Tracks: "4"},
		{ID: "224506", Name: "Mark Stent", Role: "Mixed By", Tracks: "1 to 4"},
		{ID: "31337", Name: "Stuart Hawkes", Role: "Mastered By"},
	}
	if diff := cmp.Diff(wantCredits, rc.Credits); diff != "" {
		t.Errorf("credits mismatch (-want +got):\n%s", diff)
	}
	if len(rc.Tracklist) != 2 {
		t.Fatalf("expected headings to be skipped, got %d tracks", len(rc.Tracklist))
	}
	shape := rc.Tracklist[1]
	if shape.Position != "4" || len(shape.Credits) != 1 || shape.Credits[0].Name != "Johnny McDaid (2)" {
		t.Errorf("unexpected track: %+v", shape)
	}
}

func TestFindReleaseCreditsWithoutAlbumSearchesByTrack(t *testing.T) {
	var lastQuery atomic.Value
	srv := newTestServer(t, &lastQuery)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "test-token")

	if _, err := a.FindReleaseCredits(context.Background(), "Shape of You", "Ed Sheeran", ""); err != nil {
		t.Fatalf("FindReleaseCredits: %v", err)
	}
	q := lastQuery.Load().(url.Values)
	if q.Get("track") != "Shape of You" {
		t.Errorf("expected track search, got %q", q.Get("track"))
	}
}

func TestFindReleaseCreditsNoResults(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "test-token")

	_, err := a.FindReleaseCredits(context.Background(), "Nothing", "Nobody", "")
	if !provider.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindReleaseCreditsNoToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "")

	_, err := a.FindReleaseCredits(context.Background(), "Shape of You", "Ed Sheeran", "")
	if _, ok := err.(*provider.ErrAuthRequired); !ok {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if calls.Load() != 0 {
		t.Error("no request should be made without a token")
	}
}

func TestFindReleaseCreditsBadToken(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "wrong")

	_, err := a.FindReleaseCredits(context.Background(), "Shape of You", "Ed Sheeran", "")
	if _, ok := err.(*provider.ErrAuthRequired); !ok {
		t.Fatalf("expected ErrAuthRequired for 401, got %v", err)
	}
}
