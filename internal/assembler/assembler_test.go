package assembler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sydlexius/creditgraph/internal/cache"
	"github.com/sydlexius/creditgraph/internal/event"
	"github.com/sydlexius/creditgraph/internal/graph"
	"github.com/sydlexius/creditgraph/internal/match"
	"github.com/sydlexius/creditgraph/internal/provider"
	"github.com/sydlexius/creditgraph/internal/provider/providertest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// badCatalog serves Michael Jackson's "Bad" with "Smooth Criminal" at
// position 9.
func badCatalog() *providertest.Catalog {
	cat := providertest.NewCatalog()
	badRef := provider.ReleaseRef{ID: "bad", Title: "Bad", Status: "Official", PrimaryType: "Album"}
	cat.ReleaseSearch = []provider.ReleaseCandidate{{ReleaseRef: badRef, Score: 100}}
	cat.Releases["bad"] = &provider.ReleaseDetail{
		ReleaseRef: badRef,
		Labels:     []provider.LabelRef{{ID: "epic", Name: "Epic"}},
		Tracks: []provider.TrackRef{
			{ID: "t1", RecordingID: "rec-bad", Title: "Bad", Number: "1", Position: 1},
			{ID: "t9", RecordingID: "rec-smooth", Title: "Smooth Criminal", Number: "9", Position: 9},
		},
	}
	cat.RecordingSearch = []provider.RecordingCandidate{
		{ID: "rec-smooth", Title: "Smooth Criminal", Score: 100,
			Credits:  []provider.ArtistCredit{providertest.Credit("mj", "Michael Jackson")},
			Releases: []provider.ReleaseRef{badRef}},
	}
	cat.Recordings["rec-smooth"] = &provider.RecordingDetail{
		ID:      "rec-smooth",
		Title:   "Smooth Criminal",
		Credits: []provider.ArtistCredit{providertest.Credit("mj", "Michael Jackson")},
		Relations: []provider.Relation{
			providertest.ArtistRelation("producer", "qj", "Quincy Jones"),
			providertest.ArtistRelation("instrument", "db", "David Williams", "guitar"),
		},
		Releases: []provider.ReleaseRef{badRef},
		Works:    []provider.WorkRef{{ID: "w-smooth", Title: "Smooth Criminal"}},
	}
	cat.Recordings["rec-bad"] = &provider.RecordingDetail{
		ID:      "rec-bad",
		Title:   "Bad",
		Credits: []provider.ArtistCredit{providertest.Credit("mj", "Michael Jackson")},
	}
	cat.Works["w-smooth"] = []provider.Relation{
		providertest.ArtistRelation("composer", "mj", "Michael Jackson"),
	}
	cat.Aliases["mj"] = []string{"MJ", "King of Pop"}
	return cat
}

type fakeCredits struct {
	mu     sync.Mutex
	sheet  *provider.ReleaseCredits
	err    error
	artist string
	album  string
	calls  int
}

func (f *fakeCredits) FindReleaseCredits(_ context.Context, _, artist, album string) (*provider.ReleaseCredits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.artist, f.album = artist, album
	if f.err != nil {
		return nil, f.err
	}
	if f.sheet == nil {
		return nil, &provider.ErrNotFound{Provider: provider.NameDiscogs, ID: album}
	}
	return f.sheet, nil
}

func badSheet() *provider.ReleaseCredits {
	return &provider.ReleaseCredits{
		Source:    provider.NameDiscogs,
		ReleaseID: "r-bad",
		Title:     "Bad",
		Credits: []provider.SupplementalCredit{
			{Name: "Bruce Swedien", Role: "Recorded By", Tracks: "9"},
			{Name: "Quincy Jones", Role: "Producer"},
			{Name: "Larry Williams", Role: "Saxophone", Tracks: "1 to 3"},
		},
	}
}

type fakeHints struct{ album string }

func (f fakeHints) AlbumHint(context.Context, string, string) string { return f.album }

type fakeImages struct {
	mu      sync.Mutex
	primary [][]string
}

func (f *fakeImages) Decorate(_ context.Context, b *graph.Builder, primary []string) int {
	f.mu.Lock()
	f.primary = append(f.primary, primary)
	f.mu.Unlock()
	for _, id := range primary {
		b.SetImage(id, "https://img.test/"+id+".jpg")
	}
	return len(primary)
}

func newAssembler(cat provider.Catalog, d Deps) *Assembler {
	d.Catalog = cat
	return New(d, testLogger())
}

func hasEdge(g graph.Graph, source, target string, role graph.Role) bool {
	for _, r := range g.Relationships {
		if r.Source == source && r.Target == target && r.Role == role {
			return true
		}
	}
	return false
}

func entity(g graph.Graph, id string) (graph.Entity, bool) {
	for _, e := range g.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return graph.Entity{}, false
}

func TestTrackGraphSmoothCriminal(t *testing.T) {
	cat := badCatalog()
	credits := &fakeCredits{sheet: badSheet()}
	images := &fakeImages{}
	a := newAssembler(cat, Deps{Credits: credits, Images: images})

	res, err := a.TrackGraph(context.Background(), TrackRequest{Artist: "Michael Jackson", Track: "Smooth Criminal", Album: "Bad"})
	if err != nil {
		t.Fatalf("TrackGraph: %v", err)
	}
	if !res.Found || res.Cached {
		t.Fatalf("Found=%v Cached=%v, want found and fresh", res.Found, res.Cached)
	}
	if res.RootID != "track-rec-smooth" {
		t.Errorf("RootID = %q", res.RootID)
	}
	if res.Match == nil || res.Match.Strategy != match.StrategyReleaseFirst {
		t.Errorf("Match = %+v, want release-first", res.Match)
	}
	if err := res.Validate(); err != nil {
		t.Fatalf("graph invalid: %v", err)
	}

	g := res.Graph
	edges := []struct {
		source, target string
		role           graph.Role
	}{
		{"artist-mj", "track-rec-smooth", graph.RolePrimaryArtist},
		{"track-rec-smooth", "album-bad", graph.RoleReleasedOn},
		{"artist-mj", "label-epic", graph.RoleSignedTo},
		{"artist-qj", "track-rec-smooth", graph.RoleProducer},
		{"artist-db", "track-rec-smooth", graph.RoleGuitar},
		{"artist-mj", "track-rec-smooth", graph.RoleComposer},
		{"artist-dc-bruce-swedien", "track-rec-smooth", graph.RoleRecordingEngineer},
	}
	for _, e := range edges {
		if !hasEdge(g, e.source, e.target, e.role) {
			t.Errorf("missing edge %s -%s-> %s", e.source, e.role, e.target)
		}
	}
	if _, ok := entity(g, "artist-dc-larry-williams"); ok {
		t.Error("credit scoped to tracks 1-3 applied to track 9")
	}
	if _, ok := entity(g, "artist-dc-quincy-jones"); ok {
		t.Error("Discogs producer credit was not retargeted to the catalog artist")
	}
	if credits.album != "Bad" || credits.artist != "Michael Jackson" {
		t.Errorf("credit lookup used artist=%q album=%q", credits.artist, credits.album)
	}
	if mj, _ := entity(g, "artist-mj"); mj.Image == "" {
		t.Error("primary artist was not decorated")
	}
	if diff := cmp.Diff([][]string{{"artist-mj"}}, images.primary); diff != "" {
		t.Errorf("primary artists passed to Decorate (-want +got):\n%s", diff)
	}
	if !a.Aliases().Fetched("mj") {
		t.Error("aliases of the primary artist were not prefetched")
	}
}

func TestTrackGraphIsCached(t *testing.T) {
	cat := badCatalog()
	tc := cache.New(cache.NewMemoryStore(0), cache.Options{}, testLogger(), nil)
	a := newAssembler(cat, Deps{Cache: tc})
	req := TrackRequest{Artist: "Michael Jackson", Track: "Smooth Criminal", Album: "Bad"}

	first, err := a.TrackGraph(context.Background(), req)
	if err != nil {
		t.Fatalf("first TrackGraph: %v", err)
	}
	second, err := a.TrackGraph(context.Background(), TrackRequest{Artist: " michael jackson", Track: "SMOOTH CRIMINAL", Album: "Bad"})
	if err != nil {
		t.Fatalf("second TrackGraph: %v", err)
	}
	if !second.Cached {
		t.Error("second request was not served from cache")
	}
	if second.RootID != first.RootID {
		t.Errorf("cached RootID = %q, want %q", second.RootID, first.RootID)
	}
	if diff := cmp.Diff(first.Graph, second.Graph); diff != "" {
		t.Errorf("cached graph differs (-fresh +cached):\n%s", diff)
	}
	if n := cat.Calls("GetRecording"); n != 1 {
		t.Errorf("GetRecording called %d times, want 1", n)
	}
}

func TestTrackGraphNotFound(t *testing.T) {
	cat := providertest.NewCatalog()
	tc := cache.New(cache.NewMemoryStore(0), cache.Options{}, testLogger(), nil)
	a := newAssembler(cat, Deps{Cache: tc})

	res, err := a.TrackGraph(context.Background(), TrackRequest{Artist: "Nobody", Track: "Nothing"})
	if err != nil {
		t.Fatalf("TrackGraph: %v", err)
	}
	if res.Found {
		t.Error("Found = true for an unknown track")
	}
	if res.Entities == nil || len(res.Entities) != 0 || res.Relationships == nil {
		t.Errorf("not-found graph = %+v, want explicit empty arrays", res.Graph)
	}
	if st, _ := tc.Stats(context.Background()); st.Entries != 0 {
		t.Errorf("cache holds %d entries after a miss", st.Entries)
	}
}

func TestTrackGraphVanishedRecording(t *testing.T) {
	cat := badCatalog()
	delete(cat.Recordings, "rec-smooth")
	a := newAssembler(cat, Deps{})

	res, err := a.TrackGraph(context.Background(), TrackRequest{Artist: "Michael Jackson", Track: "Smooth Criminal", Album: "Bad"})
	if err != nil {
		t.Fatalf("TrackGraph: %v", err)
	}
	if res.Found {
		t.Error("Found = true for a recording the catalog no longer has")
	}
}

func TestTrackGraphAlbumHint(t *testing.T) {
	cat := badCatalog()
	a := newAssembler(cat, Deps{Hints: fakeHints{album: "Bad"}})

	res, err := a.TrackGraph(context.Background(), TrackRequest{Artist: "Michael Jackson", Track: "Smooth Criminal"})
	if err != nil {
		t.Fatalf("TrackGraph: %v", err)
	}
	if res.Match.AlbumHint != "Bad" {
		t.Errorf("AlbumHint = %q, want Bad", res.Match.AlbumHint)
	}
	if res.Match.Strategy != match.StrategyReleaseFirst {
		t.Errorf("Strategy = %q, want release-first via the hint", res.Match.Strategy)
	}
	if n := cat.Calls("SearchRelease"); n != 1 {
		t.Errorf("SearchRelease called %d times, want 1", n)
	}
}

func TestTrackGraphWithoutAlbumUsesBestRelease(t *testing.T) {
	cat := badCatalog()
	a := newAssembler(cat, Deps{})

	res, err := a.TrackGraph(context.Background(), TrackRequest{Artist: "Michael Jackson", Track: "Smooth Criminal"})
	if err != nil {
		t.Fatalf("TrackGraph: %v", err)
	}
	if res.Match.Strategy != match.StrategyRecording {
		t.Errorf("Strategy = %q, want recording search", res.Match.Strategy)
	}
	if !hasEdge(res.Graph, "track-rec-smooth", "album-bad", graph.RoleReleasedOn) {
		t.Error("release named by recording search was not attached")
	}
}

func TestTrackGraphDegradesOnSupplementalFailure(t *testing.T) {
	cat := badCatalog()
	credits := &fakeCredits{err: &provider.ErrProviderUnavailable{Provider: provider.NameDiscogs, Cause: errors.New("boom")}}
	cat.AliasErr["mj"] = errors.New("alias outage")
	a := newAssembler(cat, Deps{Credits: credits})

	res, err := a.TrackGraph(context.Background(), TrackRequest{Artist: "Michael Jackson", Track: "Smooth Criminal", Album: "Bad"})
	if err != nil {
		t.Fatalf("TrackGraph: %v", err)
	}
	if !res.Found || !hasEdge(res.Graph, "artist-qj", "track-rec-smooth", graph.RoleProducer) {
		t.Error("catalog credits missing after supplemental failure")
	}
	if credits.calls != 1 {
		t.Errorf("FindReleaseCredits called %d times, want 1", credits.calls)
	}
}

func TestTrackGraphErrors(t *testing.T) {
	cat := providertest.NewCatalog()
	cat.RecordingErr = &provider.ErrProviderUnavailable{Provider: provider.NameMusicBrainz, Cause: errors.New("down")}
	a := newAssembler(cat, Deps{})

	tests := []struct {
		name string
		req  TrackRequest
		want func(error) bool
	}{
		{"missing artist", TrackRequest{Track: "x"}, func(err error) bool { return errors.Is(err, ErrInvalidRequest) }},
		{"blank track", TrackRequest{Artist: "x", Track: "  "}, func(err error) bool { return errors.Is(err, ErrInvalidRequest) }},
		{"catalog down", TrackRequest{Artist: "x", Track: "y"}, func(err error) bool {
			var pu *provider.ErrProviderUnavailable
			return errors.As(err, &pu)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.TrackGraph(context.Background(), tt.req)
			if err == nil || !tt.want(err) {
				t.Errorf("TrackGraph() error = %v", err)
			}
		})
	}
}

// gatedCatalog blocks GetRecording until the gate is closed.
type gatedCatalog struct {
	*providertest.Catalog
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (c *gatedCatalog) GetRecording(ctx context.Context, id string) (*provider.RecordingDetail, error) {
	c.once.Do(func() { close(c.entered) })
	<-c.gate
	return c.Catalog.GetRecording(ctx, id)
}

func TestTrackGraphCanceledWaiterStillFillsCache(t *testing.T) {
	inner := badCatalog()
	cat := &gatedCatalog{Catalog: inner, entered: make(chan struct{}), gate: make(chan struct{})}
	tc := cache.New(cache.NewMemoryStore(0), cache.Options{}, testLogger(), nil)
	a := newAssembler(cat, Deps{Cache: tc})
	req := TrackRequest{Artist: "Michael Jackson", Track: "Smooth Criminal", Album: "Bad"}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := a.TrackGraph(ctx, req)
		errc <- err
	}()
	<-cat.entered
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled TrackGraph error = %v, want context.Canceled", err)
	}
	close(cat.gate)

	res, err := a.TrackGraph(context.Background(), req)
	if err != nil {
		t.Fatalf("TrackGraph: %v", err)
	}
	if !res.Found {
		t.Fatal("Found = false")
	}
	if n := inner.Calls("GetRecording"); n != 1 {
		t.Errorf("GetRecording called %d times, want the abandoned assembly to be reused", n)
	}
}

func TestTrackGraphPublishesEvent(t *testing.T) {
	bus := event.NewBus(testLogger(), 16)
	got := make(chan event.Event, 4)
	bus.Subscribe(event.TrackResolved, func(e event.Event) { got <- e })
	go bus.Start()
	defer bus.Stop()

	a := newAssembler(badCatalog(), Deps{Bus: bus})
	if _, err := a.TrackGraph(context.Background(), TrackRequest{Artist: "Michael Jackson", Track: "Smooth Criminal", Album: "Bad"}); err != nil {
		t.Fatalf("TrackGraph: %v", err)
	}
	select {
	case e := <-got:
		if e.Data["track_id"] != "track-rec-smooth" {
			t.Errorf("event data = %v", e.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no track.resolved event")
	}
}

func discographyCatalog() *providertest.Catalog {
	cat := badCatalog()
	cat.ArtistSearch["Michael Jackson"] = []provider.ArtistRef{
		{ID: "tribute", Name: "Michael Jackson Tribute Band", Score: 100},
		{ID: "mj", Name: "Michael Jackson", Score: 98},
	}
	cat.ReleaseGroups["mj"] = []provider.ReleaseGroup{
		{ID: "bad-single", Title: "Bad", PrimaryType: "Single", FirstReleaseDate: "1987-09-07"},
		{ID: "bad", Title: "Bad", PrimaryType: "Album", FirstReleaseDate: "1987-08-31"},
		{ID: "mystery", Title: "Mystery"},
		{ID: "thriller", Title: "Thriller", PrimaryType: "Album", FirstReleaseDate: "1982-11-29"},
	}
	cat.GroupReleases["bad"] = []provider.ReleaseRef{
		{ID: "bad-comp", Title: "Bad", SecondaryTypes: []string{"Compilation"}},
		{ID: "bad", Title: "Bad", Status: "Official", PrimaryType: "Album"},
	}
	return cat
}

func TestDiscography(t *testing.T) {
	images := &fakeImages{}
	a := newAssembler(discographyCatalog(), Deps{Images: images})

	res, err := a.Discography(context.Background(), "Michael Jackson")
	if err != nil {
		t.Fatalf("Discography: %v", err)
	}
	if !res.Found || res.RootID != "artist-mj" {
		t.Fatalf("Found=%v RootID=%q, want exact-name match artist-mj", res.Found, res.RootID)
	}
	want := []Section{
		{Type: "Album", AlbumIDs: []string{"album-rg-thriller", "album-rg-bad"}},
		{Type: "Single", AlbumIDs: []string{"album-rg-bad-single"}},
		{Type: "Other", AlbumIDs: []string{"album-rg-mystery"}},
	}
	if diff := cmp.Diff(want, res.Sections); diff != "" {
		t.Errorf("sections (-want +got):\n%s", diff)
	}
	for _, e := range res.Entities {
		if e.Type != graph.TypeAlbum {
			continue
		}
		if e.ParentID != "artist-mj" || e.Depth != 1 {
			t.Errorf("%s parent=%q depth=%d, want artist-mj/1", e.ID, e.ParentID, e.Depth)
		}
		if !hasEdge(res.Graph, "artist-mj", e.ID, graph.RolePrimaryArtist) {
			t.Errorf("no primary_artist edge to %s", e.ID)
		}
	}
	if err := res.Validate(); err != nil {
		t.Errorf("graph invalid: %v", err)
	}
	if diff := cmp.Diff([][]string{{"artist-mj"}}, images.primary); diff != "" {
		t.Errorf("Decorate primary (-want +got):\n%s", diff)
	}
}

func TestDiscographyUnknownArtist(t *testing.T) {
	a := newAssembler(providertest.NewCatalog(), Deps{})
	res, err := a.Discography(context.Background(), "Nobody")
	if err != nil {
		t.Fatalf("Discography: %v", err)
	}
	if res.Found {
		t.Error("Found = true for an unknown artist")
	}
	if _, err := a.Discography(context.Background(), " "); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("blank artist error = %v", err)
	}
}

func TestExpandAlbum(t *testing.T) {
	a := newAssembler(discographyCatalog(), Deps{})
	tests := []struct {
		name  string
		album graph.Entity
	}{
		{"release", graph.Entity{ID: "album-bad", Name: "Bad", Type: graph.TypeAlbum, SourceID: "bad", Depth: 1}},
		{"release group", graph.Entity{ID: "album-rg-bad", Name: "Bad", Type: graph.TypeAlbum, Depth: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Expand(context.Background(), tt.album)
			if err != nil {
				t.Fatalf("Expand: %v", err)
			}
			if !res.Found || res.RootID != tt.album.ID {
				t.Fatalf("Found=%v RootID=%q", res.Found, res.RootID)
			}
			var tracks []string
			for _, e := range res.Entities {
				if e.Type != graph.TypeTrack {
					continue
				}
				tracks = append(tracks, e.ID)
				if e.ParentID != tt.album.ID || e.Depth != 2 {
					t.Errorf("%s parent=%q depth=%d", e.ID, e.ParentID, e.Depth)
				}
				if !hasEdge(res.Graph, tt.album.ID, e.ID, graph.RoleContains) {
					t.Errorf("no contains edge to %s", e.ID)
				}
			}
			if diff := cmp.Diff([]string{"track-rec-bad", "track-rec-smooth"}, tracks); diff != "" {
				t.Errorf("tracks (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpandTrack(t *testing.T) {
	a := newAssembler(badCatalog(), Deps{})
	track := graph.Entity{ID: "track-rec-smooth", Name: "Smooth Criminal", Type: graph.TypeTrack, ParentID: "album-bad", Depth: 2}

	res, err := a.Expand(context.Background(), track)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	root, ok := entity(res.Graph, track.ID)
	if !ok || root.ParentID != "album-bad" || root.Depth != 2 {
		t.Errorf("root = %+v, want it unchanged", root)
	}
	var artists []string
	for _, e := range res.Entities {
		if e.Type != graph.TypeArtist {
			continue
		}
		artists = append(artists, e.ID)
		if e.ParentID != track.ID || e.Depth != 3 {
			t.Errorf("%s parent=%q depth=%d", e.ID, e.ParentID, e.Depth)
		}
	}
	slices.Sort(artists)
	if diff := cmp.Diff([]string{"artist-db", "artist-mj", "artist-qj"}, artists); diff != "" {
		t.Errorf("personnel (-want +got):\n%s", diff)
	}
	if !hasEdge(res.Graph, "artist-mj", track.ID, graph.RoleComposer) {
		t.Error("work credits not expanded")
	}
}

func TestExpandArtist(t *testing.T) {
	a := newAssembler(discographyCatalog(), Deps{})
	res, err := a.Expand(context.Background(), graph.Entity{ID: "artist-mj", Name: "Michael Jackson", Type: graph.TypeArtist, SourceID: "mj"})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Sections) != 3 {
		t.Errorf("sections = %+v", res.Sections)
	}
	if e, ok := entity(res.Graph, "album-rg-thriller"); !ok || e.Depth != 1 || e.ParentID != "artist-mj" {
		t.Errorf("thriller = %+v", e)
	}

	res, err = a.Expand(context.Background(), graph.Entity{ID: "artist-dc-someone", Name: "Someone", Type: graph.TypeArtist})
	if err != nil {
		t.Fatalf("Expand discogs artist: %v", err)
	}
	if res.Found {
		t.Error("Found = true for a Discogs-only artist")
	}
}

func TestExpandErrors(t *testing.T) {
	a := newAssembler(badCatalog(), Deps{})
	if _, err := a.Expand(context.Background(), graph.Entity{ID: "label-epic", Type: graph.TypeLabel}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("label expand error = %v, want ErrUnsupported", err)
	}
	if _, err := a.Expand(context.Background(), graph.Entity{Type: graph.TypeAlbum}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty id error = %v, want ErrInvalidRequest", err)
	}
	res, err := a.Expand(context.Background(), graph.Entity{ID: "album-missing", Type: graph.TypeAlbum})
	if err != nil || res.Found {
		t.Errorf("missing album: res=%+v err=%v, want not found", res, err)
	}
}

// weekndCatalog credits The Weeknd as performer and, under his legal name
// with separate catalog ids, as producer and composer.
func weekndCatalog() *providertest.Catalog {
	cat := providertest.NewCatalog()
	weeknd := providertest.Credit("weeknd", "The Weeknd")
	cat.RecordingSearch = []provider.RecordingCandidate{
		{ID: "rec-blinding", Title: "Blinding Lights", Score: 100, Credits: []provider.ArtistCredit{weeknd}},
	}
	cat.Recordings["rec-blinding"] = &provider.RecordingDetail{
		ID:      "rec-blinding",
		Title:   "Blinding Lights",
		Credits: []provider.ArtistCredit{weeknd},
		Relations: []provider.Relation{
			providertest.ArtistRelation("producer", "abel", "Abel Tesfaye"),
		},
		Works: []provider.WorkRef{{ID: "w-blinding", Title: "Blinding Lights"}},
	}
	cat.Works["w-blinding"] = []provider.Relation{
		providertest.ArtistRelation("composer", "abel-writer", "Abel Tesfaye"),
	}
	cat.Aliases["weeknd"] = []string{"Abel Tesfaye"}
	return cat
}

func artistEntities(g graph.Graph) []string {
	var ids []string
	for _, e := range g.Entities {
		if e.Type == graph.TypeArtist {
			ids = append(ids, e.ID)
		}
	}
	slices.Sort(ids)
	return ids
}

func TestTrackGraphLegalNameCreditsJoinStageName(t *testing.T) {
	credits := &fakeCredits{sheet: &provider.ReleaseCredits{
		Source: provider.NameDiscogs,
		Title:  "After Hours",
		Credits: []provider.SupplementalCredit{
			{Name: "Abel Tesfaye", Role: "Written-By"},
			{Name: "Abel Tesfaye (2)", Role: "Producer"},
		},
	}}
	a := newAssembler(weekndCatalog(), Deps{Credits: credits})

	res, err := a.TrackGraph(context.Background(), TrackRequest{Artist: "The Weeknd", Track: "Blinding Lights"})
	if err != nil {
		t.Fatalf("TrackGraph: %v", err)
	}
	if diff := cmp.Diff([]string{"artist-weeknd"}, artistEntities(res.Graph)); diff != "" {
		t.Errorf("artist entities (-want +got):\n%s", diff)
	}
	for _, role := range []graph.Role{graph.RolePrimaryArtist, graph.RoleProducer, graph.RoleComposer, graph.RoleSongwriter} {
		if !hasEdge(res.Graph, "artist-weeknd", "track-rec-blinding", role) {
			t.Errorf("missing %s edge from artist-weeknd", role)
		}
	}
	if err := res.Graph.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestExpandTrackLegalNameCreditsJoinStageName(t *testing.T) {
	a := newAssembler(weekndCatalog(), Deps{})
	track := graph.Entity{ID: "track-rec-blinding", Name: "Blinding Lights", Type: graph.TypeTrack, SourceID: "rec-blinding"}

	res, err := a.Expand(context.Background(), track)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if diff := cmp.Diff([]string{"artist-weeknd"}, artistEntities(res.Graph)); diff != "" {
		t.Errorf("artist entities (-want +got):\n%s", diff)
	}
	if !hasEdge(res.Graph, "artist-weeknd", track.ID, graph.RoleProducer) {
		t.Error("producer credit not attached to the stage-name entity")
	}
}
