package credit

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sydlexius/creditgraph/internal/alias"
	"github.com/sydlexius/creditgraph/internal/graph"
	"github.com/sydlexius/creditgraph/internal/provider"
	"github.com/sydlexius/creditgraph/internal/provider/providertest"
)

func newMerger(t *testing.T) (*Merger, *alias.Resolver) {
	t.Helper()
	aliases := alias.New(providertest.NewCatalog(), testLogger())
	return NewMerger(NewMapper(testLogger(), nil), aliases, testLogger()), aliases
}

func trackBuilder() *graph.Builder {
	b := graph.NewBuilder()
	b.AddEntity(graph.Entity{ID: "track-t1", Name: "Song", Type: graph.TypeTrack})
	return b
}

func TestPerformers(t *testing.T) {
	credits := []provider.ArtistCredit{
		{Artist: provider.ArtistRef{ID: "a", Name: "A"}, JoinPhrase: " & "},
		{Artist: provider.ArtistRef{ID: "b", Name: "B"}, JoinPhrase: " feat. "},
		{Artist: provider.ArtistRef{ID: "c", Name: "C"}, JoinPhrase: ", "},
		{Artist: provider.ArtistRef{ID: "d", Name: "D"}},
	}
	primary, featured := Performers(credits)

	ids := func(cs []provider.ArtistCredit) []string {
		var out []string
		for _, c := range cs {
			out = append(out, c.Artist.ID)
		}
		return out
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids(primary)); diff != "" {
		t.Errorf("primary mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c", "d"}, ids(featured)); diff != "" {
		t.Errorf("featured mismatch (-want +got):\n%s", diff)
	}
}

func TestPerformersJoinPhraseInsideWord(t *testing.T) {
	credits := []provider.ArtistCredit{
		{Artist: provider.ArtistRef{ID: "a", Name: "A"}, JoinPhrase: " left "},
		{Artist: provider.ArtistRef{ID: "b", Name: "B"}},
	}
	primary, featured := Performers(credits)
	if len(primary) != 2 || len(featured) != 0 {
		t.Errorf("join phrase %q should not start featured list", " left ")
	}
}

func TestAddArtistCredits(t *testing.T) {
	m, aliases := newMerger(t)
	b := trackBuilder()

	credits := []provider.ArtistCredit{
		{Artist: provider.ArtistRef{ID: "mj", Name: "Michael Jackson"}, CreditedName: "M. Jackson", JoinPhrase: " ft. "},
		providertest.Credit("slash", "Slash"),
	}
	primaries := m.AddArtistCredits(b, "track-t1", credits)

	if len(primaries) != 1 || primaries[0].EntityID != "artist-mj" || primaries[0].CatalogID != "mj" {
		t.Fatalf("primaries = %+v", primaries)
	}
	if !b.HasRelationship("artist-mj", "track-t1", graph.RolePrimaryArtist) {
		t.Error("missing primary_artist edge")
	}
	if !b.HasRelationship("artist-slash", "track-t1", graph.RoleFeatured) {
		t.Error("missing featured edge")
	}
	if id, ok := aliases.Lookup("M. Jackson"); !ok || id != "artist-mj" {
		t.Errorf("credited name should register as alias, got %s %v", id, ok)
	}
}

func TestAddRelationsDedupesArtists(t *testing.T) {
	m, _ := newMerger(t)
	b := trackBuilder()
	m.AddArtistCredits(b, "track-t1", []provider.ArtistCredit{providertest.Credit("q", "Quincy Jones")})

	rels := []provider.Relation{
		providertest.ArtistRelation("producer", "q", "Quincy Jones"),
		providertest.ArtistRelation("instrument", "x", "Jerry Hey", "trumpet"),
		providertest.ArtistRelation("instrument", "x", "Jerry Hey", "flugelhorn"),
		providertest.ArtistRelation("photography", "p", "Someone"),
		{Type: "publishing", Label: &provider.LabelRef{ID: "l", Name: "Label"}},
	}
	added := m.AddRelations(b, "track-t1", rels)
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if !b.HasRelationship("artist-q", "track-t1", graph.RoleProducer) {
		t.Error("missing producer edge")
	}
	if !b.HasRelationship("artist-x", "track-t1", graph.RoleTrumpet) {
		t.Error("missing trumpet edge")
	}
	if b.HasEntity("artist-p") {
		t.Error("unmapped relation should not create an entity")
	}
	if err := b.Graph().Validate(); err != nil {
		t.Errorf("graph invalid: %v", err)
	}
}

func TestWorkCreditUnderLegalNameJoinsStageName(t *testing.T) {
	m, aliases := newMerger(t)
	b := trackBuilder()
	m.AddArtistCredits(b, "track-t1", []provider.ArtistCredit{providertest.Credit("C", "The Weeknd")})
	aliases.Register("artist-C", "The Weeknd", "Abel Tesfaye")

	m.AddRelations(b, "track-t1", []provider.Relation{
		providertest.ArtistRelation("writer", "abel-legal", "Abel Tesfaye"),
	})

	if b.HasEntity("artist-abel-legal") {
		t.Error("legal-name credit created a second artist entity")
	}
	if !b.HasRelationship("artist-C", "track-t1", graph.RoleWriter) {
		t.Error("writer edge should target the canonical artist")
	}
}

func discogsSheet() *provider.ReleaseCredits {
	return &provider.ReleaseCredits{
		Source:    provider.NameDiscogs,
		ReleaseID: "123",
		Title:     "Album",
		Credits: []provider.SupplementalCredit{
			{ID: "1", Name: "Only Two (2)", Role: "Saxophone", Tracks: "2"},
			{ID: "2", Name: "Everyone", Role: "Mastered By"},
			{ID: "3", Name: "Side A Player", Role: "Bass", Tracks: "1 to 3"},
		},
		Tracklist: []provider.SupplementalTrack{
			{Position: "2", Title: "Song", Credits: []provider.SupplementalCredit{
				{Name: "Track Two Mixer*", Role: "Mixed By"},
			}},
			{Position: "5", Title: "Other", Credits: []provider.SupplementalCredit{
				{Name: "Track Five Mixer", Role: "Mixed By"},
			}},
		},
	}
}

func TestMergeSupplementalScopedToPosition(t *testing.T) {
	tests := []struct {
		position string
		want     map[string]graph.Role
		absent   []string
	}{
		{
			position: "2",
			want: map[string]graph.Role{
				"artist-dc-only-two":        graph.RoleSaxophone,
				"artist-dc-everyone":        graph.RoleMasteringEngineer,
				"artist-dc-side-a-player":   graph.RoleBassGuitar,
				"artist-dc-track-two-mixer": graph.RoleMixingEngineer,
			},
			absent: []string{"artist-dc-track-five-mixer"},
		},
		{
			position: "5",
			want: map[string]graph.Role{
				"artist-dc-everyone":         graph.RoleMasteringEngineer,
				"artist-dc-track-five-mixer": graph.RoleMixingEngineer,
			},
			absent: []string{"artist-dc-only-two", "artist-dc-side-a-player", "artist-dc-track-two-mixer"},
		},
	}
	for _, tt := range tests {
		t.Run("position "+tt.position, func(t *testing.T) {
			m, _ := newMerger(t)
			b := trackBuilder()
			added := m.MergeSupplemental(b, "track-t1", TrackPosition{Position: tt.position}, discogsSheet())
			if added != len(tt.want) {
				t.Errorf("added = %d, want %d", added, len(tt.want))
			}
			for id, role := range tt.want {
				if !b.HasRelationship(id, "track-t1", role) {
					t.Errorf("missing %s -> %s", id, role)
				}
			}
			for _, id := range tt.absent {
				if b.HasEntity(id) {
					t.Errorf("%s should not be credited at position %s", id, tt.position)
				}
			}
		})
	}
}

func TestMergeSupplementalRetargetsExistingArtist(t *testing.T) {
	m, _ := newMerger(t)
	b := trackBuilder()
	b.AddEntity(graph.Entity{ID: "artist-mbid-prince", Name: "Prince", Type: graph.TypeArtist})

	sheet := &provider.ReleaseCredits{
		Source: provider.NameDiscogs,
		Credits: []provider.SupplementalCredit{
			{Name: "Prince (2)", Role: "Producer, Guitar"},
		},
	}
	added := m.MergeSupplemental(b, "track-t1", TrackPosition{Position: "1"}, sheet)
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if b.HasEntity("artist-dc-prince") {
		t.Error("Discogs credit should reuse the existing artist entity")
	}
	if !b.HasRelationship("artist-mbid-prince", "track-t1", graph.RoleProducer) ||
		!b.HasRelationship("artist-mbid-prince", "track-t1", graph.RoleGuitar) {
		t.Error("roles should attach to the existing artist")
	}

	// Merging the same sheet again adds nothing.
	if again := m.MergeSupplemental(b, "track-t1", TrackPosition{Position: "1"}, sheet); again != 0 {
		t.Errorf("second merge added %d edges", again)
	}
}

func TestMergeSupplementalByTitleWhenPositionUnknown(t *testing.T) {
	m, _ := newMerger(t)
	b := trackBuilder()
	added := m.MergeSupplemental(b, "track-t1", TrackPosition{Title: "SONG"}, discogsSheet())
	// Unscoped release credit plus the title-matched track credit.
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if !b.HasRelationship("artist-dc-track-two-mixer", "track-t1", graph.RoleMixingEngineer) {
		t.Error("title match should apply track credits")
	}
}

func TestCleanDiscogsName(t *testing.T) {
	tests := map[string]string{
		"Prince (2)":   "Prince",
		"Prince":       "Prince",
		"Jerry Hey*":   "Jerry Hey",
		" Sade (12) ":  "Sade",
		"Boney M. (3)": "Boney M.",
		"(2)":          "(2)",
	}
	for in, want := range tests {
		if got := CleanDiscogsName(in); got != want {
			t.Errorf("CleanDiscogsName(%q) = %q, want %q", in, got, want)
		}
	}
}
