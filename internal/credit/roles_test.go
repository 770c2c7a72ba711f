package credit

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sydlexius/creditgraph/internal/event"
	"github.com/sydlexius/creditgraph/internal/graph"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMusicBrainzRoles(t *testing.T) {
	m := NewMapper(testLogger(), nil)

	tests := []struct {
		relType string
		attrs   []string
		want    graph.Role
		wantOK  bool
	}{
		{"producer", nil, graph.RoleProducer, true},
		{"producer", []string{"co"}, graph.RoleCoProducer, true},
		{"producer", []string{"executive"}, graph.RoleExecutiveProducer, true},
		{"producer", []string{"additional"}, graph.RoleAdditionalProducer, true},
		{"engineer", nil, graph.RoleEngineer, true},
		{"engineer", []string{"assistant"}, graph.RoleAssistantEngineer, true},
		{"mix", nil, graph.RoleMixingEngineer, true},
		{"mastering", nil, graph.RoleMasteringEngineer, true},
		{"recording", nil, graph.RoleRecordingEngineer, true},
		{"programming", nil, graph.RoleProgrammer, true},
		{"remixer", nil, graph.RoleRemixer, true},
		{"composer", nil, graph.RoleComposer, true},
		{"lyricist", nil, graph.RoleLyricist, true},
		{"writer", nil, graph.RoleWriter, true},
		{"arranger", nil, graph.RoleArranger, true},
		{"vocal arranger", nil, graph.RoleArranger, true},
		{"conductor", nil, graph.RoleConductor, true},
		{"performing orchestra", nil, graph.RoleOrchestra, true},
		{"vocal", []string{"lead vocals"}, graph.RoleLeadVocals, true},
		{"vocal", []string{"background vocals"}, graph.RoleBackgroundVocals, true},
		{"vocal", nil, graph.RoleVocals, true},
		{"instrument", []string{"trumpet"}, graph.RoleTrumpet, true},
		{"performer", []string{"trumpet"}, graph.RoleTrumpet, true},
		{"instrument", []string{"guest", "electric guitar"}, graph.RoleGuitar, true},
		{"instrument", []string{"bass guitar"}, graph.RoleBassGuitar, true},
		{"instrument", []string{"electric bass guitar"}, graph.RoleBassGuitar, true},
		{"instrument", []string{"drums (drum set)"}, graph.RoleDrums, true},
		{"instrument", []string{"Hammond organ"}, graph.RoleOrgan, true},
		{"instrument", []string{"tenor saxophone"}, graph.RoleSaxophone, true},
		{"instrument", []string{"string quartet"}, graph.RoleStrings, true},
		{"instrument", []string{"kazoo"}, graph.RoleOtherInstrument, true},
		{"instrument", nil, graph.RoleOtherInstrument, true},
		{"performer", []string{"guest"}, graph.RoleFeatured, true},
		{"Producer", []string{"Co"}, graph.RoleCoProducer, true},
		{"photography", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.relType, func(t *testing.T) {
			got, ok := m.MusicBrainz(tt.relType, tt.attrs)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("MusicBrainz(%q, %v) = %q, %v; want %q, %v", tt.relType, tt.attrs, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDiscogsRoles(t *testing.T) {
	m := NewMapper(testLogger(), nil)

	tests := []struct {
		role string
		want []graph.Role
	}{
		{"Producer", []graph.Role{graph.RoleProducer}},
		{"Co-producer", []graph.Role{graph.RoleCoProducer}},
		{"Executive-Producer", []graph.Role{graph.RoleExecutiveProducer}},
		{"Vocal Producer", []graph.Role{graph.RoleVocalProducer}},
		{"Additional Production", []graph.Role{graph.RoleAdditionalProducer}},
		{"Mixed By", []graph.Role{graph.RoleMixingEngineer}},
		{"Mastered By", []graph.Role{graph.RoleMasteringEngineer}},
		{"Recorded By", []graph.Role{graph.RoleRecordingEngineer}},
		{"Engineer [Assistant]", []graph.Role{graph.RoleEngineer}},
		{"Assistant Engineer", []graph.Role{graph.RoleAssistantEngineer}},
		{"Written-By", []graph.Role{graph.RoleSongwriter}},
		{"Lyrics By", []graph.Role{graph.RoleLyricist}},
		{"Music By", []graph.Role{graph.RoleComposer}},
		{"Remix", []graph.Role{graph.RoleRemixer}},
		{"Featuring", []graph.Role{graph.RoleFeatured}},
		{"Drum Programming", []graph.Role{graph.RoleProgrammer}},
		{"Scratches", []graph.Role{graph.RoleTurntables}},
		{"Guitar [Electric, 12-String]", []graph.Role{graph.RoleGuitar}},
		{"Bass", []graph.Role{graph.RoleBassGuitar}},
		{"Guitar, Backing Vocals", []graph.Role{graph.RoleGuitar, graph.RoleBackgroundVocals}},
		{"Lead Vocals", []graph.Role{graph.RoleLeadVocals}},
		{"Vocals, Voice", []graph.Role{graph.RoleVocals}},
		{"Keyboards, Synthesizer", []graph.Role{graph.RoleKeyboards, graph.RoleSynthesizer}},
		{"Photography By", nil},
		{"Clarinet", []graph.Role{graph.RoleOtherInstrument}},
		{"Harmonica, Accordion", []graph.Role{graph.RoleOtherInstrument}},
		{"Photography By, Pedal Steel", []graph.Role{graph.RoleOtherInstrument}},
		{"Guitar, Kazoo", []graph.Role{graph.RoleGuitar, graph.RoleOtherInstrument}},
		{"Design, Producer", []graph.Role{graph.RoleProducer}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			got := m.Discogs(tt.role)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Discogs(%q) mismatch (-want +got):\n%s", tt.role, diff)
			}
		})
	}
}

func TestEveryRuleMapsToValidRole(t *testing.T) {
	tables := map[string][]rule{
		"instrument":  instrumentRules,
		"vocal":       vocalRules,
		"musicbrainz": mbRelationRules,
		"discogs":     discogsRules,
	}
	for name, rules := range tables {
		for _, ru := range rules {
			if !ru.role.Valid() {
				t.Errorf("%s rule %s maps to unknown role %q", name, ru.pattern, ru.role)
			}
		}
	}
}

func TestUnmappedRolePublished(t *testing.T) {
	bus := event.NewBus(testLogger(), 16)
	got := make(chan event.Event, 4)
	bus.Subscribe(event.RoleUnmapped, func(e event.Event) { got <- e })
	go bus.Start()
	defer bus.Stop()

	m := NewMapper(testLogger(), bus)
	if roles := m.Discogs("Photography By"); len(roles) != 0 {
		t.Fatalf("expected no roles, got %v", roles)
	}

	select {
	case e := <-got:
		if e.Data["source"] != SourceDiscogs || e.Data["value"] != "photography by" {
			t.Errorf("unexpected event data %v", e.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("unmapped role event not published")
	}
}
