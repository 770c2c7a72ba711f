// Package credit maps upstream credit vocabularies onto the closed role set
// and merges performer, personnel and supplemental credits into a graph.
package credit

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/sydlexius/creditgraph/internal/event"
	"github.com/sydlexius/creditgraph/internal/graph"
	"github.com/sydlexius/creditgraph/internal/metrics"
)

// Sources reported with unmapped role values.
const (
	SourceMusicBrainz = "musicbrainz"
	SourceDiscogs     = "discogs"
)

// rule maps a lowercase credit string to a role. Tables are evaluated in
// order and the first matching pattern wins, so specific patterns go first.
type rule struct {
	pattern *regexp.Regexp
	role    graph.Role
}

func r(pattern string, role graph.Role) rule {
	return rule{pattern: regexp.MustCompile(pattern), role: role}
}

func firstMatch(rules []rule, s string) (graph.Role, bool) {
	for _, ru := range rules {
		if ru.pattern.MatchString(s) {
			return ru.role, true
		}
	}
	return "", false
}

// instrumentRules resolves instrument names, shared by MusicBrainz
// instrument attributes and Discogs role strings.
var instrumentRules = []rule{
	r(`^(electric |acoustic |fretless )?bass( guitar)?$|^electric bass`, graph.RoleBassGuitar),
	r(`guitar|banjo|mandolin|ukulele|sitar`, graph.RoleGuitar),
	r(`^drums?$|drum (set|kit|machine)|^drums \(`, graph.RoleDrums),
	r(`percussion|tambourine|conga|bongo|shaker|cymbal|timpani|glockenspiel|vibraphone|marimba|cajón|cajon`, graph.RolePercussion),
	r(`synth|moog|theremin|mellotron`, graph.RoleSynthesizer),
	r(`organ`, graph.RoleOrgan),
	r(`piano`, graph.RolePiano),
	r(`keyboard|clavinet|rhodes|wurlitzer|harpsichord|celesta`, graph.RoleKeyboards),
	r(`violin|fiddle`, graph.RoleViolin),
	r(`cello`, graph.RoleCello),
	r(`viola|double bass|contrabass|harp|string`, graph.RoleStrings),
	r(`trumpet|flugelhorn|cornet`, graph.RoleTrumpet),
	r(`sax`, graph.RoleSaxophone),
	r(`trombone`, graph.RoleTrombone),
	r(`flute|piccolo`, graph.RoleFlute),
	r(`horn|tuba|brass|euphonium`, graph.RoleHorns),
	r(`turntable|scratch`, graph.RoleTurntables),
}

// vocalRules resolves vocal attributes and roles.
var vocalRules = []rule{
	r(`^lead vocals?|^lead singer|^vocals \(lead\)`, graph.RoleLeadVocals),
	r(`background|backing|choir|chorus|harmony`, graph.RoleBackgroundVocals),
	r(`\bvocal|\bvoice\b|\brap(per|ping)?\b|spoken|singer|^mc$`, graph.RoleVocals),
}

// mbRelationRules maps MusicBrainz relation type names. Types that take an
// attribute-dependent role (producer, engineer, instrument, vocal) are
// handled before this table is consulted.
var mbRelationRules = []rule{
	r(`^remixer$|^mix-dj$`, graph.RoleRemixer),
	r(`^mix$`, graph.RoleMixingEngineer),
	r(`^mastering$`, graph.RoleMasteringEngineer),
	r(`^recording$`, graph.RoleRecordingEngineer),
	r(`^(audio|sound|balance)$`, graph.RoleEngineer),
	r(`^programming$`, graph.RoleProgrammer),
	r(`^conductor$`, graph.RoleConductor),
	r(`^performing orchestra$`, graph.RoleOrchestra),
	r(`arranger$|^orchestrator$`, graph.RoleArranger),
	r(`^composer$`, graph.RoleComposer),
	r(`^(lyricist|librettist|translator)$`, graph.RoleLyricist),
	r(`^writer$`, graph.RoleWriter),
	r(`^songwriter$`, graph.RoleSongwriter),
	r(`^featured artist$|^guest performer$`, graph.RoleFeatured),
}

// discogsRules maps Discogs role strings after qualifiers are stripped.
var discogsRules = []rule{
	r(`^featuring$|^feat\.?$|^guest`, graph.RoleFeatured),
	r(`remix`, graph.RoleRemixer),
	r(`^executive[ -]produc`, graph.RoleExecutiveProducer),
	r(`^co-?produc`, graph.RoleCoProducer),
	r(`^vocals? produc`, graph.RoleVocalProducer),
	r(`^additional produc`, graph.RoleAdditionalProducer),
	r(`^produc`, graph.RoleProducer),
	r(`^mix(ed|ing)? ?(by|engineer)?$`, graph.RoleMixingEngineer),
	r(`^master(ed|ing)|^lacquer cut`, graph.RoleMasteringEngineer),
	r(`^recorded|^recording( engineer)?( by)?$`, graph.RoleRecordingEngineer),
	r(`^assistant.*engineer|^engineer.*assistant`, graph.RoleAssistantEngineer),
	r(`engineer`, graph.RoleEngineer),
	r(`^programm(ed|ing)|^drum programming`, graph.RoleProgrammer),
	r(`^conduct`, graph.RoleConductor),
	r(`^orchestra$`, graph.RoleOrchestra),
	r(`^arranged|^arranger|^orchestrated`, graph.RoleArranger),
	r(`^written[ -]by|^songwriter`, graph.RoleSongwriter),
	r(`^composed|^music by|^composer`, graph.RoleComposer),
	r(`^lyrics|^words by|^lyricist`, graph.RoleLyricist),
	r(`^writer$|^written$`, graph.RoleWriter),
	r(`^dj mix|^turntables|^scratches`, graph.RoleTurntables),
}

// discogsInstrument recognizes Discogs roles naming an instrument outside
// instrumentRules. They map to other_instrument, like unknown MusicBrainz
// instrument relations.
var discogsInstrument = regexp.MustCompile(`clarinet|oboe|bassoon|accordion|concertina|harmonica|melodica|` +
	`kalimba|bagpipe|steel (pan|drum)|pedal steel|lap steel|dobro|recorder$|ocarina|whistle|kazoo|bells|` +
	`dulcimer|zither|koto|tabla|didgeridoo|bouzouki|balalaika|hurdy|washboard|\boud\b|erhu|` +
	`sampler|talk ?box|vocoder|ebow|instrument`)

// qualifier matches bracketed Discogs role qualifiers ("Guitar [Electric]").
var qualifier = regexp.MustCompile(`\s*\[[^\]]*\]`)

// Mapper resolves upstream credit strings to roles. Values it cannot map are
// logged, counted and published on the bus.
type Mapper struct {
	logger *slog.Logger
	bus    *event.Bus
}

// NewMapper returns a Mapper. bus may be nil.
func NewMapper(logger *slog.Logger, bus *event.Bus) *Mapper {
	return &Mapper{
		logger: logger.With(slog.String("component", "credit-roles")),
		bus:    bus,
	}
}

// MusicBrainz maps a relation type and its attributes. ok is false when the
// type has no role and the relation should not become an edge.
func (m *Mapper) MusicBrainz(relType string, attrs []string) (role graph.Role, ok bool) {
	t := strings.ToLower(strings.TrimSpace(relType))
	lower := make([]string, len(attrs))
	for i, a := range attrs {
		lower[i] = strings.ToLower(strings.TrimSpace(a))
	}

	switch t {
	case "producer":
		return producerRole(lower), true
	case "engineer":
		if has(lower, "assistant") {
			return graph.RoleAssistantEngineer, true
		}
		return graph.RoleEngineer, true
	case "vocal":
		for _, a := range lower {
			if role, ok := firstMatch(vocalRules, a); ok {
				return role, true
			}
		}
		return graph.RoleVocals, true
	case "instrument", "performer":
		for _, a := range lower {
			if role, ok := firstMatch(instrumentRules, a); ok {
				return role, true
			}
			if role, ok := firstMatch(vocalRules, a); ok {
				return role, true
			}
		}
		if t == "performer" && has(lower, "guest") {
			return graph.RoleFeatured, true
		}
		m.unmapped(SourceMusicBrainz, describe(t, lower))
		return graph.RoleOtherInstrument, true
	}

	if role, ok := firstMatch(mbRelationRules, t); ok {
		return role, true
	}
	m.unmapped(SourceMusicBrainz, describe(t, lower))
	return "", false
}

// Discogs maps a free-text Discogs role, which may list several roles
// separated by commas ("Guitar, Backing Vocals"). Unmappable parts are
// reported; instrument-like ones become other_instrument and the rest are
// skipped. The result has no duplicates.
func (m *Mapper) Discogs(role string) []graph.Role {
	var out []graph.Role
	seen := make(map[graph.Role]bool)
	for _, part := range splitRoles(role) {
		mapped, ok := discogsRole(part)
		if !ok {
			m.unmapped(SourceDiscogs, part)
			if !discogsInstrument.MatchString(part) {
				continue
			}
			mapped = graph.RoleOtherInstrument
		}
		if !seen[mapped] {
			seen[mapped] = true
			out = append(out, mapped)
		}
	}
	return out
}

func discogsRole(part string) (graph.Role, bool) {
	if role, ok := firstMatch(discogsRules, part); ok {
		return role, true
	}
	if role, ok := firstMatch(vocalRules, part); ok {
		return role, true
	}
	return firstMatch(instrumentRules, part)
}

// splitRoles lowercases role, strips bracketed qualifiers and splits the
// comma-separated list. Commas inside brackets never split.
func splitRoles(role string) []string {
	role = qualifier.ReplaceAllString(role, "")
	var out []string
	for _, p := range strings.Split(role, ",") {
		p = strings.ToLower(strings.Join(strings.Fields(p), " "))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func producerRole(attrs []string) graph.Role {
	switch {
	case has(attrs, "executive"):
		return graph.RoleExecutiveProducer
	case has(attrs, "co"):
		return graph.RoleCoProducer
	case has(attrs, "additional"), has(attrs, "assistant"):
		return graph.RoleAdditionalProducer
	case has(attrs, "vocal"):
		return graph.RoleVocalProducer
	}
	return graph.RoleProducer
}

func (m *Mapper) unmapped(source, value string) {
	metrics.UnmappedRoles.WithLabelValues(source).Inc()
	m.logger.Info("unmapped credit role",
		slog.String("source", source),
		slog.String("value", value))
	m.bus.Publish(event.Event{
		Type: event.RoleUnmapped,
		Data: map[string]any{"source": source, "value": value},
	})
}

func describe(t string, attrs []string) string {
	if len(attrs) == 0 {
		return t
	}
	return t + " [" + strings.Join(attrs, ", ") + "]"
}

func has(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
