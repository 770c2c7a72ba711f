package credit

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/sydlexius/creditgraph/internal/alias"
	"github.com/sydlexius/creditgraph/internal/graph"
	"github.com/sydlexius/creditgraph/internal/normalize"
	"github.com/sydlexius/creditgraph/internal/provider"
)

// featJoin matches join phrases that introduce featured artists.
var featJoin = regexp.MustCompile(`(?i)(^|\W)(feat\.?|ft\.?|featuring)(\W|$)`)

// discogsSuffix matches the numeric disambiguator Discogs appends to
// duplicate artist names ("Prince (2)").
var discogsSuffix = regexp.MustCompile(`\s*\(\d+\)$`)

// Merger folds credits from every source into a graph builder. Artist
// identities are resolved through the alias resolver before any entity is
// created, so one person never appears twice.
type Merger struct {
	roles   *Mapper
	aliases *alias.Resolver
	logger  *slog.Logger
}

// NewMerger returns a Merger.
func NewMerger(roles *Mapper, aliases *alias.Resolver, logger *slog.Logger) *Merger {
	return &Merger{
		roles:   roles,
		aliases: aliases,
		logger:  logger.With(slog.String("component", "credit")),
	}
}

// Performers splits an artist credit into primary and featured artists.
// Every name after a "feat."-style join phrase is featured.
func Performers(credits []provider.ArtistCredit) (primary, featured []provider.ArtistCredit) {
	feat := false
	for _, c := range credits {
		if feat {
			featured = append(featured, c)
		} else {
			primary = append(primary, c)
		}
		if featJoin.MatchString(c.JoinPhrase) {
			feat = true
		}
	}
	return primary, featured
}

// AddArtistCredits links every credited artist to targetID as primary or
// featured and returns the primary artists for alias loading.
func (m *Merger) AddArtistCredits(b *graph.Builder, targetID string, credits []provider.ArtistCredit) []alias.Artist {
	primary, featured := Performers(credits)
	var out []alias.Artist
	for _, c := range primary {
		id := m.addCredited(b, c)
		if id == "" {
			continue
		}
		b.AddRelationship(id, targetID, graph.RolePrimaryArtist)
		out = append(out, alias.Artist{CatalogID: c.Artist.ID, EntityID: id, Name: c.Artist.Name})
	}
	for _, c := range featured {
		if id := m.addCredited(b, c); id != "" {
			b.AddRelationship(id, targetID, graph.RoleFeatured)
		}
	}
	return out
}

func (m *Merger) addCredited(b *graph.Builder, c provider.ArtistCredit) string {
	name := c.Artist.Name
	if name == "" {
		name = c.CreditedName
	}
	if name == "" {
		return ""
	}
	id := m.ResolveArtist(b, c.Artist.ID, name)
	// A credited name that differs from the artist name is itself an alias.
	if c.CreditedName != "" && c.CreditedName != name {
		m.aliases.Register(id, name, c.CreditedName)
	}
	return id
}

// ResolveArtist returns the entity ID for a catalog artist, creating the
// entity when no resolution layer matches. catalogID may be empty for
// sources without stable identifiers.
func (m *Merger) ResolveArtist(b *graph.Builder, catalogID, name string) string {
	candidate := ""
	if catalogID != "" {
		candidate = graph.ArtistID(catalogID)
	}
	res, ok := m.aliases.Resolve(b, candidate, name)
	if ok {
		if !b.HasEntity(res.ID) {
			b.AddEntity(graph.Entity{ID: res.ID, Name: res.Name, Type: graph.TypeArtist})
		}
		return res.ID
	}
	if candidate == "" {
		key := normalize.Artist(name)
		if key == "" {
			return ""
		}
		candidate = graph.ArtistID("dc-" + strings.ReplaceAll(key, " ", "-"))
	}
	b.AddEntity(graph.Entity{ID: candidate, Name: name, Type: graph.TypeArtist, SourceID: catalogID})
	return candidate
}

// AddRelations turns artist relations of a recording or work into personnel
// edges on targetID. It returns the number of edges added.
func (m *Merger) AddRelations(b *graph.Builder, targetID string, rels []provider.Relation) int {
	added := 0
	for _, rel := range rels {
		if rel.Artist == nil || rel.Artist.Name == "" {
			continue
		}
		role, ok := m.roles.MusicBrainz(rel.Type, rel.Attributes)
		if !ok {
			continue
		}
		id := m.ResolveArtist(b, rel.Artist.ID, rel.Artist.Name)
		if id != "" && b.AddRelationship(id, targetID, role) {
			added++
		}
	}
	return added
}

// TrackPosition identifies the track receiving supplemental credits.
// Position is the printed track number ("2", "A1").
type TrackPosition struct {
	Position string
	Title    string
}

// MergeSupplemental folds a secondary credit sheet into trackID. Release
// credits apply when their track scope covers the track; track-level
// credits apply when the tracklist entry matches by position, or by title
// when the position is unknown. It returns the number of edges added.
func (m *Merger) MergeSupplemental(b *graph.Builder, trackID string, at TrackPosition, rc *provider.ReleaseCredits) int {
	if rc == nil {
		return 0
	}
	added := 0
	for _, c := range rc.Credits {
		if !InScope(c.Tracks, at.Position) {
			continue
		}
		added += m.addSupplemental(b, trackID, c)
	}
	if t, ok := findTrack(rc.Tracklist, at); ok {
		for _, c := range t.Credits {
			added += m.addSupplemental(b, trackID, c)
		}
	}
	m.logger.Debug("supplemental credits merged",
		slog.String("source", string(rc.Source)),
		slog.String("release", rc.ReleaseID),
		slog.String("track", trackID),
		slog.Int("added", added))
	return added
}

func (m *Merger) addSupplemental(b *graph.Builder, trackID string, c provider.SupplementalCredit) int {
	name := CleanDiscogsName(c.Name)
	if name == "" {
		return 0
	}
	roles := m.roles.Discogs(c.Role)
	if len(roles) == 0 {
		return 0
	}
	id := m.ResolveArtist(b, "", name)
	if id == "" {
		return 0
	}
	added := 0
	for _, role := range roles {
		if b.AddRelationship(id, trackID, role) {
			added++
		}
	}
	return added
}

func findTrack(list []provider.SupplementalTrack, at TrackPosition) (provider.SupplementalTrack, bool) {
	if at.Position != "" {
		for _, t := range list {
			if strings.EqualFold(strings.TrimSpace(t.Position), strings.TrimSpace(at.Position)) {
				return t, true
			}
		}
		return provider.SupplementalTrack{}, false
	}
	want := normalize.Name(at.Title)
	if want == "" {
		return provider.SupplementalTrack{}, false
	}
	for _, t := range list {
		if normalize.Name(t.Title) == want {
			return t, true
		}
	}
	return provider.SupplementalTrack{}, false
}

// CleanDiscogsName drops the numeric disambiguator and the trailing "*" that
// marks an artist name variation.
func CleanDiscogsName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSpace(strings.TrimSuffix(name, "*"))
	if cleaned := strings.TrimSpace(discogsSuffix.ReplaceAllString(name, "")); cleaned != "" {
		return cleaned
	}
	return name
}
