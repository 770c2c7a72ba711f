// Package graph defines the entity/relationship subgraph exchanged between
// the assembler, the track cache and callers, plus a deduplicating builder.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// EntityType classifies a graph node.
type EntityType string

// Known entity types.
const (
	TypeArtist EntityType = "artist"
	TypeTrack  EntityType = "track"
	TypeAlbum  EntityType = "album"
	TypeLabel  EntityType = "label"
)

// Entity is a node in the credit graph. ID is namespaced by the catalog
// identifier so the same upstream record always produces the same ID.
type Entity struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Image       string     `json:"image,omitempty"`
	SourceID    string     `json:"sourceId,omitempty"`
	ParentID    string     `json:"parentId,omitempty"`
	Depth       int        `json:"depth,omitempty"`
	ReleaseType string     `json:"releaseType,omitempty"`
}

// Relationship is a typed, directed edge between two entities.
type Relationship struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Role   Role   `json:"role"`
}

// Graph is the interchange format: {entities, relationships}. Array order is
// insertion order and carries no meaning.
type Graph struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// relNamespace seeds the name-based UUIDs used for relationship IDs.
var relNamespace = uuid.MustParse("5b0f3c1e-8a5d-4c3f-9a57-3c2d9e7b4f10")

// Entity ID constructors. Each namespaces a catalog identifier by type.
func ArtistID(catalogID string) string { return "artist-" + catalogID }
func TrackID(catalogID string) string  { return "track-" + catalogID }
func AlbumID(catalogID string) string  { return "album-" + catalogID }
func LabelID(catalogID string) string  { return "label-" + catalogID }

// ReleaseGroupAlbumID namespaces a release-group identifier. Release groups
// and releases are different catalog records and never share an ID.
func ReleaseGroupAlbumID(groupID string) string { return "album-rg-" + groupID }

// RelationshipID derives the relationship ID from its triple. The same triple
// always yields the same ID, which makes merges idempotent.
func RelationshipID(source, target string, role Role) string {
	name := source + "\x00" + target + "\x00" + string(role)
	return "rel-" + uuid.NewSHA1(relNamespace, []byte(name)).String()
}

// Errors returned by Validate.
var (
	ErrDuplicateEntity       = errors.New("duplicate entity id")
	ErrDuplicateRelationship = errors.New("duplicate relationship id")
	ErrDanglingRelationship  = errors.New("relationship references missing entity")
	ErrInvalidRole           = errors.New("unknown relationship role")
)

// Empty reports whether the graph has no entities.
func (g Graph) Empty() bool { return len(g.Entities) == 0 }

// Validate checks the graph invariants: unique entity IDs, unique
// relationship IDs, known roles, and no dangling endpoints.
func (g Graph) Validate() error {
	ids := make(map[string]struct{}, len(g.Entities))
	for _, e := range g.Entities {
		if _, dup := ids[e.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateEntity, e.ID)
		}
		ids[e.ID] = struct{}{}
	}
	rels := make(map[string]struct{}, len(g.Relationships))
	for _, r := range g.Relationships {
		if _, dup := rels[r.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateRelationship, r.ID)
		}
		rels[r.ID] = struct{}{}
		if !r.Role.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidRole, r.Role)
		}
		if _, ok := ids[r.Source]; !ok {
			return fmt.Errorf("%w: %s -> %s", ErrDanglingRelationship, r.Source, r.Target)
		}
		if _, ok := ids[r.Target]; !ok {
			return fmt.Errorf("%w: %s -> %s", ErrDanglingRelationship, r.Source, r.Target)
		}
	}
	return nil
}

// Encode writes g as indented JSON.
func (g Graph) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(normalized(g))
}

// Decode reads a graph in interchange format and validates it.
func Decode(r io.Reader) (Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return Graph{}, fmt.Errorf("decoding graph: %w", err)
	}
	if err := g.Validate(); err != nil {
		return Graph{}, err
	}
	return normalized(g), nil
}

// normalized replaces nil slices so the JSON form always carries arrays.
func normalized(g Graph) Graph {
	if g.Entities == nil {
		g.Entities = []Entity{}
	}
	if g.Relationships == nil {
		g.Relationships = []Relationship{}
	}
	return g
}
