package graph

import (
	"sync"

	"github.com/sydlexius/creditgraph/internal/normalize"
)

// Builder accumulates entities and relationships for one subgraph,
// deduplicating by entity ID and by derived relationship ID. It is safe for
// concurrent use.
type Builder struct {
	mu          sync.RWMutex
	entities    []Entity
	entityIdx   map[string]int
	rels        []Relationship
	relIdx      map[string]struct{}
	artistByKey map[string]string // normalize.Artist(name) -> entity id
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		entityIdx:   make(map[string]int),
		relIdx:      make(map[string]struct{}),
		artistByKey: make(map[string]string),
	}
}

// FromGraph seeds a builder with an existing graph. Duplicate entries in g
// collapse under the usual merge rules.
func FromGraph(g Graph) *Builder {
	b := NewBuilder()
	b.Merge(g)
	return b
}

// AddEntity inserts e, or unions it into an existing entity with the same ID
// (fields already set win). It reports whether a new entity was created.
func (b *Builder) AddEntity(e Entity) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.entityIdx[e.ID]; ok {
		b.entities[i] = unionEntity(b.entities[i], e)
		return false
	}
	b.entityIdx[e.ID] = len(b.entities)
	b.entities = append(b.entities, e)
	if e.Type == TypeArtist {
		if key := normalize.Artist(e.Name); key != "" {
			if _, taken := b.artistByKey[key]; !taken {
				b.artistByKey[key] = e.ID
			}
		}
	}
	return true
}

// Entity returns the entity with the given ID.
func (b *Builder) Entity(id string) (Entity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i, ok := b.entityIdx[id]
	if !ok {
		return Entity{}, false
	}
	return b.entities[i], true
}

// HasEntity reports whether an entity with the given ID exists.
func (b *Builder) HasEntity(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entityIdx[id]
	return ok
}

// ArtistByName returns the ID of the first artist entity whose normalized
// name equals the normalized form of name.
func (b *Builder) ArtistByName(name string) (string, bool) {
	key := normalize.Artist(name)
	if key == "" {
		return "", false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.artistByKey[key]
	return id, ok
}

// SetImage sets the image of an existing entity if it has none.
func (b *Builder) SetImage(id, image string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.entityIdx[id]; ok && b.entities[i].Image == "" {
		b.entities[i].Image = image
	}
}

// AddRelationship inserts the (source, target, role) edge. It returns false
// when the derived ID already exists or either endpoint is missing; edges
// are only accepted between known entities.
func (b *Builder) AddRelationship(source, target string, role Role) bool {
	id := RelationshipID(source, target, role)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.relIdx[id]; dup {
		return false
	}
	if _, ok := b.entityIdx[source]; !ok {
		return false
	}
	if _, ok := b.entityIdx[target]; !ok {
		return false
	}
	b.relIdx[id] = struct{}{}
	b.rels = append(b.rels, Relationship{ID: id, Source: source, Target: target, Role: role})
	return true
}

// HasRelationship reports whether the derived relationship already exists.
func (b *Builder) HasRelationship(source, target string, role Role) bool {
	id := RelationshipID(source, target, role)
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.relIdx[id]
	return ok
}

// Merge folds another graph into the builder. Relationship IDs are
// re-derived, so an edge with a stale ID still deduplicates correctly.
func (b *Builder) Merge(g Graph) {
	for _, e := range g.Entities {
		b.AddEntity(e)
	}
	for _, r := range g.Relationships {
		b.AddRelationship(r.Source, r.Target, r.Role)
	}
}

// Len returns the entity and relationship counts.
func (b *Builder) Len() (entities, relationships int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entities), len(b.rels)
}

// Entities returns a copy of the entities added so far.
func (b *Builder) Entities() []Entity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entity, len(b.entities))
	copy(out, b.entities)
	return out
}

// Graph returns a snapshot of the accumulated subgraph.
func (b *Builder) Graph() Graph {
	b.mu.RLock()
	defer b.mu.RUnlock()
	g := Graph{
		Entities:      make([]Entity, len(b.entities)),
		Relationships: make([]Relationship, len(b.rels)),
	}
	copy(g.Entities, b.entities)
	copy(g.Relationships, b.rels)
	return g
}

func unionEntity(have, in Entity) Entity {
	if have.Name == "" {
		have.Name = in.Name
	}
	if have.Type == "" {
		have.Type = in.Type
	}
	if have.Image == "" {
		have.Image = in.Image
	}
	if have.SourceID == "" {
		have.SourceID = in.SourceID
	}
	if have.ParentID == "" {
		have.ParentID = in.ParentID
	}
	if have.Depth == 0 {
		have.Depth = in.Depth
	}
	if have.ReleaseType == "" {
		have.ReleaseType = in.ReleaseType
	}
	return have
}
