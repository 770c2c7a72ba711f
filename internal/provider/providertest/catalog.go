// Package providertest provides in-memory catalog fakes for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/sydlexius/creditgraph/internal/provider"
)

// Catalog is an in-memory provider.Catalog. Zero-value maps answer
// ErrNotFound. Calls are counted per method name.
type Catalog struct {
	mu sync.Mutex

	Artists         map[string]*provider.ArtistDetail
	ArtistSearch    map[string][]provider.ArtistRef
	Aliases         map[string][]string
	AliasErr        map[string]error
	Recordings      map[string]*provider.RecordingDetail
	RecordingSearch []provider.RecordingCandidate
	RecordingErr    error
	Releases        map[string]*provider.ReleaseDetail
	ReleaseSearch   []provider.ReleaseCandidate
	Works           map[string][]provider.Relation
	ReleaseGroups   map[string][]provider.ReleaseGroup
	GroupReleases   map[string][]provider.ReleaseRef
	SearchedAlbums  []string
	calls           map[string]int
}

// NewCatalog returns an empty fake catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		Artists:       map[string]*provider.ArtistDetail{},
		ArtistSearch:  map[string][]provider.ArtistRef{},
		Aliases:       map[string][]string{},
		AliasErr:      map[string]error{},
		Recordings:    map[string]*provider.RecordingDetail{},
		Releases:      map[string]*provider.ReleaseDetail{},
		Works:         map[string][]provider.Relation{},
		ReleaseGroups: map[string][]provider.ReleaseGroup{},
		GroupReleases: map[string][]provider.ReleaseRef{},
		calls:         map[string]int{},
	}
}

// Calls returns how many times method was invoked.
func (c *Catalog) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *Catalog) count(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[method]++
}

func notFound(id string) error {
	return &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: id}
}

// SearchArtist implements provider.Catalog.
func (c *Catalog) SearchArtist(_ context.Context, name string) ([]provider.ArtistRef, error) {
	c.count("SearchArtist")
	return c.ArtistSearch[name], nil
}

// SearchRecording implements provider.Catalog. The album argument is
// recorded; results do not depend on it.
func (c *Catalog) SearchRecording(_ context.Context, _, _, album string) ([]provider.RecordingCandidate, error) {
	c.count("SearchRecording")
	c.mu.Lock()
	c.SearchedAlbums = append(c.SearchedAlbums, album)
	c.mu.Unlock()
	if c.RecordingErr != nil {
		return nil, c.RecordingErr
	}
	return c.RecordingSearch, nil
}

// SearchRelease implements provider.Catalog.
func (c *Catalog) SearchRelease(_ context.Context, _, _ string) ([]provider.ReleaseCandidate, error) {
	c.count("SearchRelease")
	return c.ReleaseSearch, nil
}

// GetArtist implements provider.Catalog.
func (c *Catalog) GetArtist(_ context.Context, id string) (*provider.ArtistDetail, error) {
	c.count("GetArtist")
	if a, ok := c.Artists[id]; ok {
		return a, nil
	}
	return nil, notFound(id)
}

// GetArtistAliases implements provider.Catalog.
func (c *Catalog) GetArtistAliases(_ context.Context, id string) ([]string, error) {
	c.count("GetArtistAliases")
	if err := c.AliasErr[id]; err != nil {
		return nil, err
	}
	return c.Aliases[id], nil
}

// GetRecording implements provider.Catalog.
func (c *Catalog) GetRecording(_ context.Context, id string) (*provider.RecordingDetail, error) {
	c.count("GetRecording")
	if r, ok := c.Recordings[id]; ok {
		return r, nil
	}
	return nil, notFound(id)
}

// GetRelease implements provider.Catalog.
func (c *Catalog) GetRelease(_ context.Context, id string) (*provider.ReleaseDetail, error) {
	c.count("GetRelease")
	if r, ok := c.Releases[id]; ok {
		return r, nil
	}
	return nil, notFound(id)
}

// GetWorkCredits implements provider.Catalog.
func (c *Catalog) GetWorkCredits(_ context.Context, id string) ([]provider.Relation, error) {
	c.count("GetWorkCredits")
	if w, ok := c.Works[id]; ok {
		return w, nil
	}
	return nil, notFound(id)
}

// BrowseReleaseGroups implements provider.Catalog.
func (c *Catalog) BrowseReleaseGroups(_ context.Context, artistID string) ([]provider.ReleaseGroup, error) {
	c.count("BrowseReleaseGroups")
	return c.ReleaseGroups[artistID], nil
}

// BrowseReleases implements provider.Catalog.
func (c *Catalog) BrowseReleases(_ context.Context, groupID string) ([]provider.ReleaseRef, error) {
	c.count("BrowseReleases")
	return c.GroupReleases[groupID], nil
}

// Credit builds a single-artist credit.
func Credit(id, name string) provider.ArtistCredit {
	return provider.ArtistCredit{Artist: provider.ArtistRef{ID: id, Name: name}, CreditedName: name}
}

// ArtistRelation builds an artist relation with optional attributes.
func ArtistRelation(typ, id, name string, attrs ...string) provider.Relation {
	return provider.Relation{
		Type:       typ,
		Attributes: attrs,
		Artist:     &provider.ArtistRef{ID: id, Name: name},
	}
}
