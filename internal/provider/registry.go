package provider

import "sync"

// Registry holds the configured adapters by capability. Image sources are
// kept in registration order, which is their lookup priority.
type Registry struct {
	mu      sync.RWMutex
	catalog Catalog
	credits []CreditSource
	info    []TrackInfoSource
	images  []ImageSource
	covers  []CoverSource
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// SetCatalog sets the primary catalog.
func (r *Registry) SetCatalog(c Catalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = c
}

// Catalog returns the primary catalog, or nil if none is set.
func (r *Registry) Catalog() Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// Register adds p under every capability it implements. A provider already
// registered under the same name for a capability is replaced in place.
func (r *Registry) Register(p any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := p.(CreditSource); ok {
		r.credits = upsert(r.credits, c)
	}
	if t, ok := p.(TrackInfoSource); ok {
		r.info = upsert(r.info, t)
	}
	if i, ok := p.(ImageSource); ok {
		r.images = upsert(r.images, i)
	}
	if c, ok := p.(CoverSource); ok {
		r.covers = upsert(r.covers, c)
	}
}

// CreditSources returns the supplemental credit sources.
func (r *Registry) CreditSources() []CreditSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]CreditSource(nil), r.credits...)
}

// TrackInfoSources returns the album-hint sources.
func (r *Registry) TrackInfoSources() []TrackInfoSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]TrackInfoSource(nil), r.info...)
}

// ImageSources returns the artist image sources in priority order.
func (r *Registry) ImageSources() []ImageSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ImageSource(nil), r.images...)
}

// CoverSources returns the release cover sources in priority order.
func (r *Registry) CoverSources() []CoverSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]CoverSource(nil), r.covers...)
}

// Names returns the names of all registered non-catalog providers.
func (r *Registry) Names() []ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[ProviderName]bool)
	var names []ProviderName
	add := func(n ProviderName) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, c := range r.credits {
		add(c.Name())
	}
	for _, t := range r.info {
		add(t.Name())
	}
	for _, i := range r.images {
		add(i.Name())
	}
	for _, c := range r.covers {
		add(c.Name())
	}
	return names
}

type named interface{ Name() ProviderName }

func upsert[T named](list []T, p T) []T {
	for i, existing := range list {
		if existing.Name() == p.Name() {
			list[i] = p
			return list
		}
	}
	return append(list, p)
}
