package discogs

// Discogs API response types.

// SearchResponse is the top-level response from the search endpoint.
type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	Pagination Pagination     `json:"pagination"`
}

// SearchResult represents a single search hit.
type SearchResult struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Year        string   `json:"year"`
	Format      []string `json:"format"`
	ResourceURL string   `json:"resource_url"`
}

// Pagination holds pagination info.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// Release is the release detail response.
type Release struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	Year         int         `json:"year"`
	Artists      []ArtistRef `json:"artists"`
	ExtraArtists []ArtistRef `json:"extraartists"`
	Tracklist    []Track     `json:"tracklist"`
}

// Track is one entry of a release tracklist. Headings and index tracks carry
// Type "heading" or "index" and no position.
type Track struct {
	Position     string      `json:"position"`
	Type         string      `json:"type_"`
	Title        string      `json:"title"`
	Duration     string      `json:"duration"`
	ExtraArtists []ArtistRef `json:"extraartists"`
}

// ArtistRef is an artist credit inside a release. Role is free text such as
// "Producer, Mixed By" or "Guitar [Acoustic]"; Tracks scopes the credit.
type ArtistRef struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	ANV    string `json:"anv"`
	Join   string `json:"join"`
	Role   string `json:"role"`
	Tracks string `json:"tracks"`
}
