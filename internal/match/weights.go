package match

import "fmt"

// Weights are the additive score adjustments applied to candidates. They are
// empirically tuned and overridable from configuration.
type Weights struct {
	ExactTitle       int `yaml:"exact_title" json:"exact_title"`
	AlternateVersion int `yaml:"alternate_version" json:"alternate_version"`
	CleanEdited      int `yaml:"clean_edited" json:"clean_edited"`
	CoCredit         int `yaml:"co_credit" json:"co_credit"`
	ArtistCredited   int `yaml:"artist_credited" json:"artist_credited"`

	AlbumExact    int `yaml:"album_exact" json:"album_exact"`
	AlbumPartial  int `yaml:"album_partial" json:"album_partial"`
	AlbumMissing  int `yaml:"album_missing" json:"album_missing"`
	SecondaryType int `yaml:"secondary_type" json:"secondary_type"`
	EditionTitle  int `yaml:"edition_title" json:"edition_title"`
	Official      int `yaml:"official" json:"official"`
	AlbumType     int `yaml:"album_type" json:"album_type"`
	EPType        int `yaml:"ep_type" json:"ep_type"`

	// ReleaseFirstDepth is how many top-ranked releases are opened during
	// release-first lookup.
	ReleaseFirstDepth int `yaml:"release_first_depth" json:"release_first_depth"`
}

// DefaultWeights returns the built-in scoring weights.
func DefaultWeights() Weights {
	return Weights{
		ExactTitle:        50,
		AlternateVersion:  -100,
		CleanEdited:       -50,
		CoCredit:          25,
		ArtistCredited:    30,
		AlbumExact:        80,
		AlbumPartial:      40,
		AlbumMissing:      -100,
		SecondaryType:     -60,
		EditionTitle:      -50,
		Official:          15,
		AlbumType:         30,
		EPType:            10,
		ReleaseFirstDepth: 3,
	}
}

// Validate reports weights whose sign contradicts their meaning.
func (w Weights) Validate() error {
	if w.ExactTitle < 0 || w.CoCredit < 0 || w.ArtistCredited < 0 {
		return fmt.Errorf("title, co-credit and artist bonuses must not be negative")
	}
	if w.AlternateVersion > 0 || w.CleanEdited > 0 || w.AlbumMissing > 0 {
		return fmt.Errorf("alternate version, clean/edited and missing album penalties must not be positive")
	}
	if w.AlbumExact < w.AlbumPartial {
		return fmt.Errorf("album_exact (%d) must be at least album_partial (%d)", w.AlbumExact, w.AlbumPartial)
	}
	if w.ReleaseFirstDepth < 0 {
		return fmt.Errorf("release_first_depth must not be negative")
	}
	return nil
}
