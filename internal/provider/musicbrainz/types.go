package musicbrainz

// MBArtist is an artist object as embedded in search results, credits and
// relations, or returned by the artist lookup.
type MBArtist struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	SortName       string       `json:"sort-name"`
	Type           string       `json:"type"`
	Disambiguation string       `json:"disambiguation"`
	Score          int          `json:"score"`
	Aliases        []MBAlias    `json:"aliases"`
	Relations      []MBRelation `json:"relations"`
}

// MBAlias is an alternative name for an artist.
type MBAlias struct {
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
	Type     string `json:"type"`
	Locale   string `json:"locale"`
	Primary  bool   `json:"primary"`
}

// MBArtistSearchResponse is the response of /artist?query=.
type MBArtistSearchResponse struct {
	Count   int        `json:"count"`
	Offset  int        `json:"offset"`
	Artists []MBArtist `json:"artists"`
}

// MBArtistCredit is one name in an artist-credit array.
type MBArtistCredit struct {
	Name       string   `json:"name"`
	JoinPhrase string   `json:"joinphrase"`
	Artist     MBArtist `json:"artist"`
}

// MBReleaseGroup is a release group, embedded or browsed.
type MBReleaseGroup struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	PrimaryType      string   `json:"primary-type"`
	SecondaryTypes   []string `json:"secondary-types"`
	FirstReleaseDate string   `json:"first-release-date"`
}

// MBLabelInfo wraps a label on a release.
type MBLabelInfo struct {
	CatalogNumber string   `json:"catalog-number"`
	Label         *MBLabel `json:"label"`
}

// MBLabel is a record label.
type MBLabel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MBTrack is one track in a release medium.
type MBTrack struct {
	ID           string           `json:"id"`
	Number       string           `json:"number"`
	Position     int              `json:"position"`
	Title        string           `json:"title"`
	Recording    MBRecording      `json:"recording"`
	ArtistCredit []MBArtistCredit `json:"artist-credit"`
}

// MBMedium is one disc or side group of a release.
type MBMedium struct {
	Position int       `json:"position"`
	Format   string    `json:"format"`
	Tracks   []MBTrack `json:"tracks"`
}

// MBRelease is a release as returned by search, browse, lookup or embedded in
// a recording.
type MBRelease struct {
	ID           string           `json:"id"`
	Score        int              `json:"score"`
	Title        string           `json:"title"`
	Status       string           `json:"status"`
	Date         string           `json:"date"`
	ReleaseGroup *MBReleaseGroup  `json:"release-group"`
	ArtistCredit []MBArtistCredit `json:"artist-credit"`
	LabelInfo    []MBLabelInfo    `json:"label-info"`
	Media        []MBMedium       `json:"media"`
}

// MBReleaseSearchResponse is the response of /release?query= and of the
// release browse endpoint.
type MBReleaseSearchResponse struct {
	Count         int         `json:"count"`
	ReleaseCount  int         `json:"release-count"`
	ReleaseOffset int         `json:"release-offset"`
	Releases      []MBRelease `json:"releases"`
}

// MBWork is a composition.
type MBWork struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Relations []MBRelation `json:"relations"`
}

// MBRelation is a typed relationship from the looked-up entity.
type MBRelation struct {
	Type       string    `json:"type"`
	TargetType string    `json:"target-type"`
	Direction  string    `json:"direction"`
	Attributes []string  `json:"attributes"`
	Ended      bool      `json:"ended"`
	Artist     *MBArtist `json:"artist,omitempty"`
	Label      *MBLabel  `json:"label,omitempty"`
	Work       *MBWork   `json:"work,omitempty"`
}

// MBRecording is a recording as returned by search or lookup.
type MBRecording struct {
	ID             string           `json:"id"`
	Score          int              `json:"score"`
	Title          string           `json:"title"`
	Disambiguation string           `json:"disambiguation"`
	ArtistCredit   []MBArtistCredit `json:"artist-credit"`
	Releases       []MBRelease      `json:"releases"`
	Relations      []MBRelation     `json:"relations"`
}

// MBRecordingSearchResponse is the response of /recording?query=.
type MBRecordingSearchResponse struct {
	Count      int           `json:"count"`
	Offset     int           `json:"offset"`
	Recordings []MBRecording `json:"recordings"`
}

// MBReleaseGroupBrowseResponse is the response of /release-group?artist=.
type MBReleaseGroupBrowseResponse struct {
	ReleaseGroupCount  int              `json:"release-group-count"`
	ReleaseGroupOffset int              `json:"release-group-offset"`
	ReleaseGroups      []MBReleaseGroup `json:"release-groups"`
}

// CAAResponse is the Cover Art Archive listing for one release.
type CAAResponse struct {
	Release string     `json:"release"`
	Images  []CAAImage `json:"images"`
}

// CAAImage is one image in a Cover Art Archive listing.
type CAAImage struct {
	Image      string            `json:"image"`
	Front      bool              `json:"front"`
	Approved   bool              `json:"approved"`
	Types      []string          `json:"types"`
	Thumbnails map[string]string `json:"thumbnails"`
}
