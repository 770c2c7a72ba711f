package lastfm

// Last.fm API response types.

// TrackInfoResponse is the top-level response from track.getInfo. Failures
// arrive as a 200 with Error and Message set.
type TrackInfoResponse struct {
	Track   *Track `json:"track"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// Track is the track object from track.getInfo.
type Track struct {
	Name   string      `json:"name"`
	MBID   string      `json:"mbid"`
	URL    string      `json:"url"`
	Artist TrackArtist `json:"artist"`
	Album  *TrackAlbum `json:"album"`
}

// TrackArtist is the artist of a track.
type TrackArtist struct {
	Name string `json:"name"`
	MBID string `json:"mbid"`
}

// TrackAlbum is the album Last.fm associates with a track.
type TrackAlbum struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	MBID   string `json:"mbid"`
}

// Last.fm API error codes.
const (
	errInvalidParameters = 6
	errInvalidAPIKey     = 10
	errSuspendedAPIKey   = 26
	errRateLimitExceeded = 29
)
