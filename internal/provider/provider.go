package provider

import (
	"context"
	"fmt"
	"time"
)

// ProviderName uniquely identifies an external catalog source.
type ProviderName string

// Known provider names.
const (
	NameMusicBrainz ProviderName = "musicbrainz"
	NameCoverArt    ProviderName = "coverartarchive"
	NameDiscogs     ProviderName = "discogs"
	NameLastFM      ProviderName = "lastfm"
	NameDeezer      ProviderName = "deezer"
	NameFanartTV    ProviderName = "fanarttv"
)

// AllProviderNames returns all known provider names in display order.
func AllProviderNames() []ProviderName {
	return []ProviderName{
		NameMusicBrainz,
		NameCoverArt,
		NameDiscogs,
		NameLastFM,
		NameFanartTV,
		NameDeezer,
	}
}

// DisplayName returns a human-readable name for the provider.
func (n ProviderName) DisplayName() string {
	switch n {
	case NameMusicBrainz:
		return "MusicBrainz"
	case NameCoverArt:
		return "Cover Art Archive"
	case NameDiscogs:
		return "Discogs"
	case NameLastFM:
		return "Last.fm"
	case NameDeezer:
		return "Deezer"
	case NameFanartTV:
		return "Fanart.tv"
	default:
		return string(n)
	}
}

// ArtistRef is an artist as returned by a catalog search or credit.
type ArtistRef struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SortName       string `json:"sort_name,omitempty"`
	Type           string `json:"type,omitempty"`
	Disambiguation string `json:"disambiguation,omitempty"`
	Score          int    `json:"score,omitempty"`
}

// ArtistDetail is an artist with its alias names and group members.
type ArtistDetail struct {
	ArtistRef
	Aliases []string    `json:"aliases,omitempty"`
	Members []ArtistRef `json:"members,omitempty"`
}

// ArtistCredit is one name in a recording or release artist credit.
// CreditedName is the name as printed, which may differ from Artist.Name.
type ArtistCredit struct {
	Artist       ArtistRef `json:"artist"`
	CreditedName string    `json:"credited_name,omitempty"`
	JoinPhrase   string    `json:"join_phrase,omitempty"`
}

// ReleaseRef is a release as attached to a recording or search result.
type ReleaseRef struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Status         string   `json:"status,omitempty"`
	Date           string   `json:"date,omitempty"`
	ReleaseGroupID string   `json:"release_group_id,omitempty"`
	PrimaryType    string   `json:"primary_type,omitempty"`
	SecondaryTypes []string `json:"secondary_types,omitempty"`
}

// RecordingCandidate is one recording search hit. Score is the upstream
// search relevance score.
type RecordingCandidate struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Disambiguation string         `json:"disambiguation,omitempty"`
	Score          int            `json:"score"`
	Credits        []ArtistCredit `json:"credits,omitempty"`
	Releases       []ReleaseRef   `json:"releases,omitempty"`
}

// ReleaseCandidate is one release search hit.
type ReleaseCandidate struct {
	ReleaseRef
	Score   int            `json:"score"`
	Credits []ArtistCredit `json:"credits,omitempty"`
}

// Relation is a typed link from a recording or work to an artist or label.
// Attributes carries qualifiers such as instrument names ("trumpet") or
// "co"/"executive" for producers.
type Relation struct {
	Type       string     `json:"type"`
	Attributes []string   `json:"attributes,omitempty"`
	Artist     *ArtistRef `json:"artist,omitempty"`
	Label      *LabelRef  `json:"label,omitempty"`
}

// LabelRef is a record label.
type LabelRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WorkRef is the composition a recording performs.
type WorkRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// RecordingDetail is the full record for one recording.
type RecordingDetail struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Disambiguation string         `json:"disambiguation,omitempty"`
	Credits        []ArtistCredit `json:"credits,omitempty"`
	Relations      []Relation     `json:"relations,omitempty"`
	Releases       []ReleaseRef   `json:"releases,omitempty"`
	Works          []WorkRef      `json:"works,omitempty"`
}

// TrackRef is one entry in a release track list.
type TrackRef struct {
	ID          string         `json:"id"`
	RecordingID string         `json:"recording_id"`
	Title       string         `json:"title"`
	Number      string         `json:"number"`
	Position    int            `json:"position"`
	Credits     []ArtistCredit `json:"credits,omitempty"`
}

// ReleaseDetail is a release with its track list and labels.
type ReleaseDetail struct {
	ReleaseRef
	Credits []ArtistCredit `json:"credits,omitempty"`
	Tracks  []TrackRef     `json:"tracks,omitempty"`
	Labels  []LabelRef     `json:"labels,omitempty"`
}

// ReleaseGroup is the edition-independent album grouping used for
// discographies.
type ReleaseGroup struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	PrimaryType      string   `json:"primary_type,omitempty"`
	SecondaryTypes   []string `json:"secondary_types,omitempty"`
	FirstReleaseDate string   `json:"first_release_date,omitempty"`
}

// SupplementalCredit is a free-text role credit from a secondary source.
// Tracks scopes the credit to track positions ("2", "A1 to A3"); empty means
// every track on the release.
type SupplementalCredit struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Tracks string `json:"tracks,omitempty"`
}

// SupplementalTrack is one track of a supplemental release with its own
// track-level credits.
type SupplementalTrack struct {
	Position string               `json:"position"`
	Title    string               `json:"title"`
	Credits  []SupplementalCredit `json:"credits,omitempty"`
}

// ReleaseCredits is the credit sheet of one release from a secondary source.
type ReleaseCredits struct {
	Source    ProviderName         `json:"source"`
	ReleaseID string               `json:"release_id"`
	Title     string               `json:"title"`
	Credits   []SupplementalCredit `json:"credits,omitempty"`
	Tracklist []SupplementalTrack  `json:"tracklist,omitempty"`
}

// TrackInfo is what a scrobble-history service knows about a track.
type TrackInfo struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Album  string `json:"album,omitempty"`
	MBID   string `json:"mbid,omitempty"`
}

// ImageResult is a single image available from a provider.
type ImageResult struct {
	URL    string       `json:"url"`
	Width  int          `json:"width,omitempty"`
	Height int          `json:"height,omitempty"`
	Likes  int          `json:"likes,omitempty"`
	Source ProviderName `json:"source"`
}

// Catalog is the primary recording/release database.
type Catalog interface {
	SearchArtist(ctx context.Context, name string) ([]ArtistRef, error)
	SearchRecording(ctx context.Context, title, artist, album string) ([]RecordingCandidate, error)
	SearchRelease(ctx context.Context, album, artist string) ([]ReleaseCandidate, error)
	GetArtist(ctx context.Context, id string) (*ArtistDetail, error)
	GetArtistAliases(ctx context.Context, id string) ([]string, error)
	GetRecording(ctx context.Context, id string) (*RecordingDetail, error)
	GetRelease(ctx context.Context, id string) (*ReleaseDetail, error)
	GetWorkCredits(ctx context.Context, workID string) ([]Relation, error)
	BrowseReleaseGroups(ctx context.Context, artistID string) ([]ReleaseGroup, error)
	BrowseReleases(ctx context.Context, releaseGroupID string) ([]ReleaseRef, error)
}

// CreditSource supplies supplemental credit sheets.
type CreditSource interface {
	Name() ProviderName
	FindReleaseCredits(ctx context.Context, track, artist, album string) (*ReleaseCredits, error)
}

// TrackInfoSource supplies album hints for bare (artist, track) requests.
type TrackInfoSource interface {
	Name() ProviderName
	GetTrackInfo(ctx context.Context, artist, track string) (*TrackInfo, error)
}

// ImageSource resolves an artist image by name, optionally keyed by MBID.
// A source with nothing to offer returns ErrNotFound.
type ImageSource interface {
	Name() ProviderName
	GetArtistImage(ctx context.Context, name, mbid string) (*ImageResult, error)
}

// CoverSource resolves release artwork by release or release-group ID.
type CoverSource interface {
	Name() ProviderName
	GetReleaseCover(ctx context.Context, releaseID string) (*ImageResult, error)
	GetReleaseGroupCover(ctx context.Context, groupID string) (*ImageResult, error)
}

// ErrProviderUnavailable indicates a transient failure (timeout, server error).
type ErrProviderUnavailable struct {
	Provider ProviderName
	Cause    error
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrRateLimited indicates the provider asked the client to slow down.
type ErrRateLimited struct {
	Provider   ProviderName
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("provider %s rate limited (retry after %s)", e.Provider, e.RetryAfter)
}

// ErrNotFound indicates the provider has no data for the requested ID or query.
type ErrNotFound struct {
	Provider ProviderName
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: %s not found", e.Provider, e.ID)
}

// ErrAuthRequired indicates the provider needs an API key but none is configured.
type ErrAuthRequired struct {
	Provider ProviderName
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("provider %s: API key not configured", e.Provider)
}
