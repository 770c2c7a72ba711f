package musicbrainz

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/creditgraph/internal/provider"
)

const (
	defaultBaseURL      = "https://musicbrainz.org/ws/2"
	defaultCoverBaseURL = "https://coverartarchive.org"

	searchLimit = 25
	browseLimit = 100
	// maxBrowsePages bounds release-group pagination for prolific artists.
	maxBrowsePages = 10
)

// Adapter implements provider.Catalog and provider.CoverSource against
// MusicBrainz and the Cover Art Archive.
type Adapter struct {
	fetch        *provider.Fetcher
	coverFetch   *provider.Fetcher
	logger       *slog.Logger
	baseURL      string
	coverBaseURL string
}

// New creates a MusicBrainz adapter with the default base URLs.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL, defaultCoverBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with custom base URLs. An
// empty URL keeps the public endpoint.
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL, coverBaseURL string) *Adapter {
	baseURL = cmp.Or(baseURL, defaultBaseURL)
	coverBaseURL = cmp.Or(coverBaseURL, defaultCoverBaseURL)
	logger = logger.With(slog.String("provider", string(provider.NameMusicBrainz)))
	// MusicBrainz and the Cover Art Archive answer 503 when a client exceeds
	// the request rate.
	fetch := provider.NewFetcher(provider.NameMusicBrainz, limiter, provider.DefaultRetryBackoff, logger)
	fetch.ThrottleOn503 = true
	coverFetch := provider.NewFetcher(provider.NameCoverArt, limiter, provider.DefaultRetryBackoff, logger)
	coverFetch.ThrottleOn503 = true
	return &Adapter{
		fetch:        fetch,
		coverFetch:   coverFetch,
		logger:       logger,
		baseURL:      strings.TrimRight(baseURL, "/"),
		coverBaseURL: strings.TrimRight(coverBaseURL, "/"),
	}
}

// WithRetryBackoff sets the delay before retrying a rate-limited request.
func (a *Adapter) WithRetryBackoff(d time.Duration) *Adapter {
	a.fetch.Backoff = d
	a.coverFetch.Backoff = d
	return a
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameMusicBrainz }

// SearchArtist searches MusicBrainz for artists matching the given name.
func (a *Adapter) SearchArtist(ctx context.Context, name string) ([]provider.ArtistRef, error) {
	params := url.Values{
		"query": {name},
		"fmt":   {"json"},
		"limit": {strconv.Itoa(searchLimit)},
	}
	var resp MBArtistSearchResponse
	if err := a.getJSON(ctx, "/artist?"+params.Encode(), name, &resp); err != nil {
		return nil, err
	}

	results := make([]provider.ArtistRef, 0, len(resp.Artists))
	for i := range resp.Artists {
		results = append(results, mapArtistRef(&resp.Artists[i]))
	}
	return results, nil
}

// SearchRecording searches for recordings by title and artist, narrowed by
// album when one is given.
func (a *Adapter) SearchRecording(ctx context.Context, title, artist, album string) ([]provider.RecordingCandidate, error) {
	query := fmt.Sprintf(`recording:"%s" AND artist:"%s"`, escapeQuery(title), escapeQuery(artist))
	if album != "" {
		query += fmt.Sprintf(` AND release:"%s"`, escapeQuery(album))
	}
	params := url.Values{
		"query": {query},
		"fmt":   {"json"},
		"limit": {strconv.Itoa(searchLimit)},
	}
	var resp MBRecordingSearchResponse
	if err := a.getJSON(ctx, "/recording?"+params.Encode(), title, &resp); err != nil {
		return nil, err
	}

	results := make([]provider.RecordingCandidate, 0, len(resp.Recordings))
	for _, rec := range resp.Recordings {
		results = append(results, provider.RecordingCandidate{
			ID:             rec.ID,
			Title:          rec.Title,
			Disambiguation: rec.Disambiguation,
			Score:          rec.Score,
			Credits:        mapCredits(rec.ArtistCredit),
			Releases:       mapReleaseRefs(rec.Releases),
		})
	}
	return results, nil
}

// SearchRelease searches for releases by album title and artist.
func (a *Adapter) SearchRelease(ctx context.Context, album, artist string) ([]provider.ReleaseCandidate, error) {
	query := fmt.Sprintf(`release:"%s" AND artist:"%s"`, escapeQuery(album), escapeQuery(artist))
	params := url.Values{
		"query": {query},
		"fmt":   {"json"},
		"limit": {strconv.Itoa(searchLimit)},
	}
	var resp MBReleaseSearchResponse
	if err := a.getJSON(ctx, "/release?"+params.Encode(), album, &resp); err != nil {
		return nil, err
	}

	results := make([]provider.ReleaseCandidate, 0, len(resp.Releases))
	for i := range resp.Releases {
		rel := &resp.Releases[i]
		results = append(results, provider.ReleaseCandidate{
			ReleaseRef: mapReleaseRef(rel),
			Score:      rel.Score,
			Credits:    mapCredits(rel.ArtistCredit),
		})
	}
	return results, nil
}

// GetArtist fetches an artist with aliases and group members.
func (a *Adapter) GetArtist(ctx context.Context, mbid string) (*provider.ArtistDetail, error) {
	mb, err := a.lookupArtist(ctx, mbid, "aliases+artist-rels")
	if err != nil {
		return nil, err
	}

	detail := &provider.ArtistDetail{
		ArtistRef: mapArtistRef(mb),
		Aliases:   aliasNames(mb),
	}
	for _, rel := range mb.Relations {
		// On a group, "member of band" points backward at each member.
		if rel.Type == "member of band" && rel.Direction == "backward" && rel.Artist != nil {
			detail.Members = append(detail.Members, mapArtistRef(rel.Artist))
		}
	}
	return detail, nil
}

// GetArtistAliases returns every alias name of an artist other than its
// primary name.
func (a *Adapter) GetArtistAliases(ctx context.Context, mbid string) ([]string, error) {
	mb, err := a.lookupArtist(ctx, mbid, "aliases")
	if err != nil {
		return nil, err
	}
	return aliasNames(mb), nil
}

func (a *Adapter) lookupArtist(ctx context.Context, mbid, inc string) (*MBArtist, error) {
	params := url.Values{
		"inc": {inc},
		"fmt": {"json"},
	}
	var mb MBArtist
	if err := a.getJSON(ctx, "/artist/"+url.PathEscape(mbid)+"?"+params.Encode(), mbid, &mb); err != nil {
		return nil, err
	}
	return &mb, nil
}

// GetRecording fetches a recording with its credits, releases, artist
// relationships and linked works.
func (a *Adapter) GetRecording(ctx context.Context, mbid string) (*provider.RecordingDetail, error) {
	params := url.Values{
		"inc": {"artist-credits+releases+release-groups+artist-rels+work-rels"},
		"fmt": {"json"},
	}
	var mb MBRecording
	if err := a.getJSON(ctx, "/recording/"+url.PathEscape(mbid)+"?"+params.Encode(), mbid, &mb); err != nil {
		return nil, err
	}

	detail := &provider.RecordingDetail{
		ID:             mb.ID,
		Title:          mb.Title,
		Disambiguation: mb.Disambiguation,
		Credits:        mapCredits(mb.ArtistCredit),
		Releases:       mapReleaseRefs(mb.Releases),
	}
	for _, rel := range mb.Relations {
		switch {
		case rel.Work != nil:
			detail.Works = append(detail.Works, provider.WorkRef{ID: rel.Work.ID, Title: rel.Work.Title})
		case rel.Artist != nil || rel.Label != nil:
			detail.Relations = append(detail.Relations, mapRelation(rel))
		}
	}
	return detail, nil
}

// GetRelease fetches a release with its track list, labels and release group.
func (a *Adapter) GetRelease(ctx context.Context, mbid string) (*provider.ReleaseDetail, error) {
	params := url.Values{
		"inc": {"recordings+artist-credits+labels+release-groups"},
		"fmt": {"json"},
	}
	var mb MBRelease
	if err := a.getJSON(ctx, "/release/"+url.PathEscape(mbid)+"?"+params.Encode(), mbid, &mb); err != nil {
		return nil, err
	}

	detail := &provider.ReleaseDetail{
		ReleaseRef: mapReleaseRef(&mb),
		Credits:    mapCredits(mb.ArtistCredit),
	}
	for _, medium := range mb.Media {
		for _, tr := range medium.Tracks {
			detail.Tracks = append(detail.Tracks, provider.TrackRef{
				ID:          tr.ID,
				RecordingID: tr.Recording.ID,
				Title:       tr.Title,
				Number:      tr.Number,
				Position:    tr.Position,
				Credits:     mapCredits(tr.ArtistCredit),
			})
		}
	}
	seen := make(map[string]bool, len(mb.LabelInfo))
	for _, li := range mb.LabelInfo {
		if li.Label == nil || li.Label.ID == "" || seen[li.Label.ID] {
			continue
		}
		seen[li.Label.ID] = true
		detail.Labels = append(detail.Labels, provider.LabelRef{ID: li.Label.ID, Name: li.Label.Name})
	}
	return detail, nil
}

// GetWorkCredits returns the artist relationships of a work (composer,
// lyricist, writer and similar).
func (a *Adapter) GetWorkCredits(ctx context.Context, workID string) ([]provider.Relation, error) {
	params := url.Values{
		"inc": {"artist-rels"},
		"fmt": {"json"},
	}
	var mb MBWork
	if err := a.getJSON(ctx, "/work/"+url.PathEscape(workID)+"?"+params.Encode(), workID, &mb); err != nil {
		return nil, err
	}

	rels := make([]provider.Relation, 0, len(mb.Relations))
	for _, rel := range mb.Relations {
		if rel.Artist == nil {
			continue
		}
		rels = append(rels, mapRelation(rel))
	}
	return rels, nil
}

// BrowseReleaseGroups lists the release groups credited to an artist,
// following pagination.
func (a *Adapter) BrowseReleaseGroups(ctx context.Context, artistID string) ([]provider.ReleaseGroup, error) {
	var groups []provider.ReleaseGroup
	offset := 0
	for page := 0; page < maxBrowsePages; page++ {
		params := url.Values{
			"artist": {artistID},
			"fmt":    {"json"},
			"limit":  {strconv.Itoa(browseLimit)},
			"offset": {strconv.Itoa(offset)},
		}
		var resp MBReleaseGroupBrowseResponse
		if err := a.getJSON(ctx, "/release-group?"+params.Encode(), artistID, &resp); err != nil {
			return nil, err
		}
		for _, rg := range resp.ReleaseGroups {
			groups = append(groups, provider.ReleaseGroup{
				ID:               rg.ID,
				Title:            rg.Title,
				PrimaryType:      rg.PrimaryType,
				SecondaryTypes:   rg.SecondaryTypes,
				FirstReleaseDate: rg.FirstReleaseDate,
			})
		}
		offset += len(resp.ReleaseGroups)
		if len(resp.ReleaseGroups) == 0 || offset >= resp.ReleaseGroupCount {
			break
		}
	}
	return groups, nil
}

// BrowseReleases lists the releases in a release group.
func (a *Adapter) BrowseReleases(ctx context.Context, releaseGroupID string) ([]provider.ReleaseRef, error) {
	params := url.Values{
		"release-group": {releaseGroupID},
		"inc":           {"release-groups"},
		"fmt":           {"json"},
		"limit":         {strconv.Itoa(browseLimit)},
	}
	var resp MBReleaseSearchResponse
	if err := a.getJSON(ctx, "/release?"+params.Encode(), releaseGroupID, &resp); err != nil {
		return nil, err
	}
	return mapReleaseRefs(resp.Releases), nil
}

// GetReleaseCover returns the front cover of a release from the Cover Art
// Archive, preferring the 500px thumbnail.
func (a *Adapter) GetReleaseCover(ctx context.Context, releaseID string) (*provider.ImageResult, error) {
	return a.frontCover(ctx, "release", releaseID)
}

// GetReleaseGroupCover returns the front cover the Cover Art Archive picks
// for a release group.
func (a *Adapter) GetReleaseGroupCover(ctx context.Context, groupID string) (*provider.ImageResult, error) {
	return a.frontCover(ctx, "release-group", groupID)
}

func (a *Adapter) frontCover(ctx context.Context, kind, id string) (*provider.ImageResult, error) {
	body, err := a.coverFetch.Get(ctx, a.coverBaseURL+"/"+kind+"/"+url.PathEscape(id), id)
	if err != nil {
		return nil, err
	}
	var resp CAAResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing cover art response: %w", err)
	}

	for _, img := range resp.Images {
		if !img.Front {
			continue
		}
		u := img.Image
		for _, size := range []string{"500", "large", "250", "small"} {
			if t := img.Thumbnails[size]; t != "" {
				u = t
				break
			}
		}
		if u == "" {
			continue
		}
		return &provider.ImageResult{URL: u, Source: provider.NameCoverArt}, nil
	}
	return nil, &provider.ErrNotFound{Provider: provider.NameCoverArt, ID: id}
}

// getJSON fetches path relative to the base URL and decodes the body into v.
func (a *Adapter) getJSON(ctx context.Context, path, id string, v any) error {
	body, err := a.fetch.Get(ctx, a.baseURL+path, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing musicbrainz response: %w", err)
	}
	return nil
}

func mapArtistRef(mb *MBArtist) provider.ArtistRef {
	return provider.ArtistRef{
		ID:             mb.ID,
		Name:           mb.Name,
		SortName:       mb.SortName,
		Type:           mb.Type,
		Disambiguation: mb.Disambiguation,
		Score:          mb.Score,
	}
}

func aliasNames(mb *MBArtist) []string {
	var names []string
	seen := map[string]bool{mb.Name: true}
	for _, alias := range mb.Aliases {
		if alias.Name == "" || seen[alias.Name] {
			continue
		}
		seen[alias.Name] = true
		names = append(names, alias.Name)
	}
	return names
}

func mapCredits(in []MBArtistCredit) []provider.ArtistCredit {
	if len(in) == 0 {
		return nil
	}
	out := make([]provider.ArtistCredit, 0, len(in))
	for i := range in {
		out = append(out, provider.ArtistCredit{
			Artist:       mapArtistRef(&in[i].Artist),
			CreditedName: in[i].Name,
			JoinPhrase:   in[i].JoinPhrase,
		})
	}
	return out
}

func mapReleaseRef(mb *MBRelease) provider.ReleaseRef {
	ref := provider.ReleaseRef{
		ID:     mb.ID,
		Title:  mb.Title,
		Status: mb.Status,
		Date:   mb.Date,
	}
	if rg := mb.ReleaseGroup; rg != nil {
		ref.ReleaseGroupID = rg.ID
		ref.PrimaryType = rg.PrimaryType
		ref.SecondaryTypes = rg.SecondaryTypes
	}
	return ref
}

func mapReleaseRefs(in []MBRelease) []provider.ReleaseRef {
	if len(in) == 0 {
		return nil
	}
	out := make([]provider.ReleaseRef, 0, len(in))
	for i := range in {
		out = append(out, mapReleaseRef(&in[i]))
	}
	return out
}

func mapRelation(rel MBRelation) provider.Relation {
	out := provider.Relation{
		Type:       rel.Type,
		Attributes: rel.Attributes,
	}
	if rel.Artist != nil {
		ref := mapArtistRef(rel.Artist)
		out.Artist = &ref
	}
	if rel.Label != nil {
		out.Label = &provider.LabelRef{ID: rel.Label.ID, Name: rel.Label.Name}
	}
	return out
}

// queryEscaper escapes Lucene metacharacters inside a quoted search term.
var queryEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}
