// Package match scores catalog search candidates against a requested track.
package match

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sydlexius/creditgraph/internal/normalize"
	"github.com/sydlexius/creditgraph/internal/provider"
)

// Target is what the caller asked for. Album is optional.
type Target struct {
	Track  string
	Artist string
	Album  string
}

// Scored is a candidate with its final score and the adjustments that
// produced it, in application order.
type Scored[T any] struct {
	Candidate T
	Score     int
	Reasons   []string
}

var (
	// Matched against the normalized title plus disambiguation.
	alternateRe = regexp.MustCompile(`\b(live|remix|remixed|acoustic|demo|radio edit|instrumental|karaoke|cover|remaster|remastered|alternate|alt mix|alt version|alternative version|extended mix|club mix|dub mix)\b`)
	cleanRe     = regexp.MustCompile(`\b(clean|edited)\b`)
	editionRe   = regexp.MustCompile(`\b(anniversary|deluxe|remaster|remastered|special edition|expanded edition|collectors edition|legacy edition)\b`)
)

var penalizedSecondaryTypes = []string{"compilation", "live", "remix", "soundtrack"}

// Matcher ranks recording and release candidates. It is stateless apart from
// its weights and safe for concurrent use.
type Matcher struct {
	w Weights
}

// New returns a Matcher using the given weights.
func New(w Weights) *Matcher {
	return &Matcher{w: w}
}

// Weights returns the matcher's scoring weights.
func (m *Matcher) Weights() Weights { return m.w }

// ScoreRecording scores one recording candidate.
func (m *Matcher) ScoreRecording(t Target, c provider.RecordingCandidate) Scored[provider.RecordingCandidate] {
	s := Scored[provider.RecordingCandidate]{Candidate: c, Score: c.Score}
	add := func(n int, reason string) {
		s.Score += n
		s.Reasons = append(s.Reasons, fmt.Sprintf("%+d %s", n, reason))
	}

	wantTitle := normalize.Name(t.Track)
	if normalize.Name(c.Title) == wantTitle {
		add(m.w.ExactTitle, "exact title")
	}

	text := normalize.Name(c.Title + " " + c.Disambiguation)
	if kw := alternateKeyword(text, wantTitle); kw != "" {
		add(m.w.AlternateVersion, "alternate version ("+kw+")")
	}
	if cleanRe.MatchString(normalize.Name(c.Disambiguation)) {
		add(m.w.CleanEdited, "clean/edited")
	}

	if n := len(c.Credits); n > 1 {
		add(m.w.CoCredit*(n-1), fmt.Sprintf("%d co-credited artists", n-1))
	}
	if t.Artist != "" && creditsInclude(c.Credits, t.Artist) {
		add(m.w.ArtistCredited, "artist credited")
	}

	if t.Album != "" {
		best, reason := m.bestReleaseScore(t.Album, c.Releases)
		add(best, reason)
	}
	return s
}

// RankRecordings scores and sorts candidates, best first. Ties keep input
// order.
func (m *Matcher) RankRecordings(t Target, cands []provider.RecordingCandidate) []Scored[provider.RecordingCandidate] {
	out := make([]Scored[provider.RecordingCandidate], 0, len(cands))
	for _, c := range cands {
		out = append(out, m.ScoreRecording(t, c))
	}
	slices.SortStableFunc(out, func(a, b Scored[provider.RecordingCandidate]) int {
		return b.Score - a.Score
	})
	return out
}

// BestRecording returns the top-ranked candidate. ok is false only when
// cands is empty; a negative best score is still returned.
func (m *Matcher) BestRecording(t Target, cands []provider.RecordingCandidate) (best Scored[provider.RecordingCandidate], ok bool) {
	ranked := m.RankRecordings(t, cands)
	if len(ranked) == 0 {
		return best, false
	}
	return ranked[0], true
}

// ScoreRelease computes the release sub-score for one release. With an empty
// album only the type, status and edition adjustments apply. A release that
// does not match a requested album scores AlbumMissing.
func (m *Matcher) ScoreRelease(album string, r provider.ReleaseRef) (int, []string) {
	score := 0
	var reasons []string
	add := func(n int, reason string) {
		score += n
		reasons = append(reasons, fmt.Sprintf("%+d %s", n, reason))
	}

	wantAlbum := normalize.Name(album)
	title := normalize.Name(r.Title)
	if wantAlbum != "" {
		switch {
		case title == wantAlbum:
			add(m.w.AlbumExact, "exact album")
		case title != "" && (strings.Contains(title, wantAlbum) || strings.Contains(wantAlbum, title)):
			add(m.w.AlbumPartial, "partial album")
		default:
			return m.w.AlbumMissing, []string{fmt.Sprintf("%+d album not matched", m.w.AlbumMissing)}
		}
	}

	for _, st := range r.SecondaryTypes {
		if slices.Contains(penalizedSecondaryTypes, strings.ToLower(st)) {
			add(m.w.SecondaryType, strings.ToLower(st)+" release")
			break
		}
	}
	if ed := editionRe.FindString(title); ed != "" && !editionRe.MatchString(wantAlbum) {
		add(m.w.EditionTitle, ed+" edition")
	}
	if strings.EqualFold(r.Status, "official") {
		add(m.w.Official, "official")
	}
	switch strings.ToLower(r.PrimaryType) {
	case "album":
		add(m.w.AlbumType, "album type")
	case "ep":
		add(m.w.EPType, "ep type")
	}
	return score, reasons
}

// RankReleases scores release search results (upstream score plus release
// sub-score) and sorts them, best first. Ties keep input order.
func (m *Matcher) RankReleases(album string, cands []provider.ReleaseCandidate) []Scored[provider.ReleaseCandidate] {
	out := make([]Scored[provider.ReleaseCandidate], 0, len(cands))
	for _, c := range cands {
		sub, reasons := m.ScoreRelease(album, c.ReleaseRef)
		out = append(out, Scored[provider.ReleaseCandidate]{
			Candidate: c,
			Score:     c.Score + sub,
			Reasons:   reasons,
		})
	}
	slices.SortStableFunc(out, func(a, b Scored[provider.ReleaseCandidate]) int {
		return b.Score - a.Score
	})
	return out
}

// BestReleaseOf picks the highest scoring of a recording's releases. ok is
// false when releases is empty.
func (m *Matcher) BestReleaseOf(album string, releases []provider.ReleaseRef) (provider.ReleaseRef, bool) {
	var best provider.ReleaseRef
	bestScore := 0
	for i, r := range releases {
		s, _ := m.ScoreRelease(album, r)
		if i == 0 || s > bestScore {
			best, bestScore = r, s
		}
	}
	return best, len(releases) > 0
}

func (m *Matcher) bestReleaseScore(album string, releases []provider.ReleaseRef) (int, string) {
	if len(releases) == 0 {
		return m.w.AlbumMissing, "no releases"
	}
	best := 0
	var bestTitle string
	for i, r := range releases {
		s, _ := m.ScoreRelease(album, r)
		if i == 0 || s > best {
			best, bestTitle = s, r.Title
		}
	}
	return best, "best release " + fmt.Sprintf("%q", bestTitle)
}

// alternateKeyword returns the first alternate-version keyword found in text
// that the requested title does not itself contain.
func alternateKeyword(text, wantTitle string) string {
	for _, kw := range alternateRe.FindAllString(text, -1) {
		if !containsWord(wantTitle, kw) {
			return kw
		}
	}
	return ""
}

func containsWord(s, word string) bool {
	return strings.Contains(" "+s+" ", " "+word+" ")
}

func creditsInclude(credits []provider.ArtistCredit, artist string) bool {
	want := normalize.Artist(artist)
	if want == "" {
		return false
	}
	for _, c := range credits {
		if normalize.Artist(c.Artist.Name) == want || (c.CreditedName != "" && normalize.Artist(c.CreditedName) == want) {
			return true
		}
	}
	return false
}
