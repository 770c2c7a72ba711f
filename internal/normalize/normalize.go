// Package normalize canonicalizes free-text artist names and titles so that
// catalog records from different sources can be compared by key.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// separators are treated as word breaks by Name.
var separators = strings.NewReplacer("-", " ", "_", " ", "/", " ")

// punctuation matches anything that is not a letter, digit, or space.
var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\p{Z}\s]`)

// joiners are dropped outright by Artist so "J.I.D." and "JID" collapse.
var joiners = strings.NewReplacer(".", "", "-", "", "_", "")

// currency maps stylized letter substitutions back to letters ("A$AP", "Ke$ha").
var currency = strings.NewReplacer("$", "s", "€", "e", "¢", "c", "£", "l")

// Name lowercases s, folds diacritics, strips punctuation and collapses
// whitespace. Names made only of symbols ("!!!", "÷") keep their symbols.
// Name(Name(s)) == Name(s).
func Name(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = foldDiacritics(s)
	s = separators.Replace(s)
	stripped := strings.Join(strings.Fields(punctuation.ReplaceAllString(s, "")), " ")
	if stripped == "" {
		return strings.Join(strings.Fields(s), " ")
	}
	return stripped
}

// Artist is Name with artist-specific folding: periods, hyphens and
// underscores are removed rather than spaced, and currency symbols used as
// letters are mapped back.
func Artist(s string) string {
	if s == "" {
		return ""
	}
	s = currency.Replace(s)
	s = joiners.Replace(s)
	return Name(s)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

// foldDiacritics decomposes s and drops combining marks ("Beyoncé" -> "Beyonce").
// The transformer is stateful, so one is built per call.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
