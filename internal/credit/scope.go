package credit

import (
	"regexp"
	"strconv"
	"strings"
)

// positionPattern splits a track position into side letters and number
// ("A1" -> "a", 1; "12" -> "", 12).
var positionPattern = regexp.MustCompile(`^([a-z]*)(\d+)$`)

// rangeSep splits a position range ("1 to 3", "A1-A3", "A1 – A3").
var rangeSep = regexp.MustCompile(`\s+to\s+|\s*[-–]\s*`)

type position struct {
	side string
	num  int
}

func parsePosition(s string) (position, bool) {
	m := positionPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return position{}, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return position{}, false
	}
	return position{side: m[1], num: n}, true
}

func (p position) less(o position) bool {
	if p.side != o.side {
		return p.side < o.side
	}
	return p.num < o.num
}

// InScope reports whether a credit scoped to tracks applies to the track at
// pos. An empty scope covers every track. Scopes are comma lists of single
// positions ("2", "A1") and inclusive ranges ("1 to 3", "A1-A3"). An unknown
// pos only matches an identical scope entry.
func InScope(tracks, pos string) bool {
	tracks = strings.TrimSpace(tracks)
	if tracks == "" {
		return true
	}
	pos = strings.TrimSpace(pos)
	if pos == "" {
		return false
	}
	want, parsed := parsePosition(pos)

	for _, part := range strings.Split(tracks, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.EqualFold(part, pos) {
			return true
		}
		if !parsed {
			continue
		}
		bounds := rangeSep.Split(part, 2)
		if len(bounds) != 2 {
			if p, ok := parsePosition(part); ok && p == want {
				return true
			}
			continue
		}
		lo, ok1 := parsePosition(bounds[0])
		hi, ok2 := parsePosition(bounds[1])
		if !ok1 || !ok2 {
			continue
		}
		// "A1-3" keeps the side of the lower bound.
		if hi.side == "" && lo.side != "" {
			hi.side = lo.side
		}
		if hi.less(lo) {
			lo, hi = hi, lo
		}
		if !want.less(lo) && !hi.less(want) {
			return true
		}
	}
	return false
}
