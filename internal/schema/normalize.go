package schema

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxColumnNameLength caps resolved column names. Postgres allows 63-byte
// identifiers; names anywhere near that stop being usable in queries.
const MaxColumnNameLength = 24

// stripMarks decomposes to NFKD and drops the combining marks, reducing
// accented letters to their base form ("Montréal" -> "Montreal").
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

var (
	nameStart    = regexp.MustCompile(`^[a-z_]`)
	nameBadChars = regexp.MustCompile(`[^a-z0-9_]`)
)

// NormalizeName converts one raw header cell into a SQL-safe column name:
// decompose and drop combining marks, lowercase, trim surrounding space,
// prefix "_" when the first character is not a lowercase letter or
// underscore, then strip every remaining character outside [a-z0-9_]. The
// result is never empty; the empty string normalizes to "_".
func NormalizeName(raw string) string {
	s := raw
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	if !nameStart.MatchString(s) {
		s = "_" + s
	}
	return nameBadChars.ReplaceAllString(s, "")
}

// NormalizeNames normalizes every header name, truncates each to
// MaxColumnNameLength, and makes the result unique. Collisions are
// resolved left to right: the first occurrence keeps its name and each
// later one gets a _2, _3, ... suffix, with the base re-truncated so the
// suffixed name still fits the cap. The function is idempotent: running it
// over its own output changes nothing.
func NormalizeNames(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, h := range raw {
		base := NormalizeName(h)
		name := truncateName(base, MaxColumnNameLength)
		if seen[name] {
			for n := 2; ; n++ {
				suffix := "_" + strconv.Itoa(n)
				cand := truncateName(base, MaxColumnNameLength-len(suffix)) + suffix
				if !seen[cand] {
					name = cand
					break
				}
			}
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func truncateName(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if len(s) > max {
		return s[:max]
	}
	return s
}
