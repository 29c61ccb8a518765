package cache

import (
	"regexp"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/sirupsen/logrus"
)

// fuzzyMinLen is the length both sides must exceed before fuzzy matching
// kicks in; shorter strings fall back to exact comparison because a single
// edit on a three-character name matches far too much.
const fuzzyMinLen = 3

// PatternMatch compares a query against a candidate entry name.
//
// Both sides are lowercased and trimmed to a shared prefix window of
// min(len(query), len(candidate)) runes. Exact mode requires the windows to
// be equal; fuzzy mode accepts a Levenshtein distance of at most one over
// the windows and only activates when both strings are longer than three
// characters.
func PatternMatch(query, candidate string, fuzzy bool) bool {
	q := []rune(strings.ToLower(query))
	c := []rune(strings.ToLower(candidate))

	k := len(q)
	if len(c) < k {
		k = len(c)
	}
	qw := string(q[:k])
	cw := string(c[:k])

	if fuzzy && len(q) > fuzzyMinLen && len(c) > fuzzyMinLen {
		return levenshtein.Distance(qw, cw, nil) <= 1
	}
	return qw == cw
}

// RegexMatch reports whether pattern matches anywhere in path. An invalid
// pattern is logged and treated as a non-match.
func RegexMatch(path, pattern string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		logrus.Errorf("invalid pattern %q: %v", pattern, err)
		return false
	}
	return re.MatchString(path)
}
