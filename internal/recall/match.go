package recall

import (
	"sort"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/achalasani15/gut-check-app/internal/journal"
)

// Matcher finds journal foods and watch keywords in recall notices.
// Matching is case-insensitive on whole words, so "lamb" matches
// "Lamb Treats recalled" but not "lambswool".
type Matcher struct {
	terms []string
}

// NewMatcher builds a matcher from the distinct food names in logs plus
// extra keywords.
func NewMatcher(logs []journal.LogRecord, keywords []string) *Matcher {
	foods := lo.FilterMap(logs, func(r journal.LogRecord, _ int) (string, bool) {
		if !r.IsFood() {
			return "", false
		}
		return normalize(r.Food.Name), true
	})
	extra := lo.Map(keywords, func(k string, _ int) string { return normalize(k) })

	terms := lo.Uniq(lo.Compact(append(foods, extra...)))
	sort.Strings(terms)
	return &Matcher{terms: terms}
}

// Terms returns the normalized terms being watched.
func (m *Matcher) Terms() []string {
	return m.terms
}

// Match returns the terms found in the entry's title or content, sorted.
func (m *Matcher) Match(e FeedEntry) []string {
	text := " " + normalize(e.Title+" "+e.Content) + " "
	return lo.Filter(m.terms, func(term string, _ int) bool {
		return strings.Contains(text, " "+term+" ")
	})
}

// normalize lower-cases s and turns every run of non-alphanumerics into a
// single space.
func normalize(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
