package journal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Matches reports whether the record matches a search term. The term is
// compared case-insensitively against the kind, food name, symptom text,
// note text, and "type N" for stools.
func (r LogRecord) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if strings.Contains(string(r.Kind), term) {
		return true
	}
	switch {
	case r.Food != nil:
		return strings.Contains(strings.ToLower(r.Food.Name), term)
	case r.Symptom != nil:
		return lo.SomeBy(r.Symptom.Descriptions, func(d string) bool {
			return strings.Contains(strings.ToLower(d), term)
		})
	case r.Note != nil:
		return strings.Contains(strings.ToLower(r.Note.Text), term)
	case r.Stool != nil:
		return strings.Contains(fmt.Sprintf("type %d", r.Stool.QualityCode), term)
	}
	return false
}

// FilterLogs returns the records of the given kind (empty kind means all)
// that match term. Order is preserved.
func FilterLogs(logs []LogRecord, kind Kind, term string) []LogRecord {
	return lo.Filter(logs, func(r LogRecord, _ int) bool {
		if kind != "" && r.Kind != kind {
			return false
		}
		return r.Matches(term)
	})
}

// SortNewestFirst returns a copy of logs ordered by timestamp descending.
func SortNewestFirst(logs []LogRecord) []LogRecord {
	out := make([]LogRecord, len(logs))
	copy(out, logs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// SuggestFoodNames returns distinct food names, in log order, whose name
// contains term case-insensitively.
func SuggestFoodNames(logs []LogRecord, term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	names := lo.FilterMap(logs, func(r LogRecord, _ int) (string, bool) {
		if !r.IsFood() {
			return "", false
		}
		return r.Food.Name, strings.Contains(strings.ToLower(r.Food.Name), term)
	})
	return lo.Uniq(names)
}

// LastFlagsFor returns the food payload most recently logged under name, so
// a form can prefill the scavenged and safe flags.
func LastFlagsFor(logs []LogRecord, name string) (Food, bool) {
	var (
		found  bool
		latest LogRecord
	)
	for _, r := range logs {
		if !r.IsFood() || r.Food.Name != name {
			continue
		}
		if !found || r.Timestamp.After(latest.Timestamp) {
			latest = r
			found = true
		}
	}
	if !found {
		return Food{}, false
	}
	return *latest.Food, true
}

// DayGroup holds the records of one local calendar day.
type DayGroup struct {
	Date time.Time
	Logs []LogRecord
}

// Label formats the day like "Monday, February 2, 2026".
func (g DayGroup) Label() string {
	return g.Date.Format("Monday, January 2, 2006")
}

// GroupByDay buckets records by local calendar day, newest day first. Within
// a day records keep newest-first order.
func GroupByDay(logs []LogRecord, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}
	var groups []DayGroup
	index := make(map[string]int)
	for _, r := range SortNewestFirst(logs) {
		t := r.Timestamp.In(loc)
		key := t.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
			groups = append(groups, DayGroup{Date: day})
			i = len(groups) - 1
			index[key] = i
		}
		groups[i].Logs = append(groups[i].Logs, r)
	}
	return groups
}

// SplitList splits comma or newline separated input into trimmed, non-empty
// items.
func SplitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' })
	return lo.FilterMap(parts, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})
}
