package analysis

import (
	"sort"
	"time"

	"github.com/achalasani15/gut-check-app/internal/journal"
)

// OutcomeWindow is how long after a feeding a bad stool is attributed to it.
const OutcomeWindow = 24 * time.Hour

// FoodStats aggregates the outcomes of one food.
type FoodStats struct {
	TotalCount              int     `json:"total_count"`
	WeightedBadOutcomeCount float64 `json:"weighted_bad_outcome_count"`
}

// Score is the suspect score: weighted bad outcomes per serving, 0 when the
// food was never served.
func (s FoodStats) Score() float64 {
	score, _ := s.ScoreOK()
	return score
}

// ScoreOK returns the score and whether it is defined.
func (s FoodStats) ScoreOK() (float64, bool) {
	if s.TotalCount <= 0 {
		return 0, false
	}
	return s.WeightedBadOutcomeCount / float64(s.TotalCount), true
}

// FoodStatsMap is keyed by journal.FoodKey.
type FoodStatsMap map[string]FoodStats

// Lookup returns the stats for a food name in any casing.
func (m FoodStatsMap) Lookup(name string) (FoodStats, bool) {
	s, ok := m[journal.FoodKey(name)]
	return s, ok
}

// ScoreFor returns the suspect score for a food name, 0 when unknown.
func (m FoodStatsMap) ScoreFor(name string) float64 {
	s, _ := m.Lookup(name)
	return s.Score()
}

// Keys returns the food keys in sorted order.
func (m FoodStatsMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FoodScore pairs a food key with its suspect score.
type FoodScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Band  Band    `json:"band"`
}

// Ranking lists every food by descending score, ties by name.
func (m FoodStatsMap) Ranking() []FoodScore {
	out := make([]FoodScore, 0, len(m))
	for _, k := range m.Keys() {
		score := m[k].Score()
		out = append(out, FoodScore{Name: k, Score: score, Band: BandFor(score)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// ComputeFoodStats scans all logs and attributes the severity of every bad
// stool to each non-scavenged feeding in the 24 hours before it. Bounds are
// strict on both sides. A feeding followed by several bad stools accumulates
// all of their severities.
func ComputeFoodStats(logs []journal.LogRecord) FoodStatsMap {
	stats := make(FoodStatsMap)

	type badStool struct {
		at       time.Time
		severity int
	}
	var bad []badStool
	for _, r := range logs {
		if info := ClassifyLog(r); info.IsProblem {
			bad = append(bad, badStool{at: r.Timestamp, severity: info.Severity})
		}
	}
	sort.SliceStable(bad, func(i, j int) bool { return bad[i].at.Before(bad[j].at) })

	for _, r := range logs {
		if !r.IsFood() || r.Food.IsScavenged {
			continue
		}
		key := journal.FoodKey(r.Food.Name)
		if key == "" {
			continue
		}

		s := stats[key]
		s.TotalCount++

		end := r.Timestamp.Add(OutcomeWindow)
		first := sort.Search(len(bad), func(i int) bool { return bad[i].at.After(r.Timestamp) })
		for i := first; i < len(bad) && bad[i].at.Before(end); i++ {
			s.WeightedBadOutcomeCount += float64(bad[i].severity)
		}
		stats[key] = s
	}

	return stats
}
