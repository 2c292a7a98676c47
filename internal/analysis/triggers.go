package analysis

import (
	"sort"

	"github.com/achalasani15/gut-check-app/internal/journal"
)

// Band is the presentation class of a trigger candidate.
type Band string

const (
	BandHighRisk           Band = "High Risk"
	BandLikelyProblematic  Band = "Likely Problematic"
	BandNeedsInvestigation Band = "Needs Investigation"
	BandLikelySafe         Band = "Likely Safe"
)

// BandFor classifies a suspect score.
func BandFor(score float64) Band {
	switch {
	case score > 2:
		return BandLikelyProblematic
	case score > 0:
		return BandNeedsInvestigation
	default:
		return BandLikelySafe
	}
}

// ScoredCandidate is a food eaten before a bad stool, with its suspect score.
type ScoredCandidate struct {
	Food         journal.LogRecord `json:"food"`
	SuspectScore float64           `json:"suspect_score"`
	Band         Band              `json:"band"`
}

// TriggerResult lists the candidate causes of one bad stool.
type TriggerResult struct {
	Scored    []ScoredCandidate   `json:"scored"`
	Scavenged []journal.LogRecord `json:"scavenged"`
}

// Empty reports whether there are no candidates at all.
func (t TriggerResult) Empty() bool {
	return len(t.Scored) == 0 && len(t.Scavenged) == 0
}

// Ranked returns all candidates in presentation order: scavenged items as
// High Risk first, then scored foods by descending score.
func (t TriggerResult) Ranked() []ScoredCandidate {
	out := make([]ScoredCandidate, 0, len(t.Scavenged)+len(t.Scored))
	for _, r := range t.Scavenged {
		out = append(out, ScoredCandidate{Food: r, Band: BandHighRisk})
	}
	return append(out, t.Scored...)
}

// FindTriggers returns the non-safe foods eaten in the 24 hours up to and
// including the stool event. The window excludes exactly 24h before.
// Non-problematic stools have no triggers.
func FindTriggers(stool journal.LogRecord, logs []journal.LogRecord, stats FoodStatsMap) TriggerResult {
	result := TriggerResult{Scored: []ScoredCandidate{}, Scavenged: []journal.LogRecord{}}
	if !IsBadStool(stool) {
		return result
	}

	start := stool.Timestamp.Add(-OutcomeWindow)
	for _, r := range logs {
		if !r.IsFood() || r.Food.IsSafe {
			continue
		}
		if !r.Timestamp.After(start) || r.Timestamp.After(stool.Timestamp) {
			continue
		}
		if r.Food.IsScavenged {
			result.Scavenged = append(result.Scavenged, r)
			continue
		}
		score := stats.ScoreFor(r.Food.Name)
		result.Scored = append(result.Scored, ScoredCandidate{Food: r, SuspectScore: score, Band: BandFor(score)})
	}

	sort.SliceStable(result.Scored, func(i, j int) bool {
		return result.Scored[i].SuspectScore > result.Scored[j].SuspectScore
	})
	return result
}
