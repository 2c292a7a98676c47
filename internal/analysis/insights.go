package analysis

import "github.com/achalasani15/gut-check-app/internal/journal"

// TopTriggerThreshold is the score a food must exceed to be a top trigger.
const TopTriggerThreshold = 2

// Insights are the headline findings shown on the dashboard.
type Insights struct {
	TopTrigger    *FoodScore         `json:"top_trigger,omitempty"`
	TopSafeFood   string             `json:"top_safe_food,omitempty"`
	LastScavenged *journal.LogRecord `json:"last_scavenged,omitempty"`
}

// Empty reports whether there is nothing to show yet.
func (i Insights) Empty() bool {
	return i.TopTrigger == nil && i.TopSafeFood == "" && i.LastScavenged == nil
}

// SelectInsights picks the top trigger (highest score above the threshold),
// the first food ever marked safe, and the most recent scavenging incident
// by timestamp.
func SelectInsights(logs []journal.LogRecord, stats FoodStatsMap) Insights {
	var out Insights

	for _, key := range stats.Keys() {
		score, ok := stats[key].ScoreOK()
		if !ok || score <= TopTriggerThreshold {
			continue
		}
		if out.TopTrigger == nil || score > out.TopTrigger.Score {
			out.TopTrigger = &FoodScore{Name: key, Score: score, Band: BandFor(score)}
		}
	}

	for _, r := range logs {
		if !r.IsFood() {
			continue
		}
		if out.TopSafeFood == "" && r.Food.IsSafe {
			out.TopSafeFood = r.Food.Name
		}
		if r.Food.IsScavenged && (out.LastScavenged == nil || r.Timestamp.After(out.LastScavenged.Timestamp)) {
			rec := r
			out.LastScavenged = &rec
		}
	}

	return out
}
