package analysis

import (
	"math"
	"time"

	"github.com/achalasani15/gut-check-app/internal/journal"
)

const (
	// DefaultWindowDays is the gut score window when none is configured.
	DefaultWindowDays = 7

	baseDailyScore     = 100
	severityPenalty    = 20
	scavengingPenalty  = 50
	goodScoreThreshold = 80
	fairScoreThreshold = 50
)

// DailyScore is the gut score of one local calendar day.
type DailyScore struct {
	Date  time.Time `json:"date"`
	Score int       `json:"score"`
}

// DailyScoreSeries is ordered oldest to newest.
type DailyScoreSeries []DailyScore

// Average is the unrounded mean score, 0 for an empty series.
func (s DailyScoreSeries) Average() float64 {
	if len(s) == 0 {
		return 0
	}
	total := 0
	for _, d := range s {
		total += d.Score
	}
	return float64(total) / float64(len(s))
}

// RoundedAverage is the mean rounded to the nearest integer for display.
func (s DailyScoreSeries) RoundedAverage() int {
	return int(math.Round(s.Average()))
}

// ScoreBand names the colour band of a gut score: good, fair or poor.
func ScoreBand(score int) string {
	switch {
	case score >= goodScoreThreshold:
		return "good"
	case score >= fairScoreThreshold:
		return "fair"
	default:
		return "poor"
	}
}

// ComputeDailyScores returns windowDays entries ending on the reference's
// local day. Each day starts at 100, loses severity*20 per problematic stool
// and 50 per scavenged food, and is clamped at 0.
func ComputeDailyScores(logs []journal.LogRecord, windowDays int, reference time.Time, loc *time.Location) DailyScoreSeries {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if loc == nil {
		loc = time.Local
	}

	ref := reference.In(loc)
	days := make(DailyScoreSeries, windowDays)
	index := make(map[string]int, windowDays)
	for i := 0; i < windowDays; i++ {
		day := time.Date(ref.Year(), ref.Month(), ref.Day()-(windowDays-1-i), 0, 0, 0, 0, loc)
		days[i] = DailyScore{Date: day, Score: baseDailyScore}
		index[day.Format("2006-01-02")] = i
	}

	for _, r := range logs {
		i, ok := index[r.Timestamp.In(loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		if info := ClassifyLog(r); info.IsProblem {
			days[i].Score -= info.Severity * severityPenalty
		}
		if r.IsScavengedFood() {
			days[i].Score -= scavengingPenalty
		}
	}

	for i := range days {
		if days[i].Score < 0 {
			days[i].Score = 0
		}
	}
	return days
}
