package analysis

import (
	"sync"
	"time"

	"github.com/achalasani15/gut-check-app/internal/journal"
)

// Options tunes dashboard computation.
type Options struct {
	WindowDays int
	Location   *time.Location
}

func (o Options) withDefaults() Options {
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// Dashboard bundles every derived view of one snapshot.
type Dashboard struct {
	PetID     string                   `json:"pet_id"`
	Version   int64                    `json:"version"`
	Reference time.Time                `json:"reference"`
	Stats     FoodStatsMap             `json:"stats"`
	Ranking   []FoodScore              `json:"ranking"`
	Scores    DailyScoreSeries         `json:"scores"`
	Average   float64                  `json:"average"`
	Rounded   int                      `json:"rounded_average"`
	Insights  Insights                 `json:"insights"`
	Triggers  map[string]TriggerResult `json:"triggers"`
}

// Today returns the score of the reference day.
func (d *Dashboard) Today() DailyScore {
	if len(d.Scores) == 0 {
		return DailyScore{Score: baseDailyScore}
	}
	return d.Scores[len(d.Scores)-1]
}

// Build computes a dashboard from a snapshot. It never mutates the snapshot.
func Build(snap journal.Snapshot, reference time.Time, opts Options) *Dashboard {
	opts = opts.withDefaults()

	stats := ComputeFoodStats(snap.Logs)
	scores := ComputeDailyScores(snap.Logs, opts.WindowDays, reference, opts.Location)

	triggers := make(map[string]TriggerResult)
	for _, r := range snap.Logs {
		if IsBadStool(r) {
			triggers[r.ID] = FindTriggers(r, snap.Logs, stats)
		}
	}

	return &Dashboard{
		PetID:     snap.PetID,
		Version:   snap.Version,
		Reference: reference,
		Stats:     stats,
		Ranking:   stats.Ranking(),
		Scores:    scores,
		Average:   scores.Average(),
		Rounded:   scores.RoundedAverage(),
		Insights:  SelectInsights(snap.Logs, stats),
		Triggers:  triggers,
	}
}

type memoEntry struct {
	version int64
	day     string
	dash    *Dashboard
}

// Memo caches the latest dashboard per pet, keyed by journal version and
// reference day. Callers must treat returned dashboards as read-only.
type Memo struct {
	opts Options

	mu      sync.Mutex
	entries map[string]memoEntry
	hits    int
}

// NewMemo creates an empty cache.
func NewMemo(opts Options) *Memo {
	return &Memo{opts: opts.withDefaults(), entries: make(map[string]memoEntry)}
}

// Dashboard returns the cached dashboard for the snapshot, building it when
// the version or the reference day changed.
func (m *Memo) Dashboard(snap journal.Snapshot, reference time.Time) *Dashboard {
	day := reference.In(m.opts.Location).Format("2006-01-02")

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[snap.PetID]; ok && e.version == snap.Version && e.day == day {
		m.hits++
		return e.dash
	}
	dash := Build(snap, reference, m.opts)
	m.entries[snap.PetID] = memoEntry{version: snap.Version, day: day, dash: dash}
	return dash
}

// Hits returns how many lookups were served from cache.
func (m *Memo) Hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}
