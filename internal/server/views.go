package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/journal"
)

// entryView is one timeline row.
type entryView struct {
	Record   journal.LogRecord
	Summary  string
	Stool    *analysis.StoolInfo
	Food     *analysis.FoodScore
	Triggers []analysis.ScoredCandidate
}

type dayView struct {
	Label   string
	Entries []entryView
}

func buildTimeline(logs []journal.LogRecord, dash *analysis.Dashboard, loc *time.Location) []dayView {
	groups := journal.GroupByDay(logs, loc)
	days := make([]dayView, 0, len(groups))
	for _, g := range groups {
		day := dayView{Label: g.Label()}
		for _, r := range g.Logs {
			e := entryView{Record: r, Summary: r.Summary()}
			switch {
			case r.Kind == journal.KindStool && r.Stool != nil:
				info := analysis.ClassifyLog(r)
				e.Stool = &info
				if info.IsProblem {
					e.Triggers = dash.Triggers[r.ID].Ranked()
				}
			case r.IsFood() && !r.Food.IsScavenged:
				if st, ok := dash.Stats.Lookup(r.Food.Name); ok {
					score := st.Score()
					e.Food = &analysis.FoodScore{Name: r.Food.Name, Score: score, Band: analysis.BandFor(score)}
				}
			}
			day.Entries = append(day.Entries, e)
		}
		days = append(days, day)
	}
	return days
}

// suspects keeps the foods with a positive suspect score.
func suspects(ranking []analysis.FoodScore) []analysis.FoodScore {
	return lo.Filter(ranking, func(f analysis.FoodScore, _ int) bool {
		return f.Score > 0
	})
}

func parseFilters(r *http.Request) (journal.Kind, string, error) {
	q := r.URL.Query()
	term := strings.TrimSpace(q.Get("q"))
	raw := q.Get("kind")
	if raw == "" || raw == "all" {
		return "", term, nil
	}
	kind, err := journal.ParseKind(raw)
	if err != nil {
		return "", "", err
	}
	return kind, term, nil
}

// logFromForm builds a record from the add-log form. date and time are local
// to loc and default to now.
func logFromForm(r *http.Request, now time.Time, loc *time.Location) (journal.LogRecord, error) {
	if err := r.ParseForm(); err != nil {
		return journal.LogRecord{}, fmt.Errorf("parsing form: %w", err)
	}
	kind, err := journal.ParseKind(r.FormValue("kind"))
	if err != nil {
		return journal.LogRecord{}, err
	}

	local := now.In(loc)
	date := strings.TrimSpace(r.FormValue("date"))
	if date == "" {
		date = local.Format("2006-01-02")
	}
	clock := strings.TrimSpace(r.FormValue("time"))
	if clock == "" {
		clock = local.Format("15:04")
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return journal.LogRecord{}, fmt.Errorf("invalid date or time: %q %q", date, clock)
	}

	switch kind {
	case journal.KindFood:
		return journal.NewFoodLog(at, journal.Food{
			Name:        strings.TrimSpace(r.FormValue("name")),
			Quantity:    strings.TrimSpace(r.FormValue("quantity")),
			IsScavenged: checked(r.FormValue("scavenged")),
			IsSafe:      checked(r.FormValue("safe")),
		}), nil
	case journal.KindStool:
		code, err := strconv.Atoi(strings.TrimSpace(r.FormValue("code")))
		if err != nil {
			return journal.LogRecord{}, fmt.Errorf("invalid stool code %q", r.FormValue("code"))
		}
		return journal.NewStoolLog(at, code), nil
	case journal.KindSymptom:
		return journal.NewSymptomLog(at, journal.SplitList(r.FormValue("symptoms"))...), nil
	default:
		return journal.NewNoteLog(at, strings.TrimSpace(r.FormValue("text"))), nil
	}
}

func checked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}


func isValidation(err error) bool {
	var ve *journal.ValidationError
	return errors.As(err, &ve)
}
