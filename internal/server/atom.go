package server

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/database"
	"github.com/achalasani15/gut-check-app/internal/journal"
)

const maxFeedEntries = 50

type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Title   string      `xml:"title"`
	ID      string      `xml:"id"`
	Updated string      `xml:"updated"`
	Links   []atomLink  `xml:"link"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomEntry struct {
	Title    string         `xml:"title"`
	ID       string         `xml:"id"`
	Updated  string         `xml:"updated"`
	Link     *atomLink      `xml:"link,omitempty"`
	Category []atomCategory `xml:"category"`
	Summary  string         `xml:"summary"`
}

type alert struct {
	at    time.Time
	entry atomEntry
}

func (s *Server) handleAlertsFeed(w http.ResponseWriter, r *http.Request) {
	pet, logs, dash, err := s.load()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	recalls, err := s.db.GetRecallNotices(20)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	feed := atomFeed{
		Title: "Gut Check alerts",
		ID:    "urn:gutcheck:alerts",
		Links: []atomLink{{Href: "/alerts.atom", Rel: "self"}, {Href: "/dashboard"}},
	}
	if pet != nil {
		feed.Title = pet.Name + " - Gut Check alerts"
		feed.ID = "urn:uuid:" + pet.ID
	}

	var alerts []alert
	if dash != nil {
		alerts = append(alerts, logAlerts(logs, dash)...)
	}
	alerts = append(alerts, recallAlerts(recalls, s.now())...)

	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].at.After(alerts[j].at) })
	if len(alerts) > maxFeedEntries {
		alerts = alerts[:maxFeedEntries]
	}

	updated := s.now()
	if len(alerts) > 0 {
		updated = alerts[0].at
	}
	feed.Updated = updated.UTC().Format(time.RFC3339)
	for _, a := range alerts {
		feed.Entries = append(feed.Entries, a.entry)
	}

	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(feed); err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("failed to write feed")
	}
}

// logAlerts turns scavenging incidents and problematic stools into entries.
func logAlerts(logs []journal.LogRecord, dash *analysis.Dashboard) []alert {
	var out []alert
	for _, r := range logs {
		stamp := r.Timestamp.UTC().Format(time.RFC3339)
		switch {
		case r.IsScavengedFood():
			out = append(out, alert{at: r.Timestamp, entry: atomEntry{
				Title:    "Scavenged: " + r.Food.Name,
				ID:       "urn:uuid:" + r.ID,
				Updated:  stamp,
				Category: []atomCategory{{Term: "scavenged"}},
				Summary:  r.Summary(),
			}})
		case analysis.IsBadStool(r):
			info := analysis.ClassifyLog(r)
			out = append(out, alert{at: r.Timestamp, entry: atomEntry{
				Title:    fmt.Sprintf("Problem stool: %s (%s)", info.Label, info.Sublabel),
				ID:       "urn:uuid:" + r.ID,
				Updated:  stamp,
				Category: []atomCategory{{Term: "stool"}},
				Summary:  triggerSummary(dash.Triggers[r.ID]),
			}})
		}
	}
	return out
}

func triggerSummary(t analysis.TriggerResult) string {
	ranked := t.Ranked()
	if len(ranked) == 0 {
		return "No suspect foods in the previous 24 hours."
	}
	parts := make([]string, 0, len(ranked))
	for _, c := range ranked {
		parts = append(parts, fmt.Sprintf("%s [%s]", c.Food.Food.Name, c.Band))
	}
	return "Possible triggers: " + strings.Join(parts, ", ")
}

func recallAlerts(recalls []database.RecallNotice, fallback time.Time) []alert {
	out := make([]alert, 0, len(recalls))
	for _, n := range recalls {
		at := noticeTime(n, fallback)
		out = append(out, alert{at: at, entry: atomEntry{
			Title:    "Recall: " + n.Title,
			ID:       fmt.Sprintf("urn:gutcheck:recall:%d", n.ID),
			Updated:  at.UTC().Format(time.RFC3339),
			Link:     &atomLink{Href: n.URL},
			Category: []atomCategory{{Term: "recall"}},
			Summary:  "Matched: " + strings.Join(n.MatchedTerms, ", "),
		}})
	}
	return out
}

func noticeTime(n database.RecallNotice, fallback time.Time) time.Time {
	for _, s := range []*string{n.PublishedDate, n.CollectedAt} {
		if s == nil {
			continue
		}
		for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
			if t, err := time.Parse(layout, *s); err == nil {
				return t
			}
		}
	}
	return fallback
}
