package compose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/database"
	"github.com/achalasani15/gut-check-app/internal/journal"
	"github.com/achalasani15/gut-check-app/internal/llm"
	"github.com/achalasani15/gut-check-app/internal/logger"
)

const composePrompt = `You are writing the TL;DR of a weekly digestive health report for a pet owner.

Pet: %s
Period: %s

Facts from the journal:
%s

Write 3-5 bullet points a caring owner can act on. Each bullet is one plain sentence. Do not diagnose; suggest talking to a vet when something looks serious.

Respond with ONLY this JSON:
{
    "tldr_bullets": [
        "First takeaway",
        "Second takeaway"
    ]
}`

const maxSuspects = 5

// Composer builds periodic journal reports.
type Composer struct {
	db       *database.DB
	provider llm.Provider
	opts     analysis.Options
	log      *logger.Logger
}

// NewComposer creates a new report composer. provider may be nil, in which
// case the TL;DR is built from the facts directly.
func NewComposer(db *database.DB, provider llm.Provider, opts analysis.Options, log *logger.Logger) *Composer {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = analysis.DefaultWindowDays
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Composer{db: db, provider: provider, opts: opts, log: log.Component("compose")}
}

// PeriodID returns the report period ending on end's local day.
func (c *Composer) PeriodID(end time.Time) string {
	return database.WindowPeriodID(end.In(c.opts.Location), c.opts.WindowDays)
}

// ComposeReport composes and stores the report for the window ending at end.
func (c *Composer) ComposeReport(ctx context.Context, pet *journal.Pet, end time.Time) (*database.Report, error) {
	snap, err := c.db.Snapshot(pet.ID)
	if err != nil {
		return nil, fmt.Errorf("loading journal: %w", err)
	}

	end = end.In(c.opts.Location)
	periodID := c.PeriodID(end)
	start, endOfDay := periodBounds(end, c.opts.WindowDays)
	inPeriod := logsBetween(snap.Logs, start, endOfDay)

	recalls, err := c.db.GetRecallNoticesSince(start.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("loading recall notices: %w", err)
	}

	report := database.Report{PetID: pet.ID, PeriodID: periodID, LogCount: len(inPeriod)}

	if len(inPeriod) == 0 {
		c.log.WithField("period", periodID).Info("no logs in period")
		report.TLDR = "- No logs recorded this period."
		report.BodyMarkdown = "Nothing was logged for this period."
		report.AverageScore = analysis.ComputeDailyScores(nil, c.opts.WindowDays, end, c.opts.Location).RoundedAverage()
	} else {
		dash := analysis.Build(*snap, end, c.opts)
		f := gatherFacts(dash, inPeriod, recalls)
		report.AverageScore = dash.Rounded
		report.TLDR = c.generateTLDR(ctx, pet.Name, periodID, f)
		report.BodyMarkdown = assembleBody(dash, f, c.opts.Location)
	}

	if _, err := c.db.InsertReport(report); err != nil {
		return nil, fmt.Errorf("storing report: %w", err)
	}

	stored, err := c.db.GetReport(pet.ID, periodID)
	if err != nil {
		return nil, err
	}
	c.log.WithField("period", periodID).WithField("logs", len(inPeriod)).Info("report composed")
	return stored, nil
}

// facts are the period findings shared by the TL;DR and the body.
type facts struct {
	average     int
	band        string
	worstDay    *analysis.DailyScore
	badStools   []journal.LogRecord
	scavenged   []journal.LogRecord
	symptoms    []journal.LogRecord
	notes       []journal.LogRecord
	suspects    []analysis.FoodScore
	insights    analysis.Insights
	recalls     []database.RecallNotice
	triggersFor map[string]analysis.TriggerResult
}

func gatherFacts(dash *analysis.Dashboard, inPeriod []journal.LogRecord, recalls []database.RecallNotice) facts {
	f := facts{
		average:     dash.Rounded,
		band:        analysis.ScoreBand(dash.Rounded),
		insights:    dash.Insights,
		recalls:     recalls,
		triggersFor: dash.Triggers,
	}
	for i, d := range dash.Scores {
		if f.worstDay == nil || d.Score < f.worstDay.Score {
			f.worstDay = &dash.Scores[i]
		}
	}
	for _, r := range inPeriod {
		switch {
		case analysis.IsBadStool(r):
			f.badStools = append(f.badStools, r)
		case r.IsScavengedFood():
			f.scavenged = append(f.scavenged, r)
		case r.Kind == journal.KindSymptom && r.Symptom != nil:
			f.symptoms = append(f.symptoms, r)
		case r.Kind == journal.KindNote && r.Note != nil:
			f.notes = append(f.notes, r)
		}
	}
	for _, s := range dash.Ranking {
		if s.Score <= 0 || len(f.suspects) == maxSuspects {
			break
		}
		f.suspects = append(f.suspects, s)
	}
	return f
}

func (f facts) lines() []string {
	lines := []string{fmt.Sprintf("Average gut score: %d/100 (%s)", f.average, f.band)}
	if f.worstDay != nil && f.worstDay.Score < 100 {
		lines = append(lines, fmt.Sprintf("Worst day: %s with %d", f.worstDay.Date.Format("Mon Jan 2"), f.worstDay.Score))
	}
	lines = append(lines, fmt.Sprintf("Problematic stools: %d", len(f.badStools)))
	if len(f.scavenged) > 0 {
		lines = append(lines, fmt.Sprintf("Scavenging incidents: %d", len(f.scavenged)))
	}
	for _, s := range f.suspects {
		lines = append(lines, fmt.Sprintf("Suspect food: %s, score %.1f (%s)", s.Name, s.Score, s.Band))
	}
	if f.insights.TopSafeFood != "" {
		lines = append(lines, "Food marked safe: "+f.insights.TopSafeFood)
	}
	for _, s := range f.symptoms {
		lines = append(lines, "Symptom: "+strings.Join(s.Symptom.Descriptions, ", "))
	}
	for _, r := range f.recalls {
		lines = append(lines, fmt.Sprintf("Recall notice matching %s: %s", strings.Join(r.MatchedTerms, ", "), r.Title))
	}
	return lines
}

func (c *Composer) generateTLDR(ctx context.Context, petName, periodID string, f facts) string {
	if c.provider == nil {
		return fallbackTLDR(f)
	}

	prompt := fmt.Sprintf(composePrompt, petName, database.FormatPeriodDisplay(periodID),
		"- "+strings.Join(f.lines(), "\n- "))
	responseText, err := c.provider.Generate(ctx, prompt, 512)
	if err != nil {
		c.log.WithError(err).Warn("TL;DR generation failed, using fallback")
		return fallbackTLDR(f)
	}
	if strings.TrimSpace(responseText) == "" {
		return fallbackTLDR(f)
	}

	if bullets := llm.StringList(llm.ParseJSONResponse(responseText), "tldr_bullets"); len(bullets) > 0 {
		return "- " + strings.Join(bullets, "\n- ")
	}
	return strings.TrimSpace(responseText)
}

func fallbackTLDR(f facts) string {
	bullets := []string{fmt.Sprintf("Average gut score was %d/100 (%s).", f.average, f.band)}
	switch len(f.badStools) {
	case 0:
		bullets = append(bullets, "No problematic stools were logged.")
	case 1:
		bullets = append(bullets, "1 problematic stool was logged.")
	default:
		bullets = append(bullets, fmt.Sprintf("%d problematic stools were logged.", len(f.badStools)))
	}
	if f.insights.TopTrigger != nil {
		bullets = append(bullets, fmt.Sprintf("Top suspect: %s (score %.1f).", f.insights.TopTrigger.Name, f.insights.TopTrigger.Score))
	}
	if len(f.scavenged) > 0 {
		bullets = append(bullets, fmt.Sprintf("%d scavenging incident(s) this period.", len(f.scavenged)))
	}
	if len(f.recalls) > 0 {
		bullets = append(bullets, fmt.Sprintf("%d recall notice(s) mention foods in the journal.", len(f.recalls)))
	}
	return "- " + strings.Join(bullets, "\n- ")
}

func assembleBody(dash *analysis.Dashboard, f facts, loc *time.Location) string {
	var sections []string

	var score strings.Builder
	score.WriteString("## Gut Score\n\n| Day | Score | |\n|---|---|---|\n")
	for _, d := range dash.Scores {
		fmt.Fprintf(&score, "| %s | %d | %s |\n", d.Date.Format("Mon Jan 2"), d.Score, analysis.ScoreBand(d.Score))
	}
	fmt.Fprintf(&score, "\nAverage: **%d** (%s)", f.average, f.band)
	sections = append(sections, score.String())

	if !f.insights.Empty() {
		var lines []string
		if t := f.insights.TopTrigger; t != nil {
			lines = append(lines, fmt.Sprintf("- **Top trigger:** %s (score %.1f)", t.Name, t.Score))
		}
		if f.insights.TopSafeFood != "" {
			lines = append(lines, fmt.Sprintf("- **Safe bet:** %s", f.insights.TopSafeFood))
		}
		if s := f.insights.LastScavenged; s != nil {
			lines = append(lines, fmt.Sprintf("- **Last scavenged:** %s on %s", s.Food.Name, s.Timestamp.In(loc).Format("Jan 2")))
		}
		sections = append(sections, "## Insights\n\n"+strings.Join(lines, "\n"))
	}

	if len(f.suspects) > 0 {
		var b strings.Builder
		b.WriteString("## Suspect Foods\n\n| Food | Score | Band |\n|---|---|---|\n")
		for _, s := range f.suspects {
			fmt.Fprintf(&b, "| %s | %.2f | %s |\n", s.Name, s.Score, s.Band)
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	if len(f.badStools) > 0 {
		var lines []string
		for _, st := range f.badStools {
			info := analysis.ClassifyLog(st)
			line := fmt.Sprintf("- %s: type %d, %s (%s)", st.Timestamp.In(loc).Format("Mon Jan 2 15:04"),
				info.Code, info.Sublabel, info.Label)
			var names []string
			for _, cand := range f.triggersFor[st.ID].Ranked() {
				names = append(names, fmt.Sprintf("%s [%s]", cand.Food.Food.Name, cand.Band))
			}
			if len(names) > 0 {
				line += "\n  - possible triggers: " + strings.Join(names, ", ")
			}
			lines = append(lines, line)
		}
		sections = append(sections, "## Problem Stools\n\n"+strings.Join(lines, "\n"))
	}

	if len(f.symptoms)+len(f.notes) > 0 {
		var lines []string
		for _, r := range append(append([]journal.LogRecord{}, f.symptoms...), f.notes...) {
			lines = append(lines, fmt.Sprintf("- %s: %s", r.Timestamp.In(loc).Format("Mon Jan 2 15:04"), r.Summary()))
		}
		sections = append(sections, "## Symptoms & Notes\n\n"+strings.Join(lines, "\n"))
	}

	if len(f.recalls) > 0 {
		var lines []string
		for _, r := range f.recalls {
			lines = append(lines, fmt.Sprintf("- [%s](%s) (matched: %s)", r.Title, r.URL, strings.Join(r.MatchedTerms, ", ")))
		}
		sections = append(sections, "## Recall Alerts\n\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(sections, "\n\n---\n\n")
}

func periodBounds(end time.Time, days int) (time.Time, time.Time) {
	loc := end.Location()
	start := time.Date(end.Year(), end.Month(), end.Day()-(days-1), 0, 0, 0, 0, loc)
	endOfDay := time.Date(end.Year(), end.Month(), end.Day()+1, 0, 0, 0, 0, loc)
	return start, endOfDay
}

func logsBetween(logs []journal.LogRecord, start, end time.Time) []journal.LogRecord {
	var out []journal.LogRecord
	for _, r := range logs {
		if !r.Timestamp.Before(start) && r.Timestamp.Before(end) {
			out = append(out, r)
		}
	}
	return out
}
