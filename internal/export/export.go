package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/journal"
)

const (
	SheetLogs      = "Logs"
	SheetFoodStats = "Food Stats"
	SheetGutScore  = "Gut Score"
)

// Workbook writes a pet's journal and its derived views as an XLSX file
// with one sheet each for the logs, food stats and gut score.
func Workbook(path string, pet *journal.Pet, logs []journal.LogRecord, dash *analysis.Dashboard, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetLogs); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetFoodStats, SheetGutScore} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	logRows := [][]any{{"Time", "Kind", "Details", "Flags", "Stool Label"}}
	for _, r := range logs {
		logRows = append(logRows, []any{
			r.Timestamp.In(loc).Format("2006-01-02 15:04"),
			string(r.Kind),
			details(r),
			flags(r),
			analysis.ClassifyLog(r).Label,
		})
	}

	statRows := [][]any{{"Food", "Servings", "Weighted Bad Outcomes", "Suspect Score", "Band"}}
	for _, s := range dash.Ranking {
		stats := dash.Stats[s.Name]
		statRows = append(statRows, []any{s.Name, stats.TotalCount, stats.WeightedBadOutcomeCount, s.Score, string(s.Band)})
	}

	scoreRows := [][]any{{"Date", "Score", "Band"}}
	for _, d := range dash.Scores {
		scoreRows = append(scoreRows, []any{d.Date.Format("2006-01-02"), d.Score, analysis.ScoreBand(d.Score)})
	}
	scoreRows = append(scoreRows, []any{}, []any{"Average", dash.Rounded, analysis.ScoreBand(dash.Rounded)})
	if pet != nil {
		scoreRows = append(scoreRows, []any{"Pet", pet.Name})
	}

	sheets := []struct {
		name  string
		rows  [][]any
		width float64
	}{
		{SheetLogs, logRows, 40},
		{SheetFoodStats, statRows, 24},
		{SheetGutScore, scoreRows, 14},
	}
	for _, s := range sheets {
		if err := writeRows(f, s.name, s.rows); err != nil {
			return err
		}
		if err := f.SetRowStyle(s.name, 1, 1, header); err != nil {
			return fmt.Errorf("style %s: %w", s.name, err)
		}
		if err := f.SetColWidth(s.name, "A", "E", s.width); err != nil {
			return fmt.Errorf("width %s: %w", s.name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func details(r journal.LogRecord) string {
	switch {
	case r.Kind == journal.KindFood && r.Food != nil:
		if r.Food.Quantity != "" {
			return r.Food.Name + " (" + r.Food.Quantity + ")"
		}
		return r.Food.Name
	case r.Kind == journal.KindStool && r.Stool != nil:
		info := analysis.Classify(r.Stool.QualityCode)
		return fmt.Sprintf("Type %d: %s", info.Code, info.Sublabel)
	}
	return r.Summary()
}

func flags(r journal.LogRecord) string {
	if !r.IsFood() {
		return ""
	}
	var out []string
	if r.Food.IsScavenged {
		out = append(out, "scavenged")
	}
	if r.Food.IsSafe {
		out = append(out, "safe")
	}
	return strings.Join(out, ", ")
}
