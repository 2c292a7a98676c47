package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/achalasani15/gut-check-app/internal/config"
	"github.com/achalasani15/gut-check-app/internal/database"
	"github.com/achalasani15/gut-check-app/internal/journal"
	"github.com/achalasani15/gut-check-app/internal/logger"
)

func setup(t *testing.T, cfg *config.Config) (*Pipeline, *database.DB, *journal.Pet) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pet, _ := db.CreatePet("Theo")
	now := time.Now()
	db.InsertLog(pet.ID, journal.NewFoodLog(now.Add(-3*time.Hour), journal.Food{Name: "Lamb Treats"}))
	db.InsertLog(pet.ID, journal.NewStoolLog(now.Add(-time.Hour), 5))

	p, err := NewWithProvider(cfg, db, nil, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p, db, pet
}

func TestRunWithRecalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>R</title>
<item><title>Lamb Treats recalled</title><link>http://%s/lamb</link><pubDate>%s</pubDate></item>
</channel></rss>`, r.Host, time.Now().Format(time.RFC1123Z))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Analysis.Timezone = "UTC"
	cfg.Recalls.Feeds = []config.Feed{{URL: srv.URL, Name: "FDA"}}
	p, db, pet := setup(t, cfg)

	result := p.Run(context.Background(), pet, time.Now())
	if result.Failed() {
		t.Fatalf("unexpected failure: %+v", result.Steps)
	}
	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(result.Steps))
	}
	names := []string{"Recalls", "Fetch", "Report"}
	for i, s := range result.Steps {
		if s.Name != names[i] {
			t.Errorf("step %d: expected %s, got %s", i, names[i], s.Name)
		}
	}
	if !strings.Contains(result.Steps[0].Summary, "Found 1 new") {
		t.Errorf("unexpected recall summary %q", result.Steps[0].Summary)
	}

	report, _ := db.GetReport(pet.ID, result.PeriodID)
	if report == nil {
		t.Fatal("expected stored report")
	}
	if !strings.Contains(report.BodyMarkdown, "## Recall Alerts") {
		t.Error("expected recall alerts in report body")
	}
}

func TestRunRecallsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Recalls.Enabled = false
	p, _, pet := setup(t, cfg)

	result := p.Run(context.Background(), pet, time.Now())
	if len(result.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(result.Steps))
	}
	if result.Steps[0].Summary != "Recall watch disabled" {
		t.Errorf("unexpected summary %q", result.Steps[0].Summary)
	}
	if result.Steps[1].Err != nil {
		t.Errorf("unexpected error: %v", result.Steps[1].Err)
	}
}

func TestDryRun(t *testing.T) {
	cfg := config.Default()
	cfg.Recalls.Keywords = []string{"salmonella"}
	p, db, pet := setup(t, cfg)

	result := p.DryRun(pet, time.Now())
	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(result.Steps))
	}
	for _, s := range result.Steps {
		if !strings.HasPrefix(s.Summary, "[dry-run]") {
			t.Errorf("expected dry-run summary, got %q", s.Summary)
		}
	}
	if !strings.Contains(result.Steps[0].Summary, "2 terms") {
		t.Errorf("expected food + keyword terms, got %q", result.Steps[0].Summary)
	}

	reports, _ := db.GetAllReports(pet.ID)
	if len(reports) != 0 {
		t.Error("dry run must not write reports")
	}
}
