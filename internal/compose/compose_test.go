package compose

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/database"
	"github.com/achalasani15/gut-check-app/internal/journal"
)

type mockProvider struct {
	response string
	err      error
	prompt   string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

var end = time.Date(2026, 2, 6, 20, 0, 0, 0, time.UTC)

func seedJournal(t *testing.T, db *database.DB) *journal.Pet {
	t.Helper()
	pet, err := db.CreatePet("Theo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	day := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	records := []journal.LogRecord{
		journal.NewFoodLog(day.Add(8*time.Hour), journal.Food{Name: "Prescription Kibble", IsSafe: true}),
		journal.NewFoodLog(day.Add(12*time.Hour), journal.Food{Name: "Lamb Treats"}),
		journal.NewStoolLog(day.Add(18*time.Hour), 5),
		journal.NewFoodLog(day.Add(16*time.Hour), journal.Food{Name: "Cheese", IsScavenged: true}),
		journal.NewSymptomLog(day.Add(21*time.Hour), "Vomiting"),
		journal.NewNoteLog(day.Add(22*time.Hour), "Seemed tired"),
		journal.NewStoolLog(day.Add(30*time.Hour), 3),
	}
	for _, r := range records {
		if _, err := db.InsertLog(pet.ID, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return pet
}

func newComposer(db *database.DB, p *mockProvider) *Composer {
	opts := analysis.Options{WindowDays: 7, Location: time.UTC}
	if p == nil {
		return NewComposer(db, nil, opts, nil)
	}
	return NewComposer(db, p, opts, nil)
}

func TestComposeReport(t *testing.T) {
	db := openTestDB(t)
	pet := seedJournal(t, db)
	db.InsertRecallNotice("https://fda.example/1", "Lamb treats recalled", ptr("FDA"), ptr("2026-02-04"), nil, []string{"lamb treats"})

	resp, _ := json.Marshal(map[string]any{
		"tldr_bullets": []string{
			"Theo had one liquid stool after lamb treats",
			"Keep lamb treats out for a week",
		},
	})
	provider := &mockProvider{response: string(resp)}

	report, err := newComposer(db, provider).ComposeReport(context.Background(), pet, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report == nil {
		t.Fatal("expected report")
	}
	if report.PeriodID != "2026-01-31..2026-02-06" {
		t.Errorf("expected period '2026-01-31..2026-02-06', got %q", report.PeriodID)
	}
	if report.LogCount != 7 {
		t.Errorf("expected 7 logs, got %d", report.LogCount)
	}
	// Feb 5: 100 - 60 (liquid) - 50 (scavenged) clamps to 0; other days 100.
	if report.AverageScore != 86 {
		t.Errorf("expected average 86, got %d", report.AverageScore)
	}
	if !strings.Contains(report.TLDR, "- Theo had one liquid stool") {
		t.Errorf("expected LLM bullets, got %q", report.TLDR)
	}
	for _, want := range []string{"## Gut Score", "## Problem Stools", "lamb treats", "Lamb Treats [Likely Problematic]", "Cheese [High Risk]", "## Recall Alerts", "Vomiting", "**Safe bet:** Prescription Kibble"} {
		if !strings.Contains(report.BodyMarkdown, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
	if !strings.Contains(provider.prompt, "Recall notice matching lamb treats") {
		t.Errorf("expected recall fact in prompt, got %q", provider.prompt)
	}
}

func TestComposeEmptyPeriod(t *testing.T) {
	db := openTestDB(t)
	pet, _ := db.CreatePet("Theo")

	report, err := newComposer(db, &mockProvider{}).ComposeReport(context.Background(), pet, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report == nil {
		t.Fatal("expected report")
	}
	if report.LogCount != 0 {
		t.Errorf("expected 0 logs, got %d", report.LogCount)
	}
	if report.AverageScore != 100 {
		t.Errorf("expected 100 for an empty week, got %d", report.AverageScore)
	}
}

func TestComposeFallbackWithoutProvider(t *testing.T) {
	db := openTestDB(t)
	pet := seedJournal(t, db)

	report, err := newComposer(db, nil).ComposeReport(context.Background(), pet, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(report.TLDR, "Average gut score was 86/100 (good).") {
		t.Errorf("expected fallback TL;DR, got %q", report.TLDR)
	}
	if !strings.Contains(report.TLDR, "Top suspect: lamb treats (score 3.0).") {
		t.Errorf("expected top suspect in fallback, got %q", report.TLDR)
	}
}

func TestComposeFallbackOnProviderError(t *testing.T) {
	db := openTestDB(t)
	pet := seedJournal(t, db)

	p := &mockProvider{err: errors.New("connection refused")}
	report, err := newComposer(db, p).ComposeReport(context.Background(), pet, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(report.TLDR, "1 problematic stool was logged.") {
		t.Errorf("expected fallback TL;DR, got %q", report.TLDR)
	}
}

func TestComposeReplacesPeriodReport(t *testing.T) {
	db := openTestDB(t)
	pet := seedJournal(t, db)
	c := newComposer(db, nil)

	if _, err := c.ComposeReport(context.Background(), pet, end); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.ComposeReport(context.Background(), pet, end.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, _ := db.GetAllReports(pet.ID)
	if len(all) != 1 {
		t.Errorf("expected a single report for the period, got %d", len(all))
	}
}
