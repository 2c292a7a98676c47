package journal

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 2, 6, 8, 0, 0, 0, time.UTC)

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Stool ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != KindStool {
		t.Errorf("expected stool, got %q", k)
	}
	if _, err := ParseKind("walk"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestValidate(t *testing.T) {
	valid := []LogRecord{
		NewFoodLog(t0, Food{Name: "Chicken"}),
		NewStoolLog(t0, 3),
		NewSymptomLog(t0, "Itching"),
		NewNoteLog(t0, "Fine"),
	}
	for _, r := range valid {
		if err := r.Validate(); err != nil {
			t.Errorf("expected %s record to be valid, got %v", r.Kind, err)
		}
	}

	invalid := []struct {
		name  string
		rec   LogRecord
		field string
	}{
		{"empty food name", NewFoodLog(t0, Food{Name: "  "}), "food.name"},
		{"stool code out of range", NewStoolLog(t0, 7), "stool.quality_code"},
		{"missing timestamp", NewNoteLog(time.Time{}, "x"), "timestamp"},
		{"no payload", LogRecord{Timestamp: t0, Kind: KindStool}, "payload"},
		{"wrong payload", LogRecord{Timestamp: t0, Kind: KindFood, Note: &Note{Text: "x"}}, "food"},
		{"two payloads", LogRecord{Timestamp: t0, Kind: KindNote, Note: &Note{}, Stool: &Stool{QualityCode: 3}}, "payload"},
	}
	for _, tc := range invalid {
		err := tc.rec.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
			continue
		}
		if ve.Field != tc.field {
			t.Errorf("%s: expected field %q, got %q", tc.name, tc.field, ve.Field)
		}
	}
}

func TestFoodKey(t *testing.T) {
	if FoodKey("Chicken Breast") != "chicken breast" {
		t.Errorf("unexpected key %q", FoodKey("Chicken Breast"))
	}
	if FoodKey("Chicken ") == FoodKey("chicken") {
		t.Error("expected keys to differ on surrounding space")
	}
}

func TestNormalized(t *testing.T) {
	r := NewFoodLog(t0, Food{Name: "  Chicken ", Quantity: "1 cup"})
	n := r.Normalized()
	if n.Food.Name != "Chicken" {
		t.Errorf("expected trimmed name 'Chicken', got %q", n.Food.Name)
	}
	if r.Food.Name != "  Chicken " {
		t.Errorf("expected original record untouched, got %q", r.Food.Name)
	}

	note := NewNoteLog(t0, " keep ")
	if got := note.Normalized().Note.Text; got != " keep " {
		t.Errorf("expected note text unchanged, got %q", got)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList("vomiting, ,lethargy,,\n gas ")
	want := []string{"vomiting", "lethargy", "gas"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %q at %d, got %q", want[i], i, got[i])
		}
	}
	if got := SplitList(" , "); len(got) != 0 {
		t.Errorf("expected no items, got %v", got)
	}
}

func TestSummary(t *testing.T) {
	r := NewFoodLog(t0, Food{Name: "Cheese", Quantity: "tiny piece", IsScavenged: true})
	if got := r.Summary(); got != "[SCAVENGED] Cheese (tiny piece)" {
		t.Errorf("unexpected summary %q", got)
	}
	if got := NewStoolLog(t0, 4).Summary(); got != "Stool type 4" {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestFilterLogs(t *testing.T) {
	logs := []LogRecord{
		NewFoodLog(t0, Food{Name: "Lamb Treats"}),
		NewStoolLog(t0, 5),
		NewSymptomLog(t0, "Gurgling stomach"),
		NewNoteLog(t0, "Lots of energy"),
	}

	if got := FilterLogs(logs, "", ""); len(got) != 4 {
		t.Errorf("expected all 4 logs, got %d", len(got))
	}
	if got := FilterLogs(logs, KindFood, ""); len(got) != 1 {
		t.Errorf("expected 1 food log, got %d", len(got))
	}
	if got := FilterLogs(logs, "", "lamb"); len(got) != 1 || got[0].Kind != KindFood {
		t.Errorf("expected lamb food match, got %+v", got)
	}
	if got := FilterLogs(logs, "", "type 5"); len(got) != 1 || got[0].Kind != KindStool {
		t.Errorf("expected stool match for 'type 5', got %+v", got)
	}
	if got := FilterLogs(logs, "", "GURGLING"); len(got) != 1 {
		t.Errorf("expected case-insensitive symptom match, got %d", len(got))
	}
	if got := FilterLogs(logs, KindNote, "lamb"); len(got) != 0 {
		t.Errorf("expected no notes matching lamb, got %d", len(got))
	}
}

func TestSuggestFoodNames(t *testing.T) {
	logs := []LogRecord{
		NewFoodLog(t0, Food{Name: "Prescription Kibble"}),
		NewFoodLog(t0.Add(time.Hour), Food{Name: "New Lamb Treats"}),
		NewFoodLog(t0.Add(2*time.Hour), Food{Name: "Prescription Kibble"}),
		NewStoolLog(t0, 3),
	}
	got := SuggestFoodNames(logs, "kib")
	if len(got) != 1 || got[0] != "Prescription Kibble" {
		t.Errorf("expected one distinct suggestion, got %v", got)
	}
	if got := SuggestFoodNames(logs, ""); got != nil {
		t.Errorf("expected nil for empty term, got %v", got)
	}
}

func TestLastFlagsFor(t *testing.T) {
	logs := []LogRecord{
		NewFoodLog(t0, Food{Name: "Kibble", IsSafe: false}),
		NewFoodLog(t0.Add(24*time.Hour), Food{Name: "Kibble", IsSafe: true}),
		NewFoodLog(t0.Add(time.Hour), Food{Name: "Kibble", IsScavenged: true}),
	}
	f, ok := LastFlagsFor(logs, "Kibble")
	if !ok {
		t.Fatal("expected flags")
	}
	if !f.IsSafe || f.IsScavenged {
		t.Errorf("expected flags of the most recent record, got %+v", f)
	}
	if _, ok := LastFlagsFor(logs, "Cheese"); ok {
		t.Error("expected no flags for unknown food")
	}
}

func TestGroupByDay(t *testing.T) {
	logs := []LogRecord{
		NewFoodLog(t0, Food{Name: "A"}),
		NewStoolLog(t0.Add(26*time.Hour), 3),
		NewNoteLog(t0.Add(2*time.Hour), "x"),
	}
	groups := GroupByDay(logs, time.UTC)
	if len(groups) != 2 {
		t.Fatalf("expected 2 days, got %d", len(groups))
	}
	if groups[0].Date.Day() != 7 {
		t.Errorf("expected newest day first, got %v", groups[0].Date)
	}
	if len(groups[1].Logs) != 2 {
		t.Fatalf("expected 2 logs on first day, got %d", len(groups[1].Logs))
	}
	if groups[1].Logs[0].Kind != KindNote {
		t.Errorf("expected newest record first within a day, got %s", groups[1].Logs[0].Kind)
	}
	if groups[0].Label() != "Saturday, February 7, 2026" {
		t.Errorf("unexpected label %q", groups[0].Label())
	}
}

func TestDemoLogs(t *testing.T) {
	now := time.Date(2026, 2, 6, 21, 0, 0, 0, time.UTC)
	logs := DemoLogs(now, time.UTC)
	if len(logs) != 18 {
		t.Fatalf("expected 18 demo logs, got %d", len(logs))
	}
	for i, r := range logs {
		if err := r.Validate(); err != nil {
			t.Errorf("demo log %d invalid: %v", i, err)
		}
	}

	groups := GroupByDay(logs, time.UTC)
	if len(groups) != 4 {
		t.Fatalf("expected 4 days, got %d", len(groups))
	}
	if got := groups[3].Date.Format("2006-01-02"); got != "2026-02-03" {
		t.Errorf("expected oldest day 2026-02-03, got %s", got)
	}

	scavenged := FilterLogs(logs, KindFood, "cheese")
	if len(scavenged) != 1 || !scavenged[0].IsScavengedFood() {
		t.Errorf("expected one scavenged cheese, got %+v", scavenged)
	}
}
