package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/database"
	"github.com/achalasani15/gut-check-app/internal/journal"
	"github.com/achalasani15/gut-check-app/internal/logger"
)

var now = time.Date(2026, 2, 6, 20, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), logger.Discard())
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServer(t *testing.T, db *database.DB) *Server {
	t.Helper()
	srv, err := New(db, analysis.Options{WindowDays: 7, Location: time.UTC}, logger.Discard())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	srv.now = func() time.Time { return now }
	return srv
}

func ptr(s string) *string { return &s }

// seedJournal logs Chicken before a liquid stool and a scavenged snack.
func seedJournal(t *testing.T, db *database.DB) (*journal.Pet, map[string]string) {
	t.Helper()
	pet, err := db.CreatePet("Theo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records := map[string]journal.LogRecord{
		"chicken": journal.NewFoodLog(now.Add(-10*time.Hour), journal.Food{Name: "Chicken", Quantity: "1 cup"}),
		"kibble":  journal.NewFoodLog(now.Add(-9*time.Hour), journal.Food{Name: "Kibble", IsSafe: true}),
		"sock":    journal.NewFoodLog(now.Add(-8*time.Hour), journal.Food{Name: "Sock fluff", IsScavenged: true}),
		"bad":     journal.NewStoolLog(now.Add(-6*time.Hour), 5),
		"good":    journal.NewStoolLog(now.Add(-2*time.Hour), 3),
		"note":    journal.NewNoteLog(now.Add(-time.Hour), "Sleepy after the park"),
	}
	ids := make(map[string]string, len(records))
	for name, r := range records {
		stored, err := db.InsertLog(pet.ID, r)
		if err != nil {
			t.Fatalf("unexpected error inserting %s: %v", name, err)
		}
		ids[name] = stored.ID
	}
	return pet, ids
}

func do(t *testing.T, srv *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexWithoutPetShowsSetup(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))

	rec := do(t, srv, "GET", "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Add Your Pet") {
		t.Error("expected setup form in response body")
	}
}

func TestCreatePet(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	rec := do(t, srv, "POST", "/pet", url.Values{"name": {"Theo"}})
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	pet, _ := db.GetActivePet()
	if pet == nil || pet.Name != "Theo" {
		t.Fatalf("expected pet Theo, got %+v", pet)
	}

	// A second profile is ignored.
	do(t, srv, "POST", "/pet", url.Values{"name": {"Rex"}})
	pet, _ = db.GetActivePet()
	if pet.Name != "Theo" {
		t.Errorf("expected Theo to stay active, got %s", pet.Name)
	}
}

func TestCreatePetBlankName(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))
	rec := do(t, srv, "POST", "/pet", url.Values{"name": {"  "}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestTimelineShowsTriggers(t *testing.T) {
	db := openTestDB(t)
	seedJournal(t, db)
	srv := newTestServer(t, db)

	rec := do(t, srv, "GET", "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Friday, February 6, 2026", "Possible triggers", "Chicken", "High Risk", "Problematic - Liquid", "Sleepy after the park"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in timeline", want)
		}
	}
}

func TestTimelineFilters(t *testing.T) {
	db := openTestDB(t)
	seedJournal(t, db)
	srv := newTestServer(t, db)

	rec := do(t, srv, "GET", "/?kind=note", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Sleepy after the park") {
		t.Error("expected note in filtered timeline")
	}
	if strings.Contains(body, "Possible triggers") {
		t.Error("expected stools to be filtered out")
	}

	rec = do(t, srv, "GET", "/?q=nothing-matches", nil)
	if !strings.Contains(rec.Body.String(), "No logs match your filters.") {
		t.Error("expected empty-filter message")
	}

	rec = do(t, srv, "GET", "/?kind=walk", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown kind, got %d", rec.Code)
	}
}

func TestAddLog(t *testing.T) {
	db := openTestDB(t)
	pet, err := db.CreatePet("Theo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srv := newTestServer(t, db)

	rec := do(t, srv, "POST", "/logs/add", url.Values{
		"kind":      {"food"},
		"date":      {"2026-02-06"},
		"time":      {"08:30"},
		"name":      {"Lamb Treats"},
		"quantity":  {"2 treats"},
		"scavenged": {"on"},
	})
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}

	logs, _ := db.ListLogs(pet.ID)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	got := logs[0]
	if got.Food == nil || got.Food.Name != "Lamb Treats" || !got.Food.IsScavenged || got.Food.IsSafe {
		t.Errorf("unexpected food payload: %+v", got.Food)
	}
	want := time.Date(2026, 2, 6, 8, 30, 0, 0, time.UTC)
	if !got.Timestamp.Equal(want) {
		t.Errorf("expected %v, got %v", want, got.Timestamp)
	}

	rec = do(t, srv, "POST", "/logs/add", url.Values{"kind": {"symptom"}, "symptoms": {"vomiting, gurgling\n "}})
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	logs, _ = db.ListLogs(pet.ID)
	var symptom *journal.LogRecord
	for i := range logs {
		if logs[i].Kind == journal.KindSymptom {
			symptom = &logs[i]
		}
	}
	if symptom == nil || len(symptom.Symptom.Descriptions) != 2 {
		t.Fatalf("expected symptom with 2 descriptions, got %+v", symptom)
	}
	if !symptom.Timestamp.Equal(time.Date(2026, 2, 6, 20, 0, 0, 0, time.UTC)) {
		t.Errorf("expected default timestamp now, got %v", symptom.Timestamp)
	}
}

func TestAddLogRejectsInvalid(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	rec := do(t, srv, "POST", "/logs/add", url.Values{"kind": {"note"}, "text": {"hi"}})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 without a pet, got %d", rec.Code)
	}

	if _, err := db.CreatePet("Theo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := []url.Values{
		{"kind": {"stool"}, "code": {"9"}},
		{"kind": {"stool"}, "code": {"soft"}},
		{"kind": {"food"}, "name": {" "}},
		{"kind": {"nap"}},
		{"kind": {"note"}, "date": {"06/02/2026"}},
	}
	for _, form := range cases {
		rec := do(t, srv, "POST", "/logs/add", form)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for %v, got %d", form, rec.Code)
		}
	}
}

func TestDeleteLog(t *testing.T) {
	db := openTestDB(t)
	_, ids := seedJournal(t, db)
	srv := newTestServer(t, db)

	rec := do(t, srv, "POST", "/logs/"+ids["note"]+"/delete", url.Values{})
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	got, _ := db.GetLog(ids["note"])
	if got != nil {
		t.Error("expected log to be deleted")
	}

	rec = do(t, srv, "POST", "/logs/missing/delete", url.Values{})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestDashboardRoute(t *testing.T) {
	db := openTestDB(t)
	seedJournal(t, db)
	db.InsertRecallNotice("https://fda.example/r1", "Chicken jerky recall", ptr("fda"), ptr("2026-02-05"), nil, []string{"chicken"})
	srv := newTestServer(t, db)

	rec := do(t, srv, "GET", "/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"7-Day Gut Score", "Top Safe Food", "Kibble", "Sock fluff", "Chicken jerky recall"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q on dashboard", want)
		}
	}
}

func TestDashboardWithoutPetRedirects(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))
	rec := do(t, srv, "GET", "/dashboard", nil)
	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
}

func TestReportRoute(t *testing.T) {
	db := openTestDB(t)
	pet, _ := seedJournal(t, db)
	db.InsertReport(database.Report{
		PetID:        pet.ID,
		PeriodID:     "2026-01-31..2026-02-06",
		TLDR:         "- Mostly good days",
		BodyMarkdown: "## Gut Score\nSteady week.",
		AverageScore: 86,
		LogCount:     6,
	})
	srv := newTestServer(t, db)

	rec := do(t, srv, "GET", "/report/2026-01-31..2026-02-06", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h2>Gut Score</h2>") {
		t.Error("expected rendered markdown heading")
	}
	if !strings.Contains(body, "Jan 31 - Feb 06, 2026") {
		t.Error("expected formatted period")
	}

	rec = do(t, srv, "GET", "/report/2020-01-01", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing report, got %d", rec.Code)
	}
}

func TestAPIScores(t *testing.T) {
	db := openTestDB(t)
	seedJournal(t, db)
	srv := newTestServer(t, db)

	rec := do(t, srv, "GET", "/api/scores", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Scores         []analysis.DailyScore `json:"scores"`
		RoundedAverage int                   `json:"rounded_average"`
		Band           string                `json:"band"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(resp.Scores) != 7 {
		t.Fatalf("expected 7 days, got %d", len(resp.Scores))
	}
	// Today: 100 - 3*20 (liquid) - 50 (scavenged) clamps to 0.
	if resp.Scores[6].Score != 0 {
		t.Errorf("expected today's score 0, got %d", resp.Scores[6].Score)
	}
	// (6*100 + 0) / 7 = 85.7
	if resp.RoundedAverage != 86 {
		t.Errorf("expected rounded average 86, got %d", resp.RoundedAverage)
	}
	if resp.Band != "good" {
		t.Errorf("expected band good, got %s", resp.Band)
	}
}

func TestAPIStatsAndInsights(t *testing.T) {
	db := openTestDB(t)
	seedJournal(t, db)
	srv := newTestServer(t, db)

	rec := do(t, srv, "GET", "/api/stats", nil)
	var stats struct {
		Stats map[string]analysis.FoodStats `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	chicken, ok := stats.Stats["chicken"]
	if !ok {
		t.Fatal("expected chicken in stats")
	}
	if chicken.TotalCount != 1 || chicken.WeightedBadOutcomeCount != 3 {
		t.Errorf("expected 1 serving with weight 3, got %+v", chicken)
	}
	if _, ok := stats.Stats["sock fluff"]; ok {
		t.Error("expected scavenged food to be excluded from stats")
	}

	rec = do(t, srv, "GET", "/api/insights", nil)
	var insights struct {
		TopTrigger    *analysis.FoodScore `json:"top_trigger"`
		TopSafeFood   string              `json:"top_safe_food"`
		LastScavenged *journal.LogRecord  `json:"last_scavenged"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &insights); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if insights.TopTrigger == nil || insights.TopTrigger.Name != "chicken" {
		t.Errorf("expected chicken as top trigger, got %+v", insights.TopTrigger)
	}
	if insights.TopSafeFood != "Kibble" {
		t.Errorf("expected Kibble, got %q", insights.TopSafeFood)
	}
	if insights.LastScavenged == nil || insights.LastScavenged.Food.Name != "Sock fluff" {
		t.Errorf("expected Sock fluff as last scavenged, got %+v", insights.LastScavenged)
	}
}

func TestAPITriggers(t *testing.T) {
	db := openTestDB(t)
	_, ids := seedJournal(t, db)
	srv := newTestServer(t, db)

	rec := do(t, srv, "GET", "/api/triggers/"+ids["bad"], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Classification analysis.StoolInfo         `json:"classification"`
		Ranked         []analysis.ScoredCandidate `json:"ranked"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Classification.Severity != 3 {
		t.Errorf("expected severity 3, got %d", resp.Classification.Severity)
	}
	if len(resp.Ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(resp.Ranked))
	}
	if resp.Ranked[0].Band != analysis.BandHighRisk || resp.Ranked[0].Food.Food.Name != "Sock fluff" {
		t.Errorf("expected scavenged item first, got %+v", resp.Ranked[0])
	}
	if resp.Ranked[1].Food.Food.Name != "Chicken" || resp.Ranked[1].Band != analysis.BandLikelyProblematic {
		t.Errorf("expected Chicken as Likely Problematic, got %+v", resp.Ranked[1])
	}

	rec = do(t, srv, "GET", "/api/triggers/"+ids["good"], nil)
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Ranked) != 0 {
		t.Errorf("expected no triggers for a good stool, got %d", len(resp.Ranked))
	}

	rec = do(t, srv, "GET", "/api/triggers/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAPIFoodsSuggestions(t *testing.T) {
	db := openTestDB(t)
	seedJournal(t, db)
	srv := newTestServer(t, db)

	rec := do(t, srv, "GET", "/api/foods?q=SOCK", nil)
	var got []foodSuggestion
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Sock fluff" || !got[0].IsScavenged {
		t.Errorf("unexpected suggestions: %+v", got)
	}
}

func TestAPIWithoutPet(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))
	rec := do(t, srv, "GET", "/api/logs", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no pet profile") {
		t.Errorf("expected error message, got %s", rec.Body.String())
	}
}

func TestAPILogsFiltered(t *testing.T) {
	db := openTestDB(t)
	seedJournal(t, db)
	srv := newTestServer(t, db)

	rec := do(t, srv, "GET", "/api/logs?q=type%205", nil)
	var resp struct {
		Logs []journal.LogRecord `json:"logs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(resp.Logs) != 1 || resp.Logs[0].Stool == nil || resp.Logs[0].Stool.QualityCode != 5 {
		t.Errorf("expected the liquid stool only, got %+v", resp.Logs)
	}
}

func TestAlertsFeed(t *testing.T) {
	db := openTestDB(t)
	seedJournal(t, db)
	db.InsertRecallNotice("https://fda.example/r1", "Chicken jerky recall", ptr("fda"), ptr("2026-02-05"), nil, []string{"chicken"})
	srv := newTestServer(t, db)

	rec := do(t, srv, "GET", "/alerts.atom", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	if err != nil {
		t.Fatalf("feed did not parse: %v", err)
	}
	if feed.FeedType != "atom" {
		t.Errorf("expected atom feed, got %s", feed.FeedType)
	}
	if feed.Title != "Theo - Gut Check alerts" {
		t.Errorf("unexpected title %q", feed.Title)
	}
	if len(feed.Items) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(feed.Items))
	}
	if !strings.HasPrefix(feed.Items[0].Title, "Problem stool") {
		t.Errorf("expected newest alert first, got %q", feed.Items[0].Title)
	}
	if !strings.Contains(feed.Items[0].Description, "Chicken [Likely Problematic]") {
		t.Errorf("expected trigger summary, got %q", feed.Items[0].Description)
	}
	if feed.Items[2].Title != "Recall: Chicken jerky recall" {
		t.Errorf("expected recall last, got %q", feed.Items[2].Title)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))

	rec := do(t, srv, "GET", "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(logger.RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(logger.RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(logger.RequestIDHeader); got != "abc-123" {
		t.Errorf("expected echoed request id, got %q", got)
	}
}

func TestStaticFiles(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))
	rec := do(t, srv, "GET", "/static/style.css", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
