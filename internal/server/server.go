package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/database"
	"github.com/achalasani15/gut-check-app/internal/journal"
	"github.com/achalasani15/gut-check-app/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for the journal timeline, dashboard and API.
type Server struct {
	db    *database.DB
	memo  *analysis.Memo
	loc   *time.Location
	pages map[string]*template.Template
	mux   *http.ServeMux
	log   *logger.Logger
	now   func() time.Time
}

// New creates a new Server.
func New(db *database.DB, opts analysis.Options, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Discard()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	funcMap := template.FuncMap{
		"markdown":     renderMarkdown,
		"formatPeriod": database.FormatPeriodDisplay,
		"scoreBand":    analysis.ScoreBand,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"clock": func(t time.Time) string {
			return t.In(opts.Location).Format("15:04")
		},
		"day": func(t time.Time) string {
			return t.In(opts.Location).Format("Mon Jan 2")
		},
		"score": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone so {{define "content"}} does not collide.
	pageNames := []string{"index.html", "dashboard.html", "report.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:    db,
		memo:  analysis.NewMemo(opts),
		loc:   opts.Location,
		pages: pages,
		mux:   http.NewServeMux(),
		log:   log.Component("server"),
		now:   time.Now,
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /pet", s.handleCreatePet)
	s.mux.HandleFunc("GET /dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /report/{period}", s.handleReport)
	s.mux.HandleFunc("POST /logs/add", s.handleAddLog)
	s.mux.HandleFunc("POST /logs/{id}/delete", s.handleDeleteLog)

	s.mux.HandleFunc("GET /api/logs", s.handleAPILogs)
	s.mux.HandleFunc("GET /api/foods", s.handleAPIFoods)
	s.mux.HandleFunc("GET /api/stats", s.handleAPIStats)
	s.mux.HandleFunc("GET /api/scores", s.handleAPIScores)
	s.mux.HandleFunc("GET /api/insights", s.handleAPIInsights)
	s.mux.HandleFunc("GET /api/triggers/{id}", s.handleAPITriggers)

	s.mux.HandleFunc("GET /alerts.atom", s.handleAlertsFeed)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// load returns the active pet, its logs newest first and the dashboard for
// now. pet is nil when no profile exists yet.
func (s *Server) load() (*journal.Pet, []journal.LogRecord, *analysis.Dashboard, error) {
	pet, err := s.db.GetActivePet()
	if err != nil || pet == nil {
		return nil, nil, nil, err
	}
	snap, err := s.db.Snapshot(pet.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return pet, snap.Logs, s.memo.Dashboard(*snap, s.now()), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	pet, logs, dash, err := s.load()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if pet == nil {
		s.render(w, r, "index.html", map[string]any{"Pet": nil})
		return
	}

	kind, term, err := parseFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filtered := journal.FilterLogs(logs, kind, term)

	s.render(w, r, "index.html", map[string]any{
		"Pet":      pet,
		"Days":     buildTimeline(filtered, dash, s.loc),
		"Total":    len(logs),
		"Kind":     string(kind),
		"Query":    term,
		"Kinds":    journal.Kinds,
		"Today":    dash.Today(),
		"Now":      s.now().In(s.loc),
		"Insights": dash.Insights,
	})
}

func (s *Server) handleCreatePet(w http.ResponseWriter, r *http.Request) {
	existing, err := s.db.GetActivePet()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if existing == nil {
		if _, err := s.db.CreatePet(r.FormValue("name")); err != nil {
			if isValidation(err) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.serverError(w, r, err)
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	pet, _, dash, err := s.load()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if pet == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	recalls, err := s.db.GetRecallNotices(5)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	reports, err := s.db.GetAllReports(pet.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, "dashboard.html", map[string]any{
		"Pet":       pet,
		"Dashboard": dash,
		"Today":     dash.Today(),
		"Suspects":  suspects(dash.Ranking),
		"Recalls":   recalls,
		"Reports":   reports,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	periodID := r.PathValue("period")
	pet, err := s.db.GetActivePet()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if pet == nil {
		http.NotFound(w, r)
		return
	}

	report, err := s.db.GetReport(pet.ID, periodID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if report == nil {
		http.NotFound(w, r)
		return
	}

	s.render(w, r, "report.html", map[string]any{
		"Pet":      pet,
		"Report":   report,
		"PeriodID": periodID,
	})
}

func (s *Server) handleAddLog(w http.ResponseWriter, r *http.Request) {
	pet, err := s.db.GetActivePet()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if pet == nil {
		http.Error(w, "create a pet profile first", http.StatusConflict)
		return
	}

	rec, err := logFromForm(r, s.now(), s.loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	stored, err := s.db.InsertLog(pet.ID, rec)
	if err != nil {
		if isValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.log.WithRequest(r).WithField("log_id", stored.ID).WithField("kind", stored.Kind).Info("log added")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.db.DeleteLog(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.log.WithRequest(r).WithField("log_id", id).Info("log deleted")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.db.JournalVersion()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":          "ok",
		"journal_version": version,
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.serverError(w, r, fmt.Errorf("template %s not found", name))
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.serverError(w, r, fmt.Errorf("rendering template %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithRequest(r).WithField("error", err.Error()).Error("request failed")
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port and shuts it down when ctx
// is cancelled.
func Serve(ctx context.Context, db *database.DB, port int, opts analysis.Options, log *logger.Logger) error {
	srv, err := New(db, opts, log)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.log.WithField("addr", "http://"+addr).Info("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
