package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/journal"
	"github.com/achalasani15/gut-check-app/internal/logger"
)

type foodSuggestion struct {
	Name        string `json:"name"`
	IsScavenged bool   `json:"is_scavenged"`
	IsSafe      bool   `json:"is_safe"`
}

func (s *Server) handleAPILogs(w http.ResponseWriter, r *http.Request) {
	pet, logs, dash, ok := s.loadAPI(w, r)
	if !ok {
		return
	}
	kind, term, err := parseFilters(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"pet":     pet,
		"version": dash.Version,
		"logs":    journal.FilterLogs(logs, kind, term),
	})
}

func (s *Server) handleAPIFoods(w http.ResponseWriter, r *http.Request) {
	_, logs, _, ok := s.loadAPI(w, r)
	if !ok {
		return
	}
	names := journal.SuggestFoodNames(logs, r.URL.Query().Get("q"))
	out := make([]foodSuggestion, 0, len(names))
	for _, name := range names {
		flags, _ := journal.LastFlagsFor(logs, name)
		out = append(out, foodSuggestion{Name: name, IsScavenged: flags.IsScavenged, IsSafe: flags.IsSafe})
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	_, _, dash, ok := s.loadAPI(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"stats":   dash.Stats,
		"ranking": dash.Ranking,
	})
}

func (s *Server) handleAPIScores(w http.ResponseWriter, r *http.Request) {
	_, _, dash, ok := s.loadAPI(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"scores":          dash.Scores,
		"average":         dash.Average,
		"rounded_average": dash.Rounded,
		"band":            analysis.ScoreBand(dash.Rounded),
	})
}

func (s *Server) handleAPIInsights(w http.ResponseWriter, r *http.Request) {
	_, _, dash, ok := s.loadAPI(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, dash.Insights)
}

func (s *Server) handleAPITriggers(w http.ResponseWriter, r *http.Request) {
	pet, logs, dash, ok := s.loadAPI(w, r)
	if !ok {
		return
	}
	rec, err := s.db.GetLog(r.PathValue("id"))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if rec == nil || rec.PetID != pet.ID {
		s.writeError(w, r, http.StatusNotFound, "log not found")
		return
	}

	result, found := dash.Triggers[rec.ID]
	if !found {
		result = analysis.FindTriggers(*rec, logs, dash.Stats)
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"log":            rec,
		"classification": analysis.ClassifyLog(*rec),
		"ranked":         result.Ranked(),
	})
}

// loadAPI is load for JSON handlers. It writes the error response itself and
// reports whether the handler should continue.
func (s *Server) loadAPI(w http.ResponseWriter, r *http.Request) (*journal.Pet, []journal.LogRecord, *analysis.Dashboard, bool) {
	pet, logs, dash, err := s.load()
	if err != nil {
		s.serverError(w, r, err)
		return nil, nil, nil, false
	}
	if pet == nil {
		s.writeError(w, r, http.StatusNotFound, "no pet profile")
		return nil, nil, nil, false
	}
	return pet, logs, dash, true
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// logRequests tags every request with an id, echoes it back and logs the
// outcome.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := logger.RequestID(r)
		r.Header.Set(logger.RequestIDHeader, id)
		w.Header().Set(logger.RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.log.WithRequest(r).
			WithField("status", rec.status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request handled")
	})
}
