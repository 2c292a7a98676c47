package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/compose"
	"github.com/achalasani15/gut-check-app/internal/config"
	"github.com/achalasani15/gut-check-app/internal/database"
	"github.com/achalasani15/gut-check-app/internal/journal"
	"github.com/achalasani15/gut-check-app/internal/llm"
	"github.com/achalasani15/gut-check-app/internal/logger"
	"github.com/achalasani15/gut-check-app/internal/recall"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	PeriodID string
	Steps    []StepResult
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline refreshes recall matches and composes the period report.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	provider llm.Provider
	opts     analysis.Options
	log      *logger.Logger
}

// New creates a new pipeline, picking the LLM provider from config.
func New(cfg *config.Config, db *database.DB, log *logger.Logger) (*Pipeline, error) {
	summ := cfg.Summarization
	provider := llm.CreateProvider(
		summ.Provider,
		summ.Model,
		summ.OllamaURL,
		summ.OpenAIModel,
		summ.APIKeyEnv,
		log,
	)
	return NewWithProvider(cfg, db, provider, log)
}

// NewWithProvider creates a pipeline with an explicit provider, which may be nil.
func NewWithProvider(cfg *config.Config, db *database.DB, provider llm.Provider, log *logger.Logger) (*Pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{
		cfg:      cfg,
		db:       db,
		provider: provider,
		opts:     analysis.Options{WindowDays: cfg.Analysis.WindowDays, Location: loc},
		log:      log.Component("pipeline"),
	}, nil
}

// Run executes Recalls -> Fetch -> Report for the window ending at end.
func (p *Pipeline) Run(ctx context.Context, pet *journal.Pet, end time.Time) *Result {
	comp := compose.NewComposer(p.db, p.provider, p.opts, p.log)
	r := &Result{PeriodID: comp.PeriodID(end)}

	if p.cfg.Recalls.Enabled {
		step := p.runRecalls(ctx, pet)
		r.Steps = append(r.Steps, step)

		if step.Err == nil {
			r.Steps = append(r.Steps, p.runFetch(ctx))
		}
	} else {
		r.Steps = append(r.Steps, StepResult{Name: "Recalls", Summary: "Recall watch disabled"})
	}

	r.Steps = append(r.Steps, p.runReport(ctx, comp, pet, end))
	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun(pet *journal.Pet, end time.Time) *Result {
	comp := compose.NewComposer(p.db, p.provider, p.opts, p.log)
	periodID := comp.PeriodID(end)
	r := &Result{PeriodID: periodID}

	if p.cfg.Recalls.Enabled {
		logs, _ := p.db.ListLogs(pet.ID)
		matcher := recall.NewMatcher(logs, p.cfg.Recalls.Keywords)
		r.Steps = append(r.Steps, StepResult{
			Name: "Recalls",
			Summary: fmt.Sprintf("[dry-run] Would scan %d feeds for %d terms",
				len(p.cfg.Recalls.Feeds), len(matcher.Terms())),
		})

		needing, _ := p.db.GetRecallNoticesNeedingFetch()
		r.Steps = append(r.Steps, StepResult{
			Name:    "Fetch",
			Summary: fmt.Sprintf("[dry-run] %d notices need content fetching", len(needing)),
		})
	} else {
		r.Steps = append(r.Steps, StepResult{Name: "Recalls", Summary: "[dry-run] Recall watch disabled"})
	}

	report, _ := p.db.GetReport(pet.ID, periodID)
	if report != nil {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Report",
			Summary: fmt.Sprintf("[dry-run] Report already exists for %s and would be replaced", periodID),
		})
	} else {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Report",
			Summary: fmt.Sprintf("[dry-run] Would compose report for %s", periodID),
		})
	}

	return r
}

func (p *Pipeline) runRecalls(ctx context.Context, pet *journal.Pet) StepResult {
	p.log.Info("step 1/3: scanning recall feeds")
	result, err := recall.NewCollector(p.cfg, p.db, p.log).Collect(ctx, pet.ID)
	if err != nil {
		return StepResult{Name: "Recalls", Err: err}
	}
	return StepResult{
		Name: "Recalls",
		Summary: fmt.Sprintf("Found %d new matching notices (%d entries scanned, %d already known)",
			result.NewNotices, result.TotalFound, result.Duplicates),
	}
}

func (p *Pipeline) runFetch(ctx context.Context) StepResult {
	p.log.Info("step 2/3: fetching notice text")
	result, err := recall.NewContentFetcher(p.db, p.cfg.FetchTimeout(), p.log).FetchMissingContent(ctx)
	if err != nil {
		return StepResult{Name: "Fetch", Err: err}
	}
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d notices, %d failed", result.Fetched, result.Failed),
	}
}

func (p *Pipeline) runReport(ctx context.Context, comp *compose.Composer, pet *journal.Pet, end time.Time) StepResult {
	p.log.Info("step 3/3: composing report")
	report, err := comp.ComposeReport(ctx, pet, end)
	if err != nil {
		return StepResult{Name: "Report", Err: err}
	}
	return StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Report composed: %d logs, average score %d", report.LogCount, report.AverageScore),
	}
}
