package recall

import (
	"context"
	"fmt"
	"time"

	"github.com/achalasani15/gut-check-app/internal/config"
	"github.com/achalasani15/gut-check-app/internal/database"
	"github.com/achalasani15/gut-check-app/internal/logger"
)

// Result holds the results of a recall scan.
type Result struct {
	TotalFound int
	Matched    int
	NewNotices int
	Duplicates int
	Sources    map[string]int
}

// Collector scans recall feeds for foods that appear in a pet's journal.
type Collector struct {
	db           *database.DB
	feedParser   *FeedParser
	keywords     []string
	lookbackDays int
	log          *logger.Logger
	now          func() time.Time
}

// NewCollector creates a recall collector from configuration.
func NewCollector(cfg *config.Config, db *database.DB, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.Discard()
	}
	log = log.Component("recall")

	feeds := make([]FeedConfig, len(cfg.Recalls.Feeds))
	for i, f := range cfg.Recalls.Feeds {
		feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
	}

	lookback := cfg.Recalls.LookbackDays
	if lookback <= 0 {
		lookback = 30
	}

	return &Collector{
		db:           db,
		feedParser:   NewFeedParser(feeds, cfg.FetchTimeout(), log),
		keywords:     cfg.Recalls.Keywords,
		lookbackDays: lookback,
		log:          log,
		now:          time.Now,
	}
}

// Collect parses every feed and stores entries that mention a logged food
// or a watch keyword.
func (c *Collector) Collect(ctx context.Context, petID string) (*Result, error) {
	r := &Result{Sources: make(map[string]int)}

	logs, err := c.db.ListLogs(petID)
	if err != nil {
		return nil, fmt.Errorf("loading journal: %w", err)
	}
	matcher := NewMatcher(logs, c.keywords)
	if len(matcher.Terms()) == 0 {
		c.log.Info("nothing to watch yet; log some food first")
		return r, nil
	}

	cutoff := c.now().AddDate(0, 0, -c.lookbackDays)
	entries := c.feedParser.ParseAll(ctx, cutoff)
	r.TotalFound = len(entries)

	for _, entry := range entries {
		terms := matcher.Match(entry)
		if len(terms) == 0 {
			continue
		}
		r.Matched++

		var source, pubDate, content *string
		if entry.Source != "" {
			source = &entry.Source
		}
		if entry.PublishedDate != "" {
			pubDate = &entry.PublishedDate
		}
		if entry.Content != "" {
			content = &entry.Content
		}

		id, err := c.db.InsertRecallNotice(entry.URL, entry.Title, source, pubDate, content, terms)
		if err != nil {
			return r, fmt.Errorf("storing recall notice: %w", err)
		}
		if id > 0 {
			r.NewNotices++
			r.Sources[entry.Source]++
			c.log.WithField("terms", terms).WithField("title", entry.Title).Warn("recall notice matches journal")
		} else {
			r.Duplicates++
		}
	}

	c.log.WithField("found", r.TotalFound).WithField("matched", r.Matched).WithField("new", r.NewNotices).
		Info("recall scan complete")
	return r, nil
}
