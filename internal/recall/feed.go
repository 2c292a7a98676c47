package recall

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mmcdole/gofeed"

	"github.com/achalasani15/gut-check-app/internal/logger"
)

const (
	maxPerFeed   = 50
	userAgent    = "gutcheck/1.0 (pet food recall watch)"
	feedMaxRetry = 20 * time.Second
)

// FeedEntry represents a parsed recall feed entry.
type FeedEntry struct {
	URL           string
	Title         string
	PublishedDate string // YYYY-MM-DD or empty
	Content       string
	Source        string
}

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedParser downloads and parses RSS/Atom recall feeds.
type FeedParser struct {
	feeds        []FeedConfig
	client       *http.Client
	log          *logger.Logger
	maxRetryTime time.Duration
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig, timeout time.Duration, log *logger.Logger) *FeedParser {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FeedParser{
		feeds:        feeds,
		client:       &http.Client{Timeout: timeout},
		log:          log,
		maxRetryTime: feedMaxRetry,
	}
}

// ParseAll parses all configured feeds and returns entries published on or
// after cutoff. A feed that fails is logged and skipped.
func (fp *FeedParser) ParseAll(ctx context.Context, cutoff time.Time) []FeedEntry {
	var all []FeedEntry

	parser := gofeed.NewParser()
	for _, fc := range fp.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		entries, err := fp.parseFeed(ctx, parser, fc.URL, name, cutoff)
		if err != nil {
			fp.log.WithError(err).WithField("feed", fc.URL).Warn("failed to parse feed")
			continue
		}
		all = append(all, entries...)
		fp.log.WithField("feed", name).WithField("entries", len(entries)).Info("parsed recall feed")
	}

	return all
}

func (fp *FeedParser) parseFeed(ctx context.Context, parser *gofeed.Parser, feedURL, sourceName string, cutoff time.Time) ([]FeedEntry, error) {
	body, err := fp.download(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}

		entry := parseItem(item, sourceName)
		if entry == nil {
			continue
		}
		if isWithinWindow(entry.PublishedDate, cutoff) {
			entries = append(entries, *entry)
		}
	}

	return entries, nil
}

// download fetches a feed body, retrying connection errors and 5xx responses.
func (fp *FeedParser) download(ctx context.Context, feedURL string) ([]byte, error) {
	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", feedURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := fp.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("feed returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("feed returned %d", resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = fp.maxRetryTime
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func parseItem(item *gofeed.Item, source string) *FeedEntry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.Format("2006-01-02")
	}

	var content string
	if item.Content != "" {
		content = stripHTML(item.Content)
	} else if item.Description != "" {
		content = stripHTML(item.Description)
	}

	return &FeedEntry{
		URL:           itemURL,
		Title:         title,
		PublishedDate: publishedDate,
		Content:       content,
		Source:        source,
	}
}

func isWithinWindow(publishedDate string, cutoff time.Time) bool {
	if publishedDate == "" {
		return true
	}
	pub, err := time.Parse("2006-01-02", publishedDate)
	if err != nil {
		return true
	}
	return !pub.Before(time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC))
}

// stripHTML drops tags, decodes entities and collapses whitespace.
func stripHTML(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "rss.", "feeds.", "api."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		host = parts[len(parts)-2]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
