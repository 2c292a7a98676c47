package recall

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/achalasani15/gut-check-app/internal/database"
	"github.com/achalasani15/gut-check-app/internal/logger"
)

const minNoticeLength = 100

// FetchResult holds the results of a notice fetch run.
type FetchResult struct {
	Fetched int
	Failed  int
}

// ContentFetcher fetches full notice text via HTTP + readability extraction.
type ContentFetcher struct {
	db     *database.DB
	client *http.Client
	log    *logger.Logger
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(db *database.DB, timeout time.Duration, log *logger.Logger) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	return &ContentFetcher{
		db:  db,
		log: log.Component("recall"),
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissingContent fetches text for stored notices that have none. After
// an HTTP error the rest of that domain is skipped for this run.
func (f *ContentFetcher) FetchMissingContent(ctx context.Context) (*FetchResult, error) {
	notices, err := f.db.GetRecallNoticesNeedingFetch()
	if err != nil {
		return nil, fmt.Errorf("loading notices needing fetch: %w", err)
	}

	result := &FetchResult{}
	if len(notices) == 0 {
		f.log.Debug("no recall notices need fetching")
		return result, nil
	}

	failedDomains := make(map[string]struct{})

	for _, n := range notices {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		domain := ""
		if u, err := url.Parse(n.URL); err == nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			f.db.MarkRecallFetchAttempted(n.ID)
			result.Failed++
			continue
		}

		content, httpErr := f.fetchNotice(ctx, n.URL)
		if httpErr != nil {
			f.db.MarkRecallFetchAttempted(n.ID)
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			f.log.WithError(httpErr).WithField("domain", domain).Warn("HTTP error, skipping remaining notices from domain")
			continue
		}

		if content != "" {
			if err := f.db.UpdateRecallContent(n.ID, &content); err != nil {
				return result, err
			}
			result.Fetched++
			f.log.WithField("title", n.Title).Debug("fetched notice")
		} else {
			f.db.MarkRecallFetchAttempted(n.ID)
			result.Failed++
		}
	}

	f.log.WithField("fetched", result.Fetched).WithField("failed", result.Failed).Info("notice fetch complete")
	return result, nil
}

// fetchNotice returns the readable text of a page. Only HTTP status errors
// are reported; other failures yield empty content.
func (f *ContentFetcher) fetchNotice(ctx context.Context, noticeURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", noticeURL, nil)
	if err != nil {
		return "", nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(noticeURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > minNoticeLength {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%d %s", e.code, http.StatusText(e.code))
}
