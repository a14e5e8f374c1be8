// Package crawler drives the paginated crawl: it resolves the page count
// from the first page, fans out over the remaining pages, and aggregates
// every extracted record into one collection.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/go-scrape-aitools/config"
	"github.com/aluiziolira/go-scrape-aitools/models"
	"github.com/aluiziolira/go-scrape-aitools/parser"
)

// Crawler owns the crawl session: the shared fetcher, the append-only
// record collection, and the run accounting.
type Crawler struct {
	cfg     *config.Config
	fetcher *Fetcher
	logger  *slog.Logger
	Metrics *Metrics

	mu         sync.Mutex
	tools      []*models.Tool
	failedURLs []string

	// seenURLs tracks record URLs across pages so repeats can be counted.
	// Duplicates are reported, never dropped.
	seenURLs   *lru.Cache[string, struct{}]
	duplicates int64
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the diagnostic sink. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New builds a crawl session from cfg. The session holds a single shared
// transport; callers must release it with Close when the run ends.
func New(cfg *config.Config, opts ...Option) (*Crawler, error) {
	c := &Crawler{
		cfg:     cfg,
		Metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	seen, err := lru.New[string, struct{}](cfg.DuplicateCacheSize)
	if err != nil {
		return nil, fmt.Errorf("duplicate cache: %w", err)
	}
	c.seenURLs = seen

	fetcher, err := NewFetcher(cfg, c.logger, c.Metrics)
	if err != nil {
		return nil, err
	}
	c.fetcher = fetcher
	return c, nil
}

// CrawlAll runs the whole crawl: page 1, pagination discovery, then a
// staggered concurrent sweep of pages 2..N. A failed first fetch is a
// normal terminal outcome (zero records, nil error); per-page failures
// never abort the run.
func (c *Crawler) CrawlAll(ctx context.Context) (*models.CrawlResult, error) {
	start := time.Now()

	firstPage, err := c.fetcher.Fetch(ctx, c.cfg.BaseURL)
	if err != nil {
		c.logger.Error("could not fetch first page",
			slog.String("url", c.cfg.BaseURL),
			slog.Any("error", err),
		)
		c.recordFailedURL(c.cfg.BaseURL)
		return c.result(start, 1, 0), nil
	}

	if parser.IsValidPage(firstPage) {
		if tools := parser.ParseToolList(firstPage); len(tools) > 0 {
			c.append(tools)
			c.logger.Info("parsed first page", slog.Int("tools", len(tools)))
		} else {
			c.logger.Debug("no tools found on first page")
		}
	} else {
		// Pagination extraction still runs: it degrades to defaults on
		// missing structure instead of failing.
		c.logger.Error("first page failed structure validation",
			slog.String("url", c.cfg.BaseURL),
		)
	}

	pagination := parser.ExtractPagination(firstPage)
	c.logger.Info("pagination resolved",
		slog.Int("current_page", pagination.CurrentPage),
		slog.Int("total_pages", pagination.TotalPages),
	)

	var secondaryOK int64
	if pagination.TotalPages > 1 {
		group, groupCtx := errgroup.WithContext(ctx)
		for page := 2; page <= pagination.TotalPages; page++ {
			if err := sleepContext(ctx, randomDelay(c.cfg.StaggerDelayMin, c.cfg.StaggerDelayMax)); err != nil {
				break
			}
			page := page
			group.Go(func() error {
				// Page failures are degraded, not returned: one bad page
				// must not cancel its siblings.
				if c.crawlPage(groupCtx, page) {
					atomic.AddInt64(&secondaryOK, 1)
				}
				return nil
			})
		}
		_ = group.Wait()
		c.logger.Info("secondary pages crawled",
			slog.Int64("succeeded", atomic.LoadInt64(&secondaryOK)),
			slog.Int("scheduled", pagination.TotalPages-1),
		)
	}

	return c.result(start, pagination.TotalPages, int(atomic.LoadInt64(&secondaryOK))), nil
}

// crawlPage is one page operation: pacing delay, fetch, validate,
// extract, append. Returns false on any failure without appending.
func (c *Crawler) crawlPage(ctx context.Context, page int) bool {
	pageURL := c.pageURL(page)
	c.logger.Info("crawling page", slog.Int("page", page), slog.String("url", pageURL))

	if err := sleepContext(ctx, randomDelay(c.cfg.PageDelayMin, c.cfg.PageDelayMax)); err != nil {
		return false
	}

	markup, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		c.recordFailedURL(pageURL)
		return false
	}

	if !parser.IsValidPage(markup) {
		c.logger.Error("page failed structure validation",
			slog.Int("page", page),
			slog.String("url", pageURL),
		)
		c.recordFailedURL(pageURL)
		return false
	}

	tools := parser.ParseToolList(markup)
	if len(tools) == 0 {
		c.logger.Debug("no tools found", slog.Int("page", page))
		return false
	}

	c.append(tools)
	c.logger.Info("parsed page", slog.Int("page", page), slog.Int("tools", len(tools)))
	return true
}

// pageURL builds the URL for a page number: the trimmed base for page 1,
// base + "/page/N" beyond it.
func (c *Crawler) pageURL(page int) string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if page <= 1 {
		return base
	}
	return fmt.Sprintf("%s/page/%d", base, page)
}

// append adds extracted records to the aggregate collection. Completion
// order across pages is non-deterministic; within a page, markup order
// is preserved.
func (c *Crawler) append(tools []*models.Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tool := range tools {
		if seen, _ := c.seenURLs.ContainsOrAdd(tool.URL, struct{}{}); seen {
			c.duplicates++
			c.Metrics.IncDuplicate()
		}
	}
	c.tools = append(c.tools, tools...)
	c.Metrics.AddTools(len(tools))
}

// Tools returns a snapshot of the aggregate record collection.
func (c *Crawler) Tools() []*models.Tool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Close releases the session's shared transport. Must run on every exit
// path; callers defer it right after New succeeds.
func (c *Crawler) Close() {
	c.fetcher.Close()
}

func (c *Crawler) recordFailedURL(pageURL string) {
	c.mu.Lock()
	c.failedURLs = append(c.failedURLs, pageURL)
	c.mu.Unlock()
}

func (c *Crawler) result(start time.Time, totalPages, secondaryOK int) *models.CrawlResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	failed := make([]string, len(c.failedURLs))
	copy(failed, c.failedURLs)

	return &models.CrawlResult{
		StartTime:        start,
		EndTime:          time.Now(),
		TotalPages:       totalPages,
		SecondaryPagesOK: secondaryOK,
		ToolCount:        len(c.tools),
		RetryCount:       c.fetcher.TotalRetries(),
		DuplicateCount:   int(c.duplicates),
		FailedURLs:       failed,
		ErrorsByType:     c.fetcher.ErrorsByType(),
	}
}

// randomDelay picks a uniform duration in [min, max].
func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
