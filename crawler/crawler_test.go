package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-scrape-aitools/config"
)

func newTestCrawler(t *testing.T, cfg *config.Config) (*Crawler, *httpmock.MockTransport) {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("new crawler: %v", err)
	}
	t.Cleanup(c.Close)
	transport := httpmock.NewMockTransport()
	c.fetcher.collector.WithTransport(transport)
	return c, transport
}

func TestPageURL(t *testing.T) {
	cfg := testConfig()
	cfg.BaseURL = "https://x/y/"
	c, _ := newTestCrawler(t, cfg)

	if got := c.pageURL(3); got != "https://x/y/page/3" {
		t.Fatalf("pageURL(3) = %q, want https://x/y/page/3", got)
	}
	if got := c.pageURL(1); got != "https://x/y" {
		t.Fatalf("pageURL(1) = %q, want https://x/y", got)
	}
}

func TestCrawlAllTwoPages(t *testing.T) {
	cfg := testConfig()
	c, transport := newTestCrawler(t, cfg)

	page1 := buildListingPage(2, "alpha", "beta", "gamma")
	page2 := buildListingPage(0, "delta", "epsilon")

	registerPage(transport, cfg.BaseURL, page1)
	transport.RegisterResponder("GET", "http://example.test/list/page/2", httpmock.NewStringResponder(http.StatusOK, page2))

	result, err := c.CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}

	if result.TotalPages != 2 {
		t.Fatalf("total pages=%d, want 2", result.TotalPages)
	}
	if result.SecondaryPagesOK != 1 {
		t.Fatalf("secondary pages ok=%d, want 1", result.SecondaryPagesOK)
	}
	if result.ToolCount != 5 {
		t.Fatalf("tool count=%d, want 5", result.ToolCount)
	}

	tools := c.Tools()
	if len(tools) != 5 {
		t.Fatalf("tools=%d, want 5", len(tools))
	}
	names := make(map[string]bool, len(tools))
	for _, tool := range tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
		if !names[want] {
			t.Fatalf("missing tool %q in %v", want, names)
		}
	}
}

func TestCrawlAllFirstFetchFails(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 0
	c, transport := newTestCrawler(t, cfg)

	responder := httpmock.NewStringResponder(http.StatusBadGateway, "")
	transport.RegisterResponder("GET", cfg.BaseURL, responder)
	transport.RegisterResponder("GET", strings.TrimSuffix(cfg.BaseURL, "/"), responder)

	result, err := c.CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("a failed first fetch is a normal terminal outcome, got %v", err)
	}
	if result.ToolCount != 0 {
		t.Fatalf("tool count=%d, want 0", result.ToolCount)
	}
	if len(result.FailedURLs) != 1 {
		t.Fatalf("failed urls=%v, want the base url", result.FailedURLs)
	}
}

func TestCrawlAllInvalidFirstPageStillFansOut(t *testing.T) {
	cfg := testConfig()
	c, transport := newTestCrawler(t, cfg)

	// Page 1 has no content area, so extraction is skipped, but the
	// pagination control is still honoured.
	page1 := `<html><body>` + paginationControl(2) + `</body></html>`
	page2 := buildListingPage(0, "late-one", "late-two")

	registerPage(transport, cfg.BaseURL, page1)
	transport.RegisterResponder("GET", "http://example.test/list/page/2", httpmock.NewStringResponder(http.StatusOK, page2))

	result, err := c.CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if result.ToolCount != 2 {
		t.Fatalf("tool count=%d, want 2 (page 2 only)", result.ToolCount)
	}
	if result.SecondaryPagesOK != 1 {
		t.Fatalf("secondary pages ok=%d, want 1", result.SecondaryPagesOK)
	}
}

func TestCrawlAllFailedSecondaryPageDoesNotAbort(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 0
	c, transport := newTestCrawler(t, cfg)

	page1 := buildListingPage(3, "one")
	page3 := buildListingPage(0, "three")

	registerPage(transport, cfg.BaseURL, page1)
	transport.RegisterResponder("GET", "http://example.test/list/page/2", httpmock.NewStringResponder(http.StatusInternalServerError, ""))
	transport.RegisterResponder("GET", "http://example.test/list/page/3", httpmock.NewStringResponder(http.StatusOK, page3))

	result, err := c.CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if result.ToolCount != 2 {
		t.Fatalf("tool count=%d, want 2", result.ToolCount)
	}
	if result.SecondaryPagesOK != 1 {
		t.Fatalf("secondary pages ok=%d, want 1 of 2", result.SecondaryPagesOK)
	}
	if len(result.FailedURLs) != 1 || !strings.HasSuffix(result.FailedURLs[0], "/page/2") {
		t.Fatalf("failed urls=%v, want page 2 only", result.FailedURLs)
	}
}

func TestCrawlAllCountsDuplicateURLs(t *testing.T) {
	cfg := testConfig()
	c, transport := newTestCrawler(t, cfg)

	// "alpha" appears on both pages; it stays in the collection and is
	// counted as a duplicate.
	page1 := buildListingPage(2, "alpha")
	page2 := buildListingPage(0, "alpha", "beta")

	registerPage(transport, cfg.BaseURL, page1)
	transport.RegisterResponder("GET", "http://example.test/list/page/2", httpmock.NewStringResponder(http.StatusOK, page2))

	result, err := c.CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if result.ToolCount != 3 {
		t.Fatalf("tool count=%d, want 3 (duplicates are kept)", result.ToolCount)
	}
	if result.DuplicateCount != 1 {
		t.Fatalf("duplicates=%d, want 1", result.DuplicateCount)
	}
}

func registerPage(transport *httpmock.MockTransport, baseURL, body string) {
	responder := httpmock.NewStringResponder(http.StatusOK, body)
	transport.RegisterResponder("GET", baseURL, responder)
	transport.RegisterResponder("GET", strings.TrimSuffix(baseURL, "/"), responder)
}

func paginationControl(totalPages int) string {
	var builder strings.Builder
	builder.WriteString(`<div class="pagination"><span class="current">1</span>`)
	for page := 1; page <= totalPages; page++ {
		fmt.Fprintf(&builder, `<a class="page-numbers">%d</a>`, page)
	}
	builder.WriteString(`<a class="page-numbers">next</a></div>`)
	return builder.String()
}

func buildListingPage(totalPages int, names ...string) string {
	var builder strings.Builder
	builder.WriteString(`<html><body><div class="content">`)
	for _, name := range names {
		fmt.Fprintf(&builder, `<div class="card-app"><div class="card-body"><div class="app-content"><a href="/tool/%s">%s</a></div></div></div>`, name, name)
	}
	if totalPages > 1 {
		builder.WriteString(paginationControl(totalPages))
	}
	builder.WriteString(`</div></body></html>`)
	return builder.String()
}
