package crawler

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-aitools/config"
)

// captureKey is the request-context slot used to hand the response body
// back from the collector callbacks to the issuing Fetch call.
const captureKey = "page_capture"

type pageCapture struct {
	statusCode int
	body       []byte
}

// Fetcher retrieves raw page markup through a shared colly collector,
// wrapping each fetch in a bounded exponential-backoff retry loop. The
// collector and its transport are created once per crawl session and
// released by Close.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	transport *http.Transport
	logger    *slog.Logger
	metrics   *Metrics
	referer   string

	retryCount int64

	mu           sync.Mutex
	errorsByType map[string]int
}

// NewFetcher builds the shared collector with the session transport.
// Certificate verification is disabled deliberately: the target serves
// an inconsistent chain and content integrity is not a requirement here.
func NewFetcher(cfg *config.Config, logger *slog.Logger, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	collector := colly.NewCollector()
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(transport)

	collector.OnResponse(func(r *colly.Response) {
		if capture, ok := r.Ctx.GetAny(captureKey).(*pageCapture); ok {
			capture.statusCode = r.StatusCode
			capture.body = r.Body
		}
	})
	collector.OnError(func(r *colly.Response, _ error) {
		if r == nil || r.Ctx == nil {
			return
		}
		if capture, ok := r.Ctx.GetAny(captureKey).(*pageCapture); ok {
			capture.statusCode = r.StatusCode
		}
	})

	return &Fetcher{
		cfg:          cfg,
		collector:    collector,
		transport:    transport,
		logger:       logger,
		metrics:      metrics,
		referer:      parsed.Scheme + "://" + parsed.Host + "/",
		errorsByType: make(map[string]int),
	}, nil
}

// Fetch retrieves one page, retrying transient failures (network errors,
// non-200 statuses, empty bodies) up to MaxRetries additional attempts.
// It returns the decoded body, or a wrapped error once retries are
// exhausted; it never panics through to the caller.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		body, statusCode, err := f.do(pageURL)
		if err == nil {
			f.metrics.IncPage("ok")
			f.logger.Debug("page fetched",
				slog.String("url", pageURL),
				slog.Int("bytes", len(body)),
			)
			f.saveDebugSnapshot(body)
			return body, nil
		}

		lastErr = err
		category := errorTypeLabel(classifyError(err, statusCode))
		f.recordError(category)
		f.metrics.IncError(category)
		f.logger.Error("fetch failed",
			slog.String("url", pageURL),
			slog.Int("attempt", attempt),
			slog.String("category", category),
			slog.Any("error", err),
		)

		if attempt == f.cfg.MaxRetries {
			break
		}

		delay := f.backoff(attempt)
		atomic.AddInt64(&f.retryCount, 1)
		f.metrics.IncRetries()
		f.logger.Info("retrying after backoff",
			slog.String("url", pageURL),
			slog.Duration("delay", delay),
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	f.metrics.IncPage("failed")
	return "", fmt.Errorf("fetch %s: %w", pageURL, lastErr)
}

// do issues a single GET through the shared collector. The capture slot
// travels in the request context so concurrent fetches never race on
// shared handler state.
func (f *Fetcher) do(pageURL string) (string, int, error) {
	capture := &pageCapture{}
	requestCtx := colly.NewContext()
	requestCtx.Put(captureKey, capture)

	start := time.Now()
	err := f.collector.Request(http.MethodGet, pageURL, nil, requestCtx, requestHeaders(f.referer))
	f.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return "", capture.statusCode, err
	}
	if capture.statusCode != http.StatusOK {
		return "", capture.statusCode, fmt.Errorf("unexpected status %d", capture.statusCode)
	}
	if len(capture.body) == 0 {
		return "", capture.statusCode, errEmptyBody
	}
	return string(capture.body), capture.statusCode, nil
}

// backoff returns min(base * 2^attempt, cap). No jitter: pacing between
// pages already randomizes the request pattern.
func (f *Fetcher) backoff(attempt int) time.Duration {
	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = time.Second
	}
	if attempt > 30 {
		attempt = 30
	}
	delay := base * time.Duration(1<<uint(attempt))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

// saveDebugSnapshot overwrites the debug file with the latest raw body.
// Best-effort only; a write failure must never fail the fetch.
func (f *Fetcher) saveDebugSnapshot(body string) {
	if f.cfg.DebugFile == "" {
		return
	}
	if err := os.WriteFile(f.cfg.DebugFile, []byte(body), 0o644); err != nil {
		f.logger.Debug("debug snapshot write failed",
			slog.String("path", f.cfg.DebugFile),
			slog.Any("error", err),
		)
	}
}

func (f *Fetcher) recordError(category string) {
	f.mu.Lock()
	f.errorsByType[category]++
	f.mu.Unlock()
}

// TotalRetries reports how many retry attempts were scheduled.
func (f *Fetcher) TotalRetries() int {
	return int(atomic.LoadInt64(&f.retryCount))
}

// ErrorsByType returns a snapshot of error counts per category.
func (f *Fetcher) ErrorsByType() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.errorsByType))
	for k, v := range f.errorsByType {
		out[k] = v
	}
	return out
}

// Close releases the session transport. Safe to call once per session.
func (f *Fetcher) Close() {
	f.transport.CloseIdleConnections()
}
