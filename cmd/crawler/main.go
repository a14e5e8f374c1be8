package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-aitools/config"
	"github.com/aluiziolira/go-scrape-aitools/crawler"
	"github.com/aluiziolira/go-scrape-aitools/models"
	"github.com/aluiziolira/go-scrape-aitools/output"
)

func main() {
	defaultCfg := config.DefaultConfig()

	formatDefault := defaultCfg.OutputFormat
	if value, ok := config.EnvString("CRAWLER_FORMAT"); ok {
		formatDefault = value
	}
	outputDirDefault := defaultCfg.OutputDir
	if value, ok := config.EnvString("CRAWLER_OUTPUT_DIR"); ok {
		outputDirDefault = value
	}
	retriesDefault := defaultCfg.MaxRetries
	if value, ok, err := config.EnvInt("CRAWLER_MAX_RETRIES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid CRAWLER_MAX_RETRIES: %v\n", err)
		os.Exit(1)
	} else if ok {
		retriesDefault = value
	}

	format := flag.String("format", formatDefault, "Output format: json, csv, or dual")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Base listing URL to crawl")
	outputDir := flag.String("output-dir", outputDirDefault, "Directory for output files")
	maxRetries := flag.Int("max-retries", retriesDefault, "Maximum retry attempts per page fetch")
	metricsAddr := flag.String("metrics-addr", defaultCfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.BaseURL = *baseURL
	cfg.OutputFormat = strings.ToLower(*format)
	cfg.OutputDir = *outputDir
	cfg.MaxRetries = *maxRetries
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting crawl",
		slog.String("base_url", cfg.BaseURL),
		slog.String("format", cfg.OutputFormat),
		slog.Int("max_retries", cfg.MaxRetries),
	)

	c, err := crawler.New(cfg, crawler.WithLogger(logger))
	if err != nil {
		slog.Error("initialising crawler", slog.Any("error", err))
		os.Exit(1)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && c.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(c.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := c.CrawlAll(ctx)
	if err != nil {
		slog.Error("crawl failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if ctx.Err() != nil {
		slog.Info("crawl stopped by user")
		return
	}

	tools := c.Tools()
	if len(tools) == 0 {
		slog.Error("no tools collected")
		return
	}

	path, err := output.Save(tools, cfg.OutputFormat, cfg.OutputDir)
	if err != nil {
		slog.Error("saving output failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("data saved",
		slog.String("path", path),
		slog.Int("tools", len(tools)),
	)

	printSummary(result, path)
}

func printSummary(result *models.CrawlResult, outputPath string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")
	fmt.Printf("  Total tools:     %d\n", result.ToolCount)
	fmt.Printf("  Total pages:     %d\n", result.TotalPages)
	if result.TotalPages > 1 {
		fmt.Printf("  Secondary pages: %d/%d\n", result.SecondaryPagesOK, result.TotalPages-1)
	}
	fmt.Printf("  Retries:         %d\n", result.RetryCount)
	fmt.Printf("  Failed URLs:     %d\n", len(result.FailedURLs))
	if result.DuplicateCount > 0 {
		fmt.Printf("  Duplicate URLs:  %d\n", result.DuplicateCount)
	}
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:     %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:        %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Printf("  Output file:     %s\n", outputPath)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
