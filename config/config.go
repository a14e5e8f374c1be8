package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds crawler configuration.
type Config struct {
	BaseURL         string
	MaxRetries      int
	Timeout         time.Duration
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration

	// Pacing before each page fetch (uniform random in [min, max]).
	PageDelayMin time.Duration
	PageDelayMax time.Duration
	// Stagger between launching concurrent page operations.
	StaggerDelayMin time.Duration
	StaggerDelayMax time.Duration

	OutputDir    string
	OutputFormat string // json, csv, or dual
	DebugFile    string // last-fetched page snapshot, empty disables

	DuplicateCacheSize int
	MetricsAddr        string
	Verbose            bool
}

// DefaultConfig returns the defaults used against the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "https://ai-bot.cn/ai-app-store/",
		MaxRetries:         3,
		Timeout:            60 * time.Second,
		RetryBackoff:       time.Second,
		RetryBackoffMax:    60 * time.Second,
		PageDelayMin:       2 * time.Second,
		PageDelayMax:       5 * time.Second,
		StaggerDelayMin:    time.Second,
		StaggerDelayMax:    3 * time.Second,
		OutputDir:          "data/output",
		OutputFormat:       "json",
		DebugFile:          "debug_page.html",
		DuplicateCacheSize: 4096,
		MetricsAddr:        "",
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RetryBackoff <= 0 {
		return fmt.Errorf("retry backoff must be positive")
	}
	if c.RetryBackoffMax < c.RetryBackoff {
		return fmt.Errorf("retry backoff max (%s) cannot be below retry backoff (%s)", c.RetryBackoffMax, c.RetryBackoff)
	}
	if c.PageDelayMin < 0 || c.StaggerDelayMin < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	if c.PageDelayMax < c.PageDelayMin {
		return fmt.Errorf("page delay max cannot be below page delay min")
	}
	if c.StaggerDelayMax < c.StaggerDelayMin {
		return fmt.Errorf("stagger delay max cannot be below stagger delay min")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.OutputFormat != "json" && c.OutputFormat != "csv" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be json, csv, or dual")
	}
	if c.DuplicateCacheSize <= 0 {
		return fmt.Errorf("duplicate cache size must be positive")
	}

	return nil
}
