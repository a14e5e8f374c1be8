// Package models defines data structures for the crawler.
package models

import "time"

// DefaultCategory is used when a listing entry carries no tag element.
const DefaultCategory = "uncategorized"

// TimeLayout is the layout used for the crawl_time field.
const TimeLayout = "2006-01-02 15:04:05"

// Tool represents one directory item extracted from a listing page.
// Counter fields stay text-encoded: ambiguous markup is passed through
// as cleaned text rather than coerced to numbers.
type Tool struct {
	Name        string `csv:"name" json:"name"`
	Description string `csv:"description" json:"description"`
	URL         string `csv:"url" json:"url"`
	Category    string `csv:"category" json:"category"`
	Views       string `csv:"views" json:"views"`
	Likes       string `csv:"likes" json:"likes"`
	IconURL     string `csv:"icon_url" json:"icon_url"`
	CrawlTime   string `csv:"crawl_time" json:"crawl_time"`
}

// Pagination holds the page position metadata extracted from page 1.
// Both fields default to 1 when the pagination control is missing or
// none of its entries parse.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// CrawlResult holds the overall outcome of a crawl run.
type CrawlResult struct {
	StartTime        time.Time
	EndTime          time.Time
	TotalPages       int
	SecondaryPagesOK int
	ToolCount        int
	RetryCount       int
	DuplicateCount   int
	FailedURLs       []string
	ErrorsByType     map[string]int
}
