// Package parser extracts tool records and pagination metadata from
// listing-page markup. All functions are pure: they take raw markup and
// perform no I/O, so the fetch layer stays fully decoupled.
package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-aitools/models"
)

// ParseToolList extracts every well-formed tool card from the markup.
// Malformed cards yield no record and never abort the page; the relative
// order of valid cards is preserved.
func ParseToolList(markup string) []*models.Tool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var tools []*models.Tool
	doc.Find("div.card-app").Each(func(_ int, card *goquery.Selection) {
		if tool := parseToolCard(card); tool != nil {
			tools = append(tools, tool)
		}
	})
	return tools
}

// parseToolCard reads one card. A card without its content block or name
// anchor, or with an empty name or link, yields nil.
func parseToolCard(card *goquery.Selection) *models.Tool {
	body := card.Find("div.card-body").First()
	if body.Length() == 0 {
		return nil
	}

	content := body.Find("div.app-content").First()
	if content.Length() == 0 {
		return nil
	}

	title := content.Find("a").First()
	if title.Length() == 0 {
		return nil
	}

	name := CleanText(title.Text())
	link := strings.TrimSpace(title.AttrOr("href", ""))
	if name == "" || link == "" {
		return nil
	}

	description := ""
	if desc := content.Find("div.text-muted").First(); desc.Length() > 0 {
		description = CleanText(desc.Text())
	}

	category := models.DefaultCategory
	if tag := content.Find("div.tga").First(); tag.Length() > 0 {
		if catLink := tag.Find("a").First(); catLink.Length() > 0 {
			category = CleanText(catLink.Text())
		}
	}

	// Counter markers live in muted blocks that are direct children of
	// the content block; they are absent from most real pages, in which
	// case the "0" defaults stand.
	views, likes := "0", "0"
	content.ChildrenFiltered("div.text-muted").Find("span").Each(func(_ int, span *goquery.Selection) {
		switch {
		case span.HasClass("down"):
			views = CleanText(strings.ReplaceAll(span.Text(), "down", ""))
		case span.HasClass("home-like"):
			likes = CleanText(span.Text())
		}
	})

	iconURL := ""
	if media := body.Find("a.media-content").First(); media.Length() > 0 {
		iconURL = stripBackgroundURL(media.AttrOr("data-bg", ""))
	}

	return &models.Tool{
		Name:        name,
		Description: description,
		URL:         link,
		Category:    category,
		Views:       views,
		Likes:       likes,
		IconURL:     iconURL,
		CrawlTime:   time.Now().Format(models.TimeLayout),
	}
}

// ExtractPagination reads the pagination control from page-1 markup.
// Every parse failure degrades to the defaults {1, 1}; total is clamped
// so it never falls below the current page.
func ExtractPagination(markup string) models.Pagination {
	pg := models.Pagination{CurrentPage: 1, TotalPages: 1}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return pg
	}

	control := doc.Find("div.pagination").First()
	if control.Length() == 0 {
		return pg
	}

	if current := control.Find("span.current").First(); current.Length() > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(current.Text())); err == nil && n > 0 {
			pg.CurrentPage = n
		}
	}

	maxPage := 0
	control.Find("a.page-numbers").Each(func(_ int, link *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(link.Text())); err == nil && n > maxPage {
			maxPage = n
		}
	})
	if maxPage > 0 {
		pg.TotalPages = maxPage
	}
	if pg.TotalPages < pg.CurrentPage {
		pg.TotalPages = pg.CurrentPage
	}

	return pg
}

// IsValidPage reports whether the markup matches the expected listing
// shape: a content area plus at least one tool card. Block pages and
// redirects served with HTTP 200 fail this check.
func IsValidPage(markup string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return false
	}
	if doc.Find("div.content").Length() == 0 {
		return false
	}
	return doc.Find("div.card-app").Length() > 0
}

// CleanText trims the string and then collapses embedded newlines and
// tabs to single spaces, dropping carriage returns.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\t", " ")
}

// stripBackgroundURL unwraps a CSS background-image value such as
// url(https://cdn.example/icon.png).
func stripBackgroundURL(value string) string {
	value = strings.ReplaceAll(value, "url(", "")
	value = strings.ReplaceAll(value, ")", "")
	return strings.TrimSpace(value)
}
