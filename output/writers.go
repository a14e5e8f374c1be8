// Package output persists the final record collection to disk.
package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/go-scrape-aitools/models"
)

// Writer defines the interface for data output.
type Writer interface {
	Write(tools []*models.Tool) error
	Close() error
	Validate() error
}

// csvHeader matches the Tool field order.
var csvHeader = []string{"name", "description", "url", "category", "views", "likes", "icon_url", "crawl_time"}

// CSVWriter writes records to CSV: a fixed header row, then one row per
// record in collection order.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	rows   int
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends tools to the CSV output.
func (cw *CSVWriter) Write(tools []*models.Tool) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, tool := range tools {
		record := []string{
			tool.Name,
			tool.Description,
			tool.URL,
			tool.Category,
			tool.Views,
			tool.Likes,
			tool.IconURL,
			tool.CrawlTime,
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	cw.rows += len(tools)
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content besides the header.
func (cw *CSVWriter) Validate() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if _, err := cw.file.Stat(); err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if cw.rows == 0 {
		return fmt.Errorf("csv file has no records")
	}
	return nil
}

// toolDocument is the on-disk JSON shape: one object with the record
// list under a single key.
type toolDocument struct {
	Tools []*models.Tool `json:"tools"`
}

// JSONWriter writes the whole collection as one indented JSON document.
// Write is intended to be called once with the full collection.
type JSONWriter struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	return &JSONWriter{
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// Write encodes the collection. Non-ASCII text stays literal and HTML
// characters are not escaped; indentation is two spaces.
func (jw *JSONWriter) Write(tools []*models.Tool) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	encoder := json.NewEncoder(jw.writer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(toolDocument{Tools: tools}); err != nil {
		return fmt.Errorf("encode json document: %w", err)
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	info, err := jw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
