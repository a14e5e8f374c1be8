package output

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-aitools/models"
)

// Filename builds the timestamped output name for a format.
func Filename(format string, now time.Time) string {
	stamp := now.Format("20060102_150405")
	if format == "csv" {
		return fmt.Sprintf("ai_tools_%s.csv", stamp)
	}
	return fmt.Sprintf("ai_tools_%s.json", stamp)
}

// NewWriter builds the writer for a format at path. For the dual format
// path names the CSV file and the JSON file sits next to it.
func NewWriter(format, path string) (Writer, error) {
	switch format {
	case "json":
		return NewJSONWriter(path)
	case "csv":
		return NewCSVWriter(path)
	case "dual":
		jsonPath := strings.TrimSuffix(path, ".csv") + ".json"
		return NewDualWriter(path, jsonPath)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Save persists the collection under dir and returns the written path.
func Save(tools []*models.Tool, format, dir string) (string, error) {
	now := time.Now()
	name := Filename(format, now)
	if format == "dual" {
		// The dual writer takes the CSV path and derives the JSON one.
		name = Filename("csv", now)
	}
	path := filepath.Join(dir, name)

	writer, err := NewWriter(format, path)
	if err != nil {
		return "", err
	}

	if err := writer.Write(tools); err != nil {
		writer.Close()
		return "", err
	}
	if err := writer.Validate(); err != nil {
		writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return path, nil
}
