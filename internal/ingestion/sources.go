package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Source provides raw trade rows from an external feed. Implementations
// return data rows only; headers and preamble lines are consumed internally.
type Source interface {
	// Name identifies the feed; it becomes the Source field of stored trades.
	Name() string
	// Fetch returns all rows of the feed snapshot.
	Fetch(ctx context.Context) ([][]string, error)
}

// HTTPCSVSource downloads a trade history CSV snapshot over HTTP.
// The feed carries one preamble line before the header row; both are
// skipped.
type HTTPCSVSource struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPCSVSource creates a source for a named CSV feed URL.
func NewHTTPCSVSource(name, url string) *HTTPCSVSource {
	return &HTTPCSVSource{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the feed name.
func (s *HTTPCSVSource) Name() string { return s.name }

// Fetch downloads and parses the CSV snapshot.
func (s *HTTPCSVSource) Fetch(ctx context.Context) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", s.name, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", s.name, resp.StatusCode)
	}

	return readCSVRows(resp.Body)
}

// FileCSVSource reads a trade history CSV snapshot from disk. Same layout
// as the HTTP feed: one preamble line, then the header, then data rows.
type FileCSVSource struct {
	name string
	path string
}

// NewFileCSVSource creates a source over a local CSV file.
func NewFileCSVSource(name, path string) *FileCSVSource {
	return &FileCSVSource{name: name, path: path}
}

// Name returns the feed name.
func (s *FileCSVSource) Name() string { return s.name }

// Fetch reads and parses the CSV file.
func (s *FileCSVSource) Fetch(_ context.Context) ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	return readCSVRows(f)
}

// readCSVRows parses feed CSV content, dropping the preamble and header
// lines. Rows with the wrong field count are kept; the row parser counts
// them as malformed later.
func readCSVRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(all) <= 2 {
		return nil, nil
	}
	return all[2:], nil
}
