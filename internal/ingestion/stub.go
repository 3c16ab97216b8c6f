package ingestion

import "context"

// StaticSource serves a fixed set of rows. Used in tests and when the
// server runs without live feeds configured.
type StaticSource struct {
	name string
	rows [][]string
	err  error
}

// NewStaticSource creates a source that always returns the given rows.
func NewStaticSource(name string, rows [][]string) *StaticSource {
	return &StaticSource{name: name, rows: rows}
}

// NewFailingSource creates a source whose Fetch always fails.
func NewFailingSource(name string, err error) *StaticSource {
	return &StaticSource{name: name, err: err}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Fetch(ctx context.Context) ([][]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}
