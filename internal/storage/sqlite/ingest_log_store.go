package sqlite

import (
	"context"
	"fmt"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// IngestLogStore implements storage.IngestLogStore using SQLite.
type IngestLogStore struct {
	db *DB
}

// NewIngestLogStore creates a new IngestLogStore.
func NewIngestLogStore(db *DB) *IngestLogStore {
	return &IngestLogStore{db: db}
}

// Compile-time interface check.
var _ storage.IngestLogStore = (*IngestLogStore)(nil)

// Append adds a log entry.
func (s *IngestLogStore) Append(ctx context.Context, e *domain.IngestLogEntry) error {
	if e == nil || e.Source == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_log (source, last_update, records_added, skipped_rows, status)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Source, formatTime(e.LastUpdate), e.RecordsAdded, e.SkippedRows, e.Status)
	if err != nil {
		return fmt.Errorf("append ingest log: %w", err)
	}
	return nil
}

// Recent retrieves up to limit entries, newest first.
func (s *IngestLogStore) Recent(ctx context.Context, limit int) ([]*domain.IngestLogEntry, error) {
	query := `
		SELECT source, last_update, records_added, skipped_rows, status
		FROM ingest_log
		ORDER BY last_update DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ingest log: %w", err)
	}
	defer rows.Close()

	var result []*domain.IngestLogEntry
	for rows.Next() {
		var e domain.IngestLogEntry
		var lastUpdate string
		if err := rows.Scan(&e.Source, &lastUpdate, &e.RecordsAdded, &e.SkippedRows, &e.Status); err != nil {
			return nil, fmt.Errorf("scan ingest log row: %w", err)
		}
		if e.LastUpdate, err = parseTime(lastUpdate); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest log rows: %w", err)
	}
	return result, nil
}

// DeleteAll removes every log entry.
func (s *IngestLogStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ingest_log`)
	if err != nil {
		return 0, fmt.Errorf("delete ingest log: %w", err)
	}
	return res.RowsAffected()
}
