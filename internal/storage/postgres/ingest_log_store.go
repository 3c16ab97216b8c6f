package postgres

import (
	"context"
	"fmt"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// IngestLogStore implements storage.IngestLogStore using PostgreSQL.
type IngestLogStore struct {
	pool *Pool
}

// NewIngestLogStore creates a new IngestLogStore.
func NewIngestLogStore(pool *Pool) *IngestLogStore {
	return &IngestLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IngestLogStore = (*IngestLogStore)(nil)

// Append records one ingest run.
func (s *IngestLogStore) Append(ctx context.Context, e *domain.IngestLogEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_log (source, last_update, records_added, skipped_rows, status)
		VALUES ($1, $2, $3, $4, $5)
	`, e.Source, e.LastUpdate, e.RecordsAdded, e.SkippedRows, e.Status)
	if err != nil {
		return fmt.Errorf("append ingest log entry: %w", err)
	}
	return nil
}

// Recent retrieves the latest entries, newest first. limit <= 0 means no limit.
func (s *IngestLogStore) Recent(ctx context.Context, limit int) ([]*domain.IngestLogEntry, error) {
	query := `
		SELECT source, last_update, records_added, skipped_rows, status
		FROM ingest_log
		ORDER BY last_update DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent ingest log entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.IngestLogEntry
	for rows.Next() {
		var e domain.IngestLogEntry
		if err := rows.Scan(&e.Source, &e.LastUpdate, &e.RecordsAdded, &e.SkippedRows, &e.Status); err != nil {
			return nil, fmt.Errorf("scan ingest log row: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest log rows: %w", err)
	}
	return entries, nil
}

// DeleteAll removes every log entry.
func (s *IngestLogStore) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ingest_log`)
	if err != nil {
		return 0, fmt.Errorf("delete ingest log: %w", err)
	}
	return tag.RowsAffected(), nil
}
