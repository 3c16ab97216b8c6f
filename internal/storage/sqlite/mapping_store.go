package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// MappingStore implements storage.MappingStore using SQLite.
type MappingStore struct {
	db *DB
}

// NewMappingStore creates a new MappingStore.
func NewMappingStore(db *DB) *MappingStore {
	return &MappingStore{db: db}
}

// Compile-time interface check.
var _ storage.MappingStore = (*MappingStore)(nil)

// Get retrieves the mapping for a source magic number.
func (s *MappingStore) Get(ctx context.Context, fromMagic int64) (*domain.MagicMapping, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT from_magic, to_magic, created_at FROM magic_mappings WHERE from_magic = ?`,
		fromMagic)

	m, err := scanMapping(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return m, nil
}

// Upsert adds or replaces the mapping keyed by FromMagic.
func (s *MappingStore) Upsert(ctx context.Context, m *domain.MagicMapping) error {
	if m == nil || m.FromMagic == 0 {
		return storage.ErrInvalidInput
	}

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO magic_mappings (from_magic, to_magic, created_at) VALUES (?, ?, ?)`,
		m.FromMagic, m.ToMagic, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("upsert mapping: %w", err)
	}
	return nil
}

// Delete removes the mapping for fromMagic. Returns ErrNotFound when absent.
func (s *MappingStore) Delete(ctx context.Context, fromMagic int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM magic_mappings WHERE from_magic = ?`, fromMagic)
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List retrieves all mappings, ordered by FromMagic ASC.
func (s *MappingStore) List(ctx context.Context) ([]*domain.MagicMapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_magic, to_magic, created_at FROM magic_mappings ORDER BY from_magic ASC`)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var result []*domain.MagicMapping
	for rows.Next() {
		var m domain.MagicMapping
		var createdAt string
		if err := rows.Scan(&m.FromMagic, &m.ToMagic, &createdAt); err != nil {
			return nil, fmt.Errorf("scan mapping row: %w", err)
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mapping rows: %w", err)
	}
	return result, nil
}

func scanMapping(row *sql.Row) (*domain.MagicMapping, error) {
	var m domain.MagicMapping
	var createdAt string

	if err := row.Scan(&m.FromMagic, &m.ToMagic, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &m, nil
}
