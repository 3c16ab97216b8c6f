package postgres

import (
	"context"
	"fmt"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// MappingStore implements storage.MappingStore using PostgreSQL.
type MappingStore struct {
	pool *Pool
}

// NewMappingStore creates a new MappingStore.
func NewMappingStore(pool *Pool) *MappingStore {
	return &MappingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MappingStore = (*MappingStore)(nil)

// Get retrieves the mapping for a source magic number. Returns ErrNotFound if not exists.
func (s *MappingStore) Get(ctx context.Context, fromMagic int64) (*domain.MagicMapping, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT from_magic, to_magic, created_at FROM magic_mappings WHERE from_magic = $1`,
		fromMagic)

	var m domain.MagicMapping
	if err := row.Scan(&m.FromMagic, &m.ToMagic, &m.CreatedAt); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get magic mapping: %w", err)
	}
	return &m, nil
}

// Upsert writes a mapping, replacing any existing row for the same source magic.
func (s *MappingStore) Upsert(ctx context.Context, m *domain.MagicMapping) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO magic_mappings (from_magic, to_magic, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (from_magic) DO UPDATE SET to_magic = EXCLUDED.to_magic, created_at = EXCLUDED.created_at
	`, m.FromMagic, m.ToMagic, createdAt)
	if err != nil {
		return fmt.Errorf("upsert magic mapping: %w", err)
	}
	return nil
}

// Delete removes the mapping for a source magic number. Returns ErrNotFound if not exists.
func (s *MappingStore) Delete(ctx context.Context, fromMagic int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM magic_mappings WHERE from_magic = $1`, fromMagic)
	if err != nil {
		return fmt.Errorf("delete magic mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List retrieves all mappings ordered by source magic number.
func (s *MappingStore) List(ctx context.Context) ([]*domain.MagicMapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT from_magic, to_magic, created_at FROM magic_mappings ORDER BY from_magic ASC`)
	if err != nil {
		return nil, fmt.Errorf("list magic mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*domain.MagicMapping
	for rows.Next() {
		var m domain.MagicMapping
		if err := rows.Scan(&m.FromMagic, &m.ToMagic, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan magic mapping row: %w", err)
		}
		mappings = append(mappings, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate magic mapping rows: %w", err)
	}
	return mappings, nil
}
