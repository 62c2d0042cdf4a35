package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// BlobStore is the durable key-value store both collections persist into: one
// opaque JSON blob per fixed key, replaced wholesale on every save.
type BlobStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewBlobStore(db *sql.DB, logger zerolog.Logger) *BlobStore {
	return &BlobStore{db: db, logger: logger}
}

// Get returns the blob stored under key, or nil when the key has never been
// written.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM blobs WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to read blob")
		return nil, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return value, nil
}

func (s *BlobStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to write blob")
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	s.logger.Debug().Str("key", key).Int("bytes", len(value)).Msg("blob written")
	return nil
}
