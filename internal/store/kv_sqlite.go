// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/farm-sync/internal/logger"
)

type sqliteKeyValue struct {
	db     *DB
	logger *logger.Logger
}

// NewSQLiteKeyValue returns a [KeyValue] backed by the single kv table of the
// local SQLite database. Values are opaque blobs; the engine serialises its
// artifacts (queue, identifier map, change history) to JSON before saving.
func NewSQLiteKeyValue(db *DB, logger *logger.Logger) KeyValue {
	return &sqliteKeyValue{
		db:     db,
		logger: logger,
	}
}

func (s *sqliteKeyValue) Load(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sq.Select("value").
		From("kv").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		s.logger.Err(err).Str("func", "sqliteKeyValue.Load").Str("key", key).
			Msg("failed to build select query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var value []byte
	row := s.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		s.logger.Err(err).Str("func", "sqliteKeyValue.Load").Str("key", key).
			Msg("failed to scan kv row")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return value, nil
}

func (s *sqliteKeyValue) Save(ctx context.Context, key string, value []byte) error {
	query, args, err := sq.Insert("kv").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UTC()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		s.logger.Err(err).Str("func", "sqliteKeyValue.Save").Str("key", key).
			Msg("failed to build upsert query")
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Err(err).Str("func", "sqliteKeyValue.Save").Str("key", key).
			Msg("failed to execute upsert")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

func (s *sqliteKeyValue) Remove(ctx context.Context, key string) error {
	query, args, err := sq.Delete("kv").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		s.logger.Err(err).Str("func", "sqliteKeyValue.Remove").Str("key", key).
			Msg("failed to build delete query")
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Err(err).Str("func", "sqliteKeyValue.Remove").Str("key", key).
			Msg("failed to execute delete")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}
