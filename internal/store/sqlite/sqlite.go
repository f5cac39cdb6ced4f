// Package sqlite is the durable document store. Every document row
// carries a version and a sync state so the sheets worker can find
// writes that were never mirrored.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"financeiro/internal/store"
)

// MaxSyncAttempts is how often a document is retried before the backfill
// stops picking it up.
const MaxSyncAttempts = 5

// Fixed-width so timestamps order correctly as text.
const timeLayout = "2006-01-02 15:04:05.000000000"

type Store struct {
	store.Hub

	db  *sql.DB
	now func() time.Time
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	doc, _, err := s.GetVersioned(ctx, collection, id)
	return doc, err
}

func (s *Store) GetVersioned(ctx context.Context, collection, id string) (json.RawMessage, int64, error) {
	var (
		data    string
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, version FROM documents WHERE collection = ? AND id = ? AND deleted_at IS NULL`,
		collection, id).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return json.RawMessage(data), version, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("%s/%s: invalid JSON document", collection, id)
	}
	now := s.timestamp()

	var version int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (collection, id, data, version, created_at, updated_at, sync_status)
		VALUES (?, ?, ?, 1, ?, ?, 'pending')
		ON CONFLICT (collection, id) DO UPDATE SET
			data = excluded.data,
			version = documents.version + 1,
			updated_at = excluded.updated_at,
			deleted_at = NULL,
			sync_status = 'pending',
			sync_attempts = 0,
			last_sync_error = NULL
		RETURNING version`,
		collection, id, string(doc), now, now).Scan(&version)
	if err != nil {
		return fmt.Errorf("set document %s/%s: %w", collection, id, err)
	}

	slog.DebugContext(ctx, "Document saved to SQLite",
		"collection", collection,
		"id", id,
		"version", version)

	s.Publish(store.Change{Collection: collection, ID: id, Op: store.OpSet, Version: version, Data: doc})
	return nil
}

// Delete keeps a tombstone until the removal was mirrored.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	var version int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE documents SET
			data = NULL,
			version = version + 1,
			updated_at = ?,
			deleted_at = ?,
			sync_status = 'pending',
			sync_attempts = 0,
			last_sync_error = NULL
		WHERE collection = ? AND id = ? AND deleted_at IS NULL
		RETURNING version`,
		s.timestamp(), s.timestamp(), collection, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}

	s.Publish(store.Change{Collection: collection, ID: id, Op: store.OpDelete, Version: version})
	return nil
}

func (s *Store) List(ctx context.Context, collection string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE collection = ? AND deleted_at IS NULL ORDER BY id`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, store.Record{ID: id, Data: json.RawMessage(data)})
	}
	return out, rows.Err()
}

// PendingSync returns documents, tombstones included, whose latest
// version was not mirrored, oldest write first.
func (s *Store) PendingSync(ctx context.Context, limit int) ([]store.Pending, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, id, version, deleted_at IS NOT NULL, sync_attempts
		FROM documents
		WHERE sync_status IN ('pending', 'error') AND sync_attempts < ?
		ORDER BY updated_at, collection, id
		LIMIT ?`,
		MaxSyncAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync documents: %w", err)
	}
	defer rows.Close()

	var out []store.Pending
	for rows.Next() {
		var p store.Pending
		if err := rows.Scan(&p.Collection, &p.ID, &p.Version, &p.Deleted, &p.Attempts); err != nil {
			return nil, fmt.Errorf("scan pending document: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced records that version was mirrored. A newer write since then
// keeps the document pending.
func (s *Store) MarkSynced(ctx context.Context, collection, id string, version int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET sync_status = 'synced', synced_version = ?, last_sync_error = NULL
		WHERE collection = ? AND id = ? AND version <= ?`,
		version, collection, id, version)
	if err != nil {
		return fmt.Errorf("mark document synced: %w", err)
	}
	return nil
}

func (s *Store) MarkSyncError(ctx context.Context, collection, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET sync_status = 'error', sync_attempts = sync_attempts + 1, last_sync_error = ?
		WHERE collection = ? AND id = ?`,
		msg, collection, id)
	if err != nil {
		return fmt.Errorf("mark document sync error: %w", err)
	}
	return nil
}

// PurgeTombstones drops deleted rows that were mirrored before cutoff.
func (s *Store) PurgeTombstones(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE deleted_at IS NOT NULL AND sync_status = 'synced' AND deleted_at < ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge tombstones: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}
