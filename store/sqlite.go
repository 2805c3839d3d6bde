// Package store persists canonical records and the fetch cursor in an SQLite
// document store. Records live as JSON documents keyed by external id; the
// cursor is a singleton row per source whose in_progress column doubles as
// the cross-invocation mutex.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// Store-imposed predicate and batch limits. Lookups by "id in (...)" accept
// at most MaxLookupIDs values; an atomic write batch holds at most
// MaxBatchOps operations. The upsert writer chunks around both.
const (
	MaxLookupIDs = 10
	MaxBatchOps  = 500
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id              TEXT PRIMARY KEY,
	doc             TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	last_fetched_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS fetch_cursors (
	source               TEXT PRIMARY KEY,
	last_run_at          TEXT NOT NULL DEFAULT '',
	current_page         INTEGER,
	in_progress          INTEGER NOT NULL DEFAULT 0,
	last_error           TEXT NOT NULL DEFAULT '',
	last_complete_run_at TEXT,
	total_items_seen     INTEGER NOT NULL DEFAULT 0
);
`

var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Store is the SQLite-backed document store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path. ":memory:" opens an
// in-memory store for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: stores coherent and sidesteps
	// writer contention under WAL.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetRecords looks up stored records by external id with a single "id in"
// predicate. The id slice must respect MaxLookupIDs; chunking is the
// caller's concern.
func (s *Store) GetRecords(ctx context.Context, ids []string) (map[string]models.StoredRecord, error) {
	if len(ids) == 0 {
		return map[string]models.StoredRecord{}, nil
	}
	if len(ids) > MaxLookupIDs {
		return nil, fmt.Errorf("lookup predicate holds %d ids, limit is %d", len(ids), MaxLookupIDs)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT doc FROM records WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.StoredRecord, len(ids))
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec models.StoredRecord
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

// OpKind distinguishes create and update operations in a write batch.
type OpKind string

// Write operation kinds.
const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
)

// WriteOp is one operation inside an atomic batch.
type WriteOp struct {
	Kind   OpKind
	Record models.StoredRecord
}

// RunBatch commits a batch of write operations atomically. The batch must
// respect MaxBatchOps. The created_at column never changes on conflict, so
// creation time stays immutable even at the storage level.
func (s *Store) RunBatch(ctx context.Context, ops []WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > MaxBatchOps {
		return fmt.Errorf("batch holds %d operations, limit is %d", len(ops), MaxBatchOps)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, doc, created_at, updated_at, last_fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc = excluded.doc,
			updated_at = excluded.updated_at,
			last_fetched_at = excluded.last_fetched_at`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		doc, err := json.Marshal(op.Record)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", op.Record.ID, err)
		}
		_, err = stmt.ExecContext(ctx, op.Record.ID, string(doc),
			fmtTime(op.Record.CreatedAt), fmtTime(op.Record.UpdatedAt), fmtTime(op.Record.LastFetchedAt))
		if err != nil {
			return fmt.Errorf("write record %s: %w", op.Record.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// AllRecords returns every stored record ordered by id.
func (s *Store) AllRecords(ctx context.Context) ([]models.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT doc FROM records ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []models.StoredRecord
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec models.StoredRecord
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecordsMissingDetail returns up to limit stored records whose document
// still lacks detail-page facets, oldest fetch first.
func (s *Store) RecordsMissingDetail(ctx context.Context, limit int) ([]models.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM records
		WHERE json_extract(doc, '$.description') IS NULL
		ORDER BY last_fetched_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query records missing detail: %w", err)
	}
	defer rows.Close()

	var out []models.StoredRecord
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec models.StoredRecord
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountRecords returns the number of stored records.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n)
	return n, err
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
