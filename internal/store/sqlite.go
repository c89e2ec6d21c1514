package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/yte121/openswarm-sub022/internal/model"
)

// timeLayout is fixed-width UTC so that lexicographic comparison of stored
// timestamps matches chronological order; the as-of query relies on this.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Backend using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Writes to the same identity are serialized by the single writer
	// connection; readers proceed against the last committed state.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id         TEXT PRIMARY KEY,
		category   TEXT NOT NULL,
		key        TEXT NOT NULL,
		ns         TEXT NOT NULL DEFAULT 'default',
		value      TEXT NOT NULL,
		value_kind TEXT NOT NULL DEFAULT 'json',
		metadata   TEXT,
		embedding  BLOB,
		ttl_ms     INTEGER NOT NULL DEFAULT 0,
		version    TEXT NOT NULL DEFAULT '1.0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(category, key, ns)
	);
	CREATE INDEX IF NOT EXISTS idx_records_ns ON records(ns);
	CREATE INDEX IF NOT EXISTS idx_records_category ON records(category);
	CREATE INDEX IF NOT EXISTS idx_records_created ON records(created_at DESC);

	CREATE TABLE IF NOT EXISTS versions (
		id         TEXT PRIMARY KEY,
		item_id    TEXT NOT NULL,
		category   TEXT NOT NULL,
		key        TEXT NOT NULL,
		ns         TEXT NOT NULL,
		value      TEXT NOT NULL,
		value_kind TEXT NOT NULL DEFAULT 'json',
		metadata   TEXT,
		version    TEXT NOT NULL,
		ts         TEXT NOT NULL,
		op         TEXT NOT NULL CHECK (op IN ('store', 'delete'))
	);
	CREATE INDEX IF NOT EXISTS idx_versions_item ON versions(item_id, ts);
	CREATE INDEX IF NOT EXISTS idx_versions_identity ON versions(category, key, ns, ts);
	CREATE INDEX IF NOT EXISTS idx_versions_ts ON versions(ts);

	CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
		category,
		key,
		value,
		content=records,
		content_rowid=rowid
	);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return err
	}

	// FTS5 triggers keep the text index in the same transaction as every
	// live-table write, so search never references stale or deleted rows.
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS records_ai AFTER INSERT ON records BEGIN
		INSERT INTO records_fts(rowid, category, key, value) VALUES (new.rowid, new.category, new.key, new.value);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS records_ad AFTER DELETE ON records BEGIN
		INSERT INTO records_fts(records_fts, rowid, category, key, value) VALUES('delete', old.rowid, old.category, old.key, old.value);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS records_au AFTER UPDATE ON records BEGIN
		INSERT INTO records_fts(records_fts, rowid, category, key, value) VALUES('delete', old.rowid, old.category, old.key, old.value);
		INSERT INTO records_fts(rowid, category, key, value) VALUES (new.rowid, new.category, new.key, new.value);
	END`)

	// Backfill FTS for any rows not yet indexed
	s.db.Exec(`INSERT OR IGNORE INTO records_fts(rowid, category, key, value)
		SELECT rowid, category, key, value FROM records`)

	return nil
}

// Put persists the record with insert-or-replace semantics on the identity
// tuple and appends a store row to the version log in the same transaction.
func (s *SQLiteStore) Put(ctx context.Context, rec *model.Record) (*model.Record, error) {
	if err := model.ValidateIdentity(rec.Category, rec.Key); err != nil {
		return nil, err
	}

	out := rec.Clone()
	if out.Namespace == "" {
		out.Namespace = model.DefaultNamespace
	}
	if out.Version == "" {
		out.Version = model.DefaultVersion
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("put", out.Category, out.Key, out.Namespace, err)
	}
	defer tx.Rollback()

	var metaJSON *string
	if len(out.Metadata) > 0 {
		b, err := json.Marshal(out.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		ms := string(b)
		metaJSON = &ms
	}

	// Existing identity keeps its id and created_at; overwrite is the
	// normal update path.
	var prevID, prevCreated string
	err = tx.QueryRowContext(ctx,
		`SELECT id, created_at FROM records WHERE category = ? AND key = ? AND ns = ?`,
		out.Category, out.Key, out.Namespace).Scan(&prevID, &prevCreated)

	switch {
	case err == nil:
		out.ID = prevID
		out.CreatedAt, _ = time.Parse(timeLayout, prevCreated)
		out.UpdatedAt = now
		_, err = tx.ExecContext(ctx,
			`UPDATE records SET value = ?, value_kind = ?, metadata = ?, embedding = ?,
			        ttl_ms = ?, version = ?, updated_at = ?
			 WHERE id = ?`,
			out.Value.Text(), string(out.Value.Kind), metaJSON, out.Embedding,
			out.TTL.Milliseconds(), out.Version, now.Format(timeLayout), out.ID)
		if err != nil {
			return nil, storageErr("put", out.Category, out.Key, out.Namespace, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		if out.ID == "" {
			out.ID = s.newID()
		}
		out.CreatedAt = now
		out.UpdatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO records (id, category, key, ns, value, value_kind, metadata, embedding, ttl_ms, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			out.ID, out.Category, out.Key, out.Namespace,
			out.Value.Text(), string(out.Value.Kind), metaJSON, out.Embedding,
			out.TTL.Milliseconds(), out.Version, now.Format(timeLayout), now.Format(timeLayout))
		if err != nil {
			return nil, storageErr("put", out.Category, out.Key, out.Namespace, err)
		}
	default:
		return nil, storageErr("put", out.Category, out.Key, out.Namespace, err)
	}

	if err := s.appendVersion(ctx, tx, out, now, model.OpStore); err != nil {
		return nil, storageErr("put", out.Category, out.Key, out.Namespace, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("put", out.Category, out.Key, out.Namespace, err)
	}

	return out, nil
}

func (s *SQLiteStore) appendVersion(ctx context.Context, tx *sql.Tx, rec *model.Record, ts time.Time, op model.Operation) error {
	var metaJSON *string
	if len(rec.Metadata) > 0 {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		ms := string(b)
		metaJSON = &ms
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO versions (id, item_id, category, key, ns, value, value_kind, metadata, version, ts, op)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), rec.ID, rec.Category, rec.Key, rec.Namespace,
		rec.Value.Text(), string(rec.Value.Kind), metaJSON, rec.Version,
		ts.Format(timeLayout), string(op))
	if err != nil {
		return fmt.Errorf("append version: %w", err)
	}
	return nil
}

// Get returns the live record, or ErrNotFound. Version history is never
// consulted here.
func (s *SQLiteStore) Get(ctx context.Context, category, key, namespace string) (*model.Record, error) {
	if err := model.ValidateIdentity(category, key); err != nil {
		return nil, err
	}
	if namespace == "" {
		namespace = model.DefaultNamespace
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, category, key, ns, value, value_kind, metadata, embedding, ttl_ms, version, created_at, updated_at
		 FROM records WHERE category = ? AND key = ? AND ns = ?`,
		category, key, namespace)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get", category, key, namespace, err)
	}
	return rec, nil
}

// Delete removes the live record and appends a delete row to the version
// log. Reports whether a record existed; deleting a missing identity is
// not an error and leaves no log row.
func (s *SQLiteStore) Delete(ctx context.Context, category, key, namespace string) (bool, error) {
	if err := model.ValidateIdentity(category, key); err != nil {
		return false, err
	}
	if namespace == "" {
		namespace = model.DefaultNamespace
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, storageErr("delete", category, key, namespace, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, category, key, ns, value, value_kind, metadata, embedding, ttl_ms, version, created_at, updated_at
		 FROM records WHERE category = ? AND key = ? AND ns = ?`,
		category, key, namespace)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("delete", category, key, namespace, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, rec.ID); err != nil {
		return false, storageErr("delete", category, key, namespace, err)
	}

	now := time.Now().UTC()
	if err := s.appendVersion(ctx, tx, rec, now, model.OpDelete); err != nil {
		return false, storageErr("delete", category, key, namespace, err)
	}

	if err := tx.Commit(); err != nil {
		return false, storageErr("delete", category, key, namespace, err)
	}
	return true, nil
}

// History returns the version rows for an identity, newest first.
func (s *SQLiteStore) History(ctx context.Context, category, key, namespace string) ([]model.Version, error) {
	if err := model.ValidateIdentity(category, key); err != nil {
		return nil, err
	}
	if namespace == "" {
		namespace = model.DefaultNamespace
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_id, category, key, ns, value, value_kind, metadata, version, ts, op
		 FROM versions WHERE category = ? AND key = ? AND ns = ?
		 ORDER BY ts DESC`,
		category, key, namespace)
	if err != nil {
		return nil, storageErr("history", category, key, namespace, err)
	}
	defer rows.Close()

	var versions []model.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, storageErr("history", category, key, namespace, err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*model.Record, error) {
	var r model.Record
	var value, kind, createdAt, updatedAt string
	var metaJSON sql.NullString
	var embedding []byte
	var ttlMS int64

	err := row.Scan(
		&r.ID, &r.Category, &r.Key, &r.Namespace, &value, &kind,
		&metaJSON, &embedding, &ttlMS, &r.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Value = model.Payload{Kind: model.PayloadKind(kind), Data: []byte(value)}
	r.Embedding = embedding
	r.TTL = time.Duration(ttlMS) * time.Millisecond
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	r.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	if metaJSON.Valid {
		json.Unmarshal([]byte(metaJSON.String), &r.Metadata)
	}
	return &r, nil
}

func scanVersion(row scanner) (model.Version, error) {
	var v model.Version
	var value, kind, ts, op string
	var metaJSON sql.NullString

	err := row.Scan(
		&v.ID, &v.ItemID, &v.Category, &v.Key, &v.Namespace,
		&value, &kind, &metaJSON, &v.Version, &ts, &op,
	)
	if err != nil {
		return v, err
	}

	v.Value = model.Payload{Kind: model.PayloadKind(kind), Data: []byte(value)}
	v.Timestamp, _ = time.Parse(timeLayout, ts)
	v.Operation = model.Operation(op)
	if metaJSON.Valid {
		json.Unmarshal([]byte(metaJSON.String), &v.Metadata)
	}
	return v, nil
}
