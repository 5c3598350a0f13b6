// Package sqlite implements catalog.Catalog on top of database/sql and
// mattn/go-sqlite3: one records table keyed by id, plus a sources join
// table since a record's sources set is a multimap target for lookup.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mdbarr/indexer/internal/common"
	indexererrors "github.com/mdbarr/indexer/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	object TEXT NOT NULL,
	body TEXT NOT NULL,
	hash TEXT NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_records_hash ON records(hash);
CREATE TABLE IF NOT EXISTS sources (
	source TEXT NOT NULL,
	record_id TEXT NOT NULL,
	FOREIGN KEY(record_id) REFERENCES records(id)
);
CREATE INDEX IF NOT EXISTS idx_sources_source ON sources(source);
`

// Catalog is a *database/sql-backed catalog.Catalog.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at dsn and ensures
// the schema exists.
func Open(dsn string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, indexererrors.NewFatalError("catalog.sqlite.open", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, indexererrors.NewFatalError("catalog.sqlite.migrate", err)
	}
	return &Catalog{db: db}, nil
}

// Lookup implements the three-clause OR described in §4.3: id, hash, or a
// sources-table match. The sources match excludes soft-deleted records
// first so live duplicates win over tombstones; if nothing live matches,
// a second pass permits a deleted match so dedup still finds a home.
func (c *Catalog) Lookup(ctx context.Context, key string) (*common.Record, error) {
	if rec, err := c.scanOne(ctx, `SELECT body FROM records WHERE id = ? OR hash = ? LIMIT 1`, key, key); err != nil {
		return nil, err
	} else if rec != nil {
		return rec, nil
	}

	const bySourceLive = `
		SELECT r.body FROM records r
		JOIN sources s ON s.record_id = r.id
		WHERE s.source = ? AND r.deleted = 0
		LIMIT 1`
	if rec, err := c.scanOne(ctx, bySourceLive, key); err != nil {
		return nil, err
	} else if rec != nil {
		return rec, nil
	}

	const bySourceAny = `
		SELECT r.body FROM records r
		JOIN sources s ON s.record_id = r.id
		WHERE s.source = ?
		LIMIT 1`
	return c.scanOne(ctx, bySourceAny, key)
}

func (c *Catalog) scanOne(ctx context.Context, query string, args ...any) (*common.Record, error) {
	row := c.db.QueryRowContext(ctx, query, args...)
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, indexererrors.NewCatalogError("lookup", args[0].(string), err)
	}

	var rec common.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, indexererrors.NewCatalogError("lookup", args[0].(string), err)
	}
	return &rec, nil
}

// Insert appends a new record and its sources rows inside one transaction.
func (c *Catalog) Insert(ctx context.Context, record *common.Record) error {
	return c.write(ctx, record, true)
}

// Replace overwrites an existing record's body and sources rows.
func (c *Catalog) Replace(ctx context.Context, id string, record *common.Record) error {
	return c.write(ctx, record, false)
}

func (c *Catalog) write(ctx context.Context, record *common.Record, isInsert bool) error {
	body, err := json.Marshal(record)
	if err != nil {
		return indexererrors.NewCatalogError("marshal", record.ID, err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return indexererrors.NewCatalogError("begin", record.ID, err)
	}
	defer tx.Rollback()

	deleted := 0
	if record.Deleted {
		deleted = 1
	}

	if isInsert {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO records (id, object, body, hash, deleted) VALUES (?, ?, ?, ?, ?)`,
			record.ID, string(record.Object), string(body), record.Hash, deleted)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE records SET object = ?, body = ?, hash = ?, deleted = ? WHERE id = ?`,
			string(record.Object), string(body), record.Hash, deleted, record.ID)
	}
	if err != nil {
		return indexererrors.NewCatalogError("write", record.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE record_id = ?`, record.ID); err != nil {
		return indexererrors.NewCatalogError("write-sources", record.ID, err)
	}
	for _, source := range record.Sources {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sources (source, record_id) VALUES (?, ?)`, source, record.ID); err != nil {
			return indexererrors.NewCatalogError("write-sources", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return indexererrors.NewCatalogError("commit", record.ID, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}
