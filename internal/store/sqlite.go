// SQLite persistence for content records.
//
// The database runs embedded with WAL mode so the watch daemon's writes
// never block web-side readers. Schema creation is idempotent and
// happens through InitSchema, typically right after Open.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB is the SQLite-backed Store.
type DB struct {
	conn *sql.DB
	path string
}

var _ Store = (*DB)(nil)

// Open creates a database connection at the given path, creating the
// parent directory if needed. The caller must Close it.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates tables and indexes if they don't exist. Safe to
// call multiple times.
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		body TEXT NOT NULL DEFAULT '',
		parent_id TEXT,
		category TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft',
		path TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		updated_by TEXT NOT NULL DEFAULT '',
		revision INTEGER NOT NULL DEFAULT 1,

		FOREIGN KEY (parent_id) REFERENCES pages(id)
	);

	-- Prior bodies, snapshotted before each update.
	CREATE TABLE IF NOT EXISTS revisions (
		page_id TEXT NOT NULL,
		revision INTEGER NOT NULL,
		body TEXT NOT NULL,
		updated_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		PRIMARY KEY (page_id, revision),
		FOREIGN KEY (page_id) REFERENCES pages(id) ON DELETE CASCADE
	);

	-- Outbound wiki links, re-extracted whenever content changes.
	CREATE TABLE IF NOT EXISTS links (
		source_id TEXT NOT NULL,
		target_slug TEXT NOT NULL,
		PRIMARY KEY (source_id, target_slug),
		FOREIGN KEY (source_id) REFERENCES pages(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_pages_parent ON pages(parent_id);
	CREATE INDEX IF NOT EXISTS idx_pages_category ON pages(category);
	CREATE INDEX IF NOT EXISTS idx_pages_path ON pages(path);
	CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(status);
	CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_slug);

	CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(slug, title, body);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Create implements Store.Create. It mints an ID when the record has
// none and fills in timestamps and the initial revision.
func (db *DB) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	rec.Revision = 1

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO pages (id, title, slug, body, parent_id, category, sort_order,
			status, path, created_at, updated_at, created_by, updated_by, revision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Slug, rec.Body, nullable(rec.ParentID), rec.Category,
		rec.SortOrder, rec.Status, rec.Path, formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt), rec.CreatedBy, rec.UpdatedBy, rec.Revision)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWrite, rec.Slug, err)
	}
	return nil
}

// Update implements Store.Update. The revision bump happens in SQL so
// concurrent writers can't mint the same revision number. A zero
// UpdatedAt is stamped with the current time; callers that track their
// own clock set it before calling.
func (db *DB) Update(ctx context.Context, rec *Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE pages
		SET title = ?, slug = ?, body = ?, parent_id = ?, category = ?,
			sort_order = ?, status = ?, path = ?, updated_at = ?, updated_by = ?,
			revision = revision + 1
		WHERE id = ?`,
		rec.Title, rec.Slug, rec.Body, nullable(rec.ParentID), rec.Category,
		rec.SortOrder, rec.Status, rec.Path, formatTime(rec.UpdatedAt),
		rec.UpdatedBy, rec.ID)
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", ErrWrite, rec.Slug, err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: update %s: %v", ErrWrite, rec.Slug, ErrNotFound)
	}

	row := db.conn.QueryRowContext(ctx, "SELECT revision FROM pages WHERE id = ?", rec.ID)
	if err := row.Scan(&rec.Revision); err != nil {
		return fmt.Errorf("%w: reload revision for %s: %v", ErrWrite, rec.Slug, err)
	}
	return nil
}

const selectColumns = `id, title, slug, body, parent_id, category, sort_order,
	status, path, created_at, updated_at, created_by, updated_by, revision`

// FindByID implements Store.FindByID.
func (db *DB) FindByID(ctx context.Context, id string) (*Record, error) {
	return db.findOne(ctx, "id", id)
}

// FindBySlug implements Store.FindBySlug.
func (db *DB) FindBySlug(ctx context.Context, slug string) (*Record, error) {
	return db.findOne(ctx, "slug", slug)
}

// FindByPath implements Store.FindByPath.
func (db *DB) FindByPath(ctx context.Context, path string) (*Record, error) {
	return db.findOne(ctx, "path", path)
}

func (db *DB) findOne(ctx context.Context, column, value string) (*Record, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM pages WHERE "+column+" = ?", value)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query page by %s: %w", column, err)
	}
	return rec, nil
}

// ListAll implements Store.ListAll.
func (db *DB) ListAll(ctx context.Context) ([]*Record, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM pages ORDER BY category, slug")
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// UpdatePath implements Store.UpdatePath.
func (db *DB) UpdatePath(ctx context.Context, id, path string) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE pages SET path = ? WHERE id = ?", path, id)
	if err != nil {
		return fmt.Errorf("%w: update path for %s: %v", ErrWrite, id, err)
	}
	return nil
}

// SlugAndParent resolves a record's slug and parent reference by stable
// identifier. It satisfies the hierarchy lookup used by path resolution.
func (db *DB) SlugAndParent(ctx context.Context, id string) (string, string, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT slug, parent_id FROM pages WHERE id = ?", id)

	var slug string
	var parent sql.NullString
	if err := row.Scan(&slug, &parent); err != nil {
		if err == sql.ErrNoRows {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("failed to query hierarchy for %s: %w", id, err)
	}
	return slug, parent.String, nil
}

// SnapshotRevision copies a record's body into the revisions table. The
// caller passes the record state prior to the update being applied.
func (db *DB) SnapshotRevision(ctx context.Context, prior *Record) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO revisions (page_id, revision, body, updated_by, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		prior.ID, prior.Revision, prior.Body, prior.UpdatedBy,
		formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to snapshot revision %d of %s: %w", prior.Revision, prior.Slug, err)
	}
	return nil
}

// ReplaceLinks swaps a page's outbound link set.
func (db *DB) ReplaceLinks(ctx context.Context, sourceID string, targets []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin link transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM links WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to clear links for %s: %w", sourceID, err)
	}
	for _, target := range targets {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO links (source_id, target_slug) VALUES (?, ?)",
			sourceID, target); err != nil {
			return fmt.Errorf("failed to insert link %s -> %s: %w", sourceID, target, err)
		}
	}
	return tx.Commit()
}

// RefreshSearchIndex replaces a page's full-text index row.
func (db *DB) RefreshSearchIndex(ctx context.Context, rec *Record) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pages_fts WHERE slug = ?", rec.Slug); err != nil {
		return fmt.Errorf("failed to clear index for %s: %w", rec.Slug, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO pages_fts (slug, title, body) VALUES (?, ?, ?)",
		rec.Slug, rec.Title, rec.Body); err != nil {
		return fmt.Errorf("failed to index %s: %w", rec.Slug, err)
	}
	return tx.Commit()
}

// PageCount returns the number of pages.
func (db *DB) PageCount(ctx context.Context) (int, error) {
	return db.count(ctx, "pages")
}

// RevisionCount returns the number of snapshotted revisions.
func (db *DB) RevisionCount(ctx context.Context) (int, error) {
	return db.count(ctx, "revisions")
}

// LinkCount returns the number of outbound links.
func (db *DB) LinkCount(ctx context.Context) (int, error) {
	return db.count(ctx, "links")
}

func (db *DB) count(ctx context.Context, table string) (int, error) {
	var n int
	row := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec                  Record
		parent               sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&rec.ID, &rec.Title, &rec.Slug, &rec.Body, &parent,
		&rec.Category, &rec.SortOrder, &rec.Status, &rec.Path,
		&createdAt, &updatedAt, &rec.CreatedBy, &rec.UpdatedBy, &rec.Revision); err != nil {
		return nil, err
	}
	rec.ParentID = parent.String

	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for %s: %w", rec.ID, err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at for %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
