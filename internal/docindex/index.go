// Package docindex implements the documentation search index: a SQLite
// FTS5 database that upserts Document records from the crawl engine and
// answers ranked, filtered search queries over them.
package docindex

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
	"github.com/tijs/cupertino-skill-sub001/internal/crawl"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

CREATE TABLE IF NOT EXISTS documents (
	uri          TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	framework    TEXT NOT NULL,
	language     TEXT,
	title        TEXT NOT NULL,
	summary      TEXT NOT NULL,
	file_path    TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	last_crawled TEXT NOT NULL,
	json_data    BLOB,
	availability TEXT,
	min_ios      INTEGER,
	min_macos    INTEGER,
	min_tvos     INTEGER,
	min_watchos  INTEGER,
	min_visionos INTEGER
);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	uri UNINDEXED,
	title,
	content,
	tokenize='unicode61'
);

CREATE VIRTUAL TABLE IF NOT EXISTS frameworks_fts USING fts5(
	framework,
	tokenize='unicode61'
);

CREATE TABLE IF NOT EXISTS framework_stats (
	framework       TEXT PRIMARY KEY,
	document_count  INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

// Index is the doc index's single logical connection. All writes are
// serialized through a mutex; SQLite's WAL mode gives concurrent readers
// their own snapshot regardless.
type Index struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open creates or opens the doc index database at path ("" for in-memory,
// used by tests). It verifies the schema version matches what this binary
// expects, failing with a SchemaMismatch error rather than silently
// operating against an index built by an incompatible version.
func Open(path string) (*Index, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, cerr.PersistenceError(cerr.ErrCodeDiskFull, "doc index: create directory", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: set pragma "+pragma, err)
		}
	}

	idx := &Index{db: db, path: path}
	if err := idx.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) init() error {
	if _, err := idx.db.Exec(schema); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: create schema", err)
	}

	var version int
	if err := idx.db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: read schema version", err)
	}
	if version != schemaVersion {
		return cerr.SchemaMismatchError(fmt.Sprintf("doc index: schema version %d, expected %d; rebuild the index", version, schemaVersion), nil)
	}
	return nil
}

// Close closes the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Rebuild removes the on-disk database file and recreates it empty. FTS5
// has no reliable INSERT OR REPLACE against stable rowids, so a clean
// rebuild sidesteps the duplicate-row pathology of repeated re-ingest
// rather than trying to reconcile rowids on every write.
func (idx *Index) Rebuild() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.db.Close(); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: close before rebuild", err)
	}
	if idx.path != "" {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(idx.path + suffix); err != nil && !os.IsNotExist(err) {
				return cerr.PersistenceError(cerr.ErrCodeDiskFull, "doc index: remove old database file", err)
			}
		}
	}

	fresh, err := Open(idx.path)
	if err != nil {
		return err
	}
	idx.db = fresh.db
	return nil
}

// IndexDocument upserts rec by URI, mirroring it into documents_fts and
// keeping framework_stats/frameworks_fts consistent. It satisfies
// crawl.DocIndexer structurally.
func (idx *Index) IndexDocument(ctx context.Context, rec crawl.DocumentRecord) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	framework := strings.ToLower(rec.Framework)
	minVersions := parseAvailability(rec.Availability)

	var previousFramework sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT framework FROM documents WHERE uri = ?`, rec.URI).Scan(&previousFramework)
	if err != nil && err != sql.ErrNoRows {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: look up existing document", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (uri, source, framework, language, title, summary, file_path, content_hash, last_crawled, json_data, availability, min_ios, min_macos, min_tvos, min_watchos, min_visionos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			source = excluded.source,
			framework = excluded.framework,
			language = excluded.language,
			title = excluded.title,
			summary = excluded.summary,
			file_path = excluded.file_path,
			content_hash = excluded.content_hash,
			last_crawled = excluded.last_crawled,
			json_data = excluded.json_data,
			availability = excluded.availability,
			min_ios = excluded.min_ios,
			min_macos = excluded.min_macos,
			min_tvos = excluded.min_tvos,
			min_watchos = excluded.min_watchos,
			min_visionos = excluded.min_visionos
	`,
		rec.URI, rec.Source, framework, nullableString(rec.Language), rec.Title, rec.Summary, rec.FilePath, rec.ContentHash,
		rec.LastCrawled.UTC().Format(time.RFC3339), rec.JSONData, nullableString(rec.Availability),
		minVersions.ios, minVersions.macos, minVersions.tvos, minVersions.watchos, minVersions.visionos,
	); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: upsert document", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE uri = ?`, rec.URI); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: clear fts mirror", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents_fts (uri, title, content) VALUES (?, ?, ?)`, rec.URI, rec.Title, rec.Content); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: insert fts mirror", err)
	}

	if err := bumpFrameworkStats(ctx, tx, previousFramework, framework); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: commit", err)
	}
	return nil
}

// bumpFrameworkStats keeps framework_stats/frameworks_fts consistent with
// a document whose framework changed from previousFramework (if any) to
// framework (which may be the same, for an update with no framework change).
func bumpFrameworkStats(ctx context.Context, tx *sql.Tx, previousFramework sql.NullString, framework string) error {
	if previousFramework.Valid && previousFramework.String != "" && previousFramework.String != framework {
		if _, err := tx.ExecContext(ctx, `UPDATE framework_stats SET document_count = document_count - 1 WHERE framework = ?`, previousFramework.String); err != nil {
			return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: decrement framework stats", err)
		}
	}
	if framework == "" {
		return nil
	}
	if !previousFramework.Valid || previousFramework.String != framework {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO framework_stats (framework, document_count) VALUES (?, 1)
			ON CONFLICT(framework) DO UPDATE SET document_count = document_count + 1
		`, framework); err != nil {
			return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: increment framework stats", err)
		}

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM frameworks_fts WHERE framework = ?`, framework).Scan(&exists); err != nil {
			return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: check frameworks_fts", err)
		}
		if exists == 0 {
			if _, err := tx.ExecContext(ctx, `INSERT INTO frameworks_fts (framework) VALUES (?)`, framework); err != nil {
				return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: insert frameworks_fts", err)
			}
		}
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListFrameworks returns every framework with at least one indexed
// document, mapped to its document count.
func (idx *Index) ListFrameworks(ctx context.Context) (map[string]int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.QueryContext(ctx, `SELECT framework, document_count FROM framework_stats WHERE document_count > 0 ORDER BY framework`)
	if err != nil {
		return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: list frameworks", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: scan framework row", err)
		}
		out[name] = count
	}
	return out, rows.Err()
}

// ContentBySource returns the indexed FTS content for every document
// belonging to source, for callers that need to scan crawled text rather
// than search it (e.g. the catalog package's post-crawl repo-ref scan).
func (idx *Index) ContentBySource(ctx context.Context, source string) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.QueryContext(ctx, `
		SELECT documents_fts.content
		FROM documents_fts
		JOIN documents ON documents.uri = documents_fts.uri
		WHERE documents.source = ?
	`, source)
	if err != nil {
		return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: read content by source", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: scan content row", err)
		}
		out = append(out, content)
	}
	return out, rows.Err()
}

// DocumentCount returns the total number of indexed documents.
func (idx *Index) DocumentCount(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var count int
	if err := idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: count documents", err)
	}
	return count, nil
}

// ReadFormat selects which persisted representation ReadDocument returns.
type ReadFormat string

const (
	FormatMarkdown ReadFormat = "markdown"
	FormatJSON     ReadFormat = "json"
)

// ReadDocument returns the persisted content for uri in the requested
// format: "markdown" reads the backing file path, "json" returns the
// stored jsonData blob.
func (idx *Index) ReadDocument(ctx context.Context, uri string, format ReadFormat) ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var filePath string
	var jsonData []byte
	err := idx.db.QueryRowContext(ctx, `SELECT file_path, json_data FROM documents WHERE uri = ?`, uri).Scan(&filePath, &jsonData)
	if err == sql.ErrNoRows {
		return nil, cerr.MissingPrerequisiteError(cerr.ErrCodeNoIndex, "doc index: no document for uri "+uri)
	}
	if err != nil {
		return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: read document", err)
	}

	switch format {
	case FormatJSON:
		return jsonData, nil
	default:
		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil, cerr.PersistenceError(cerr.ErrCodeMetadataIO, "doc index: read backing file "+filePath, err)
		}
		return content, nil
	}
}
