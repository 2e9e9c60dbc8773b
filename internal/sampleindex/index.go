// Package sampleindex implements the sample-code search index: a SQLite
// database of projects, files, and extracted Swift symbols/imports, with
// FTS5 mirrors for project, file, and symbol search.
package sampleindex

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
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

CREATE TABLE IF NOT EXISTS projects (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	frameworks   TEXT NOT NULL DEFAULT '',
	readme       TEXT,
	web_url      TEXT NOT NULL DEFAULT '',
	zip_filename TEXT NOT NULL DEFAULT '',
	file_count   INTEGER NOT NULL DEFAULT 0,
	total_size   INTEGER NOT NULL DEFAULT 0,
	indexed_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	path       TEXT NOT NULL,
	filename   TEXT NOT NULL,
	folder     TEXT NOT NULL,
	extension  TEXT NOT NULL,
	content    TEXT NOT NULL,
	size       INTEGER NOT NULL,
	UNIQUE(project_id, path)
);
CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);

CREATE TABLE IF NOT EXISTS file_symbols (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	kind            TEXT NOT NULL,
	line            INTEGER NOT NULL,
	column          INTEGER NOT NULL,
	is_async        INTEGER NOT NULL DEFAULT 0,
	is_throws       INTEGER NOT NULL DEFAULT 0,
	is_public       INTEGER NOT NULL DEFAULT 0,
	is_static       INTEGER NOT NULL DEFAULT 0,
	attributes      TEXT NOT NULL DEFAULT '',
	conformances    TEXT NOT NULL DEFAULT '',
	generic_params  TEXT NOT NULL DEFAULT '',
	signature       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON file_symbols(file_id);

CREATE TABLE IF NOT EXISTS file_imports (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id     INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	module_name TEXT NOT NULL,
	line        INTEGER NOT NULL,
	is_exported INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_imports_file ON file_imports(file_id);

CREATE VIRTUAL TABLE IF NOT EXISTS projects_fts USING fts5(
	project_id UNINDEXED,
	title,
	description,
	readme,
	frameworks,
	tokenize='unicode61'
);

CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
	file_id UNINDEXED,
	project_id UNINDEXED,
	path UNINDEXED,
	filename,
	content,
	tokenize='unicode61'
);

CREATE VIRTUAL TABLE IF NOT EXISTS file_symbols_fts USING fts5(
	symbol_id UNINDEXED,
	file_id UNINDEXED,
	name,
	signature,
	tokenize='unicode61'
);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

// Index is the sample index's single logical connection.
type Index struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open creates or opens the sample index database at path ("" for
// in-memory, used by tests).
func Open(path string) (*Index, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, cerr.PersistenceError(cerr.ErrCodeDiskFull, "sample index: create directory", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: open database", err)
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
			return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: set pragma "+pragma, err)
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
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: create schema", err)
	}
	var version int
	if err := idx.db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: read schema version", err)
	}
	if version != schemaVersion {
		return cerr.SchemaMismatchError(fmt.Sprintf("sample index: schema version %d, expected %d; rebuild the index", version, schemaVersion), nil)
	}
	return nil
}

// Close closes the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// ProjectExists reports whether a project with this ID is already indexed.
func (idx *Index) ProjectExists(ctx context.Context, id string) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var count int
	if err := idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, id).Scan(&count); err != nil {
		return false, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: check project existence", err)
	}
	return count > 0, nil
}

// DeleteProject removes a project and, via ON DELETE CASCADE, its files,
// symbols, and imports. FTS mirrors are cleared explicitly since FTS5
// virtual tables don't participate in foreign-key cascades.
func (idx *Index) DeleteProject(ctx context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.deleteProjectLocked(ctx, id)
}

func (idx *Index) deleteProjectLocked(ctx context.Context, id string) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: begin delete transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_symbols_fts WHERE file_id IN (SELECT id FROM files WHERE project_id = ?)`, id); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: clear symbol fts mirror", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files_fts WHERE project_id = ?`, id); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: clear file fts mirror", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects_fts WHERE project_id = ?`, id); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: clear project fts mirror", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: delete project", err)
	}
	return tx.Commit()
}

// IndexProject replaces (if present) or inserts project and its files,
// symbols, and imports in one transaction. Callers are expected to check
// ProjectExists themselves when force-reindexing is not desired.
func (idx *Index) IndexProject(ctx context.Context, project Project, files []FileInput) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if exists, err := idx.projectExistsLocked(ctx, project.ID); err != nil {
		return err
	} else if exists {
		if err := idx.deleteProjectLocked(ctx, project.ID); err != nil {
			return err
		}
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: begin index transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	project.IndexedAt = time.Now().UTC()
	project.FileCount = len(files)
	var totalSize int64
	for _, f := range files {
		totalSize += f.Size
	}
	project.TotalSize = totalSize

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, title, description, frameworks, readme, web_url, zip_filename, file_count, total_size, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, project.ID, project.Title, project.Description, strings.Join(project.Frameworks, ","), nullableString(project.Readme),
		project.WebURL, project.ZipFilename, project.FileCount, project.TotalSize, project.IndexedAt.Format(time.RFC3339),
	); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: insert project", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO projects_fts (project_id, title, description, readme, frameworks) VALUES (?, ?, ?, ?, ?)`,
		project.ID, project.Title, project.Description, project.Readme, strings.Join(project.Frameworks, ",")); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: insert project fts mirror", err)
	}

	for _, f := range files {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO files (project_id, path, filename, folder, extension, content, size)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, project.ID, f.Path, f.Filename, f.Folder, f.Extension, f.Content, f.Size)
		if err != nil {
			return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: insert file "+f.Path, err)
		}
		fileID, err := res.LastInsertId()
		if err != nil {
			return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: read file id", err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO files_fts (file_id, project_id, path, filename, content) VALUES (?, ?, ?, ?, ?)`,
			fileID, project.ID, f.Path, f.Filename, f.Content); err != nil {
			return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: insert file fts mirror", err)
		}

		for _, sym := range f.Symbols {
			symRes, err := tx.ExecContext(ctx, `
				INSERT INTO file_symbols (file_id, name, kind, line, column, is_async, is_throws, is_public, is_static, attributes, conformances, generic_params, signature)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, fileID, sym.Name, string(sym.Kind), sym.Line, sym.Column, boolToInt(sym.IsAsync), boolToInt(sym.IsThrows),
				boolToInt(sym.IsPublic), boolToInt(sym.IsStatic), strings.Join(sym.Attributes, ","), strings.Join(sym.Conformances, ","),
				strings.Join(sym.GenericParameters, ","), sym.Signature)
			if err != nil {
				return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: insert symbol "+sym.Name, err)
			}
			symID, err := symRes.LastInsertId()
			if err != nil {
				return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: read symbol id", err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO file_symbols_fts (symbol_id, file_id, name, signature) VALUES (?, ?, ?, ?)`,
				symID, fileID, sym.Name, sym.Signature); err != nil {
				return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: insert symbol fts mirror", err)
			}
		}

		for _, imp := range f.Imports {
			if _, err := tx.ExecContext(ctx, `INSERT INTO file_imports (file_id, module_name, line, is_exported) VALUES (?, ?, ?, ?)`,
				fileID, imp.ModuleName, imp.Line, boolToInt(imp.IsExported)); err != nil {
				return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: insert import "+imp.ModuleName, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: commit", err)
	}
	return nil
}

func (idx *Index) projectExistsLocked(ctx context.Context, id string) (bool, error) {
	var count int
	if err := idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, id).Scan(&count); err != nil {
		return false, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: check project existence", err)
	}
	return count > 0, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
