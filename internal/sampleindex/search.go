package sampleindex

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
)

const defaultLimit = 20

// ProjectResult is one ranked project match.
type ProjectResult struct {
	Project
	Rank float64
}

// SearchProjects ranks projects by bm25(projects_fts) ascending, optionally
// filtered to those listing framework among their Frameworks.
func (idx *Index) SearchProjects(ctx context.Context, query, framework string, limit int) ([]ProjectResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matchQuery := tokenizeForMatch(query)
	if matchQuery == "" {
		return nil, cerr.InvalidQueryError(cerr.ErrCodeQueryEmpty, "sample index: search query is empty")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	sqlQuery := `
		SELECT p.id, p.title, p.description, p.frameworks, p.readme, p.web_url, p.zip_filename, p.file_count, p.total_size, p.indexed_at,
		       bm25(projects_fts) AS rank
		FROM projects_fts
		JOIN projects p ON p.id = projects_fts.project_id
		WHERE projects_fts MATCH ?`
	args := []any{matchQuery}
	if framework != "" {
		sqlQuery += ` AND (',' || p.frameworks || ',') LIKE ?`
		args = append(args, "%,"+strings.ToLower(framework)+",%")
	}
	sqlQuery += ` ORDER BY rank ASC LIMIT ?`
	args = append(args, limit)

	rows, err := idx.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, translateFTSError(err, "sample index: search projects")
	}
	defer rows.Close()

	var results []ProjectResult
	for rows.Next() {
		var r ProjectResult
		var frameworks, indexedAt string
		var readme sql.NullString
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &frameworks, &readme, &r.WebURL, &r.ZipFilename, &r.FileCount, &r.TotalSize, &indexedAt, &r.Rank); err != nil {
			return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: scan project row", err)
		}
		if frameworks != "" {
			r.Frameworks = strings.Split(frameworks, ",")
		}
		if readme.Valid {
			r.Readme = readme.String
		}
		if parsed, err := time.Parse(time.RFC3339, indexedAt); err == nil {
			r.IndexedAt = parsed
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// FileSearchResult is one ranked file match with an FTS5 snippet excerpt.
type FileSearchResult struct {
	ProjectID string
	Path      string
	Filename  string
	Snippet   string
	Rank      float64
}

// SearchFiles ranks files by bm25(files_fts) ascending, optionally scoped
// to one project and/or one extension. snippet() produces a bolded excerpt
// around the first match, consistent with the FTS5 snippet() default of
// wrapping matches in <b>...</b>.
func (idx *Index) SearchFiles(ctx context.Context, query, projectID, extension string, limit int) ([]FileSearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matchQuery := tokenizeForMatch(query)
	if matchQuery == "" {
		return nil, cerr.InvalidQueryError(cerr.ErrCodeQueryEmpty, "sample index: search query is empty")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	sqlQuery := `
		SELECT files_fts.project_id, files_fts.path, f.filename,
		       snippet(files_fts, 4, '<b>', '</b>', '...', 32) AS snippet,
		       bm25(files_fts) AS rank
		FROM files_fts
		JOIN files f ON f.id = files_fts.file_id
		WHERE files_fts MATCH ?`
	args := []any{matchQuery}
	if projectID != "" {
		sqlQuery += ` AND files_fts.project_id = ?`
		args = append(args, projectID)
	}
	if extension != "" {
		sqlQuery += ` AND f.extension = ?`
		args = append(args, strings.TrimPrefix(extension, "."))
	}
	sqlQuery += ` ORDER BY rank ASC LIMIT ?`
	args = append(args, limit)

	rows, err := idx.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, translateFTSError(err, "sample index: search files")
	}
	defer rows.Close()

	var results []FileSearchResult
	for rows.Next() {
		var r FileSearchResult
		if err := rows.Scan(&r.ProjectID, &r.Path, &r.Filename, &r.Snippet, &r.Rank); err != nil {
			return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: scan file row", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SymbolSearchResult is one ranked symbol match, useful for capability
// queries such as "@Observable" or "async throws".
type SymbolSearchResult struct {
	ProjectID string
	FilePath  string
	Name      string
	Kind      string
	Signature string
	Line      int
	Rank      float64
}

// SearchSymbols ranks declarations by bm25(file_symbols_fts) ascending.
func (idx *Index) SearchSymbols(ctx context.Context, query string, limit int) ([]SymbolSearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matchQuery := tokenizeForMatch(query)
	if matchQuery == "" {
		return nil, cerr.InvalidQueryError(cerr.ErrCodeQueryEmpty, "sample index: search query is empty")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT f.project_id, f.path, s.name, s.kind, s.signature, s.line,
		       bm25(file_symbols_fts) AS rank
		FROM file_symbols_fts
		JOIN file_symbols s ON s.id = file_symbols_fts.symbol_id
		JOIN files f ON f.id = s.file_id
		WHERE file_symbols_fts MATCH ?
		ORDER BY rank ASC
		LIMIT ?
	`, matchQuery, limit)
	if err != nil {
		return nil, translateFTSError(err, "sample index: search symbols")
	}
	defer rows.Close()

	var results []SymbolSearchResult
	for rows.Next() {
		var r SymbolSearchResult
		if err := rows.Scan(&r.ProjectID, &r.FilePath, &r.Name, &r.Kind, &r.Signature, &r.Line, &r.Rank); err != nil {
			return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: scan symbol row", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func translateFTSError(err error, context string) error {
	if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
		return cerr.InvalidQueryError(cerr.ErrCodeQueryInvalid, context+": malformed query")
	}
	return cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, context, err)
}

// tokenizeForMatch splits q on whitespace and double-quotes each token so
// FTS5 treats it as a literal phrase rather than parsing operators.
func tokenizeForMatch(q string) string {
	fields := strings.Fields(q)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}
