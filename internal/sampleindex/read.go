package sampleindex

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
)

// GetProject returns the stored project record for id, including its README.
func (idx *Index) GetProject(ctx context.Context, id string) (Project, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var p Project
	var frameworks, indexedAt string
	var readme sql.NullString
	err := idx.db.QueryRowContext(ctx, `
		SELECT id, title, description, frameworks, readme, web_url, zip_filename, file_count, total_size, indexed_at
		FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Title, &p.Description, &frameworks, &readme, &p.WebURL, &p.ZipFilename, &p.FileCount, &p.TotalSize, &indexedAt)
	if err == sql.ErrNoRows {
		return Project{}, cerr.MissingPrerequisiteError(cerr.ErrCodeNoIndex, "sample index: no project "+id)
	}
	if err != nil {
		return Project{}, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: read project", err)
	}
	if frameworks != "" {
		p.Frameworks = strings.Split(frameworks, ",")
	}
	if readme.Valid {
		p.Readme = readme.String
	}
	if parsed, err := time.Parse(time.RFC3339, indexedAt); err == nil {
		p.IndexedAt = parsed
	}
	return p, nil
}

// GetFileContent returns the body of path within project projectID.
func (idx *Index) GetFileContent(ctx context.Context, projectID, path string) (string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var content string
	err := idx.db.QueryRowContext(ctx, `SELECT content FROM files WHERE project_id = ? AND path = ?`, projectID, path).Scan(&content)
	if err == sql.ErrNoRows {
		return "", cerr.MissingPrerequisiteError(cerr.ErrCodeNoIndex, "sample index: no file "+path+" in project "+projectID)
	}
	if err != nil {
		return "", cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: read file content", err)
	}
	return content, nil
}

// ListProjects returns every indexed project, optionally filtered to those
// listing framework among their Frameworks, newest-indexed first.
func (idx *Index) ListProjects(ctx context.Context, framework string, limit int) ([]Project, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if limit <= 0 {
		limit = defaultLimit
	}

	sqlQuery := `SELECT id, title, description, frameworks, readme, web_url, zip_filename, file_count, total_size, indexed_at FROM projects`
	var args []any
	if framework != "" {
		sqlQuery += ` WHERE (',' || frameworks || ',') LIKE ?`
		args = append(args, "%,"+strings.ToLower(framework)+",%")
	}
	sqlQuery += ` ORDER BY indexed_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := idx.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: list projects", err)
	}
	defer rows.Close()

	var results []Project
	for rows.Next() {
		var p Project
		var frameworks, indexedAt string
		var readme sql.NullString
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &frameworks, &readme, &p.WebURL, &p.ZipFilename, &p.FileCount, &p.TotalSize, &indexedAt); err != nil {
			return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "sample index: scan project row", err)
		}
		if frameworks != "" {
			p.Frameworks = strings.Split(frameworks, ",")
		}
		if readme.Valid {
			p.Readme = readme.String
		}
		if parsed, err := time.Parse(time.RFC3339, indexedAt); err == nil {
			p.IndexedAt = parsed
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
