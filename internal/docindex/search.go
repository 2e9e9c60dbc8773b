package docindex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
)

// Query collects the optional filters a search accepts alongside the
// free-text query string; zero values mean "no filter".
type Query struct {
	Text           string
	Source         string
	Framework      string
	Language       string
	Limit          int
	IncludeArchive bool
	MinIOS         int
	MinMacOS       int
	MinTvOS        int
	MinWatchOS     int
	MinVisionOS    int
}

// Result is one ranked match.
type Result struct {
	URI              string
	Source           string
	Framework        string
	Title            string
	Summary          string
	SummaryTruncated bool
	Availability     string
}

const defaultLimit = 20

// Search tokenizes q.Text on whitespace, double-quotes each token to force
// literal phrase matching (so a query can't smuggle in FTS5 MATCH
// operators), composes the optional filters with AND, and ranks by
// bm25() ascending (lower is better) with a title-length tiebreak.
func (idx *Index) Search(ctx context.Context, q Query) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matchQuery := tokenizeForMatch(q.Text)
	if matchQuery == "" {
		return nil, cerr.InvalidQueryError(cerr.ErrCodeQueryEmpty, "doc index: search query is empty")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var conditions []string
	args := []any{matchQuery}

	if !q.IncludeArchive {
		conditions = append(conditions, "d.source != 'apple-archive'")
	}
	if q.Source != "" {
		conditions = append(conditions, "d.source = ?")
		args = append(args, q.Source)
	}
	if q.Framework != "" {
		conditions = append(conditions, "d.framework = ?")
		args = append(args, strings.ToLower(q.Framework))
	}
	if q.Language != "" {
		conditions = append(conditions, "d.language = ?")
		args = append(args, q.Language)
	}
	appendMinFilter(&conditions, &args, "d.min_ios", q.MinIOS)
	appendMinFilter(&conditions, &args, "d.min_macos", q.MinMacOS)
	appendMinFilter(&conditions, &args, "d.min_tvos", q.MinTvOS)
	appendMinFilter(&conditions, &args, "d.min_watchos", q.MinWatchOS)
	appendMinFilter(&conditions, &args, "d.min_visionos", q.MinVisionOS)

	where := ""
	if len(conditions) > 0 {
		where = " AND " + strings.Join(conditions, " AND ")
	}

	sqlQuery := fmt.Sprintf(`
		SELECT d.uri, d.source, d.framework, d.title, d.summary, d.availability,
		       bm25(documents_fts) AS rank, length(d.title) AS title_len
		FROM documents_fts
		JOIN documents d ON d.uri = documents_fts.uri
		WHERE documents_fts MATCH ?%s
		ORDER BY rank ASC, title_len ASC
		LIMIT ?
	`, where)
	args = append(args, limit)

	rows, err := idx.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return nil, cerr.InvalidQueryError(cerr.ErrCodeQueryInvalid, "doc index: malformed search query")
		}
		return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: search", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var availability sql.NullString
		var rank float64
		var titleLen int
		if err := rows.Scan(&r.URI, &r.Source, &r.Framework, &r.Title, &r.Summary, &availability, &rank, &titleLen); err != nil {
			return nil, cerr.PersistenceError(cerr.ErrCodeSQLiteWrite, "doc index: scan search row", err)
		}
		if availability.Valid {
			r.Availability = availability.String
		}
		r.SummaryTruncated = strings.HasSuffix(r.Summary, "…")
		results = append(results, r)
	}
	return results, rows.Err()
}

func appendMinFilter(conditions *[]string, args *[]any, column string, min int) {
	if min <= 0 {
		return
	}
	*conditions = append(*conditions, column+" IS NOT NULL AND "+column+" >= ?")
	*args = append(*args, min)
}

// tokenizeForMatch splits q on whitespace, drops empty tokens, and
// double-quotes each survivor so FTS5 treats it as a literal phrase term
// rather than parsing operators a user might type (AND, OR, NOT, *, ^).
// FTS5 string literals escape an embedded quote by doubling it, not by
// backslash, so that's the only escaping done here.
func tokenizeForMatch(q string) string {
	fields := strings.Fields(q)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}
