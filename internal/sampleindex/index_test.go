package sampleindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tijs/cupertino-skill-sub001/internal/convert"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func sampleProject(id string) (Project, []FileInput) {
	project := Project{
		ID:          id,
		Title:       "Fruta",
		Description: "A sample app for building a grocery list.",
		Frameworks:  []string{"swiftui", "storekit"},
		WebURL:      "https://developer.apple.com/documentation/fruta",
		ZipFilename: "Fruta.zip",
	}
	files := []FileInput{
		{
			Path:      "Fruta/ContentView.swift",
			Filename:  "ContentView.swift",
			Folder:    "Fruta",
			Extension: "swift",
			Content:   "struct ContentView: View { var body: some View { Text(\"Hello\") } }",
			Size:      64,
			Symbols: []convert.ExtractedSymbol{
				{Name: "ContentView", Kind: convert.SymbolStruct, Line: 1, Conformances: []string{"View"}},
			},
			Imports: []convert.ExtractedImport{{ModuleName: "SwiftUI", Line: 0}},
		},
	}
	return project, files
}

func TestIndexProject_InsertThenSearch(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	project, files := sampleProject("fruta")
	require.NoError(t, idx.IndexProject(ctx, project, files))

	exists, err := idx.ProjectExists(ctx, "fruta")
	require.NoError(t, err)
	assert.True(t, exists)

	results, err := idx.SearchProjects(ctx, "grocery list", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fruta", results[0].ID)
	assert.Equal(t, 1, results[0].FileCount)
}

func TestIndexProject_ReplacesExistingProjectOnReindex(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	project, files := sampleProject("fruta")
	require.NoError(t, idx.IndexProject(ctx, project, files))

	files[0].Content = "struct ContentView: View { var body: some View { Text(\"Updated\") } }"
	require.NoError(t, idx.IndexProject(ctx, project, files))

	results, err := idx.SearchFiles(ctx, "Updated", "", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	var fileCount int
	require.NoError(t, idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE project_id = ?`, "fruta").Scan(&fileCount))
	assert.Equal(t, 1, fileCount, "reindexing must replace, not duplicate, the file rows")
}

func TestDeleteProject_CascadesToFilesSymbolsAndImports(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	project, files := sampleProject("fruta")
	require.NoError(t, idx.IndexProject(ctx, project, files))
	require.NoError(t, idx.DeleteProject(ctx, "fruta"))

	exists, err := idx.ProjectExists(ctx, "fruta")
	require.NoError(t, err)
	assert.False(t, exists)

	var fileCount, symbolCount int
	require.NoError(t, idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&fileCount))
	require.NoError(t, idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM file_symbols`).Scan(&symbolCount))
	assert.Zero(t, fileCount)
	assert.Zero(t, symbolCount)

	var ftsCount int
	require.NoError(t, idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects_fts WHERE project_id = ?`, "fruta").Scan(&ftsCount))
	assert.Zero(t, ftsCount, "fts mirror must be cleared explicitly since fts5 tables ignore foreign keys")
}

func TestOpen_RejectsMismatchedSchemaVersion(t *testing.T) {
	idx := openTestIndex(t)
	_, err := idx.db.Exec(`UPDATE schema_version SET version = 99`)
	require.NoError(t, err)
	assert.Error(t, idx.init())
}
