package sampleindex

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIngestDirectory_WalksIndexableFilesAndExtractsSwiftSymbols(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "# Fruta\n\nA sample app.")
	writeFile(t, filepath.Join(root, "Fruta", "ContentView.swift"), "struct ContentView: View {}")
	writeFile(t, filepath.Join(root, "Fruta", "Info.plist"), "<plist></plist>")
	writeFile(t, filepath.Join(root, "Fruta", "Assets.car"), "binary-not-indexable")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main")

	idx := openTestIndex(t)
	ctx := context.Background()

	err := idx.IngestDirectory(ctx, root, IngestOptions{ProjectID: "fruta", Title: "Fruta"})
	require.NoError(t, err)

	results, err := idx.SearchProjects(ctx, "Fruta", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Readme, "A sample app")

	var fileCount int
	require.NoError(t, idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE project_id = ?`, "fruta").Scan(&fileCount))
	assert.Equal(t, 3, fileCount, "only README.md and the .swift and .plist files are indexable")

	symbols, err := idx.SearchSymbols(ctx, "ContentView", 10)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "struct", symbols[0].Kind)
}

func TestIngestDirectory_SkipsExistingProjectUnlessForced(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.swift"), "struct A {}")

	idx := openTestIndex(t)
	ctx := context.Background()
	opts := IngestOptions{ProjectID: "p", Title: "First"}
	require.NoError(t, idx.IngestDirectory(ctx, root, opts))

	opts.Title = "Second"
	require.NoError(t, idx.IngestDirectory(ctx, root, opts))

	results, err := idx.SearchProjects(ctx, "First", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1, "non-forced reingest must leave the original project untouched")

	opts.Force = true
	require.NoError(t, idx.IngestDirectory(ctx, root, opts))
	results, err = idx.SearchProjects(ctx, "Second", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1, "forced reingest must replace the project")
}

func TestDetectProjectRoot_UnwrapsSingleNestedDirectory(t *testing.T) {
	extractDir := t.TempDir()
	writeFile(t, filepath.Join(extractDir, "Fruta-Sample", "main.swift"), "struct A {}")

	root := detectProjectRoot(extractDir)
	assert.Equal(t, filepath.Join(extractDir, "Fruta-Sample"), root)
}

func TestDetectProjectRoot_KeepsExtractDirWhenMultipleEntries(t *testing.T) {
	extractDir := t.TempDir()
	writeFile(t, filepath.Join(extractDir, "main.swift"), "struct A {}")
	writeFile(t, filepath.Join(extractDir, "README.md"), "# A")

	root := detectProjectRoot(extractDir)
	assert.Equal(t, extractDir, root)
}

func TestIngestZip_ExtractsAndIngestsArchiveContents(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "sample.zip")
	writeZip(t, zipPath, map[string]string{
		"Sample/main.swift":  "struct Root {}",
		"Sample/README.md":   "# Sample",
		"Sample/.git/HEAD":   "ref: refs/heads/main",
		"__MACOSX/._main.swift": "junk",
	})

	idx := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.IngestZip(ctx, zipPath, IngestOptions{ProjectID: "sample", Title: "Sample"}))

	var fileCount int
	require.NoError(t, idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE project_id = ?`, "sample").Scan(&fileCount))
	assert.Equal(t, 2, fileCount)
}

func writeZip(t *testing.T, zipPath string, files map[string]string) {
	t.Helper()
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}
