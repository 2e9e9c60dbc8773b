package sampleindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
	"github.com/tijs/cupertino-skill-sub001/internal/convert"
)

func TestSearchProjects_FiltersByFramework(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	swiftui := Project{ID: "a", Title: "Landmarks", Description: "A SwiftUI tutorial app.", Frameworks: []string{"swiftui"}}
	arkit := Project{ID: "b", Title: "Placing Objects", Description: "An ARKit sample.", Frameworks: []string{"arkit"}}
	require.NoError(t, idx.IndexProject(ctx, swiftui, nil))
	require.NoError(t, idx.IndexProject(ctx, arkit, nil))

	results, err := idx.SearchProjects(ctx, "sample tutorial", "arkit", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestSearchFiles_ScopesToProjectAndExtension(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	project := Project{ID: "p", Title: "Demo"}
	files := []FileInput{
		{Path: "main.swift", Filename: "main.swift", Extension: "swift", Content: "let message = \"hello world\""},
		{Path: "notes.md", Filename: "notes.md", Extension: "md", Content: "hello world in the readme"},
	}
	require.NoError(t, idx.IndexProject(ctx, project, files))

	results, err := idx.SearchFiles(ctx, "hello world", "p", "swift", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "main.swift", results[0].Filename)
	assert.Contains(t, results[0].Snippet, "<b>")
}

func TestSearchSymbols_FindsDeclarationsByName(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	project := Project{ID: "p", Title: "Demo"}
	files := []FileInput{{
		Path: "main.swift", Filename: "main.swift", Extension: "swift", Content: "actor Store {}",
		Symbols: []convert.ExtractedSymbol{{Name: "Store", Kind: convert.SymbolActor, Signature: "actor Store"}},
	}}
	require.NoError(t, idx.IndexProject(ctx, project, files))

	results, err := idx.SearchSymbols(ctx, "Store", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "actor", results[0].Kind)
	assert.Equal(t, "p", results[0].ProjectID)
}

func TestSearchProjects_EmptyQueryIsInvalid(t *testing.T) {
	idx := openTestIndex(t)
	_, err := idx.SearchProjects(context.Background(), "   ", "", 10)
	require.Error(t, err)
	assert.Equal(t, cerr.CategoryInvalidQuery, cerr.GetCategory(err))
}

func TestTokenizeForMatch_QuotesEachToken(t *testing.T) {
	assert.Equal(t, `"alpha" "OR" "beta"`, tokenizeForMatch("alpha OR beta"))
	assert.Equal(t, `"""hi"""`, tokenizeForMatch(`"hi"`))
}
