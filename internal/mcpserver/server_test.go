package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tijs/cupertino-skill-sub001/internal/crawl"
	"github.com/tijs/cupertino-skill-sub001/internal/docindex"
	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
	"github.com/tijs/cupertino-skill-sub001/internal/unifiedsearch"
)

func TestNew_RejectsNoProviders(t *testing.T) {
	_, err := New(Providers{})
	assert.Error(t, err)
}

func TestNew_RegistersOnlyToolsBackedByPresentProviders(t *testing.T) {
	docIdx, err := docindex.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = docIdx.Close() })

	s, err := New(Providers{DocIndex: docIdx})
	require.NoError(t, err)

	tools := s.RegisteredTools()
	assert.Contains(t, tools, "search_docs")
	assert.Contains(t, tools, "list_frameworks")
	assert.Contains(t, tools, "read_document")
	assert.NotContains(t, tools, "search_samples")
	assert.NotContains(t, tools, "search")
}

func TestNew_RegistersAllToolsWhenAllProvidersPresent(t *testing.T) {
	docIdx, err := docindex.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = docIdx.Close() })

	sampleIdx, err := sampleindex.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sampleIdx.Close() })

	orch := unifiedsearch.New(docIdx, sampleIdx, nil)

	s, err := New(Providers{DocIndex: docIdx, SampleIndex: sampleIdx, Orchestrator: orch})
	require.NoError(t, err)

	tools := s.RegisteredTools()
	for _, name := range []string{
		"search_docs", "list_frameworks", "read_document",
		"search_samples", "list_samples", "read_sample", "read_sample_file",
		"search",
	} {
		assert.Contains(t, tools, name)
	}
}

func TestSearchDocsHandler_ReturnsIndexedResults(t *testing.T) {
	docIdx, err := docindex.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = docIdx.Close() })

	require.NoError(t, docIdx.IndexDocument(context.Background(), crawl.DocumentRecord{
		URI: "apple-docs://swiftui/view", Source: "apple-docs", Framework: "swiftui",
		Title: "View", Content: "a view describes", Summary: "a view describes",
		FilePath: "/tmp/view.json", ContentHash: "hash-view", LastCrawled: time.Now(),
	}))

	s, err := New(Providers{DocIndex: docIdx})
	require.NoError(t, err)

	_, out, err := s.searchDocsHandler(context.Background(), nil, SearchDocsInput{Query: "view"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "View", out.Results[0].Title)
}

func TestReadSampleHandler_ReturnsReadme(t *testing.T) {
	sampleIdx, err := sampleindex.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sampleIdx.Close() })

	require.NoError(t, sampleIdx.IndexProject(context.Background(), sampleindex.Project{
		ID: "demo", Title: "Demo", Description: "a sample", Readme: "# Demo\n",
	}, nil))

	s, err := New(Providers{SampleIndex: sampleIdx})
	require.NoError(t, err)

	_, out, err := s.readSampleHandler(context.Background(), nil, ReadSampleInput{ProjectID: "demo"})
	require.NoError(t, err)
	assert.Equal(t, "# Demo\n", out.Readme)
}

func TestSearchHandler_FansOutAndFormatsMarkdown(t *testing.T) {
	docIdx, err := docindex.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = docIdx.Close() })

	require.NoError(t, docIdx.IndexDocument(context.Background(), crawl.DocumentRecord{
		URI: "apple-docs://swiftui/view", Source: "apple-docs", Framework: "swiftui",
		Title: "View", Content: "a view describes", Summary: "a view describes",
		FilePath: "/tmp/view.json", ContentHash: "hash-view", LastCrawled: time.Now(),
	}))

	orch := unifiedsearch.New(docIdx, nil, nil)
	s, err := New(Providers{DocIndex: docIdx, Orchestrator: orch})
	require.NoError(t, err)

	_, out, err := s.searchHandler(context.Background(), nil, SearchInput{Query: "view"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.TotalCount)
	assert.Contains(t, out.Markdown, "View")
}
