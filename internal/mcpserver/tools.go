package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tijs/cupertino-skill-sub001/internal/docindex"
	"github.com/tijs/cupertino-skill-sub001/internal/unifiedsearch"
)

// SearchDocsInput is search_docs' parameter shape (§4.7).
type SearchDocsInput struct {
	Query          string `json:"query" jsonschema:"the search query to execute"`
	Source         string `json:"source,omitempty" jsonschema:"restrict results to one documentation source"`
	Framework      string `json:"framework,omitempty" jsonschema:"restrict results to one framework"`
	Language       string `json:"language,omitempty" jsonschema:"restrict results to one language"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of results to return"`
	IncludeArchive bool   `json:"includeArchive,omitempty" jsonschema:"include archived/legacy documentation"`
	MinIOS         int    `json:"minIOS,omitempty" jsonschema:"minimum iOS availability, major version"`
	MinMacOS       int    `json:"minMacOS,omitempty" jsonschema:"minimum macOS availability, major version"`
}

// SearchDocsOutput is search_docs' structured result.
type SearchDocsOutput struct {
	Results []docindex.Result `json:"results"`
}

func (s *Server) searchDocsHandler(ctx context.Context, req *mcp.CallToolRequest, in SearchDocsInput) (
	*mcp.CallToolResult,
	SearchDocsOutput,
	error,
) {
	results, err := s.providers.DocIndex.Search(ctx, docindex.Query{
		Text: in.Query, Source: in.Source, Framework: in.Framework, Language: in.Language,
		Limit: in.Limit, IncludeArchive: in.IncludeArchive, MinIOS: in.MinIOS * 1000, MinMacOS: in.MinMacOS * 1000,
	})
	if err != nil {
		return nil, SearchDocsOutput{}, err
	}
	return nil, SearchDocsOutput{Results: results}, nil
}

// ListFrameworksOutput is list_frameworks' structured result.
type ListFrameworksOutput struct {
	Frameworks []FrameworkCount `json:"frameworks"`
}

// FrameworkCount is one framework's indexed document count.
type FrameworkCount struct {
	Name          string `json:"name"`
	DocumentCount int    `json:"documentCount"`
}

func (s *Server) listFrameworksHandler(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (
	*mcp.CallToolResult,
	ListFrameworksOutput,
	error,
) {
	counts, err := s.providers.DocIndex.ListFrameworks(ctx)
	if err != nil {
		return nil, ListFrameworksOutput{}, err
	}
	out := ListFrameworksOutput{}
	for name, count := range counts {
		out.Frameworks = append(out.Frameworks, FrameworkCount{Name: name, DocumentCount: count})
	}
	return nil, out, nil
}

// ReadDocumentInput is read_document's parameter shape.
type ReadDocumentInput struct {
	URI    string `json:"uri" jsonschema:"the document uri to read"`
	Format string `json:"format,omitempty" jsonschema:"markdown or json, defaults to markdown"`
}

// ReadDocumentOutput is read_document's structured result.
type ReadDocumentOutput struct {
	Content string `json:"content"`
}

func (s *Server) readDocumentHandler(ctx context.Context, req *mcp.CallToolRequest, in ReadDocumentInput) (
	*mcp.CallToolResult,
	ReadDocumentOutput,
	error,
) {
	format := docindex.FormatMarkdown
	if in.Format == "json" {
		format = docindex.FormatJSON
	}
	data, err := s.providers.DocIndex.ReadDocument(ctx, in.URI, format)
	if err != nil {
		return nil, ReadDocumentOutput{}, err
	}
	return nil, ReadDocumentOutput{Content: string(data)}, nil
}

// SearchSamplesInput is search_samples' parameter shape.
type SearchSamplesInput struct {
	Query       string `json:"query" jsonschema:"the search query to execute"`
	Framework   string `json:"framework,omitempty" jsonschema:"restrict results to one framework"`
	SearchFiles bool   `json:"searchFiles,omitempty" jsonschema:"also search file contents within matching projects"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results to return"`
}

// SearchSamplesOutput is search_samples' structured result.
type SearchSamplesOutput struct {
	Projects []sampleProject `json:"projects"`
	Files    []sampleFile    `json:"files,omitempty"`
}

type sampleProject struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Frameworks  []string `json:"frameworks"`
}

type sampleFile struct {
	ProjectID string `json:"projectId"`
	Path      string `json:"path"`
	Snippet   string `json:"snippet"`
}

func (s *Server) searchSamplesHandler(ctx context.Context, req *mcp.CallToolRequest, in SearchSamplesInput) (
	*mcp.CallToolResult,
	SearchSamplesOutput,
	error,
) {
	projects, err := s.providers.SampleIndex.SearchProjects(ctx, in.Query, in.Framework, in.Limit)
	if err != nil {
		return nil, SearchSamplesOutput{}, err
	}
	out := SearchSamplesOutput{}
	for _, p := range projects {
		out.Projects = append(out.Projects, sampleProject{ID: p.ID, Title: p.Title, Description: p.Description, Frameworks: p.Frameworks})
	}
	if in.SearchFiles {
		files, err := s.providers.SampleIndex.SearchFiles(ctx, in.Query, "", "", in.Limit)
		if err != nil {
			return nil, SearchSamplesOutput{}, err
		}
		for _, f := range files {
			out.Files = append(out.Files, sampleFile{ProjectID: f.ProjectID, Path: f.Path, Snippet: f.Snippet})
		}
	}
	return nil, out, nil
}

// ListSamplesInput is list_samples' parameter shape.
type ListSamplesInput struct {
	Framework string `json:"framework,omitempty" jsonschema:"restrict results to one framework"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of results to return"`
}

// ListSamplesOutput is list_samples' structured result.
type ListSamplesOutput struct {
	Projects []sampleProject `json:"projects"`
}

func (s *Server) listSamplesHandler(ctx context.Context, req *mcp.CallToolRequest, in ListSamplesInput) (
	*mcp.CallToolResult,
	ListSamplesOutput,
	error,
) {
	projects, err := s.providers.SampleIndex.ListProjects(ctx, in.Framework, in.Limit)
	if err != nil {
		return nil, ListSamplesOutput{}, err
	}
	out := ListSamplesOutput{}
	for _, p := range projects {
		out.Projects = append(out.Projects, sampleProject{ID: p.ID, Title: p.Title, Description: p.Description, Frameworks: p.Frameworks})
	}
	return nil, out, nil
}

// ReadSampleInput is read_sample's parameter shape.
type ReadSampleInput struct {
	ProjectID string `json:"projectId" jsonschema:"the project ID to read"`
}

// ReadSampleOutput is read_sample's structured result.
type ReadSampleOutput struct {
	Readme string `json:"readme"`
}

func (s *Server) readSampleHandler(ctx context.Context, req *mcp.CallToolRequest, in ReadSampleInput) (
	*mcp.CallToolResult,
	ReadSampleOutput,
	error,
) {
	project, err := s.providers.SampleIndex.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, ReadSampleOutput{}, err
	}
	return nil, ReadSampleOutput{Readme: project.Readme}, nil
}

// ReadSampleFileInput is read_sample_file's parameter shape.
type ReadSampleFileInput struct {
	ProjectID string `json:"projectId" jsonschema:"the project ID the file belongs to"`
	Path      string `json:"path" jsonschema:"the file's path within the project"`
}

// ReadSampleFileOutput is read_sample_file's structured result.
type ReadSampleFileOutput struct {
	Content string `json:"content"`
}

func (s *Server) readSampleFileHandler(ctx context.Context, req *mcp.CallToolRequest, in ReadSampleFileInput) (
	*mcp.CallToolResult,
	ReadSampleFileOutput,
	error,
) {
	content, err := s.providers.SampleIndex.GetFileContent(ctx, in.ProjectID, in.Path)
	if err != nil {
		return nil, ReadSampleFileOutput{}, err
	}
	return nil, ReadSampleFileOutput{Content: content}, nil
}

// SearchInput is the unified search tool's parameter shape.
type SearchInput struct {
	Query          string `json:"query" jsonschema:"the search query to execute"`
	Source         string `json:"source,omitempty" jsonschema:"restrict to one source, or omit to fan out across all sources"`
	Framework      string `json:"framework,omitempty" jsonschema:"restrict results to one framework"`
	Language       string `json:"language,omitempty" jsonschema:"restrict results to one language"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of results to return"`
	IncludeArchive bool   `json:"includeArchive,omitempty" jsonschema:"include archived/legacy documentation"`
}

// SearchOutput is the unified search tool's structured result. Markdown
// carries the same rendering the CLI's `search --format markdown` path
// produces for the same query (§4.6), including teasers from the other
// sources when the search targeted a single one.
type SearchOutput struct {
	Markdown   string         `json:"markdown"`
	TotalCount int            `json:"totalCount"`
	PerSource  map[string]int `json:"perSource,omitempty"`
}

func (s *Server) searchHandler(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	q := unifiedsearch.Query{
		Text: in.Query, Source: in.Source, Framework: in.Framework, Language: in.Language,
		Limit: in.Limit, IncludeArchive: in.IncludeArchive,
	}
	out, err := s.providers.Orchestrator.Search(ctx, q)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	markdown := unifiedsearch.FormatMarkdown(out)
	if !out.FannedOut {
		teasers := s.providers.Orchestrator.Teasers(ctx, q, in.Source)
		markdown += unifiedsearch.FormatTeasersMarkdown(teasers)
	}

	return nil, SearchOutput{Markdown: markdown, TotalCount: out.TotalCount, PerSource: out.PerSource}, nil
}
