// Package mcpserver implements the JSON-RPC 2.0 / MCP server (§4.7): a
// line-delimited stdio transport exposing search_docs, list_frameworks,
// read_document, search_samples, list_samples, read_sample,
// read_sample_file, and search as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tijs/cupertino-skill-sub001/internal/docindex"
	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
	"github.com/tijs/cupertino-skill-sub001/internal/unifiedsearch"
	"github.com/tijs/cupertino-skill-sub001/pkg/version"
)

// Providers are the optional collaborators a Server is built from. A nil
// field means the tools backed by that provider are simply never
// registered, rather than registered and failing at call time (§4.7: "its
// provider is not registered; the tool is absent from the capability
// list rather than erroring at runtime").
type Providers struct {
	DocIndex     *docindex.Index
	SampleIndex  *sampleindex.Index
	Orchestrator *unifiedsearch.Orchestrator
	Log          *slog.Logger
}

// Server wraps the go-sdk MCP server with cupertino's tool registry.
type Server struct {
	mcp       *mcp.Server
	providers Providers
	log       *slog.Logger

	mu         sync.RWMutex
	registered []string
}

// New builds a Server and registers every tool whose provider is present.
// At least one provider must be set.
func New(providers Providers) (*Server, error) {
	if providers.DocIndex == nil && providers.SampleIndex == nil && providers.Orchestrator == nil {
		return nil, errors.New("mcpserver: at least one provider (doc index, sample index, or orchestrator) is required")
	}
	log := providers.Log
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		providers: providers,
		log:       log,
		mcp:       mcp.NewServer(&mcp.Implementation{Name: "cupertino", Version: version.Version}, nil),
	}
	s.registerTools()
	return s, nil
}

// RegisteredTools returns the names of every tool this server exposes,
// for `doctor`/`setup` to report server capability.
func (s *Server) RegisteredTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.registered))
	copy(out, s.registered)
	return out
}

func (s *Server) markRegistered(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = append(s.registered, name)
}

func (s *Server) registerTools() {
	if s.providers.DocIndex != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "search_docs",
			Description: "Search Apple documentation pages by keyword, optionally filtered by source, framework, language, or minimum platform availability.",
		}, s.searchDocsHandler)
		s.markRegistered("search_docs")

		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "list_frameworks",
			Description: "List every framework with at least one indexed documentation page, and its document count.",
		}, s.listFrameworksHandler)
		s.markRegistered("list_frameworks")

		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "read_document",
			Description: "Read the full content of one documentation page by its uri.",
		}, s.readDocumentHandler)
		s.markRegistered("read_document")
	}

	if s.providers.SampleIndex != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "search_samples",
			Description: "Search indexed sample-code projects by keyword, optionally scoped to a framework, with optional file-content snippets.",
		}, s.searchSamplesHandler)
		s.markRegistered("search_samples")

		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "list_samples",
			Description: "List indexed sample-code projects, optionally filtered by framework.",
		}, s.listSamplesHandler)
		s.markRegistered("list_samples")

		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "read_sample",
			Description: "Read the README of one sample-code project by its project ID.",
		}, s.readSampleHandler)
		s.markRegistered("read_sample")

		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "read_sample_file",
			Description: "Read the body of one file within a sample-code project.",
		}, s.readSampleFileHandler)
		s.markRegistered("read_sample_file")
	}

	if s.providers.Orchestrator != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "search",
			Description: "Run a unified search across all documentation and sample sources, or a single named source, with teasers from the rest.",
		}, s.searchHandler)
		s.markRegistered("search")
	}
}

// Serve runs the server over a line-delimited stdio JSON-RPC transport
// until the client closes the connection or ctx is canceled. Per §4.7,
// nothing is written to stdout outside the protocol; startup/shutdown
// guidance goes to the logger, which is configured to write only to file
// in MCP mode (internal/logging.SetupMCPMode).
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("mcp server starting", slog.Any("tools", s.RegisteredTools()))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error("mcp server stopped", slog.String("error", err.Error()))
		return err
	}
	s.log.Info("mcp server stopped")
	return nil
}
