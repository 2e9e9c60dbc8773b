package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/docindex"
	"github.com/tijs/cupertino-skill-sub001/internal/logging"
	"github.com/tijs/cupertino-skill-sub001/internal/mcpserver"
	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
	"github.com/tijs/cupertino-skill-sub001/internal/unifiedsearch"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe requires at least one index to already exist (MissingPrerequisite,
// §7): a server with neither a doc index nor a sample index has nothing to
// search, and silently starting one would mislead every client that connects.
func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cleanup, err := logging.SetupMCPMode()
	if err != nil {
		return fmt.Errorf("serve: setup mcp logging: %w", err)
	}
	defer cleanup()

	searchDBPath := filepath.Join(cfg.Paths.BaseDir, "search.db")
	samplesDBPath := filepath.Join(cfg.Paths.BaseDir, "samples.db")

	_, searchStatErr := os.Stat(searchDBPath)
	_, samplesStatErr := os.Stat(samplesDBPath)
	if os.IsNotExist(searchStatErr) && os.IsNotExist(samplesStatErr) {
		return fmt.Errorf("serve: neither %s nor %s exists; run `cupertino fetch` or `cupertino save` first", searchDBPath, samplesDBPath)
	}

	var docIdx *docindex.Index
	if searchStatErr == nil {
		docIdx, err = docindex.Open(searchDBPath)
		if err != nil {
			return err
		}
		defer docIdx.Close()
	}

	var sampleIdx *sampleindex.Index
	if samplesStatErr == nil {
		sampleIdx, err = sampleindex.Open(samplesDBPath)
		if err != nil {
			return err
		}
		defer sampleIdx.Close()
	}

	var orch *unifiedsearch.Orchestrator
	if docIdx != nil || sampleIdx != nil {
		orch = unifiedsearch.New(docIdx, sampleIdx, nil)
	}

	srv, err := mcpserver.New(mcpserver.Providers{
		DocIndex:     docIdx,
		SampleIndex:  sampleIdx,
		Orchestrator: orch,
	})
	if err != nil {
		return fmt.Errorf("serve: build mcp server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}
