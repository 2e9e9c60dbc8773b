package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/docindex"
	"github.com/tijs/cupertino-skill-sub001/internal/output"
	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
)

func newIndexCmd() *cobra.Command {
	var rebuildDocs bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the sample index from on-disk ZIPs, or wipe the doc index for a fresh fetch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), rebuildDocs)
		},
	}

	cmd.Flags().BoolVar(&rebuildDocs, "rebuild-docs", false,
		"wipe search.db; a subsequent `fetch` is required to repopulate it")

	return cmd
}

func runIndex(ctx context.Context, rebuildDocs bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := output.NewAuto(os.Stdout)

	if rebuildDocs {
		docIdx, err := docindex.Open(filepath.Join(cfg.Paths.BaseDir, "search.db"))
		if err != nil {
			return err
		}
		if err := docIdx.Rebuild(); err != nil {
			docIdx.Close()
			return err
		}
		docIdx.Close()
		out.Warning("search.db rebuilt empty; run `cupertino fetch` to repopulate it")
	}

	sampleIdx, err := sampleindex.Open(filepath.Join(cfg.Paths.BaseDir, "samples.db"))
	if err != nil {
		return err
	}
	defer sampleIdx.Close()

	sampleDir := filepath.Join(cfg.Paths.BaseDir, "sample-code")
	entries, err := os.ReadDir(sampleDir)
	if err != nil {
		if os.IsNotExist(err) {
			out.Statusf("", "no sample-code directory at %s, nothing to index", sampleDir)
			return nil
		}
		return err
	}

	reindexed, errored := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".zip" {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		zipPath := filepath.Join(sampleDir, entry.Name())
		projectID := projectIDFromZipURL(entry.Name())
		err := sampleIdx.IngestZip(ctx, zipPath, sampleindex.IngestOptions{
			ProjectID:   projectID,
			ZipFilename: entry.Name(),
			Force:       true,
		})
		if err != nil {
			out.Errorf("%s: reindex failed: %v", projectID, err)
			errored++
			continue
		}
		reindexed++
	}

	out.Statusf("", "reindexed %d sample projects, errors %d", reindexed, errored)
	return nil
}
