package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/output"
	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
)

func newCleanupCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Strip VCS/build cruft from downloaded sample ZIPs, preserving resource forks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCleanup(cmd.Context(), dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without touching any archive")

	return cmd
}

func runCleanup(ctx context.Context, dryRun bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := output.NewAuto(os.Stdout)

	sampleDir := filepath.Join(cfg.Paths.BaseDir, "sample-code")
	entries, err := os.ReadDir(sampleDir)
	if err != nil {
		if os.IsNotExist(err) {
			out.Statusf("", "no sample-code directory at %s, nothing to clean", sampleDir)
			return nil
		}
		return err
	}

	cleaner := sampleindex.NewCleaner()

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".zip" {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		zipPath := filepath.Join(sampleDir, entry.Name())

		if dryRun {
			plan, err := cleaner.Plan(zipPath)
			if err != nil {
				out.Errorf("%s: %v", entry.Name(), err)
				continue
			}
			out.Statusf("·", "%s: %d junk entries, %d kept", entry.Name(), len(plan.JunkPaths), plan.KeptCount)
			continue
		}

		cleanedPath, err := cleaner.Clean(ctx, zipPath, "")
		if err != nil {
			out.Errorf("%s: %v", entry.Name(), err)
			continue
		}
		out.Successf("%s: cleaned to %s", entry.Name(), filepath.Base(cleanedPath))
	}
	return nil
}
