package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
)

func newSearchSamplesCmd() *cobra.Command {
	var framework string
	var extension string
	var limit int
	var searchFiles bool

	cmd := &cobra.Command{
		Use:   "search-samples <query>",
		Short: "Search sample projects by title/description, or files by content with --files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchSamples(cmd.Context(), args[0], framework, extension, limit, searchFiles)
		},
	}

	cmd.Flags().StringVar(&framework, "framework", "", "restrict project matches to this framework")
	cmd.Flags().StringVar(&extension, "extension", "", "restrict file matches to this extension (only with --files)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (0 = server default)")
	cmd.Flags().BoolVar(&searchFiles, "files", false, "search file contents instead of project metadata")

	return cmd
}

func runSearchSamples(ctx context.Context, query, framework, extension string, limit int, searchFiles bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sampleIdx, err := sampleindex.Open(filepath.Join(cfg.Paths.BaseDir, "samples.db"))
	if err != nil {
		return err
	}
	defer sampleIdx.Close()

	if searchFiles {
		results, err := sampleIdx.SearchFiles(ctx, query, "", extension, limit)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%s: %s\n    %s\n", r.ProjectID, r.Path, r.Snippet)
		}
		return nil
	}

	results, err := sampleIdx.SearchProjects(ctx, query, framework, limit)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%-30s %-40s %s\n", r.ID, r.Title, r.Description)
	}
	return nil
}
