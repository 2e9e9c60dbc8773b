package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
)

func newListSamplesCmd() *cobra.Command {
	var framework string
	var limit int

	cmd := &cobra.Command{
		Use:   "list-samples",
		Short: "List indexed sample projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListSamples(cmd.Context(), framework, limit)
		},
	}

	cmd.Flags().StringVar(&framework, "framework", "", "restrict to projects that use this framework")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (0 = server default)")

	return cmd
}

func runListSamples(ctx context.Context, framework string, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sampleIdx, err := sampleindex.Open(filepath.Join(cfg.Paths.BaseDir, "samples.db"))
	if err != nil {
		return err
	}
	defer sampleIdx.Close()

	projects, err := sampleIdx.ListProjects(ctx, framework, limit)
	if err != nil {
		return err
	}

	for _, p := range projects {
		fmt.Printf("%-30s %-40s %s\n", p.ID, p.Title, strings.Join(p.Frameworks, ","))
	}
	return nil
}
