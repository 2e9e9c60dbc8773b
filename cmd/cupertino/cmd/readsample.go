package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
)

func newReadSampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-sample <project-id>",
		Short: "Print a sample project's README and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReadSample(cmd.Context(), args[0])
		},
	}
}

func runReadSample(ctx context.Context, projectID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sampleIdx, err := sampleindex.Open(filepath.Join(cfg.Paths.BaseDir, "samples.db"))
	if err != nil {
		return err
	}
	defer sampleIdx.Close()

	project, err := sampleIdx.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	fmt.Printf("# %s\n\n%s\n\n%s\n", project.Title, project.Description, project.Readme)
	return nil
}
