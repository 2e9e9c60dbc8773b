package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
)

func newReadSampleFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-sample-file <project-id> <path>",
		Short: "Print a single file's content from an indexed sample project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReadSampleFile(cmd.Context(), args[0], args[1])
		},
	}
}

func runReadSampleFile(ctx context.Context, projectID, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sampleIdx, err := sampleindex.Open(filepath.Join(cfg.Paths.BaseDir, "samples.db"))
	if err != nil {
		return err
	}
	defer sampleIdx.Close()

	content, err := sampleIdx.GetFileContent(ctx, projectID, path)
	if err != nil {
		return err
	}
	fmt.Println(content)
	return nil
}
