package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/docindex"
)

func newReadCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "read <uri>",
		Short: "Read a document's full content by its URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd.Context(), args[0], format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "output format: json, markdown")

	return cmd
}

func runRead(ctx context.Context, uri, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	docIdx, err := docindex.Open(filepath.Join(cfg.Paths.BaseDir, "search.db"))
	if err != nil {
		return err
	}
	defer docIdx.Close()

	readFormat := docindex.FormatMarkdown
	if format == "json" {
		readFormat = docindex.FormatJSON
	}

	content, err := docIdx.ReadDocument(ctx, uri, readFormat)
	if err != nil {
		return err
	}
	fmt.Println(string(content))
	return nil
}
