package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/docindex"
)

func newListFrameworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-frameworks",
		Short: "List every indexed framework and its document count",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListFrameworks(cmd.Context())
		},
	}
}

func runListFrameworks(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	docIdx, err := docindex.Open(filepath.Join(cfg.Paths.BaseDir, "search.db"))
	if err != nil {
		return err
	}
	defer docIdx.Close()

	counts, err := docIdx.ListFrameworks(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%-30s %d\n", name, counts[name])
	}
	return nil
}
