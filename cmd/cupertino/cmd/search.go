package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/config"
	"github.com/tijs/cupertino-skill-sub001/internal/docindex"
	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
	"github.com/tijs/cupertino-skill-sub001/internal/unifiedsearch"
)

func newSearchCmd() *cobra.Command {
	var (
		source         string
		format         string
		framework      string
		language       string
		limit          int
		minIOS         int
		minMacOS       int
		includeArchive bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the unified index across all sources, or one source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), args[0], unifiedsearch.Query{
				Source:         source,
				Framework:      framework,
				Language:       language,
				Limit:          limit,
				IncludeArchive: includeArchive,
				MinIOS:         minIOS * 1000,
				MinMacOS:       minMacOS * 1000,
			}, format)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "restrict to one source: apple-docs, apple-archive, swift-evolution, swift-org, swift-book, hig, packages, samples")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, markdown")
	cmd.Flags().StringVar(&framework, "framework", "", "restrict to one framework")
	cmd.Flags().StringVar(&language, "language", "", "restrict to one language (e.g. swift, objc)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (0 = server default)")
	cmd.Flags().IntVar(&minIOS, "min-ios", 0, "minimum iOS availability, e.g. 15")
	cmd.Flags().IntVar(&minMacOS, "min-macos", 0, "minimum macOS availability, e.g. 12")
	cmd.Flags().BoolVar(&includeArchive, "include-archive", false, "include apple-archive results in a fanned-out search")

	return cmd
}

func runSearch(ctx context.Context, query string, q unifiedsearch.Query, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	q.Text = query
	if q.Limit <= 0 {
		q.Limit = cfg.Search.DefaultLimit
	}
	if q.Limit > cfg.Search.MaxLimit {
		q.Limit = cfg.Search.MaxLimit
	}
	q.IncludeArchive = q.IncludeArchive || cfg.Search.IncludeArchiveByDefault

	docIdx, sampleIdx, err := openIndexesReadOnly(cfg)
	if err != nil {
		return err
	}
	if docIdx != nil {
		defer docIdx.Close()
	}
	if sampleIdx != nil {
		defer sampleIdx.Close()
	}

	orch := unifiedsearch.New(docIdx, sampleIdx, nil)
	out, err := orch.Search(ctx, q)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := unifiedsearch.FormatJSON(out)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "markdown":
		fmt.Print(unifiedsearch.FormatMarkdown(out))
		if !out.FannedOut {
			teasers := orch.Teasers(ctx, q, q.Source)
			fmt.Print(unifiedsearch.FormatTeasersMarkdown(teasers))
		}
	default:
		fmt.Print(unifiedsearch.FormatText(out))
	}
	return nil
}

// openIndexesReadOnly opens whichever of the two indexes exist on disk,
// leaving a missing one nil rather than creating an empty database (§7
// MissingPrerequisite: search must refuse to silently operate against an
// index that was never built).
func openIndexesReadOnly(cfg *config.Config) (*docindex.Index, *sampleindex.Index, error) {
	searchDBPath := filepath.Join(cfg.Paths.BaseDir, "search.db")
	samplesDBPath := filepath.Join(cfg.Paths.BaseDir, "samples.db")

	_, searchStatErr := os.Stat(searchDBPath)
	_, samplesStatErr := os.Stat(samplesDBPath)
	if os.IsNotExist(searchStatErr) && os.IsNotExist(samplesStatErr) {
		return nil, nil, fmt.Errorf("search: neither %s nor %s exists; run `cupertino fetch` or `cupertino save` first", searchDBPath, samplesDBPath)
	}

	var docIdx *docindex.Index
	if searchStatErr == nil {
		idx, err := docindex.Open(searchDBPath)
		if err != nil {
			return nil, nil, err
		}
		docIdx = idx
	}

	var sampleIdx *sampleindex.Index
	if samplesStatErr == nil {
		idx, err := sampleindex.Open(samplesDBPath)
		if err != nil {
			if docIdx != nil {
				docIdx.Close()
			}
			return nil, nil, err
		}
		sampleIdx = idx
	}

	return docIdx, sampleIdx, nil
}
