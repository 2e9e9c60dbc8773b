package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/catalog"
	"github.com/tijs/cupertino-skill-sub001/internal/config"
	"github.com/tijs/cupertino-skill-sub001/internal/crawl"
	"github.com/tijs/cupertino-skill-sub001/internal/docindex"
	"github.com/tijs/cupertino-skill-sub001/internal/output"
	"github.com/tijs/cupertino-skill-sub001/internal/renderer"
)

// sampleManifestEntry is one project discovered by a "code"/"samples"
// fetch, awaiting download by `save`.
type sampleManifestEntry struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	WebURL      string `json:"webUrl"`
	ZipURL      string `json:"zipUrl"`
}

func newFetchCmd() *cobra.Command {
	var fetchType string
	var maxPages int
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Crawl a documentation or sample-code source into the doc index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd.Context(), fetchType, maxPages, force)
		},
	}

	cmd.Flags().StringVar(&fetchType, "type", "docs",
		"source to crawl: docs, swift, evolution, packages, package-docs, code, samples, archive, all")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "cap the number of pages fetched (0 = unlimited)")
	cmd.Flags().BoolVar(&force, "force", false, "recrawl pages even if their content hash is unchanged")

	return cmd
}

func runFetch(ctx context.Context, fetchType string, maxPages int, force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := output.NewAuto(os.Stdout)

	cat := catalog.Load(cfg.Catalog.OverridePath, slog.Default())

	switch strings.ToLower(fetchType) {
	case "docs":
		return fetchDocSources(ctx, cfg, out, maxPages, force, docsSource())
	case "swift":
		if err := fetchDocSources(ctx, cfg, out, maxPages, force, swiftOrgSource()); err != nil {
			return err
		}
		return refreshPriorityPackages(ctx, cfg, out, cat)
	case "evolution":
		return fetchDocSources(ctx, cfg, out, maxPages, force, evolutionSource())
	case "packages", "package-docs":
		return fetchDocSources(ctx, cfg, out, maxPages, force, packageSources(cat)...)
	case "archive":
		return fetchDocSources(ctx, cfg, out, maxPages, force, archiveSources(cat)...)
	case "code", "samples":
		return runFetchSamples(ctx, cfg, out)
	case "all":
		if err := fetchDocSources(ctx, cfg, out, maxPages, force, docsSource()); err != nil {
			return err
		}
		if err := fetchDocSources(ctx, cfg, out, maxPages, force, swiftOrgSource()); err != nil {
			return err
		}
		if err := refreshPriorityPackages(ctx, cfg, out, cat); err != nil {
			return err
		}
		if err := fetchDocSources(ctx, cfg, out, maxPages, force, evolutionSource()); err != nil {
			return err
		}
		if err := fetchDocSources(ctx, cfg, out, maxPages, force, packageSources(cat)...); err != nil {
			return err
		}
		if err := fetchDocSources(ctx, cfg, out, maxPages, force, archiveSources(cat)...); err != nil {
			return err
		}
		return runFetchSamples(ctx, cfg, out)
	default:
		out.Warningf("unrecognized --type %q, defaulting to docs", fetchType)
		return fetchDocSources(ctx, cfg, out, maxPages, force, docsSource())
	}
}

// fetchDocSources runs the crawl engine once per source, sharing one
// renderer and doc index across the batch.
func fetchDocSources(ctx context.Context, cfg *config.Config, out *output.Writer, maxPages int, force bool, sources ...crawl.Source) error {
	if len(sources) == 0 {
		return nil
	}

	docIdx, err := docindex.Open(filepath.Join(cfg.Paths.BaseDir, "search.db"))
	if err != nil {
		return err
	}
	defer docIdx.Close()

	rend, err := renderer.NewChromeRenderer(renderer.Config{
		UserAgent:     "cupertino-crawler/1.0",
		Headless:      true,
		NetworkIdle:   500 * time.Millisecond,
		RenderTimeout: cfg.RenderTimeout(),
		PageCacheSize: 128,
	})
	if err != nil {
		return err
	}

	state := crawl.NewState(cfg.Paths.BaseDir)
	if maxPages <= 0 {
		maxPages = cfg.Crawl.MaxPages
	}

	engine, err := crawl.NewEngine(crawl.EngineDeps{
		Renderer: withJSONPreference(rend, sources),
		State:    state,
		DocIndex: docIdx,
		BaseDir:  cfg.Paths.BaseDir,
		Log:      slog.Default(),
	}, crawl.EngineConfig{
		MaxPages:                maxPages,
		MaxDepth:                cfg.Crawl.MaxDepth,
		PolitenessDelay:         cfg.PolitenessDelay(),
		RendererRecycleInterval: cfg.Crawl.RendererRecycleInterval,
		MaxRetries:              cfg.Crawl.MaxRetries,
		ForceRecrawl:            force,
		WriteMarkdown:           true,
	})
	if err != nil {
		return err
	}

	for _, src := range sources {
		out.Statusf("→", "crawling %s (%s)", src.Name, src.StartURL)
		result, err := engine.Run(ctx, src)
		if err != nil {
			return err
		}
		if result.RateLimited {
			out.Warningf("%s: halted, rate limited", src.Name)
			continue
		}
		out.Successf("%s: %d fetched, %d skipped, %d errors", src.Name, result.Fetched, result.Skipped, result.Errors)
	}
	return nil
}

// withJSONPreference wraps rend in a JSONPreferringRenderer when at least
// one source declares a JSONResolver.
func withJSONPreference(rend renderer.Renderer, sources []crawl.Source) renderer.Renderer {
	for _, src := range sources {
		if src.JSONResolver != nil {
			return renderer.NewJSONPreferringRenderer(rend, src.JSONResolver)
		}
	}
	return rend
}

// refreshPriorityPackages scans every swift-org document just crawled for
// github.com/<owner>/<repo> references and resolves them into the priority
// package catalog (§6.1), persisting the result to the catalog override
// file so a subsequent catalog.Load picks it up.
func refreshPriorityPackages(ctx context.Context, cfg *config.Config, out *output.Writer, cat *catalog.Catalog) error {
	docIdx, err := docindex.Open(filepath.Join(cfg.Paths.BaseDir, "search.db"))
	if err != nil {
		return err
	}
	defer docIdx.Close()

	pages, err := docIdx.ContentBySource(ctx, "swift-org")
	if err != nil {
		return err
	}

	seen := make(map[catalog.RepoRef]bool)
	var refs []catalog.RepoRef
	for _, page := range pages {
		for _, ref := range catalog.ExtractRepoRefs(page) {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		out.Statusf("", "no github.com repo references found in swift-org content, priority packages unchanged")
		return nil
	}

	refresher := catalog.NewRefresher(cfg.Catalog.GitHubToken, 1)
	packages, err := refresher.Refresh(ctx, refs)
	if err != nil {
		out.Warningf("priority package refresh stopped early: %v", err)
	}
	if len(packages) == 0 {
		return nil
	}

	cat.ReplacePriorityPackages(packages)
	if err := cat.Save(); err != nil {
		return fmt.Errorf("save refreshed priority packages: %w", err)
	}
	out.Successf("refreshed %d priority packages from %d repo references", len(packages), len(refs))
	return nil
}

// runFetchSamples scans the sample-code catalog listing for downloadable
// project ZIPs and writes them to a manifest for `save` to fetch. It uses
// a plain HTTP GET rather than the browser renderer: the catalog listing
// needs no JavaScript execution to expose its download links.
func runFetchSamples(ctx context.Context, cfg *config.Config, out *output.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sampleCatalogURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch sample catalog: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parse sample catalog: %w", err)
	}

	var entries []sampleManifestEntry
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.HasSuffix(href, ".zip") {
			return
		}
		entries = append(entries, sampleManifestEntry{
			Title:       strings.TrimSpace(sel.Text()),
			Description: strings.TrimSpace(sel.Parent().Text()),
			WebURL:      sampleCatalogURL,
			ZipURL:      href,
		})
	})

	manifestPath := filepath.Join(cfg.Paths.BaseDir, "sample-code", "manifest.json")
	if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return err
	}
	out.Successf("discovered %d sample projects, manifest written to %s", len(entries), manifestPath)
	return nil
}
