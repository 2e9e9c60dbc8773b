package cmd

import (
	"strings"

	"github.com/tijs/cupertino-skill-sub001/internal/catalog"
	"github.com/tijs/cupertino-skill-sub001/internal/crawl"
	"github.com/tijs/cupertino-skill-sub001/internal/renderer"
)

// appleDocsJSONResolver maps a developer.apple.com documentation page to
// its DocC JSON data sibling, which the engine prefers over rendering
// the HTML page when a source declares a resolver (§4.3 step 3).
func appleDocsJSONResolver(prefix string) renderer.JSONURLResolver {
	return func(pageURL string) (string, bool) {
		idx := strings.Index(pageURL, prefix)
		if idx < 0 {
			return "", false
		}
		rest := pageURL[idx+len(prefix):]
		rest = strings.TrimSuffix(rest, "/")
		if rest == "" {
			return "", false
		}
		jsonURL := "https://developer.apple.com/tutorials/data" + prefix + rest + ".json"
		return jsonURL, true
	}
}

const (
	docsStartURL      = "https://developer.apple.com/documentation/"
	higStartURL        = "https://developer.apple.com/design/human-interface-guidelines/"
	swiftOrgStartURL   = "https://www.swift.org/documentation/"
	evolutionStartURL  = "https://apple.github.io/swift-evolution/"
	sampleCatalogURL   = "https://developer.apple.com/tutorials/sample-apps/"
)

// docsSource returns the apple-docs crawl source (§6 source list).
func docsSource() crawl.Source {
	return crawl.Source{
		Name:            "apple-docs",
		StartURL:        docsStartURL,
		AllowedPrefixes: []string{"https://developer.apple.com/documentation/"},
		JSONResolver:    appleDocsJSONResolver("/documentation/"),
	}
}

// higSource returns the Human Interface Guidelines crawl source.
func higSource() crawl.Source {
	return crawl.Source{
		Name:            "hig",
		StartURL:        higStartURL,
		AllowedPrefixes: []string{"https://developer.apple.com/design/human-interface-guidelines/"},
		JSONResolver:    appleDocsJSONResolver("/design/human-interface-guidelines/"),
	}
}

// swiftOrgSource returns the swift.org documentation crawl source.
func swiftOrgSource() crawl.Source {
	return crawl.Source{
		Name:            "swift-org",
		StartURL:        swiftOrgStartURL,
		AllowedPrefixes: []string{"https://www.swift.org/"},
	}
}

// evolutionSource returns the Swift Evolution proposal crawl source.
func evolutionSource() crawl.Source {
	return crawl.Source{
		Name:            "swift-evolution",
		StartURL:        evolutionStartURL,
		AllowedPrefixes: []string{"https://apple.github.io/swift-evolution/", "https://github.com/swiftlang/swift-evolution/"},
	}
}

// packageSources returns one crawl source per priority package's README
// page on its code forge, per §4.8's priority-package catalog.
func packageSources(cat *catalog.Catalog) []crawl.Source {
	var sources []crawl.Source
	for _, pkg := range cat.PriorityPackages() {
		start := "https://github.com/" + pkg.Owner + "/" + pkg.Repo
		sources = append(sources, crawl.Source{
			Name:            "packages",
			StartURL:        start,
			AllowedPrefixes: []string{start},
		})
	}
	return sources
}

// archiveSources returns one crawl source per curated archive guide
// (§4.8's archive-guide list).
func archiveSources(cat *catalog.Catalog) []crawl.Source {
	var sources []crawl.Source
	for _, guide := range cat.ArchiveGuides() {
		sources = append(sources, crawl.Source{
			Name:            "apple-archive",
			StartURL:        guide.URL,
			AllowedPrefixes: []string{guide.URL},
		})
	}
	return sources
}

// sampleCatalogSource returns the sample-code catalog listing source; its
// pages are scanned for downloadable project ZIPs rather than indexed as
// documentation (see runFetchSamples).
func sampleCatalogSource() crawl.Source {
	return crawl.Source{
		Name:            "samples",
		StartURL:        sampleCatalogURL,
		AllowedPrefixes: []string{"https://developer.apple.com/tutorials/sample-apps/", "https://developer.apple.com/documentation/"},
	}
}
