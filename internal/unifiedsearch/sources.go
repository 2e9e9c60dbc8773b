// Package unifiedsearch implements the cross-source query planner (§4.6):
// routing a query to a single source or fanning it out across all eight,
// merging results, and formatting them identically for the CLI and the
// MCP server.
package unifiedsearch

// Source names the eight ingestion categories a query can target. These
// match documents.source in the doc index plus the "samples" category
// served by the sample index.
const (
	SourceAppleDocs      = "apple-docs"
	SourceAppleArchive   = "apple-archive"
	SourceSwiftEvolution = "swift-evolution"
	SourceSwiftOrg       = "swift-org"
	SourceSwiftBook      = "swift-book"
	SourceHIG            = "hig"
	SourcePackages       = "packages"
	SourceSamples        = "samples"
)

// AllSources lists every fan-out target, in the fixed order results and
// teaser slots are reported in.
var AllSources = []string{
	SourceAppleDocs,
	SourceAppleArchive,
	SourceSwiftEvolution,
	SourceSwiftOrg,
	SourceSwiftBook,
	SourceHIG,
	SourcePackages,
	SourceSamples,
}

// isKnownSource reports whether name is one of the eight recognized
// sources. An unrecognized source is treated as "default to fan-out"
// per §6's CLI surface note.
func isKnownSource(name string) bool {
	for _, s := range AllSources {
		if s == name {
			return true
		}
	}
	return false
}
