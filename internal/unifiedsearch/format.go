package unifiedsearch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FormatText renders out as plain text for terminal display: one line per
// result, then a per-source count summary when the query fanned out.
func FormatText(out Output) string {
	var b strings.Builder
	if len(out.Results) == 0 {
		b.WriteString("No results.\n")
	}
	for _, r := range out.Results {
		fmt.Fprintf(&b, "[%s] %s (%s)\n", r.Source, r.Title, r.URI)
		if r.Summary != "" {
			fmt.Fprintf(&b, "    %s\n", r.Summary)
		}
	}
	if out.FannedOut {
		fmt.Fprintf(&b, "\n%d total across %d sources:\n", out.TotalCount, len(out.PerSource))
		for _, source := range sortedSourceKeys(out.PerSource) {
			fmt.Fprintf(&b, "  %-16s %d\n", source, out.PerSource[source])
		}
	}
	return b.String()
}

// FormatJSON renders out as machine-readable JSON.
func FormatJSON(out Output) ([]byte, error) {
	type jsonResult struct {
		URI          string `json:"uri"`
		Source       string `json:"source"`
		Framework    string `json:"framework,omitempty"`
		Title        string `json:"title"`
		Summary      string `json:"summary,omitempty"`
		Availability string `json:"availability,omitempty"`
	}
	payload := struct {
		Results    []jsonResult   `json:"results"`
		PerSource  map[string]int `json:"perSource,omitempty"`
		TotalCount int            `json:"totalCount"`
	}{
		TotalCount: out.TotalCount,
		PerSource:  out.PerSource,
	}
	for _, r := range out.Results {
		payload.Results = append(payload.Results, jsonResult{
			URI: r.URI, Source: r.Source, Framework: r.Framework,
			Title: r.Title, Summary: r.Summary, Availability: r.Availability,
		})
	}
	return json.MarshalIndent(payload, "", "  ")
}

// FormatMarkdown renders out as Markdown. Shared verbatim between the CLI
// `search --format markdown` path and the MCP `search` tool, so both
// surfaces produce byte-identical responses for the same query (§4.6).
func FormatMarkdown(out Output) string {
	var b strings.Builder
	if len(out.Results) == 0 {
		b.WriteString("_No results._\n")
		return b.String()
	}
	for _, r := range out.Results {
		fmt.Fprintf(&b, "### %s\n\n", r.Title)
		fmt.Fprintf(&b, "- **Source:** %s\n", r.Source)
		if r.Framework != "" {
			fmt.Fprintf(&b, "- **Framework:** %s\n", r.Framework)
		}
		fmt.Fprintf(&b, "- **URI:** `%s`\n", r.URI)
		if r.Availability != "" {
			fmt.Fprintf(&b, "- **Availability:** %s\n", r.Availability)
		}
		if r.Summary != "" {
			fmt.Fprintf(&b, "\n%s\n", r.Summary)
		}
		b.WriteString("\n")
	}
	if out.FannedOut {
		fmt.Fprintf(&b, "---\n\n**%d results across %d sources**\n", out.TotalCount, len(out.PerSource))
	}
	return b.String()
}

// FormatTeasersMarkdown renders a teaser set as Markdown, one subsection
// per non-empty source.
func FormatTeasersMarkdown(t TeaserOutput) string {
	var b strings.Builder
	sources := make([]string, 0, len(t.Teasers))
	for source := range t.Teasers {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	for _, source := range sources {
		results := t.Teasers[source]
		if len(results) == 0 {
			continue
		}
		fmt.Fprintf(&b, "#### Also in %s\n\n", source)
		for _, r := range results {
			fmt.Fprintf(&b, "- %s (`%s`)\n", r.Title, r.URI)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func sortedSourceKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
