// Package convert turns heterogeneous crawled sources into normalized
// Markdown and structured records for the doc and sample indexes.
package convert

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// mainContentSelectors are tried in order; the first match with content
// wins. Apple's documentation pages vary in shell markup across
// frameworks and crawl eras, so several candidates are tried before
// falling back to body.
var mainContentSelectors = []string{
	"main", "article", ".content", ".main-content", "#content", "#main",
}

var blankLineRun = regexp.MustCompile(`\n{3,}`)

// ConvertedPage is the normalized result of converting one HTML page.
type ConvertedPage struct {
	Title     string
	Markdown  string
	Links     []string
	Framework string
	Language  string
}

// ConvertHTML extracts the main content region of an HTML page, strips
// chrome (script/style/nav/footer), and renders it to Markdown; asides
// and note/important callouts become blockquotes. On goquery parse
// failure it returns a ConvertedPage with empty Markdown together with the
// parse error, so the crawl loop can count the page as a parse failure
// without aborting. If the Markdown conversion fails or yields nothing,
// the region's tag-stripped text is used instead and no error is returned.
func ConvertHTML(html string, sourceURL string) (*ConvertedPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &ConvertedPage{Framework: inferFramework(sourceURL), Language: "swift"}, fmt.Errorf("parse html: %w", err)
	}

	page := &ConvertedPage{
		Title:     extractTitle(doc),
		Links:     extractLinks(doc, sourceURL),
		Framework: inferFramework(sourceURL),
		Language:  "swift",
	}

	content := mainContent(doc)
	markdown, err := convertToMarkdown(content, sourceURL)
	if err != nil {
		slog.Warn("html-to-markdown conversion failed, falling back to tag stripping",
			slog.String("url", sourceURL), slog.String("error", err.Error()))
		markdown = stripTags(content)
	}
	page.Markdown = cleanMarkdown(markdown)

	return page, nil
}

// mainContent isolates the primary content region of the page, removing
// script/style/navigation chrome first so it never leaks into the
// conversion.
func mainContent(doc *goquery.Document) *goquery.Selection {
	doc.Find("script, style, nav, footer").Remove()

	for _, sel := range mainContentSelectors {
		region := doc.Find(sel).First()
		if region.Length() > 0 && strings.TrimSpace(region.Text()) != "" {
			return region
		}
	}
	return doc.Find("body")
}

// convertToMarkdown renders a content region to Markdown using the
// block/inline rules of html-to-markdown, plus a custom rule that folds
// "note"/"important" callouts into blockquotes since neither the library
// nor goquery has a default for Apple's aside styling.
func convertToMarkdown(content *goquery.Selection, baseURL string) (string, error) {
	outer, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("serialize content region: %w", err)
	}

	converter := md.NewConverter(baseURL, true, nil)
	converter.AddRules(md.Rule{
		Filter: []string{"aside", "div.note", "div.important"},
		Replacement: func(c string, selec *goquery.Selection, opt *md.Options) *string {
			c = strings.TrimSpace(c)
			if c == "" {
				return md.String("")
			}
			label := "Note"
			if cls, _ := selec.Attr("class"); strings.Contains(cls, "important") {
				label = "Important"
			}
			quoted := "> " + label + ": " + strings.ReplaceAll(c, "\n", "\n> ")
			return md.String("\n\n" + quoted + "\n\n")
		},
	})

	converted, err := converter.ConvertString(outer)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	if strings.TrimSpace(converted) == "" && strings.TrimSpace(outer) != "" {
		return "", fmt.Errorf("conversion produced empty output")
	}
	return converted, nil
}

// cleanMarkdown collapses runs of three or more newlines (two or more
// blank lines) to a single blank line and trims leading/trailing
// whitespace.
func cleanMarkdown(markdown string) string {
	markdown = blankLineRun.ReplaceAllString(markdown, "\n\n")
	return strings.TrimSpace(markdown)
}

// stripTags is the fallback path for content the markdown converter
// can't handle: strip tags, collapse whitespace, decode the common named
// entities.
func stripTags(content *goquery.Selection) string {
	text := content.Text()
	text = strings.Join(strings.Fields(text), " ")
	return decodeEntities(text)
}

var namedEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
)

func decodeEntities(s string) string {
	return strings.TrimSpace(namedEntities.Replace(s))
}

// extractTitle tries <title>, then Open Graph, then the first <h1>.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		if t := strings.TrimSpace(ogTitle); t != "" {
			return t
		}
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return "Untitled"
}

// extractLinks collects and deduplicates every href on the page,
// resolved against sourceURL, skipping javascript: and mailto: targets.
func extractLinks(doc *goquery.Document, sourceURL string) []string {
	base, err := url.Parse(sourceURL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}
		if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		if base != nil {
			if resolved, err := base.Parse(href); err == nil {
				href = resolved.String()
			}
		}
		href = stripFragment(href)
		if !seen[href] {
			seen[href] = true
			links = append(links, href)
		}
	})
	return links
}

func stripFragment(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// inferFramework pulls the first path segment after /documentation/ and
// lowercases it. Pages outside /documentation/ (HIG, evolution proposals,
// Swift.org) have no framework and return "".
func inferFramework(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	const marker = "/documentation/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return ""
	}
	rest := u.Path[idx+len(marker):]
	rest = strings.TrimPrefix(rest, "/")
	segments := strings.SplitN(rest, "/", 2)
	if len(segments[0]) == 0 {
		return ""
	}
	return strings.ToLower(segments[0])
}
