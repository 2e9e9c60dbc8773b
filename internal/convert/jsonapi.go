package convert

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// StructuredDocumentationPage is the normalized record built from a
// source origin's JSON-API endpoint, bypassing the browser renderer
// entirely. It mirrors the shape Apple's DocC render JSON exposes,
// trimmed to what the doc index and teaser formatting need.
type StructuredDocumentationPage struct {
	Title         string                 `json:"title"`
	Abstract      string                 `json:"abstract"`
	Declaration   string                 `json:"declaration"`
	Parameters    []DocParameter         `json:"parameters"`
	ReturnValue   string                 `json:"returnValue"`
	Discussion    string                 `json:"discussion"`
	Availability  []PlatformAvailability `json:"availability"`
	Relationships []string               `json:"relationships"`
	Topics        []string               `json:"topics"`
}

// DocParameter is one entry of a declaration's parameter list.
type DocParameter struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// PlatformAvailability is one platform's minimum-version entry from a
// render JSON's "platforms" array.
type PlatformAvailability struct {
	Platform   string `json:"platform"`
	Introduced string `json:"introduced"`
	Deprecated string `json:"deprecated,omitempty"`
	Beta       bool   `json:"beta,omitempty"`
}

// renderJSON is the subset of Apple's DocC render JSON format this
// converter reads. Unrecognized fields are ignored by encoding/json.
type renderJSON struct {
	Metadata struct {
		Title     string   `json:"title"`
		Roles     []string `json:"roles"`
		Platforms []struct {
			Name       string `json:"name"`
			Introduced string `json:"introducedAt"`
			Deprecated string `json:"deprecatedAt"`
			Beta       bool   `json:"beta"`
		} `json:"platforms"`
	} `json:"metadata"`
	Abstract []inlineContent `json:"abstract"`
	PrimaryContentSections []struct {
		Kind        string `json:"kind"`
		Declarations []struct {
			Tokens []inlineContent `json:"tokens"`
		} `json:"declarations"`
		Parameters []struct {
			Name    string          `json:"name"`
			Content []inlineContent `json:"content"`
		} `json:"parameters"`
		Content []inlineContent `json:"content"`
	} `json:"primaryContentSections"`
	RelationshipsSections []struct {
		Identifiers []string `json:"identifiers"`
	} `json:"relationshipsSections"`
	TopicSections []struct {
		Identifiers []string `json:"identifiers"`
	} `json:"topicSections"`
}

type inlineContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ConvertJSONAPI decodes a DocC-shaped render JSON document into a
// StructuredDocumentationPage and a backward-compatible Markdown
// rendering. contentHash is the hex SHA-256 of the structured record's
// canonical (stdlib json.Marshal) form, not of the raw input bytes, so
// it's stable across whitespace/field-order differences upstream.
func ConvertJSONAPI(raw []byte) (page *StructuredDocumentationPage, markdown string, contentHash string, err error) {
	var doc renderJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", "", fmt.Errorf("decode render json: %w", err)
	}

	page = &StructuredDocumentationPage{
		Title:    doc.Metadata.Title,
		Abstract: joinInline(doc.Abstract),
	}

	for _, section := range doc.PrimaryContentSections {
		switch section.Kind {
		case "declarations":
			var decls []string
			for _, d := range section.Declarations {
				decls = append(decls, joinInline(d.Tokens))
			}
			page.Declaration = strings.Join(decls, "\n")
		case "parameters":
			for _, p := range section.Parameters {
				page.Parameters = append(page.Parameters, DocParameter{
					Name:    p.Name,
					Content: joinInline(p.Content),
				})
			}
		case "content":
			page.Discussion = strings.TrimSpace(page.Discussion + "\n\n" + joinInline(section.Content))
		}
	}
	page.Discussion = strings.TrimSpace(page.Discussion)

	for _, p := range doc.Metadata.Platforms {
		page.Availability = append(page.Availability, PlatformAvailability{
			Platform:   p.Name,
			Introduced: p.Introduced,
			Deprecated: p.Deprecated,
			Beta:       p.Beta,
		})
	}
	for _, rel := range doc.RelationshipsSections {
		page.Relationships = append(page.Relationships, rel.Identifiers...)
	}
	for _, topic := range doc.TopicSections {
		page.Topics = append(page.Topics, topic.Identifiers...)
	}

	markdown = renderStructuredMarkdown(page)
	contentHash = hashStructuredPage(page)

	return page, markdown, contentHash, nil
}

func joinInline(tokens []inlineContent) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return strings.TrimSpace(b.String())
}

// renderStructuredMarkdown produces the backward-compatible Markdown view
// of a structured page, in the same section order a crawled HTML page
// would present them.
func renderStructuredMarkdown(page *StructuredDocumentationPage) string {
	var b strings.Builder

	if page.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", page.Title)
	}
	if page.Abstract != "" {
		fmt.Fprintf(&b, "%s\n\n", page.Abstract)
	}
	if page.Declaration != "" {
		fmt.Fprintf(&b, "```swift\n%s\n```\n\n", page.Declaration)
	}
	if len(page.Parameters) > 0 {
		b.WriteString("## Parameters\n\n")
		for _, p := range page.Parameters {
			fmt.Fprintf(&b, "- `%s`: %s\n", p.Name, p.Content)
		}
		b.WriteString("\n")
	}
	if page.ReturnValue != "" {
		fmt.Fprintf(&b, "## Return Value\n\n%s\n\n", page.ReturnValue)
	}
	if page.Discussion != "" {
		fmt.Fprintf(&b, "## Discussion\n\n%s\n\n", page.Discussion)
	}

	return cleanMarkdown(b.String())
}

func hashStructuredPage(page *StructuredDocumentationPage) string {
	canonical, err := json.Marshal(page)
	if err != nil {
		canonical = []byte(page.Title)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
