package crawl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
	"github.com/tijs/cupertino-skill-sub001/internal/convert"
	"github.com/tijs/cupertino-skill-sub001/internal/profiling"
	"github.com/tijs/cupertino-skill-sub001/internal/renderer"
)

// Phase names the crawl engine's single-writer state machine positions.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseFetching   Phase = "fetching"
	PhaseParsing    Phase = "parsing"
	PhasePersisting Phase = "persisting"
	PhaseDelaying   Phase = "delaying"
	PhaseTerminated Phase = "terminated"
)

// DocumentRecord is what the engine hands to a DocIndexer after a page
// passes shouldRecrawl. Field names mirror the Document attributes (§3).
type DocumentRecord struct {
	URI          string
	Source       string
	Framework    string
	Language     string
	Title        string
	Content      string
	Summary      string
	FilePath     string
	ContentHash  string
	LastCrawled  time.Time
	JSONData     []byte
	Availability string
}

// DocIndexer is the doc index's ingest boundary, as seen by the crawl
// engine. Defined here (rather than imported from the index package) so
// the engine has no compile-time dependency on a particular index
// implementation; any type with this method satisfies it structurally.
type DocIndexer interface {
	IndexDocument(ctx context.Context, rec DocumentRecord) error
}

// Source describes one ingestion category's crawl boundaries: the seed
// URL, which outbound links are in scope, and (optionally) how to resolve
// a page URL to its JSON-API sibling.
type Source struct {
	Name            string
	StartURL        string
	AllowedPrefixes []string
	JSONResolver    renderer.JSONURLResolver
}

func (src Source) allowed(link string) bool {
	for _, prefix := range src.AllowedPrefixes {
		if strings.HasPrefix(link, prefix) {
			return true
		}
	}
	return false
}

// EngineConfig controls pacing, depth, and retry/recycle policy. Zero
// values for MaxPages/MaxDepth mean unlimited, matching §4.2/§4.3.
type EngineConfig struct {
	MaxPages                int
	MaxDepth                int
	PolitenessDelay         time.Duration
	RendererRecycleInterval int
	MaxRetries              int
	ForceRecrawl            bool
	WriteMarkdown           bool
}

// EngineDeps are the engine's injected collaborators, following the same
// constructor-validated dependency-injection shape used throughout this
// module.
type EngineDeps struct {
	Renderer renderer.Renderer
	State    *State
	DocIndex DocIndexer
	BaseDir  string
	Log      *slog.Logger
}

// Engine drives the fetch/parse/persist/delay loop over a single Source.
type Engine struct {
	renderer renderer.Renderer
	state    *State
	docIndex DocIndexer
	baseDir  string
	log      *slog.Logger
	cfg      EngineConfig

	fetchCount int
	phase      Phase
}

// NewEngine validates deps and returns an Engine ready to Run a Source.
func NewEngine(deps EngineDeps, cfg EngineConfig) (*Engine, error) {
	if deps.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if deps.State == nil {
		return nil, fmt.Errorf("state is required")
	}
	if deps.DocIndex == nil {
		return nil, fmt.Errorf("doc index is required")
	}
	if deps.BaseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	if cfg.RendererRecycleInterval <= 0 {
		cfg.RendererRecycleInterval = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	return &Engine{
		renderer: deps.Renderer,
		state:    deps.State,
		docIndex: deps.DocIndex,
		baseDir:  deps.BaseDir,
		log:      log,
		cfg:      cfg,
		phase:    PhaseIdle,
	}, nil
}

// Result summarizes one Run invocation.
type Result struct {
	Fetched     int
	Skipped     int
	Errors      int
	RateLimited bool
}

// Run executes the crawl loop for src until the queue drains, MaxPages is
// reached, or a RateLimited error halts it. It resumes from a checkpointed
// session if one is active, and always leaves the session state
// consistent: cleared on a clean finish, saved on every interruption.
func (e *Engine) Run(ctx context.Context, src Source) (Result, error) {
	if err := e.state.Lock(); err != nil {
		return Result{}, err
	}
	defer e.state.Unlock()

	if err := e.state.LoadOrCreate(); err != nil {
		return Result{}, err
	}

	session := e.restoreOrSeedSession(src)
	visited := make(map[string]bool, len(session.Visited))
	for _, u := range session.Visited {
		visited[u] = true
	}
	queue := append([]QueueEntry(nil), session.Queue...)

	var result Result

	for {
		if ctx.Err() != nil {
			session.Queue = queue
			session.Visited = keys(visited)
			_ = e.state.SaveSessionState(session)
			return result, ctx.Err()
		}

		if len(queue) == 0 || (e.cfg.MaxPages > 0 && len(visited) >= e.cfg.MaxPages) {
			e.phase = PhaseTerminated
			break
		}

		entry := queue[0]
		queue = queue[1:]

		normalized := normalizeURL(entry.URL)
		if visited[normalized] {
			continue
		}
		visited[normalized] = true

		page, parseErr, fetchErr := e.fetchAndParse(ctx, src, normalized)
		if fetchErr != nil {
			result.Errors++
			e.state.RecordFrameworkError(frameworkOf(page, normalized))
			if cerr.GetCategory(fetchErr) == cerr.CategoryRateLimited {
				result.RateLimited = true
				delete(visited, normalized)
				session.Queue = append([]QueueEntry{entry}, queue...)
				session.Visited = keys(visited)
				_ = e.state.SaveSessionState(session)
				e.log.Warn("crawl halted: rate limited", slog.String("url", normalized))
				return result, nil
			}
			continue
		}
		if parseErr != nil {
			result.Errors++
			e.state.RecordFrameworkError(frameworkOf(page, normalized))
			continue
		}

		filePath := e.pagePath(page.Framework, normalized)
		if !e.state.ShouldRecrawl(normalized, page.ContentHash, filePath, e.cfg.ForceRecrawl) {
			result.Skipped++
			e.enqueueLinks(&queue, visited, src, page.Links, entry.Depth)
			e.sleepPoliteness(ctx)
			continue
		}

		e.phase = PhasePersisting
		if err := e.persist(ctx, src, normalized, page, filePath); err != nil {
			result.Errors++
			e.state.RecordFrameworkError(page.Framework)
			continue
		}

		e.state.UpdatePage(normalized, PageMetadata{
			Framework:   page.Framework,
			FilePath:    filePath,
			ContentHash: page.ContentHash,
			Depth:       entry.Depth,
			LastCrawled: time.Now(),
		})
		result.Fetched++

		e.enqueueLinks(&queue, visited, src, page.Links, entry.Depth)

		session.Queue = queue
		session.Visited = keys(visited)
		if err := e.state.AutoSaveIfNeeded(session); err != nil {
			e.log.Warn("checkpoint save failed", slog.String("error", err.Error()))
		}

		e.logProgress(normalized, result)
		e.sleepPoliteness(ctx)
	}

	if err := e.state.FinalizeCrawl(); err != nil {
		return result, err
	}
	return result, nil
}

// restoreOrSeedSession returns the checkpointed session if the state
// carries an active one (resume), otherwise a fresh session seeded with
// src's start URL.
func (e *Engine) restoreOrSeedSession(src Source) CrawlSessionState {
	if session, ok := e.state.ActiveSession(); ok {
		return session
	}
	return CrawlSessionState{
		Queue:            []QueueEntry{{URL: src.StartURL, Depth: 0}},
		StartURL:         src.StartURL,
		OutputDirectory:  e.baseDir,
		SessionStartTime: time.Now(),
		IsActive:         true,
	}
}

// parsedPage is the converter-agnostic result of step 4 (Parsing): content
// plus whatever is needed to run shouldRecrawl and persist.
type parsedPage struct {
	Title        string
	Markdown     string
	Framework    string
	Language     string
	ContentHash  string
	Links        []string
	JSONData     []byte
	Availability string
}

// fetchAndParse runs steps 3-4 of the main loop: fetch (preferring the
// source's JSON endpoint) with retry-and-recycle, then run the matching
// converter. fetchErr carries a TransientFetch/NotFound/Forbidden/
// RateLimited failure that survived all retries; parseErr carries a
// content conversion failure. At most one of them is non-nil.
func (e *Engine) fetchAndParse(ctx context.Context, src Source, pageURL string) (parsedPage, error, error) {
	e.phase = PhaseFetching
	body, err := e.fetchWithRetry(ctx, pageURL)
	if err != nil {
		return parsedPage{}, nil, err
	}

	e.phase = PhaseParsing
	isJSON := false
	if src.JSONResolver != nil {
		_, isJSON = src.JSONResolver(pageURL)
	}
	if isJSON {
		page, markdown, hash, convErr := convert.ConvertJSONAPI([]byte(body))
		if convErr != nil {
			return parsedPage{}, convErr, nil
		}
		raw, _ := json.Marshal(page)
		return parsedPage{
			Title:        page.Title,
			Markdown:     markdown,
			Framework:    inferFrameworkFromURL(pageURL),
			Language:     "swift",
			ContentHash:  hash,
			Links:        nil,
			JSONData:     raw,
			Availability: availabilityString(page.Availability),
		}, nil, nil
	}

	converted, convErr := convert.ConvertHTML(body, pageURL)
	if convErr != nil && converted.Markdown == "" {
		return parsedPage{}, convErr, nil
	}
	hash := contentHashOf(converted.Markdown)
	raw, _ := json.Marshal(struct {
		Title     string   `json:"title"`
		Markdown  string   `json:"markdown"`
		Framework string   `json:"framework"`
		Language  string   `json:"language"`
		Links     []string `json:"links"`
	}{converted.Title, converted.Markdown, converted.Framework, converted.Language, converted.Links})
	return parsedPage{
		Title:       converted.Title,
		Markdown:    converted.Markdown,
		Framework:   converted.Framework,
		Language:    converted.Language,
		ContentHash: hash,
		Links:       converted.Links,
		JSONData:    raw,
	}, nil, nil
}

// fetchWithRetry fetches pageURL, retrying up to cfg.MaxRetries times on a
// TransientFetch failure, recycling the renderer before each retry. The
// renderer is also recycled proactively every RendererRecycleInterval
// successful fetches.
func (e *Engine) fetchWithRetry(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := e.renderer.Recycle(ctx); err != nil {
				e.log.Warn("renderer recycle before retry failed", slog.String("error", err.Error()))
			}
		}

		body, err := e.renderer.Fetch(ctx, pageURL)
		if err == nil {
			e.fetchCount++
			if e.cfg.RendererRecycleInterval > 0 && e.fetchCount%e.cfg.RendererRecycleInterval == 0 {
				if rerr := e.renderer.Recycle(ctx); rerr != nil {
					e.log.Warn("proactive renderer recycle failed", slog.String("error", rerr.Error()))
				}
			}
			return body, nil
		}

		lastErr = err
		if !cerr.IsRetryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

// persist writes the converted page to disk (JSON always, Markdown when
// configured) and indexes it.
func (e *Engine) persist(ctx context.Context, src Source, pageURL string, page parsedPage, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeMetadataIO, "crawl engine: create docs directory", err)
	}

	payload := page.JSONData
	if err := os.WriteFile(filePath, payload, 0o644); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeMetadataIO, "crawl engine: write page json", err)
	}
	if e.cfg.WriteMarkdown && page.Markdown != "" {
		mdPath := strings.TrimSuffix(filePath, ".json") + ".md"
		if err := os.WriteFile(mdPath, []byte(page.Markdown), 0o644); err != nil {
			return cerr.PersistenceError(cerr.ErrCodeMetadataIO, "crawl engine: write page markdown", err)
		}
	}

	rec := DocumentRecord{
		URI:          docURI(src.Name, page.Framework, pageURL),
		Source:       src.Name,
		Framework:    strings.ToLower(page.Framework),
		Language:     page.Language,
		Title:        page.Title,
		Content:      page.Markdown,
		Summary:      summarize(page.Markdown),
		FilePath:     filePath,
		ContentHash:  page.ContentHash,
		LastCrawled:  time.Now(),
		JSONData:     payload,
		Availability: page.Availability,
	}
	return e.docIndex.IndexDocument(ctx, rec)
}

func (e *Engine) enqueueLinks(queue *[]QueueEntry, visited map[string]bool, src Source, links []string, depth int) {
	if e.cfg.MaxDepth > 0 && depth+1 > e.cfg.MaxDepth {
		return
	}
	for _, link := range links {
		normalized := normalizeURL(link)
		if !src.allowed(normalized) || visited[normalized] {
			continue
		}
		*queue = append(*queue, QueueEntry{URL: normalized, Depth: depth + 1})
	}
}

func (e *Engine) sleepPoliteness(ctx context.Context) {
	if e.cfg.PolitenessDelay <= 0 {
		return
	}
	e.phase = PhaseDelaying
	select {
	case <-time.After(e.cfg.PolitenessDelay):
	case <-ctx.Done():
	}
}

// pagePath derives the on-disk path for a page: <base>/docs/<framework>/<slug>.json.
func (e *Engine) pagePath(framework, pageURL string) string {
	slug := deriveSlug(pageURL)
	fw := framework
	if fw == "" {
		fw = "unknown"
	}
	return filepath.Join(e.baseDir, "docs", strings.ToLower(fw), slug+".json")
}

// logProgress emits a human-readable progress line prefixed with current
// heap usage, matching the rolling per-session log's per-line memory
// prefix.
func (e *Engine) logProgress(url string, result Result) {
	mem := profiling.FormatBytes(profiling.MemStats().Alloc)
	e.log.Info("crawl progress",
		slog.String("mem", mem),
		slog.String("url", url),
		slog.Int("fetched", result.Fetched),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", result.Errors),
	)
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	return u.String()
}

func frameworkOf(page parsedPage, pageURL string) string {
	if page.Framework != "" {
		return page.Framework
	}
	return inferFrameworkFromURL(pageURL)
}

func inferFrameworkFromURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	const marker = "/documentation/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimPrefix(u.Path[idx+len(marker):], "/")
	segments := strings.SplitN(rest, "/", 2)
	if segments[0] == "" {
		return ""
	}
	return strings.ToLower(segments[0])
}

func deriveSlug(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "index"
	}
	trimmed := strings.Trim(u.Path, "/")
	segments := strings.Split(trimmed, "/")
	slug := segments[len(segments)-1]
	slug = strings.ToLower(slug)
	if slug == "" {
		return "index"
	}
	return slug
}

func docURI(source, framework, pageURL string) string {
	return fmt.Sprintf("%s://%s/%s", source, strings.ToLower(framework), deriveSlug(pageURL))
}

func contentHashOf(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// availabilityString renders a render-JSON platform list into the
// "iOS 13.0+, macOS 10.15+" form the doc index parses on write.
func availabilityString(platforms []convert.PlatformAvailability) string {
	parts := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if p.Platform == "" || p.Introduced == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s+", p.Platform, p.Introduced))
	}
	return strings.Join(parts, ", ")
}

func summarize(markdown string) string {
	words := strings.Fields(markdown)
	const capWords = 200
	if len(words) <= capWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:capWords], " ") + "…"
}
