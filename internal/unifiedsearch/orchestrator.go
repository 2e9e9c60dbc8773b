package unifiedsearch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tijs/cupertino-skill-sub001/internal/docindex"
	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
)

// Result is one ranked match, normalized across the doc index and the
// sample index so every source reports through the same shape.
type Result struct {
	URI          string
	Source       string
	Framework    string
	Title        string
	Summary      string
	Availability string
}

// Query collects a unified search's filters. Source selects a single
// target; empty or unrecognized means fan out across AllSources (§6).
type Query struct {
	Text           string
	Source         string
	Framework      string
	Language       string
	Limit          int
	IncludeArchive bool
	MinIOS         int
	MinMacOS       int
	MinTvOS        int
	MinWatchOS     int
	MinVisionOS    int
}

// SourceOutcome is one source's contribution to a fanned-out search: its
// results, or why it came back empty.
type SourceOutcome struct {
	Source  string
	Results []Result
	Err     error
}

// Output is the result of a Search call: either a single source's ranked
// results, or every source's outcome plus the combined total.
type Output struct {
	Query      Query
	Results    []Result
	PerSource  map[string]int
	TotalCount int
	FannedOut  bool
}

// TeaserOutput carries a small sample from every source the user did not
// target, attached to a single-source search response (§4.6).
type TeaserOutput struct {
	Source  string // the source the user explicitly targeted
	Teasers map[string][]Result
}

const (
	defaultSourceTimeout = 5 * time.Second
	defaultTeaserLimit   = 3
	defaultLimit         = 20
)

// Orchestrator routes a query to one source's searcher or fans it out
// across all eight, and fetches teasers for a single-source search. Either
// index may be nil (its sources are simply empty in results), matching
// the MCP server's "missing provider" tolerance (§4.7).
type Orchestrator struct {
	DocIndex      *docindex.Index
	SampleIndex   *sampleindex.Index
	SourceTimeout time.Duration
	TeaserLimit   int
	Log           *slog.Logger
}

// New builds an Orchestrator with the documented defaults: a 5s soft
// timeout per source and 3-entry teasers.
func New(docIndex *docindex.Index, sampleIndex *sampleindex.Index, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		DocIndex:      docIndex,
		SampleIndex:   sampleIndex,
		SourceTimeout: defaultSourceTimeout,
		TeaserLimit:   defaultTeaserLimit,
		Log:           log,
	}
}

// Search routes q to a single source when q.Source names one of the eight
// recognized sources, otherwise fans out across all of them in parallel.
func (o *Orchestrator) Search(ctx context.Context, q Query) (Output, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}

	if q.Source != "" && isKnownSource(q.Source) {
		results, err := o.searchSource(ctx, q.Source, q)
		if err != nil {
			return Output{}, err
		}
		return Output{
			Query:      q,
			Results:    results,
			PerSource:  map[string]int{q.Source: len(results)},
			TotalCount: len(results),
		}, nil
	}

	return o.fanOut(ctx, q)
}

// fanOut implements the §5.1 fan-out contract: one goroutine per source
// via errgroup, each bounded by its own soft timeout, with a source
// failure logged and converted to an empty result list rather than
// propagated through the group (the group func always returns nil).
func (o *Orchestrator) fanOut(ctx context.Context, q Query) (Output, error) {
	outcomes := make([]SourceOutcome, len(AllSources))

	g, gctx := errgroup.WithContext(ctx)
	for i, source := range AllSources {
		i, source := i, source
		g.Go(func() error {
			sourceCtx, cancel := context.WithTimeout(gctx, o.SourceTimeout)
			defer cancel()

			results, err := o.searchSource(sourceCtx, source, q)
			if err != nil {
				o.Log.Warn("unified search: source failed", slog.String("source", source), slog.String("error", err.Error()))
				outcomes[i] = SourceOutcome{Source: source, Err: err}
				return nil
			}
			outcomes[i] = SourceOutcome{Source: source, Results: results}
			return nil
		})
	}
	_ = g.Wait() // never returns a non-nil error; every goroutine swallows its own

	var merged []Result
	perSource := make(map[string]int, len(AllSources))
	for _, outcome := range outcomes {
		perSource[outcome.Source] = len(outcome.Results)
		merged = append(merged, outcome.Results...)
	}

	return Output{
		Query:      q,
		Results:    merged,
		PerSource:  perSource,
		TotalCount: len(merged),
		FannedOut:  true,
	}, nil
}

// Teasers fetches a small sample from every source other than excludeSource
// (the one the user explicitly targeted) and any source excluded by the
// archive filter, running all fetches concurrently. A teaser failure is
// silently dropped, leaving that source's slot empty (§4.6).
func (o *Orchestrator) Teasers(ctx context.Context, q Query, excludeSource string) TeaserOutput {
	teaserQuery := q
	teaserQuery.Limit = o.TeaserLimit
	if teaserQuery.Limit <= 0 {
		teaserQuery.Limit = defaultTeaserLimit
	}

	teasers := make(map[string][]Result, len(AllSources))
	var mu sync.Mutex

	var wg sync.WaitGroup
	for _, source := range AllSources {
		if source == excludeSource {
			continue
		}
		if source == SourceAppleArchive && !q.IncludeArchive {
			continue
		}
		source := source
		wg.Add(1)
		go func() {
			defer wg.Done()
			sourceCtx, cancel := context.WithTimeout(ctx, o.SourceTimeout)
			defer cancel()
			results, err := o.searchSource(sourceCtx, source, teaserQuery)
			if err != nil {
				return // silently dropped
			}
			mu.Lock()
			teasers[source] = results
			mu.Unlock()
		}()
	}
	wg.Wait()

	return TeaserOutput{Source: excludeSource, Teasers: teasers}
}

// searchSource dispatches q to the doc index or sample index depending on
// source, returning an empty (nil) result set rather than an error when
// the backing index was never loaded.
func (o *Orchestrator) searchSource(ctx context.Context, source string, q Query) ([]Result, error) {
	if source == SourceSamples {
		if o.SampleIndex == nil {
			return nil, nil
		}
		projects, err := o.SampleIndex.SearchProjects(ctx, q.Text, q.Framework, q.Limit)
		if err != nil {
			return nil, err
		}
		results := make([]Result, 0, len(projects))
		for _, p := range projects {
			results = append(results, Result{
				URI:       "samples://" + p.ID,
				Source:    SourceSamples,
				Framework: firstOrEmpty(p.Frameworks),
				Title:     p.Title,
				Summary:   p.Description,
			})
		}
		return results, nil
	}

	if o.DocIndex == nil {
		return nil, nil
	}
	dq := docindex.Query{
		Text:           q.Text,
		Source:         source,
		Framework:      q.Framework,
		Language:       q.Language,
		Limit:          q.Limit,
		IncludeArchive: q.IncludeArchive || source == SourceAppleArchive,
		MinIOS:         q.MinIOS,
		MinMacOS:       q.MinMacOS,
		MinTvOS:        q.MinTvOS,
		MinWatchOS:     q.MinWatchOS,
		MinVisionOS:    q.MinVisionOS,
	}
	docs, err := o.DocIndex.Search(ctx, dq)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(docs))
	for _, d := range docs {
		results = append(results, Result{
			URI:          d.URI,
			Source:       d.Source,
			Framework:    d.Framework,
			Title:        d.Title,
			Summary:      d.Summary,
			Availability: d.Availability,
		})
	}
	return results, nil
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
