package catalog

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
)

// RepoRef is a github.com/<owner>/<repo> reference extracted from a
// crawled page.
type RepoRef struct {
	Owner string
	Repo  string
}

// repoRefPattern matches github.com/<owner>/<repo> links embedded in
// Swift.org documentation prose.
var repoRefPattern = regexp.MustCompile(`github\.com/([A-Za-z0-9][\w.-]*)/([A-Za-z0-9][\w.-]*)`)

// ExtractRepoRefs scans content for github.com/<owner>/<repo> references,
// deduplicating by owner/repo pair and stripping trailing periods (such as
// a sentence-ending ".") and a trailing ".git".
func ExtractRepoRefs(content string) []RepoRef {
	seen := make(map[RepoRef]bool)
	var refs []RepoRef
	for _, m := range repoRefPattern.FindAllStringSubmatch(content, -1) {
		owner, repo := m[1], m[2]
		repo = trimGitSuffix(strings.TrimRight(repo, "."))
		ref := RepoRef{Owner: owner, Repo: repo}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

func trimGitSuffix(repo string) string {
	const suffix = ".git"
	if len(repo) > len(suffix) && repo[len(repo)-len(suffix):] == suffix {
		return repo[:len(repo)-len(suffix)]
	}
	return repo
}

// Refresher resolves RepoRefs into PriorityPackage rows via the GitHub
// REST API (§6.1), throttled by a rate limiter so a large Swift.org crawl
// doesn't immediately exhaust the anonymous API quota.
type Refresher struct {
	client  *github.Client
	limiter *rate.Limiter
}

// NewRefresher builds a Refresher. When token is non-empty, lookups are
// authenticated (extending the per-hour quota from 60 to 5000); otherwise
// they run anonymously. requestsPerSecond bounds the outbound call rate
// regardless of which quota applies.
func NewRefresher(token string, requestsPerSecond float64) *Refresher {
	httpClient := http.DefaultClient
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Refresher{
		client:  github.NewClient(httpClient),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Refresh resolves each ref into a PriorityPackage, skipping individual
// repos that are not found or forbidden rather than failing the whole
// batch. It aborts immediately, returning a RateLimited cerr, if the API
// answers with 403 and zero remaining quota, per §6.1 (no retry).
func (r *Refresher) Refresh(ctx context.Context, refs []RepoRef) ([]PriorityPackage, error) {
	packages := make([]PriorityPackage, 0, len(refs))
	for _, ref := range refs {
		if err := r.limiter.Wait(ctx); err != nil {
			return packages, err
		}

		repo, resp, err := r.client.Repositories.Get(ctx, ref.Owner, ref.Repo)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusForbidden && resp.Rate.Remaining == 0 {
				return packages, cerr.RateLimitedError("catalog refresh: GitHub API quota exhausted", err)
			}
			if resp != nil && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden) {
				continue
			}
			continue
		}

		packages = append(packages, PriorityPackage{
			Owner:       ref.Owner,
			Repo:        ref.Repo,
			Tier:        tierFor(ref.Owner),
			Description: repo.GetDescription(),
			Stars:       repo.GetStargazersCount(),
		})
	}
	return packages, nil
}

func tierFor(owner string) Tier {
	if owner == "apple" {
		return TierAppleOfficial
	}
	return TierEcosystem
}

// defaultRefreshInterval is the suggested spacing between Refresh runs
// against the same crawl output. It is unexported and not enforced:
// Refresh does not consult it.
const defaultRefreshInterval = 24 * time.Hour
