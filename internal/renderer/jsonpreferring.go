package renderer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
)

// JSONURLResolver maps a documentation page URL to the URL of its JSON-API
// sibling, when the source that owns the page declares one (e.g. Apple's
// DocC sites publish a tutorials/data/<path>.json next to every
// documentation/<path> page). The second return value is false when the
// source has no such endpoint, in which case the caller must fall back to
// the browser-backed renderer.
type JSONURLResolver func(pageURL string) (jsonURL string, ok bool)

// JSONPreferringRenderer wraps a Renderer and takes the JSON-endpoint path
// of the fetch contract whenever the resolver declares one for a URL,
// bypassing the headless browser entirely and avoiding its memory cost.
// Pages without a declared JSON endpoint fall through to the wrapped
// Renderer unchanged.
type JSONPreferringRenderer struct {
	inner    Renderer
	resolve  JSONURLResolver
	client   *http.Client
	maxBytes int64
}

// NewJSONPreferringRenderer wraps inner with JSON-endpoint preference.
// resolve decides, per URL, whether a JSON sibling endpoint exists.
func NewJSONPreferringRenderer(inner Renderer, resolve JSONURLResolver) *JSONPreferringRenderer {
	return &JSONPreferringRenderer{
		inner:   inner,
		resolve: resolve,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
		maxBytes: 10 << 20, // 10MiB, generous for a single DocC render JSON document
	}
}

// Fetch returns the raw JSON body when the resolver declares an endpoint
// for url, otherwise delegates to the wrapped Renderer.
func (j *JSONPreferringRenderer) Fetch(ctx context.Context, url string) (string, error) {
	jsonURL, ok := j.resolve(url)
	if !ok {
		return j.inner.Fetch(ctx, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jsonURL, nil)
	if err != nil {
		return "", cerr.TransientFetchError(cerr.ErrCodeRenderTimeout, fmt.Sprintf("renderer: build json request %s", jsonURL), err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return "", cerr.TransientFetchError(cerr.ErrCodeRenderTimeout, fmt.Sprintf("renderer: fetch json %s", jsonURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", cerr.NotFoundError(fmt.Sprintf("renderer: json endpoint %s", jsonURL), nil)
	}
	if resp.StatusCode == http.StatusForbidden {
		return "", cerr.ForbiddenError(fmt.Sprintf("renderer: json endpoint %s", jsonURL), nil)
	}
	if resp.StatusCode >= 500 {
		return "", cerr.TransientFetchError(cerr.ErrCodeRenderTimeout, fmt.Sprintf("renderer: json endpoint %s returned %d", jsonURL, resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return "", cerr.TransientFetchError(cerr.ErrCodeRenderTimeout, fmt.Sprintf("renderer: json endpoint %s returned %d", jsonURL, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, j.maxBytes))
	if err != nil {
		return "", cerr.TransientFetchError(cerr.ErrCodeRenderTimeout, fmt.Sprintf("renderer: read json body %s", jsonURL), err)
	}
	return string(body), nil
}

// Recycle forwards to the wrapped Renderer; the JSON path is stateless and
// has nothing of its own to discard.
func (j *JSONPreferringRenderer) Recycle(ctx context.Context) error {
	return j.inner.Recycle(ctx)
}
