// Package renderer provides the web-rendering abstraction the crawl
// engine fetches pages through: a headless-browser-backed renderer for
// pages that require JavaScript, and a JSON-preferring wrapper that
// bypasses the browser entirely when a source exposes a JSON endpoint.
package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
)

// Renderer is the fetch/recycle boundary the crawl engine depends on.
// Implementations retain cookies across fetches within one session and
// never retain state across a Recycle call.
type Renderer interface {
	// Fetch blocks until the page's DOM is quiet (network-idle, bounded
	// by ctx) and returns document.documentElement.outerHTML.
	Fetch(ctx context.Context, url string) (string, error)
	// Recycle discards and recreates the underlying browser state.
	Recycle(ctx context.Context) error
}

// Config controls the headless browser instance a ChromeRenderer drives.
type Config struct {
	UserAgent     string
	Headless      bool
	NetworkIdle   time.Duration // quiet period with no in-flight requests
	RenderTimeout time.Duration
	PageCacheSize int
}

// DefaultConfig matches the crawl engine's render-timeout default (§5).
func DefaultConfig() Config {
	return Config{
		UserAgent:     "cupertino-crawler/1.0",
		Headless:      true,
		NetworkIdle:   500 * time.Millisecond,
		RenderTimeout: 30 * time.Second,
		PageCacheSize: 128,
	}
}

// ChromeRenderer is a chromedp-backed Renderer. One browser context is
// held at a time; Recycle tears it down and lazily recreates it on the
// next Fetch.
type ChromeRenderer struct {
	cfg           Config
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	pageCache     *lru.Cache[string, string]
}

// NewChromeRenderer constructs a renderer without starting a browser;
// the browser is created lazily on first Fetch or Recycle.
func NewChromeRenderer(cfg Config) (*ChromeRenderer, error) {
	if cfg.PageCacheSize <= 0 {
		cfg.PageCacheSize = 1
	}
	cache, err := lru.New[string, string](cfg.PageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create renderer page cache: %w", err)
	}
	return &ChromeRenderer{cfg: cfg, pageCache: cache}, nil
}

func (r *ChromeRenderer) ensureBrowser() error {
	if r.browserCtx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(r.cfg.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("start headless browser: %w", err)
	}

	r.allocCtx, r.allocCancel = allocCtx, allocCancel
	r.browserCtx, r.browserCancel = browserCtx, browserCancel
	return nil
}

// Fetch navigates to url, waits for the DOM to go quiet, and returns the
// fully rendered document HTML. A page already seen this session is
// served from the bounded page cache instead of re-fetching.
func (r *ChromeRenderer) Fetch(ctx context.Context, url string) (string, error) {
	if cached, ok := r.pageCache.Get(url); ok {
		return cached, nil
	}

	if err := r.ensureBrowser(); err != nil {
		return "", cerr.TransientFetchError(cerr.ErrCodeRenderTimeout, "renderer: browser unavailable", err)
	}

	fetchCtx, cancel := context.WithTimeout(r.browserCtx, r.cfg.RenderTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(fetchCtx,
		chromedp.Navigate(url),
		waitForNetworkIdle(r.cfg.NetworkIdle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", cerr.TransientFetchError(cerr.ErrCodeRenderTimeout, "renderer: fetch canceled", ctx.Err())
		}
		return "", cerr.TransientFetchError(cerr.ErrCodeRenderTimeout, fmt.Sprintf("renderer: fetch %s", url), err)
	}

	r.pageCache.Add(url, html)
	return html, nil
}

// Recycle tears down the current browser context and clears the page
// cache; the next Fetch lazily starts a fresh browser.
func (r *ChromeRenderer) Recycle(ctx context.Context) error {
	if r.browserCancel != nil {
		r.browserCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
	r.browserCtx, r.browserCancel = nil, nil
	r.allocCtx, r.allocCancel = nil, nil
	r.pageCache.Purge()
	return nil
}

// waitForNetworkIdle blocks until no network requests have been in
// flight for the given quiet window, listening to cdproto's
// Network.requestWillBeSent / loadingFinished / loadingFailed events to
// track the in-flight count rather than polling performance timing.
func waitForNetworkIdle(quiet time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var inFlight int
		idleTimer := time.NewTimer(quiet)
		defer idleTimer.Stop()
		resetIdle := func() {
			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(quiet)
		}

		done := make(chan struct{})
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			switch ev.(type) {
			case *network.EventRequestWillBeSent:
				inFlight++
			case *network.EventLoadingFinished, *network.EventLoadingFailed:
				if inFlight > 0 {
					inFlight--
				}
				if inFlight == 0 {
					resetIdle()
				}
			}
		})

		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network tracking: %w", err)
		}

		go func() {
			select {
			case <-idleTimer.C:
				close(done)
			case <-ctx.Done():
			}
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
