// Package rendered drives headless Chrome via chromedp to fetch storefront
// pages that only materialize after client-side JavaScript runs.
package rendered

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// Config controls the shared browser and per-fetch behavior.
type Config struct {
	// UserAgent overrides the browser's default UA string.
	UserAgent string
	// MaxTabs bounds concurrently open tabs across all store jobs.
	MaxTabs int
	// NavTimeout caps one navigate-render-snapshot cycle.
	NavTimeout time.Duration
	// NavQPS spaces navigations across all tabs; zero disables the limiter.
	NavQPS float64
}

const (
	defaultMaxTabs    = 2
	defaultNavTimeout = 60 * time.Second
)

// Fetcher implements ingest.Fetcher with one headless-Chrome allocator and a
// fresh tab per fetch. Tabs are never reused across fetches: a page's routing
// state and cached XHR responses die with its tab.
type Fetcher struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	sem         chan struct{}
	limiter     *rate.Limiter
	filter      ingest.ResourceFilter
	log         *zap.Logger
}

// New builds the exec allocator. The browser process itself starts lazily
// with the first tab.
func New(cfg Config, filter ingest.ResourceFilter, logger *zap.Logger) *Fetcher {
	if cfg.MaxTabs <= 0 {
		cfg.MaxTabs = defaultMaxTabs
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = defaultNavTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "uk-UA"),
		chromedp.WindowSize(1920, 1080),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocator, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	var limiter *rate.Limiter
	if cfg.NavQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.NavQPS), 1)
	}
	return &Fetcher{
		cfg:         cfg,
		allocator:   allocator,
		allocCancel: allocCancel,
		sem:         make(chan struct{}, cfg.MaxTabs),
		limiter:     limiter,
		filter:      filter,
		log:         logger,
	}
}

// Close tears down the allocator and every tab under it.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch renders one listing page and returns its DOM snapshot. The tab is
// torn down on every exit path.
func (f *Fetcher) Fetch(ctx context.Context, req ingest.FetchRequest) (ingest.PageSnapshot, error) {
	select {
	case f.sem <- struct{}{}:
		defer func() { <-f.sem }()
	case <-ctx.Done():
		return ingest.PageSnapshot{}, fmt.Errorf("acquire tab slot: %w", ctx.Err())
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return ingest.PageSnapshot{}, fmt.Errorf("navigation rate limit: %w", err)
		}
	}

	tabCtx, cancelTab := chromedp.NewContext(f.allocator)
	defer cancelTab()
	taskCtx, cancelTask := context.WithTimeout(tabCtx, f.cfg.NavTimeout)
	defer cancelTask()
	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	f.interceptRequests(tabCtx, req.Store)
	meta := newDocumentMeta()
	chromedp.ListenTarget(tabCtx, meta.captureEvent)

	start := time.Now()
	if err := chromedp.Run(taskCtx,
		network.Enable(),
		fetch.Enable(),
		f.sessionSetup(req),
		chromedp.Navigate(req.URL),
	); err != nil {
		renderErrors.WithLabelValues(req.Store, "navigation").Inc()
		return ingest.PageSnapshot{}, &ingest.NavigationError{URL: req.URL, Err: err}
	}
	if status := meta.status(); status >= http.StatusBadRequest {
		renderErrors.WithLabelValues(req.Store, "document_status").Inc()
		return ingest.PageSnapshot{}, &ingest.NavigationError{
			URL: req.URL,
			Err: fmt.Errorf("document status %d", status),
		}
	}

	if req.WaitSelector != "" {
		if err := chromedp.Run(taskCtx, chromedp.WaitVisible(req.WaitSelector, chromedp.ByQuery)); err != nil {
			renderErrors.WithLabelValues(req.Store, "render_timeout").Inc()
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
				return ingest.PageSnapshot{}, &ingest.RenderTimeoutError{
					URL:      req.URL,
					Selector: req.WaitSelector,
					Wait:     f.cfg.NavTimeout,
					Err:      err,
				}
			}
			return ingest.PageSnapshot{}, &ingest.NavigationError{URL: req.URL, Err: err}
		}
	}

	var (
		html    string
		hasMore bool
	)
	actions := []chromedp.Action{chromedp.OuterHTML("html", &html, chromedp.ByQuery)}
	if req.HasMoreProbe != "" {
		probe := fmt.Sprintf("document.querySelector(%q) !== null", req.HasMoreProbe)
		actions = append([]chromedp.Action{chromedp.Evaluate(probe, &hasMore)}, actions...)
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		renderErrors.WithLabelValues(req.Store, "snapshot").Inc()
		return ingest.PageSnapshot{}, &ingest.NavigationError{URL: req.URL, Err: err}
	}

	dur := time.Since(start)
	renderDuration.WithLabelValues(req.Store).Observe(dur.Seconds())
	return ingest.PageSnapshot{
		Kind:       ingest.SnapshotDOM,
		URL:        req.URL,
		Page:       req.Page,
		StatusCode: meta.status(),
		Body:       []byte(html),
		HasMore:    hasMore,
		FetchedAt:  start.UTC(),
		Duration:   dur,
	}, nil
}

// sessionSetup applies UA, extra headers, and cookies before navigation.
func (f *Fetcher) sessionSetup(req ingest.FetchRequest) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(req.Headers) > 0 {
			if err := network.SetExtraHTTPHeaders(toNetworkHeaders(req.Headers)).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		for _, c := range req.Cookies {
			cookie := network.SetCookie(c.Name, c.Value).WithURL(req.URL)
			if c.Domain != "" {
				cookie = cookie.WithDomain(c.Domain)
			}
			if err := cookie.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

// interceptRequests routes every paused subrequest through the resource
// filter. Blocked requests are aborted before they hit the network. The CDP
// executor must be resolved per event: the tab's target does not exist until
// the first Run, so binding it when the listener is installed would capture
// nil.
func (f *Fetcher) interceptRequests(tabCtx context.Context, store string) {
	if f.filter == nil {
		return
	}
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(tabCtx)
			execCtx := cdp.WithExecutor(tabCtx, c.Target)
			f.resolveSubrequest(execCtx, paused, store)
		}()
	})
}

// resolveSubrequest continues or aborts one paused request against execCtx.
func (f *Fetcher) resolveSubrequest(execCtx context.Context, paused *fetch.EventRequestPaused, store string) {
	rt := resourceType(paused.ResourceType)
	if f.filter.Allow(paused.Request.URL, rt) {
		if err := fetch.ContinueRequest(paused.RequestID).Do(execCtx); err != nil {
			f.log.Debug("continue subrequest", zap.String("url", paused.Request.URL), zap.Error(err))
		}
		return
	}
	blockedSubrequests.WithLabelValues(store, string(rt)).Inc()
	if err := fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx); err != nil {
		f.log.Debug("abort subrequest", zap.String("url", paused.Request.URL), zap.Error(err))
	}
}

// resourceType maps CDP resource labels onto the filter's taxonomy.
func resourceType(rt network.ResourceType) ingest.ResourceType {
	switch rt {
	case network.ResourceTypeDocument:
		return ingest.ResourceDocument
	case network.ResourceTypeStylesheet:
		return ingest.ResourceStylesheet
	case network.ResourceTypeImage:
		return ingest.ResourceImage
	case network.ResourceTypeMedia:
		return ingest.ResourceMedia
	case network.ResourceTypeFont:
		return ingest.ResourceFont
	case network.ResourceTypeScript:
		return ingest.ResourceScript
	case network.ResourceTypeXHR:
		return ingest.ResourceXHR
	case network.ResourceTypeFetch:
		return ingest.ResourceFetch
	case network.ResourceTypePing:
		return ingest.ResourcePing
	default:
		return ingest.ResourceType(strings.ToLower(string(rt)))
	}
}

// documentMeta records the main document response seen during navigation.
type documentMeta struct {
	mu         sync.Mutex
	statusCode int
}

func newDocumentMeta() *documentMeta {
	return &documentMeta{}
}

func (m *documentMeta) captureEvent(ev interface{}) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	if m.statusCode == 0 {
		m.statusCode = int(resp.Response.Status)
	}
	m.mu.Unlock()
}

func (m *documentMeta) status() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusCode == 0 {
		return http.StatusOK
	}
	return m.statusCode
}

// forwardCancel propagates the caller's cancellation into the chromedp task
// context, which descends from the allocator rather than the caller.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func toNetworkHeaders(h http.Header) network.Headers {
	headers := network.Headers{}
	for key, values := range h {
		if len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			headers[key] = values[0]
		} else {
			headers[key] = append([]string(nil), values...)
		}
	}
	return headers
}
