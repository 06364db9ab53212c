// Package direct fetches storefront pages over plain HTTP via gocolly, for
// stores whose listings are server-rendered.
package direct

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

const defaultTimeout = 20 * time.Second

// challengeMarkers betray an anti-bot interstitial served in place of the
// listing. Matched case-insensitively against the response body.
var challengeMarkers = []string{
	"just a moment",
	"enable javascript and cookies",
	"_cf_chl_opt",
	"challenge-platform",
}

// Fetcher implements ingest.Fetcher with a cloned collector per fetch.
// Clones share the base collector's cookie jar, so session cookies picked up
// by a warmup fetch carry into the listing fetches that follow.
type Fetcher struct {
	cfg  Config
	base *colly.Collector
	log  *zap.Logger
}

// New builds a Fetcher around one shared collector backend.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	// Error statuses still carry the challenge page body we need to inspect.
	c.ParseHTTPErrorResponse = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.WithTransport(newHTTPTransport())
	return &Fetcher{cfg: cfg, base: c, log: logger}
}

// Fetch executes a single GET and classifies the outcome.
func (f *Fetcher) Fetch(ctx context.Context, req ingest.FetchRequest) (ingest.PageSnapshot, error) {
	collector := f.base.Clone()
	timeout := f.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	collector.SetRequestTimeout(timeout)

	if len(req.Cookies) > 0 {
		if err := collector.SetCookies(req.URL, req.Cookies); err != nil {
			return ingest.PageSnapshot{}, fmt.Errorf("set cookies: %w", err)
		}
	}

	var (
		snap     ingest.PageSnapshot
		fetchErr error
	)
	start := time.Now()

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range req.Headers {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		snap, fetchErr = f.classify(req, r, start)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			snap, fetchErr = f.classify(req, r, start)
			return
		}
		fetchErr = &ingest.NavigationError{URL: req.URL, Err: err}
	})

	if err := f.visit(ctx, collector, req.URL); err != nil {
		fetchErrors.WithLabelValues(req.Store, "transport").Inc()
		return ingest.PageSnapshot{}, &ingest.NavigationError{URL: req.URL, Err: err}
	}
	if fetchErr != nil {
		fetchErrors.WithLabelValues(req.Store, ingest.ErrorClass(fetchErr)).Inc()
		return ingest.PageSnapshot{}, fetchErr
	}
	fetchDuration.WithLabelValues(req.Store).Observe(snap.Duration.Seconds())
	return snap, nil
}

// classify turns a completed HTTP exchange into a snapshot or a typed error.
// Challenge pages win over plain status errors: a 403 wrapping an
// interstitial is a block, not a retryable server fault.
func (f *Fetcher) classify(req ingest.FetchRequest, r *colly.Response, start time.Time) (ingest.PageSnapshot, error) {
	if ind := challengeIndicator(r.Body); ind != "" {
		challengeHits.WithLabelValues(req.Store).Inc()
		f.log.Warn("challenge page served",
			zap.String("url", req.URL),
			zap.Int("status", r.StatusCode),
			zap.String("indicator", ind),
		)
		return ingest.PageSnapshot{}, &ingest.BlockedError{URL: req.URL, Indicator: ind}
	}
	if r.StatusCode == http.StatusForbidden && req.BotProtected {
		// No recognizable interstitial, but a protected store answering 403
		// means the access method stopped working.
		challengeHits.WithLabelValues(req.Store).Inc()
		f.log.Warn("protected store refused access",
			zap.String("url", req.URL),
			zap.Int("status", r.StatusCode),
		)
		return ingest.PageSnapshot{}, &ingest.BlockedError{URL: req.URL, Indicator: "status 403"}
	}
	if r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices {
		return ingest.PageSnapshot{}, &ingest.HTTPError{URL: req.URL, StatusCode: r.StatusCode}
	}
	return ingest.PageSnapshot{
		Kind:       ingest.SnapshotPayload,
		URL:        req.URL,
		Page:       req.Page,
		StatusCode: r.StatusCode,
		Body:       append([]byte(nil), r.Body...),
		FetchedAt:  start.UTC(),
		Duration:   time.Since(start),
	}, nil
}

func (f *Fetcher) visit(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// challengeIndicator returns the first anti-bot marker found in body, or "".
func challengeIndicator(body []byte) string {
	lower := strings.ToLower(string(body))
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return marker
		}
	}
	return ""
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
