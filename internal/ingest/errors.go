package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// RenderTimeoutError reports that a rendered page's completion predicate
// never held within the configured wait.
type RenderTimeoutError struct {
	URL      string
	Selector string
	Wait     time.Duration
	Err      error
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("render timeout after %s waiting for %q at %s", e.Wait, e.Selector, e.URL)
}

func (e *RenderTimeoutError) Unwrap() error { return e.Err }

// NavigationError reports that the initial document load failed: DNS,
// connection refused, or a non-2xx document response.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed for %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// HTTPError reports a direct fetch that completed with an unexpected status.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// BlockedError reports that a storefront's bot detection rejected the fetch.
// It is a distinct class from HTTPError because it means the access method
// itself has stopped working, not that the network hiccupped.
type BlockedError struct {
	URL       string
	Indicator string
}

func (e *BlockedError) Error() string {
	if e.Indicator == "" {
		return fmt.Sprintf("blocked by bot detection at %s", e.URL)
	}
	return fmt.Sprintf("blocked by bot detection at %s (matched %q)", e.URL, e.Indicator)
}

// DiscoveryFailedError reports that category discovery produced an empty
// tree, which is terminal for the store's run.
type DiscoveryFailedError struct {
	Store string
	Err   error
}

func (e *DiscoveryFailedError) Error() string {
	return fmt.Sprintf("category discovery failed for store %q: no categories found", e.Store)
}

func (e *DiscoveryFailedError) Unwrap() error { return e.Err }

// ErrMaxAttempts wraps the last transient error once the retry budget is
// spent, turning it terminal for the page.
var ErrMaxAttempts = errors.New("retry attempts exhausted")

// ErrRunNotFound is returned by run stores for unknown run ids.
var ErrRunNotFound = errors.New("scrape run not found")

// retryableStatus reports HTTP statuses treated as transient: server errors
// plus the two timeout-ish client codes.
func retryableStatus(status int) bool {
	if status >= 500 {
		return true
	}
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests
}

// IsTransient classifies a fetch/extract failure. Transient errors are
// retried by the RetryScheduler; everything else is terminal for the page.
// Typed errors win over the context sentinels they may wrap: a render
// timeout carries context.DeadlineExceeded underneath and is still
// transient, while a bare cancellation is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return retryableStatus(httpErr.StatusCode)
	}
	var renderTimeout *RenderTimeoutError
	if errors.As(err, &renderTimeout) {
		return true
	}
	var nav *NavigationError
	if errors.As(err, &nav) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// ErrorClass returns a short stable label for metrics and run summaries.
func ErrorClass(err error) string {
	if err == nil {
		return "none"
	}
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return "blocked"
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= 500 {
			return "http_5xx"
		}
		return "http_4xx"
	}
	var renderTimeout *RenderTimeoutError
	if errors.As(err, &renderTimeout) {
		return "render_timeout"
	}
	var nav *NavigationError
	if errors.As(err, &nav) {
		return "navigation"
	}
	var discovery *DiscoveryFailedError
	if errors.As(err, &discovery) {
		return "discovery_failed"
	}
	if errors.Is(err, ErrMaxAttempts) {
		return "max_attempts"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "other"
}
