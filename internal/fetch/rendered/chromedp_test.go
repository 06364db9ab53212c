package rendered

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

func TestNewDefaults(t *testing.T) {
	f := New(Config{}, nil, nil)
	defer f.Close()

	assert.Equal(t, defaultMaxTabs, cap(f.sem))
	assert.Equal(t, defaultNavTimeout, f.cfg.NavTimeout)
	assert.Nil(t, f.limiter)
}

func TestNewLimiter(t *testing.T) {
	f := New(Config{NavQPS: 2, MaxTabs: 4}, nil, nil)
	defer f.Close()

	require.NotNil(t, f.limiter)
	assert.Equal(t, 4, cap(f.sem))
}

func TestResourceType(t *testing.T) {
	cases := map[network.ResourceType]ingest.ResourceType{
		network.ResourceTypeDocument:   ingest.ResourceDocument,
		network.ResourceTypeStylesheet: ingest.ResourceStylesheet,
		network.ResourceTypeImage:      ingest.ResourceImage,
		network.ResourceTypeFont:       ingest.ResourceFont,
		network.ResourceTypeScript:     ingest.ResourceScript,
		network.ResourceTypeXHR:        ingest.ResourceXHR,
		network.ResourceTypeFetch:      ingest.ResourceFetch,
		network.ResourceTypeWebSocket:  ingest.ResourceType("websocket"),
	}
	for in, want := range cases {
		assert.Equal(t, want, resourceType(in), string(in))
	}
}

func TestToNetworkHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Accept-Language", "uk-UA,uk;q=0.9")
	h.Add("X-Multi", "a")
	h.Add("X-Multi", "b")

	got := toNetworkHeaders(h)

	assert.Equal(t, "uk-UA,uk;q=0.9", got["Accept-Language"])
	assert.Equal(t, []string{"a", "b"}, got["X-Multi"])
}

func TestDocumentMetaKeepsFirstStatus(t *testing.T) {
	m := newDocumentMeta()
	assert.Equal(t, http.StatusOK, m.status())

	m.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 503},
	})
	m.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200},
	})
	assert.Equal(t, 503, m.status())
}

func TestDocumentMetaIgnoresSubresources(t *testing.T) {
	m := newDocumentMeta()
	m.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeXHR,
		Response: &network.Response{Status: 500},
	})
	assert.Equal(t, http.StatusOK, m.status())
}

// recordingExecutor captures CDP commands instead of sending them to a
// browser.
type recordingExecutor struct {
	mu      sync.Mutex
	methods []string
	params  []any
}

func (r *recordingExecutor) Execute(_ context.Context, method string, params, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods = append(r.methods, method)
	r.params = append(r.params, params)
	return nil
}

func pausedEvent(id, rawURL string, rt network.ResourceType) *fetch.EventRequestPaused {
	return &fetch.EventRequestPaused{
		RequestID:    fetch.RequestID(id),
		Request:      &network.Request{URL: rawURL},
		ResourceType: rt,
	}
}

func TestResolveSubrequestContinuesAllowed(t *testing.T) {
	f := New(Config{}, ingest.NewPatternFilter(ingest.DefaultFilterRules()), nil)
	defer f.Close()
	exec := &recordingExecutor{}
	execCtx := cdp.WithExecutor(context.Background(), exec)

	f.resolveSubrequest(execCtx, pausedEvent("req-1", "https://silpo.ua/graphql", network.ResourceTypeXHR), "silpo")

	require.Equal(t, []string{fetch.CommandContinueRequest}, exec.methods)
	p, ok := exec.params[0].(*fetch.ContinueRequestParams)
	require.True(t, ok)
	assert.Equal(t, fetch.RequestID("req-1"), p.RequestID)
}

func TestResolveSubrequestAbortsBlocked(t *testing.T) {
	f := New(Config{}, ingest.NewPatternFilter(ingest.DefaultFilterRules()), nil)
	defer f.Close()
	exec := &recordingExecutor{}
	execCtx := cdp.WithExecutor(context.Background(), exec)

	before := testutil.ToFloat64(blockedSubrequests.WithLabelValues("varus", "image"))
	f.resolveSubrequest(execCtx, pausedEvent("req-2", "https://varus.ua/img/banner.webp", network.ResourceTypeImage), "varus")

	require.Equal(t, []string{fetch.CommandFailRequest}, exec.methods)
	p, ok := exec.params[0].(*fetch.FailRequestParams)
	require.True(t, ok)
	assert.Equal(t, fetch.RequestID("req-2"), p.RequestID)
	assert.Equal(t, network.ErrorReasonBlockedByClient, p.ErrorReason)
	assert.Equal(t, before+1, testutil.ToFloat64(blockedSubrequests.WithLabelValues("varus", "image")))
}

func TestResolveSubrequestExecutorErrorIsSwallowed(t *testing.T) {
	f := New(Config{}, ingest.NewPatternFilter(ingest.DefaultFilterRules()), nil)
	defer f.Close()

	// No executor on the context: the command fails, the fetch loop must not.
	assert.NotPanics(t, func() {
		f.resolveSubrequest(context.Background(), pausedEvent("req-3", "https://silpo.ua/graphql", network.ResourceTypeXHR), "silpo")
	})
}

func TestForwardCancel(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	task, cancelTask := context.WithCancel(context.Background())
	defer cancelTask()

	stop := forwardCancel(parent, cancelTask)
	defer stop()

	cancelParent()
	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task context not cancelled after parent cancellation")
	}
}

func TestForwardCancelStop(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	task, cancelTask := context.WithCancel(context.Background())
	defer cancelTask()

	stop := forwardCancel(parent, cancelTask)
	stop()
	cancelParent()

	select {
	case <-task.Done():
		t.Fatal("task cancelled after forwarding was stopped")
	case <-time.After(50 * time.Millisecond):
	}
}
