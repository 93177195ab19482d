package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func sseServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
			fl.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// collector records callbacks for one session.
type collector struct {
	mu       sync.Mutex
	tokens   []string
	complete int
	errs     []error
	done     chan struct{} // closed on first terminal callback
}

func newCollector() *collector {
	return &collector{done: make(chan struct{})}
}

func (c *collector) onToken(tok string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = append(c.tokens, tok)
}

func (c *collector) onComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.complete++
	close(c.done)
}

func (c *collector) onError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
	close(c.done)
}

func (c *collector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for terminal callback")
	}
}

func (c *collector) snapshot() (tokens []string, complete int, errs []error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.tokens...), c.complete, append([]error(nil), c.errs...)
}

func TestStartDeliversTokensInOrder(t *testing.T) {
	srv := sseServer(t,
		`{"choices":[{"delta":{"content":"Hi"}}]}`,
		`{"choices":[{"delta":{"content":" there"}}]}`,
		`[DONE]`,
	)
	c := NewClient("test-key", WithBaseURL(srv.URL))

	col := newCollector()
	c.Start("hello", col.onToken, col.onComplete, col.onError)
	col.wait(t)

	tokens, complete, errs := col.snapshot()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if complete != 1 {
		t.Fatalf("onComplete fired %d times, want 1", complete)
	}
	if len(tokens) != 2 || tokens[0] != "Hi" || tokens[1] != " there" {
		t.Fatalf("tokens = %q, want [Hi,  there]", tokens)
	}
}

func TestStartSkipsMalformedRecord(t *testing.T) {
	srv := sseServer(t,
		`{"choices":[{"delta":{"content":"a"}}]}`,
		`{not json`,
		`{"choices":[{"delta":{"content":""}}]}`,
		`{"choices":[{"delta":{"content":"b"}}]}`,
		`[DONE]`,
	)
	c := NewClient("test-key", WithBaseURL(srv.URL))

	col := newCollector()
	c.Start("hello", col.onToken, col.onComplete, col.onError)
	col.wait(t)

	tokens, complete, errs := col.snapshot()
	if len(errs) != 0 {
		t.Fatalf("malformed record aborted the stream: %v", errs)
	}
	if complete != 1 {
		t.Fatalf("onComplete fired %d times, want 1", complete)
	}
	if len(tokens) != 2 || tokens[0] != "a" || tokens[1] != "b" {
		t.Fatalf("tokens = %q, want [a b]", tokens)
	}
}

func TestStartCompletesOnStreamExhaustion(t *testing.T) {
	// No [DONE] sentinel: exhaustion still completes exactly once.
	srv := sseServer(t, `{"choices":[{"delta":{"content":"x"}}]}`)
	c := NewClient("test-key", WithBaseURL(srv.URL))

	col := newCollector()
	c.Start("hello", col.onToken, col.onComplete, col.onError)
	col.wait(t)

	tokens, complete, errs := col.snapshot()
	if len(errs) != 0 || complete != 1 || len(tokens) != 1 {
		t.Fatalf("tokens=%q complete=%d errs=%v, want one token and one complete", tokens, complete, errs)
	}
}

func TestStartHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	c := NewClient("bad-key", WithBaseURL(srv.URL))

	col := newCollector()
	c.Start("hello", col.onToken, col.onComplete, col.onError)
	col.wait(t)

	tokens, complete, errs := col.snapshot()
	if len(tokens) != 0 {
		t.Fatalf("tokens emitted for an error response: %q", tokens)
	}
	if complete != 0 {
		t.Fatalf("onComplete fired %d times, want 0", complete)
	}
	if len(errs) != 1 {
		t.Fatalf("onError fired %d times, want 1", len(errs))
	}
	httpErr, ok := AsHTTPError(errs[0])
	if !ok {
		t.Fatalf("error %v is not an HTTPError", errs[0])
	}
	if httpErr.Status != http.StatusUnauthorized {
		t.Fatalf("Status = %d, want 401", httpErr.Status)
	}
	if httpErr.Body == "" {
		t.Fatal("HTTPError carries no body")
	}
}

func TestHTTPErrorBodyTruncated(t *testing.T) {
	big := make([]byte, 4096)
	for i := range big {
		big[i] = 'x'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(big)
	}))
	t.Cleanup(srv.Close)
	c := NewClient("test-key", WithBaseURL(srv.URL))

	col := newCollector()
	c.Start("hello", col.onToken, col.onComplete, col.onError)
	col.wait(t)

	_, _, errs := col.snapshot()
	if len(errs) != 1 {
		t.Fatalf("onError fired %d times, want 1", len(errs))
	}
	httpErr, _ := AsHTTPError(errs[0])
	if httpErr == nil || len(httpErr.Body) != MaxErrorBody {
		t.Fatalf("error body length = %d, want %d", len(httpErr.Body), MaxErrorBody)
	}
}

func TestStartWithoutCredentials(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)
	c := NewClient("", WithBaseURL(srv.URL))

	col := newCollector()
	c.Start("hello", col.onToken, col.onComplete, col.onError)
	col.wait(t)

	_, _, errs := col.snapshot()
	if len(errs) != 1 || !errors.Is(errs[0], ErrNoCredentials) {
		t.Fatalf("errs = %v, want ErrNoCredentials", errs)
	}
	if hits.Load() != 0 {
		t.Fatalf("server hit %d times before credential check", hits.Load())
	}
}

func TestStartSupersedesActiveSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		switch req.Messages[len(req.Messages)-1].Content {
		case "slow":
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
			fl.Flush()
			<-r.Context().Done() // hold the stream open until cancelled
		case "fast":
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"second\"}}]}\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
			fl.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	c := NewClient("test-key", WithBaseURL(srv.URL))

	first := newCollector()
	firstToken := make(chan struct{})
	c.Start("slow", func(tok string) {
		first.onToken(tok)
		select {
		case <-firstToken:
		default:
			close(firstToken)
		}
	}, first.onComplete, first.onError)

	select {
	case <-firstToken:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first session token")
	}

	second := newCollector()
	c.Start("fast", second.onToken, second.onComplete, second.onError)
	second.wait(t)

	tokens2, complete2, errs2 := second.snapshot()
	if len(errs2) != 0 || complete2 != 1 || len(tokens2) != 1 || tokens2[0] != "second" {
		t.Fatalf("second session: tokens=%q complete=%d errs=%v", tokens2, complete2, errs2)
	}

	// The superseded session must not have produced a terminal callback,
	// and never will.
	time.Sleep(100 * time.Millisecond)
	tokens1, complete1, errs1 := first.snapshot()
	if complete1 != 0 || len(errs1) != 0 {
		t.Fatalf("superseded session fired terminal callbacks: complete=%d errs=%v", complete1, errs1)
	}
	if len(tokens1) != 1 {
		t.Fatalf("superseded session tokens = %q, want exactly the pre-supersession token", tokens1)
	}
}

func TestCancelSuppressesCallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"tok\"}}]}\n\n")
		fl.Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	c := NewClient("test-key", WithBaseURL(srv.URL))

	col := newCollector()
	gotToken := make(chan struct{})
	c.Start("hello", func(tok string) {
		col.onToken(tok)
		select {
		case <-gotToken:
		default:
			close(gotToken)
		}
	}, col.onComplete, col.onError)

	select {
	case <-gotToken:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for token")
	}

	c.Cancel()
	time.Sleep(100 * time.Millisecond)

	_, complete, errs := col.snapshot()
	if complete != 0 || len(errs) != 0 {
		t.Fatalf("cancelled session fired terminal callbacks: complete=%d errs=%v", complete, errs)
	}
}

func TestCancelWithoutActiveSession(t *testing.T) {
	c := NewClient("test-key")
	c.Cancel() // no-op
	c.Cancel()
}

func TestStartNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on
	c := NewClient("test-key", WithBaseURL(url))

	col := newCollector()
	c.Start("hello", col.onToken, col.onComplete, col.onError)
	col.wait(t)

	tokens, complete, errs := col.snapshot()
	if len(tokens) != 0 || complete != 0 || len(errs) != 1 {
		t.Fatalf("tokens=%q complete=%d errs=%v, want a single error", tokens, complete, errs)
	}
	if _, ok := AsHTTPError(errs[0]); ok {
		t.Fatalf("network failure surfaced as HTTPError: %v", errs[0])
	}
}
