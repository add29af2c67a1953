package technitium

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal stand-in for the remote admin API. It counts
// login exchanges and can be told to reject the current token N times.
type fakeServer struct {
	t *testing.T

	mu          sync.Mutex
	logins      int32
	nextToken   int
	valid       map[string]bool
	rejectNext  int
	lookupCalls int32

	srv *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	f := &fakeServer{t: t, valid: map[string]bool{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		f.t.Errorf("parse form: %v", err)
		return
	}
	switch r.URL.Path {
	case "/api/user/login":
		f.mu.Lock()
		atomic.AddInt32(&f.logins, 1)
		f.nextToken++
		tok := "token-" + string(rune('a'+f.nextToken))
		f.valid[tok] = true
		f.mu.Unlock()
		writeJSON(w, map[string]any{"status": "ok", "response": map[string]any{"token": tok}})
	case "/api/dashboard/stats/get":
		atomic.AddInt32(&f.lookupCalls, 1)
		f.mu.Lock()
		reject := f.rejectNext > 0 || !f.valid[r.Form.Get("token")]
		if f.rejectNext > 0 {
			f.rejectNext--
		}
		f.mu.Unlock()
		if reject {
			writeJSON(w, map[string]any{"status": "invalid-token", "errorMessage": "Invalid token or session expired."})
			return
		}
		writeJSON(w, map[string]any{"status": "ok", "response": map[string]any{"totalQueries": 42}})
	case "/api/zones/export":
		f.mu.Lock()
		ok := f.valid[r.Form.Get("token")]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, map[string]any{"status": "invalid-token", "errorMessage": "Invalid token or session expired."})
			return
		}
		w.Write([]byte("$ORIGIN example.com.\n@ 3600 IN SOA ns1 hostmaster 1 900 300 604800 300\n"))
	default:
		writeJSON(w, map[string]any{"status": "error", "errorMessage": "no such endpoint"})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (f *fakeServer) invalidateAll() {
	f.mu.Lock()
	f.valid = map[string]bool{}
	f.mu.Unlock()
}

func TestEnsureAuthenticatedSingleFlight(t *testing.T) {
	f := newFakeServer(t)
	c := NewClient(f.srv.URL, WithPassword("admin", "hunter2"))

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.EnsureAuthenticated(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.logins), "concurrent callers must share one login exchange")
}

func TestStaticTokenSkipsLogin(t *testing.T) {
	f := newFakeServer(t)
	f.mu.Lock()
	f.valid["static-tok"] = true
	f.mu.Unlock()

	c := NewClient(f.srv.URL, WithStaticToken("static-tok"))
	_, err := c.CallOK(context.Background(), "/api/dashboard/stats/get", nil, http.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.logins))
}

func TestPasswordLoginThenDataCall(t *testing.T) {
	f := newFakeServer(t)
	c := NewClient(f.srv.URL, WithPassword("admin", "hunter2"))

	_, err := c.CallOK(context.Background(), "/api/dashboard/stats/get", nil, http.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.logins), "first call performs exactly one login exchange")
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.lookupCalls), "followed by exactly one data call")
}

func TestNoCredentialsConfigured(t *testing.T) {
	f := newFakeServer(t)
	c := NewClient(f.srv.URL)

	err := c.EnsureAuthenticated(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestCallRetriesOnceOnExpiredToken(t *testing.T) {
	f := newFakeServer(t)
	c := NewClient(f.srv.URL, WithPassword("admin", "hunter2"))
	require.NoError(t, c.EnsureAuthenticated(context.Background()))

	// Server-side session loss: the held token is no longer valid.
	f.invalidateAll()

	resp, err := c.CallOK(context.Background(), "/api/dashboard/stats/get", nil, http.MethodGet)
	require.NoError(t, err)
	assert.Contains(t, string(resp), "totalQueries")
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.logins), "expiry recovery performs exactly one re-login")
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.lookupCalls), "expired call is retried exactly once")
}

func TestCallFailsWhenRetryAlsoRejected(t *testing.T) {
	f := newFakeServer(t)
	c := NewClient(f.srv.URL, WithPassword("admin", "hunter2"))
	require.NoError(t, c.EnsureAuthenticated(context.Background()))

	// Both the original attempt and the post-reauth retry come back rejected.
	f.mu.Lock()
	f.rejectNext = 2
	f.mu.Unlock()

	_, err := c.Call(context.Background(), "/api/dashboard/stats/get", nil, http.MethodGet)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "retry", authErr.Action)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.lookupCalls), "no second retry after repeated rejection")
}

func TestCallOKWrapsErrorEnvelope(t *testing.T) {
	f := newFakeServer(t)
	c := NewClient(f.srv.URL, WithPassword("admin", "hunter2"))

	_, err := c.CallOK(context.Background(), "/api/no/such", nil, http.MethodGet)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "/api/no/such", apiErr.Endpoint)
	assert.Contains(t, apiErr.Error(), "no such endpoint")
}

func TestCallTextReturnsRawBody(t *testing.T) {
	f := newFakeServer(t)
	c := NewClient(f.srv.URL, WithPassword("admin", "hunter2"))

	body, err := c.CallText(context.Background(), "/api/zones/export", url.Values{"zone": {"example.com"}})
	require.NoError(t, err)
	assert.Contains(t, body, "$ORIGIN example.com.")
}

func TestCallTextRecoversFromExpiredToken(t *testing.T) {
	f := newFakeServer(t)
	c := NewClient(f.srv.URL, WithPassword("admin", "hunter2"))
	require.NoError(t, c.EnsureAuthenticated(context.Background()))
	f.invalidateAll()

	body, err := c.CallText(context.Background(), "/api/zones/export", url.Values{"zone": {"example.com"}})
	require.NoError(t, err)
	assert.Contains(t, body, "SOA")
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.logins))
}

func TestLoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "error", "errorMessage": "Invalid username or password."})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithPassword("admin", "wrong"))
	err := c.EnsureAuthenticated(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, err.Error(), "Invalid username or password")
}

func TestEnsureAuthenticatedContextCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		writeJSON(w, map[string]any{"status": "ok", "response": map[string]any{"token": "t"}})
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, WithPassword("admin", "hunter2"))

	started := make(chan struct{})
	go func() {
		close(started)
		c.EnsureAuthenticated(context.Background())
	}()
	<-started

	// A waiter joining the stuck attempt must honor its own deadline.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		// Give the first caller time to claim the attempt slot.
		done <- c.EnsureAuthenticated(ctx)
	}()
	cancel()
	err := <-done
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("expected nil or context.Canceled, got %v", err)
	}
}
