package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/dnsmcp/internal/audit"
	"grimm.is/dnsmcp/internal/clock"
	"grimm.is/dnsmcp/internal/logging"
	"grimm.is/dnsmcp/internal/ratelimit"
	"grimm.is/dnsmcp/internal/technitium"
	"grimm.is/dnsmcp/internal/tools"
)

// testHarness wires a server to an httptest admin API and connects an MCP
// client over in-memory transports.
type testHarness struct {
	session  *mcp.ClientSession
	apiHits  *int32
	auditOut *strings.Builder
}

func newHarness(t *testing.T, clk clock.Clock, limit ratelimit.Limit, readonly bool) *testHarness {
	t.Helper()

	var hits int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/api/zones/list":
			w.Write([]byte(`{"status":"ok","response":{"zones":[{"name":"example.com","internal":false}]}}`))
		case "/api/settings/get":
			w.Write([]byte(`{"status":"ok","response":{"version":"13.6","webServiceTlsCertificatePassword":"hunter2",` +
				`"proxyPassword":"hunter2","stackTrace":"at Technitium.Dns"}}`))
		default:
			w.Write([]byte(`{"status":"error","errorMessage":"no such endpoint"}`))
		}
	}))
	t.Cleanup(api.Close)

	var auditOut strings.Builder
	auditLog := audit.NewLogger(audit.WithOutput(&auditOut))

	client := technitium.NewClient(api.URL, technitium.WithStaticToken("tok"))
	entries := tools.Filter(tools.All(client), readonly)

	srv := New(Options{
		Tools:   entries,
		Limiter: ratelimit.New(limit, ratelimit.DefaultOverrides(), clk),
		Audit:   auditLog,
		Log:     logging.New(logging.Config{Level: logging.ParseLevel("error"), Output: io.Discard}),
		Clock:   clk,
	})

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ctx := context.Background()

	serverSession, err := srv.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	mcpClient := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := mcpClient.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return &testHarness{session: session, apiHits: &hits, auditOut: &auditOut}
}

func callText(t *testing.T, h *testHarness, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := h.session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text, res.IsError
}

func defaultLimit() ratelimit.Limit {
	return ratelimit.Limit{Max: 100, Window: time.Minute}
}

func TestListToolsOverMCP(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(1756000000, 0))
	h := newHarness(t, clk, defaultLimit(), false)

	res, err := h.session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := map[string]bool{}
	for _, tl := range res.Tools {
		names[tl.Name] = true
	}
	assert.True(t, names["dns_list_zones"])
	assert.True(t, names["dns_delete_zone"])
	assert.True(t, names["dns_resolve"])
}

func TestReadonlyHidesMutatingTools(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(1756000000, 0))
	h := newHarness(t, clk, defaultLimit(), true)

	res, err := h.session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	for _, tl := range res.Tools {
		assert.NotEqual(t, "dns_delete_zone", tl.Name)
		assert.NotEqual(t, "dns_block_domain", tl.Name)
	}
}

func TestCallToolEndToEnd(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(1756000000, 0))
	h := newHarness(t, clk, defaultLimit(), false)

	text, isErr := callText(t, h, "dns_list_zones", nil)
	assert.False(t, isErr)
	assert.Contains(t, text, "example.com")
	assert.Equal(t, int32(1), atomic.LoadInt32(h.apiHits), "one tool call makes one upstream request")

	assert.Contains(t, h.auditOut.String(), `"tool":"dns_list_zones"`)
	assert.Contains(t, h.auditOut.String(), `"result":"success"`)
}

func TestSettingsResponseIsSanitized(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(1756000000, 0))
	h := newHarness(t, clk, defaultLimit(), false)

	text, isErr := callText(t, h, "dns_get_settings", nil)
	assert.False(t, isErr)
	assert.NotContains(t, text, "hunter2")
	assert.NotContains(t, text, "stackTrace")
	assert.Contains(t, text, "13.6")
}

func TestHandlerFailureBecomesErrorResult(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(1756000000, 0))
	h := newHarness(t, clk, defaultLimit(), false)

	text, isErr := callText(t, h, "dns_zone_options", map[string]any{"zone": "example.com"})
	assert.True(t, isErr, "upstream API error surfaces as an error result")

	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &payload))
	assert.Contains(t, payload.Error, "no such endpoint")
}

func TestValidationFailureDoesNotReachUpstream(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(1756000000, 0))
	h := newHarness(t, clk, defaultLimit(), false)

	text, isErr := callText(t, h, "dns_resolve", map[string]any{"domain": "bad domain!"})
	assert.True(t, isErr)
	assert.Contains(t, text, "domain")
	assert.Equal(t, int32(0), atomic.LoadInt32(h.apiHits))
}

func TestRateLimitRejectsAndRecovers(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(1756000000, 0))
	h := newHarness(t, clk, ratelimit.Limit{Max: 2, Window: time.Minute}, false)

	for i := 0; i < 2; i++ {
		_, isErr := callText(t, h, "dns_list_zones", nil)
		assert.False(t, isErr)
	}

	text, isErr := callText(t, h, "dns_list_zones", nil)
	assert.True(t, isErr, "third call within the window is rejected")
	assert.Contains(t, text, "rate limit exceeded")
	assert.Contains(t, text, "retry in")
	assert.Equal(t, int32(2), atomic.LoadInt32(h.apiHits), "rejected call never reaches upstream")

	assert.Contains(t, h.auditOut.String(), `"action":"rate_limited"`)

	clk.Advance(61 * time.Second)
	_, isErr = callText(t, h, "dns_list_zones", nil)
	assert.False(t, isErr, "window slides and admits again")
}

func TestDecodeArgs(t *testing.T) {
	assert.Equal(t, map[string]any{}, decodeArgs(nil))
	assert.Equal(t, map[string]any{"a": "b"}, decodeArgs(map[string]any{"a": "b"}))
	assert.Equal(t, map[string]any{"n": float64(1)}, decodeArgs(json.RawMessage(`{"n":1}`)))
	assert.Equal(t, map[string]any{}, decodeArgs(json.RawMessage(`not json`)))
	assert.Equal(t, map[string]any{}, decodeArgs(42))
}
