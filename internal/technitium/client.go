// Package technitium is the authenticating HTTP client for the Technitium
// DNS server's administrative API. It owns the session credential: login,
// transparent re-authentication when the server reports the token expired,
// and collapse of concurrent authentication attempts into one exchange.
package technitium

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"grimm.is/dnsmcp/internal/audit"
	"grimm.is/dnsmcp/internal/brand"
	"grimm.is/dnsmcp/internal/metrics"
	"grimm.is/dnsmcp/internal/sanitize"
)

// maxResponseBytes caps how much of a remote response is read; the admin API
// has no legitimate multi-hundred-megabyte responses.
const maxResponseBytes = 64 << 20

// authAttempt is the shared in-flight authentication marker. Late arrivals
// wait on done instead of triggering their own login exchange.
type authAttempt struct {
	done chan struct{}
	err  error
}

// Client makes authenticated calls against the remote API. Safe for
// concurrent use; the session token is single-writer state behind mu.
type Client struct {
	baseURL     string
	user        string
	staticToken string
	password    string

	httpc *http.Client
	audit *audit.Logger
	stats *metrics.Registry

	mu      sync.Mutex
	token   string
	attempt *authAttempt
}

// Option configures the Client.
type Option func(*Client)

// WithStaticToken configures a long-lived API token; no login exchange is
// performed.
func WithStaticToken(token string) Option {
	return func(c *Client) { c.staticToken = token }
}

// WithPassword configures the username/password login exchange.
func WithPassword(user, password string) Option {
	return func(c *Client) {
		c.user = user
		c.password = password
	}
}

// WithTimeout sets the outbound HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpc.Timeout = d }
}

// WithHTTPClient replaces the HTTP client (tests).
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithAudit attaches the audit logger for auth and security events.
func WithAudit(a *audit.Logger) Option {
	return func(c *Client) { c.audit = a }
}

// WithMetrics attaches the metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Client) { c.stats = m }
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		user:    "admin",
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.audit == nil {
		c.audit = audit.NewLogger(audit.WithOutput(io.Discard))
	}
	return c
}

// EnsureAuthenticated makes sure a session token is held, joining an
// in-flight authentication attempt if one exists rather than starting a
// second one.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	if c.token != "" {
		c.mu.Unlock()
		return nil
	}
	if c.attempt != nil {
		attempt := c.attempt
		c.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	attempt := &authAttempt{done: make(chan struct{})}
	c.attempt = attempt
	c.mu.Unlock()

	// Clear the marker on every exit path, then wake the waiters.
	defer func() {
		c.mu.Lock()
		c.attempt = nil
		c.mu.Unlock()
		close(attempt.done)
	}()

	attempt.err = c.authenticate(ctx)
	return attempt.err
}

// authenticate acquires a session token: adopting the configured static
// token, or performing the login exchange.
func (c *Client) authenticate(ctx context.Context) error {
	if c.staticToken != "" {
		c.mu.Lock()
		c.token = c.staticToken
		c.mu.Unlock()
		c.audit.Auth("token_loaded", true, "")
		c.countAuth("token_loaded", true)
		return nil
	}

	if c.password == "" {
		return &AuthError{Action: "login", Message: "no token or password configured"}
	}

	params := url.Values{}
	params.Set("user", c.user)
	params.Set("pass", c.password)

	env, err := c.roundTripJSON(ctx, "/api/user/login", params, http.MethodGet, false)
	if err != nil {
		c.audit.Auth("login", false, sanitize.Error(err.Error()))
		c.countAuth("login", false)
		return err
	}

	var login struct {
		Token string `json:"token"`
	}
	if env.Response != nil {
		// Decode errors fall through to the empty-token check below.
		_ = json.Unmarshal(env.Response, &login)
	}

	if env.Status != StatusOK || login.Token == "" {
		msg := env.message()
		c.audit.Auth("login", false, sanitize.Error(msg))
		c.countAuth("login", false)
		return &AuthError{Action: "login", Message: msg}
	}

	c.mu.Lock()
	c.token = login.Token
	c.mu.Unlock()
	c.audit.Auth("login", true, "user "+c.user)
	c.countAuth("login", true)
	return nil
}

// Call issues an authenticated request and returns the decoded envelope.
// A rejected token is re-acquired and the request retried exactly once;
// a second rejection surfaces as an AuthError.
func (c *Client) Call(ctx context.Context, endpoint string, params url.Values, method string) (*Envelope, error) {
	if err := c.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	env, err := c.roundTripJSON(ctx, endpoint, params, method, true)
	if err != nil {
		return nil, err
	}
	if env.Status != StatusInvalidToken {
		return env, nil
	}

	if err := c.reauthenticate(ctx, endpoint); err != nil {
		return nil, err
	}
	env, err = c.roundTripJSON(ctx, endpoint, params, method, true)
	if err != nil {
		return nil, err
	}
	if env.Status == StatusInvalidToken {
		return nil, &AuthError{Action: "retry", Message: "token rejected again after re-authentication on " + endpoint}
	}
	return env, nil
}

// CallOK is Call plus envelope checking: a non-ok status becomes an
// APIError. Returns the response payload, "{}" when the server sent none.
func (c *Client) CallOK(ctx context.Context, endpoint string, params url.Values, method string) (json.RawMessage, error) {
	env, err := c.Call(ctx, endpoint, params, method)
	if err != nil {
		return nil, err
	}
	if env.Status != StatusOK {
		return nil, &APIError{Endpoint: endpoint, Status: env.Status, Message: env.message()}
	}
	if len(env.Response) == 0 {
		return json.RawMessage("{}"), nil
	}
	return env.Response, nil
}

// CallText issues an authenticated GET against an endpoint whose success
// response is plain text (e.g. a zone-file export). Error and invalid-token
// envelopes superimposed on the text channel are still detected, with the
// same one-retry expiry policy.
func (c *Client) CallText(ctx context.Context, endpoint string, params url.Values) (string, error) {
	if err := c.EnsureAuthenticated(ctx); err != nil {
		return "", err
	}

	body, err := c.roundTripRaw(ctx, endpoint, params, http.MethodGet, true)
	if err != nil {
		return "", err
	}
	env, isEnvelope := probeEnvelope(body)
	if !isEnvelope || env.Status == StatusOK {
		return string(body), nil
	}
	if env.Status == StatusError {
		return "", &APIError{Endpoint: endpoint, Status: env.Status, Message: env.message()}
	}

	// invalid-token on a text endpoint: same recovery as the JSON path.
	if err := c.reauthenticate(ctx, endpoint); err != nil {
		return "", err
	}
	body, err = c.roundTripRaw(ctx, endpoint, params, http.MethodGet, true)
	if err != nil {
		return "", err
	}
	if env, isEnvelope := probeEnvelope(body); isEnvelope {
		switch env.Status {
		case StatusInvalidToken:
			return "", &AuthError{Action: "retry", Message: "token rejected again after re-authentication on " + endpoint}
		case StatusError:
			return "", &APIError{Endpoint: endpoint, Status: env.Status, Message: env.message()}
		}
	}
	return string(body), nil
}

// ClearToken drops the held credential without contacting the remote
// server. Used at shutdown.
func (c *Client) ClearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// reauthenticate invalidates the rejected token, records the security
// event, and acquires a fresh credential.
func (c *Client) reauthenticate(ctx context.Context, endpoint string) error {
	c.ClearToken()
	c.audit.Security("token_expired", "re-authenticating after rejection on "+endpoint)
	return c.EnsureAuthenticated(ctx)
}

// roundTripJSON performs one HTTP exchange and decodes the envelope.
func (c *Client) roundTripJSON(ctx context.Context, endpoint string, params url.Values, method string, withToken bool) (*Envelope, error) {
	body, err := c.roundTripRaw(ctx, endpoint, params, method, withToken)
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	if c.stats != nil {
		c.stats.APICalls.WithLabelValues(string(env.Status)).Inc()
	}
	return &env, nil
}

// roundTripRaw performs one HTTP exchange and returns the body. Transport
// failures propagate to the caller unmodified; they are not retried here.
func (c *Client) roundTripRaw(ctx context.Context, endpoint string, params url.Values, method string, withToken bool) ([]byte, error) {
	values := url.Values{}
	for k, vs := range params {
		values[k] = vs
	}
	if withToken {
		values.Set("token", c.currentToken())
	}

	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+values.Encode(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", brand.UserAgent())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", endpoint, err)
	}
	return body, nil
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) countAuth(action string, success bool) {
	if c.stats == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	c.stats.AuthAttempts.WithLabelValues(action, result).Inc()
}
