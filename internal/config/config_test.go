package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable this package reads so parallel-unsafe
// ambient state never leaks into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TECHNITIUM_URL", "TECHNITIUM_USER", "TECHNITIUM_TOKEN",
		"TECHNITIUM_TOKEN_FILE", "TECHNITIUM_PASSWORD", "TECHNITIUM_ALLOW_HTTP",
		"TECHNITIUM_READONLY", "DNSMCP_LOG_LEVEL", "DNSMCP_LOG_JSON",
		"DNSMCP_AUDIT_DB", "DNSMCP_METRICS_ADDR", "DNSMCP_RATE_LIMIT",
		"DNSMCP_RATE_WINDOW", "DNSMCP_HTTP_TIMEOUT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TECHNITIUM_URL", "https://dns.example.net:53443/")
	t.Setenv("TECHNITIUM_TOKEN", "abc123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://dns.example.net:53443", cfg.URL, "trailing slash stripped")
	assert.Equal(t, "admin", cfg.User)
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.ReadOnly)
}

func TestLoad_MissingURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("TECHNITIUM_TOKEN", "abc123")

	_, err := Load()
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "TECHNITIUM_URL", cerr.Field)
}

func TestLoad_NoCredentialSource(t *testing.T) {
	clearEnv(t)
	t.Setenv("TECHNITIUM_URL", "https://dns.example.net")

	_, err := Load()
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "credentials", cerr.Field)
}

func TestLoad_TwoCredentialSources(t *testing.T) {
	clearEnv(t)
	t.Setenv("TECHNITIUM_URL", "https://dns.example.net")
	t.Setenv("TECHNITIUM_TOKEN", "abc")
	t.Setenv("TECHNITIUM_PASSWORD", "hunter2")

	_, err := Load()
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "credentials", cerr.Field)
}

func TestLoad_PlainHTTPRefused(t *testing.T) {
	clearEnv(t)
	t.Setenv("TECHNITIUM_URL", "http://10.0.0.184:5380")
	t.Setenv("TECHNITIUM_TOKEN", "abc")

	_, err := Load()
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "TECHNITIUM_URL", cerr.Field)
}

func TestLoad_PlainHTTPWithOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("TECHNITIUM_URL", "http://10.0.0.184:5380")
	t.Setenv("TECHNITIUM_ALLOW_HTTP", "true")
	t.Setenv("TECHNITIUM_TOKEN", "abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.184:5380", cfg.URL)
}

func TestLoad_BadScheme(t *testing.T) {
	clearEnv(t)
	t.Setenv("TECHNITIUM_URL", "ftp://dns.example.net")
	t.Setenv("TECHNITIUM_TOKEN", "abc")

	_, err := Load()
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
}

func TestResolveToken_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(path, []byte("  secrettoken\n"), 0o600))

	cfg := &Config{TokenFile: path}
	require.NoError(t, cfg.ResolveToken(nil))
	assert.Equal(t, "secrettoken", cfg.Token)
}

func TestResolveToken_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	cfg := &Config{TokenFile: path}
	err := cfg.ResolveToken(nil)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
}

func TestResolveToken_MissingFile(t *testing.T) {
	cfg := &Config{TokenFile: filepath.Join(t.TempDir(), "nope")}
	err := cfg.ResolveToken(nil)
	assert.True(t, errors.As(err, new(*Error)))
}

func TestResolveToken_NoFileConfigured(t *testing.T) {
	cfg := &Config{Token: "static"}
	require.NoError(t, cfg.ResolveToken(nil))
	assert.Equal(t, "static", cfg.Token)
}
