// Package config loads the process configuration from the environment.
//
// The boundary contract is environment variables: the MCP host launches the
// binary with TECHNITIUM_* connection settings and DNSMCP_* tunables. Nothing
// is read from disk except an optional token file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	"grimm.is/dnsmcp/internal/logging"
)

// Config holds the full process configuration.
type Config struct {
	// Remote server connection.
	URL       string `env:"TECHNITIUM_URL"`
	User      string `env:"TECHNITIUM_USER,default=admin"`
	Token     string `env:"TECHNITIUM_TOKEN"`
	TokenFile string `env:"TECHNITIUM_TOKEN_FILE"`
	Password  string `env:"TECHNITIUM_PASSWORD"`
	AllowHTTP bool   `env:"TECHNITIUM_ALLOW_HTTP,default=false"`

	// Operating mode.
	ReadOnly bool `env:"TECHNITIUM_READONLY,default=false"`

	// Diagnostics.
	LogLevel    string `env:"DNSMCP_LOG_LEVEL,default=info"`
	LogJSON     bool   `env:"DNSMCP_LOG_JSON,default=false"`
	AuditDB     string `env:"DNSMCP_AUDIT_DB"`
	MetricsAddr string `env:"DNSMCP_METRICS_ADDR"`

	// Admission control and outbound HTTP.
	RateLimit   int           `env:"DNSMCP_RATE_LIMIT,default=100"`
	RateWindow  time.Duration `env:"DNSMCP_RATE_WINDOW,default=1m"`
	HTTPTimeout time.Duration `env:"DNSMCP_HTTP_TIMEOUT,default=30s"`
}

// Error describes missing or invalid configuration. Fatal at startup.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load decodes the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		// A completely empty environment is reported by envdecode; let
		// Validate produce the specific missing-field error instead.
		if !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return nil, fmt.Errorf("decode environment: %w", err)
		}
	}

	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants that envdecode tags cannot express.
func (c *Config) Validate() error {
	if c.URL == "" {
		return &Error{Field: "TECHNITIUM_URL", Reason: "required (e.g. https://dns.example.net:53443)"}
	}

	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &Error{Field: "TECHNITIUM_URL", Reason: "not a valid URL"}
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !c.AllowHTTP {
			return &Error{Field: "TECHNITIUM_URL", Reason: "plain http refused; set TECHNITIUM_ALLOW_HTTP=true to override"}
		}
	default:
		return &Error{Field: "TECHNITIUM_URL", Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}

	sources := 0
	for _, s := range []string{c.Token, c.TokenFile, c.Password} {
		if s != "" {
			sources++
		}
	}
	switch sources {
	case 0:
		return &Error{Field: "credentials", Reason: "one of TECHNITIUM_TOKEN, TECHNITIUM_TOKEN_FILE or TECHNITIUM_PASSWORD must be set"}
	case 1:
	default:
		return &Error{Field: "credentials", Reason: "TECHNITIUM_TOKEN, TECHNITIUM_TOKEN_FILE and TECHNITIUM_PASSWORD are mutually exclusive"}
	}

	if c.RateLimit <= 0 {
		return &Error{Field: "DNSMCP_RATE_LIMIT", Reason: "must be positive"}
	}
	if c.RateWindow <= 0 {
		return &Error{Field: "DNSMCP_RATE_WINDOW", Reason: "must be positive"}
	}

	return nil
}

// ResolveToken reads the token file, if configured, into Token. World- or
// group-readable token files work but earn a warning.
func (c *Config) ResolveToken(log *logging.Logger) error {
	if c.TokenFile == "" {
		return nil
	}

	info, err := os.Stat(c.TokenFile)
	if err != nil {
		return &Error{Field: "TECHNITIUM_TOKEN_FILE", Reason: err.Error()}
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 && log != nil {
		log.Warn("token file is readable by group/other; consider chmod 600",
			"file", c.TokenFile, "mode", fmt.Sprintf("%04o", mode))
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		return &Error{Field: "TECHNITIUM_TOKEN_FILE", Reason: err.Error()}
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return &Error{Field: "TECHNITIUM_TOKEN_FILE", Reason: "file is empty"}
	}

	c.Token = token
	return nil
}
