// Package sanitize keeps credentials, tokens, filesystem paths and stack
// traces out of audit records and tool-call error responses. Everything here
// is a pure function over its input.
package sanitize

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// maxArgLen is the longest argument string recorded verbatim in the audit
// trail; anything longer is truncated.
const maxArgLen = 200

// Replacement markers. None of these can match any pattern below, which
// keeps the redaction pass idempotent.
const (
	redacted      = "[REDACTED]"
	redactedToken = "[REDACTED_TOKEN]"
	redactedURL   = "[REDACTED_URL]"
	redactedPath  = "[REDACTED_PATH]"
	stackTrace    = "[STACK_TRACE]"
	invalidURL    = "[INVALID_URL]"
)

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// errorPatterns is applied in order; later patterns see the already-redacted
// string.
var errorPatterns = []redaction{
	// Hex runs (20+ chars) presumed to be tokens.
	{regexp.MustCompile(`(?i)\b[0-9a-f]{20,}\b`), redactedToken},
	// URLs embedding credentials.
	{regexp.MustCompile(`https?://[^:\s]+:[^@\s]+@\S+`), redactedURL},
	// Unix paths under common system directories.
	{regexp.MustCompile(`/(?:opt|home|etc|var|tmp|usr)/[\w./-]+`), redactedPath},
	// Windows drive-letter paths.
	{regexp.MustCompile(`(?i)[A-Z]:\\[\w\\.-]+`), redactedPath},
	// Stack-trace-shaped lines (JS/.NET style, as produced by the remote server).
	{regexp.MustCompile(`at\s+\w+.*\(.*:\d+:\d+\)`), stackTrace},
	{regexp.MustCompile(`\s+in\s+\w+.*\\.*\.cs:line\s+\d+`), stackTrace},
}

// argKeys are argument names whose values are replaced wholesale before an
// argument map is written to the audit trail.
var argKeys = map[string]bool{
	"password": true,
	"pass":     true,
	"token":    true,
	"secret":   true,
}

// responseKeys are object keys redacted at any depth of a response body.
// Technitium embeds TLS and proxy credentials in its settings payload.
var responseKeys = map[string]bool{
	"password":                         true,
	"pass":                             true,
	"secret":                           true,
	"token":                            true,
	"apiKey":                           true,
	"apikey":                           true,
	"api_key":                          true,
	"privateKey":                       true,
	"privatekey":                       true,
	"private_key":                      true,
	"connectionString":                 true,
	"connectionstring":                 true,
	"connection_string":                true,
	"tlsCertificatePassword":           true,
	"dnsTlsCertificatePassword":        true,
	"webServiceTlsCertificatePassword": true,
	"proxyPassword":                    true,
}

// hexToken matches hex runs long enough to be session tokens inside
// response strings.
var hexToken = regexp.MustCompile(`(?i)\b[0-9a-f]{32,}\b`)

// Args returns a copy of a tool-call argument map safe for audit logging:
// sensitive keys are replaced, long strings truncated, the rest passed
// through.
func Args(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for key, value := range args {
		switch {
		case argKeys[strings.ToLower(key)]:
			out[key] = redacted
		default:
			if s, ok := value.(string); ok && len(s) > maxArgLen {
				out[key] = s[:maxArgLen] + "...[truncated]"
				continue
			}
			out[key] = value
		}
	}
	return out
}

// Error applies the ordered redaction pass to a free-text error message.
// Applying it twice equals applying it once.
func Error(message string) string {
	for _, r := range errorPatterns {
		message = r.pattern.ReplaceAllString(message, r.replacement)
	}
	return message
}

// Response walks a decoded JSON-like value and returns a sanitized copy:
// sensitive keys replaced, stackTrace keys dropped, long hex runs in
// strings redacted. The input is never mutated.
func Response(data any) any {
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		return hexToken.ReplaceAllString(v, redactedToken)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Response(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			switch {
			case responseKeys[key]:
				out[key] = redacted
			case key == "stackTrace":
				// Dropped entirely.
			default:
				out[key] = Response(value)
			}
		}
		return out
	default:
		return data
	}
}

// MaskURL reduces a URL to scheme//host:port for safe logging, discarding
// path, query and any embedded credentials.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return invalidURL
	}
	port := u.Port()
	if port == "" {
		port = "?"
	}
	return fmt.Sprintf("%s://%s:%s", u.Scheme, u.Hostname(), port)
}
