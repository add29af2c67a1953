// Package audit emits one structured record per significant event (tool
// calls, authentication, security events, lifecycle) to a diagnostic channel
// separate from the MCP response channel. Writes are best-effort: an audit
// failure never fails the operation being audited.
package audit

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"grimm.is/dnsmcp/internal/clock"
	"grimm.is/dnsmcp/internal/sanitize"
)

// Event kinds.
const (
	EventToolCall = "tool_call"
	EventAuth     = "auth"
	EventSecurity = "security"
	EventStartup  = "startup"
	EventShutdown = "shutdown"
)

// Logger serializes audit records as JSONL on a diagnostic writer, stderr by
// default. An optional Store persists the same records.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	clk   clock.Clock
	store *Store

	// dropped counts records that could not be written anywhere.
	dropped int64
}

// Option configures a Logger.
type Option func(*Logger)

// WithOutput redirects the diagnostic stream (tests).
func WithOutput(w io.Writer) Option {
	return func(l *Logger) { l.out = w }
}

// WithClock injects a time source (tests).
func WithClock(clk clock.Clock) Option {
	return func(l *Logger) { l.clk = clk }
}

// WithStore attaches a persistent store; records are written to both the
// stream and the store.
func WithStore(s *Store) Option {
	return func(l *Logger) { l.store = s }
}

// NewLogger creates an audit logger writing to stderr.
func NewLogger(opts ...Option) *Logger {
	l := &Logger{
		out: os.Stderr,
		clk: &clock.RealClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// write serializes one record. Failures are counted, never surfaced.
func (l *Logger) write(entry map[string]any) {
	record := map[string]any{
		"id":        uuid.NewString(),
		"timestamp": l.clk.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range entry {
		record[k] = v
	}

	line, err := json.Marshal(record)
	if err != nil {
		l.mu.Lock()
		l.dropped++
		l.mu.Unlock()
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	streamOK := true
	if _, err := l.out.Write(append(append([]byte("[audit] "), line...), '\n')); err != nil {
		streamOK = false
	}
	storeOK := false
	if l.store != nil {
		storeOK = l.store.write(record) == nil
	}
	if !streamOK && !storeOK {
		l.dropped++
	}
}

// Dropped reports how many records were lost to write failures.
func (l *Logger) Dropped() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// ToolCall records one completed tool invocation. Arguments are sanitized
// before they touch the trail.
func (l *Logger) ToolCall(tool string, args map[string]any, result string, duration time.Duration, errMsg string) {
	entry := map[string]any{
		"event":       EventToolCall,
		"tool":        tool,
		"args":        sanitize.Args(args),
		"result":      result,
		"duration_ms": duration.Milliseconds(),
	}
	if errMsg != "" {
		entry["error"] = errMsg
	}
	l.write(entry)
}

// Auth records an authentication attempt.
func (l *Logger) Auth(action string, success bool, details string) {
	entry := map[string]any{
		"event":   EventAuth,
		"action":  action,
		"success": success,
	}
	if details != "" {
		entry["details"] = details
	}
	l.write(entry)
}

// Security records a security-relevant event (rate limiting, expired
// credentials, downgraded transport).
func (l *Logger) Security(action, details string) {
	l.write(map[string]any{
		"event":   EventSecurity,
		"action":  action,
		"details": details,
	})
}

// Startup records process start with the version and the masked server URL.
func (l *Logger) Startup(version, serverURL string) {
	l.write(map[string]any{
		"event":   EventStartup,
		"version": version,
		"server":  sanitize.MaskURL(serverURL),
	})
}

// Shutdown records process exit.
func (l *Logger) Shutdown(signal string) {
	l.write(map[string]any{
		"event":  EventShutdown,
		"signal": signal,
	})
}

// Close releases the attached store, if any.
func (l *Logger) Close() error {
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}
