package server

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"grimm.is/dnsmcp/internal/ratelimit"
	"grimm.is/dnsmcp/internal/sanitize"
	"grimm.is/dnsmcp/internal/tools"
)

// dispatch runs one invocation through the pipeline. Handler failures come
// back as error results, never as protocol errors, so the peer always gets
// a payload it can show.
func (s *Server) dispatch(ctx context.Context, e tools.Entry, args map[string]any) (*mcp.CallToolResult, error) {
	name := e.Tool.Name

	decision := s.limiter.Check(name)
	if !decision.Allowed {
		rlErr := &ratelimit.Error{Tool: name, RetryAfter: decision.RetryAfter}
		s.audit.Security("rate_limited", rlErr.Error())
		if s.stats != nil {
			s.stats.RateLimited.WithLabelValues(name).Inc()
		}
		s.log.Warn("rate limited", "tool", name, "retry_after_ms", decision.RetryAfter.Milliseconds())
		return errorResult(rlErr.Error()), nil
	}

	start := s.clk.Now()
	out, err := e.Handler(ctx, args)
	elapsed := s.clk.Since(start)

	if err != nil {
		msg := sanitize.Error(err.Error())
		s.audit.ToolCall(name, args, "error", elapsed, msg)
		if s.stats != nil {
			s.stats.ObserveToolCall(name, "error", elapsed)
		}
		s.log.Error("tool call failed", "tool", name, "error", msg)
		return errorResult(msg), nil
	}

	s.audit.ToolCall(name, args, "success", elapsed, "")
	if s.stats != nil {
		s.stats.ObserveToolCall(name, "success", elapsed)
	}
	s.log.Debug("tool call", "tool", name, "duration_ms", elapsed.Milliseconds())

	return textResult(sanitizePayload(out)), nil
}

// sanitizePayload runs a JSON tool result through the response sanitizer.
// Non-JSON output (zone-file text) passes through untouched.
func sanitizePayload(out string) string {
	var v any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return out
	}
	cleaned := sanitize.Response(v)
	buf, err := json.MarshalIndent(cleaned, "", "  ")
	if err != nil {
		return out
	}
	return string(buf)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	payload, err := json.MarshalIndent(map[string]string{"error": msg}, "", "  ")
	if err != nil {
		payload = []byte(msg)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		IsError: true,
	}
}

// decodeArgs normalizes the wire arguments into a map. Tool arguments are
// optional at the protocol level, so nil becomes an empty map.
func decodeArgs(raw any) map[string]any {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case json.RawMessage:
		args := map[string]any{}
		if len(v) > 0 {
			_ = json.Unmarshal(v, &args)
		}
		return args
	case []byte:
		args := map[string]any{}
		if len(v) > 0 {
			_ = json.Unmarshal(v, &args)
		}
		return args
	}
	return map[string]any{}
}
