// Package tools defines the tool surface exposed over MCP: one Entry per
// administrative operation, each pairing a declared input schema with a
// handler that validates arguments, calls the remote API, and shapes the
// result.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"grimm.is/dnsmcp/internal/technitium"
)

// Handler executes one tool invocation. The returned string is the tool
// result payload, JSON unless the tool says otherwise.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Entry is one registered tool. Mutating marks tools that change server
// state; Destructive marks the subset whose effect is hard to reverse and
// which therefore carry a confirmation gate.
type Entry struct {
	Tool        *mcp.Tool
	Handler     Handler
	Mutating    bool
	Destructive bool
}

// All returns the complete tool set bound to the given client.
func All(client *technitium.Client) []Entry {
	var entries []Entry
	entries = append(entries, dashboardTools(client)...)
	entries = append(entries, dnsClientTools(client)...)
	entries = append(entries, zoneTools(client)...)
	entries = append(entries, recordTools(client)...)
	entries = append(entries, blockingTools(client)...)
	entries = append(entries, cacheTools(client)...)
	entries = append(entries, settingsTools(client)...)
	entries = append(entries, logTools(client)...)
	entries = append(entries, appTools(client)...)
	entries = append(entries, dnssecTools(client)...)
	return entries
}

// Filter drops every mutating entry when readonly mode is on.
func Filter(entries []Entry, readonly bool) []Entry {
	if !readonly {
		return entries
	}
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Mutating {
			kept = append(kept, e)
		}
	}
	return kept
}

// confirmed reports whether the caller explicitly set confirm=true. A
// missing or false flag means the destructive handler must warn instead
// of acting.
func confirmed(args map[string]any) bool {
	v, ok := args["confirm"].(bool)
	return ok && v
}

// warnUnconfirmed is the soft-failure payload for a destructive call made
// without confirmation.
func warnUnconfirmed(action string) (string, error) {
	return marshal(map[string]any{
		"warning": action + " Set confirm=true to proceed.",
	})
}

func marshal(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(out), nil
}

// rawResult renders an API response payload as the tool result.
func rawResult(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw), nil
	}
	return marshal(v)
}

// mergeResult renders extra top-level fields alongside the API response,
// the shape mutating tools use to echo what they did.
func mergeResult(raw json.RawMessage, extra map[string]any) (string, error) {
	merged := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &merged); err != nil {
			merged = map[string]any{}
		}
	}
	for k, v := range extra {
		merged[k] = v
	}
	return marshal(merged)
}

// Argument accessors. MCP arguments arrive as decoded JSON, so numbers are
// float64 and everything is optional until the schema says otherwise.

func strArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

// Schema construction helpers.

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func stringProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func enumProp(desc string, values ...string) *jsonschema.Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &jsonschema.Schema{Type: "string", Description: desc, Enum: enum}
}

func numberProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: desc}
}

func boolProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}
