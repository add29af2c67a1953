package tools

import (
	"context"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"grimm.is/dnsmcp/internal/technitium"
)

func cacheTools(client *technitium.Client) []Entry {
	return []Entry{
		{
			Tool: &mcp.Tool{
				Name: "dns_flush_cache",
				Description: "Flush the entire DNS cache. Forces all subsequent queries to be " +
					"resolved fresh from upstream. Requires confirm=true to execute.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"confirm": boolProp("Must be true to confirm cache flush. Without this, returns a warning instead."),
				}),
			},
			Mutating:    true,
			Destructive: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				if !confirmed(args) {
					return warnUnconfirmed("This will flush the entire DNS cache. All subsequent " +
						"queries will be resolved fresh from upstream, which may temporarily increase latency.")
				}
				raw, err := client.CallOK(ctx, "/api/cache/flush", nil, http.MethodPost)
				if err != nil {
					return "", err
				}
				return mergeResult(raw, map[string]any{"success": true, "message": "Cache flushed"})
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        "dns_list_cache",
				Description: "List all zones currently in the DNS cache.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				raw, err := client.CallOK(ctx, "/api/cache/zones/list", nil, http.MethodGet)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
	}
}
