package tools

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"grimm.is/dnsmcp/internal/technitium"
	"grimm.is/dnsmcp/internal/validation"
)

func blockingTools(client *technitium.Client) []Entry {
	return []Entry{
		{
			Tool: &mcp.Tool{
				Name:        "dns_list_blocked",
				Description: "List all blocked DNS zones (domains that are denied).",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				raw, err := client.CallOK(ctx, "/api/blockedZones/list", nil, http.MethodGet)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        "dns_block_domain",
				Description: "Block a domain name. Queries to this domain will be denied by the DNS server.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"domain": stringProp("Domain name to block (e.g. ads.example.com)"),
				}, "domain"),
			},
			Mutating: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				domain, err := validation.Domain(strArg(args, "domain"))
				if err != nil {
					return "", err
				}
				raw, err := client.CallOK(ctx, "/api/blockedZones/add",
					url.Values{"zone": {domain}}, http.MethodPost)
				if err != nil {
					return "", err
				}
				return mergeResult(raw, map[string]any{"success": true, "blocked": domain})
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        "dns_list_allowed",
				Description: "List all allowed DNS zones (domains that bypass block lists).",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				raw, err := client.CallOK(ctx, "/api/allowedZones/list", nil, http.MethodGet)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
		{
			Tool: &mcp.Tool{
				Name: "dns_allow_domain",
				Description: "Allow a domain name, bypassing any block lists. Useful for " +
					"whitelisting false positives.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"domain": stringProp("Domain name to allow (e.g. plex.direct)"),
				}, "domain"),
			},
			Mutating: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				domain, err := validation.Domain(strArg(args, "domain"))
				if err != nil {
					return "", err
				}
				raw, err := client.CallOK(ctx, "/api/allowedZones/add",
					url.Values{"zone": {domain}}, http.MethodPost)
				if err != nil {
					return "", err
				}
				return mergeResult(raw, map[string]any{"success": true, "allowed": domain})
			},
		},
		{
			Tool: &mcp.Tool{
				Name: "dns_flush_blocked",
				Description: "Remove every manually blocked zone from the blocked list. " +
					"Requires confirm=true to execute.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"confirm": boolProp("Must be true to confirm the flush. Without this, returns a warning instead."),
				}),
			},
			Mutating:    true,
			Destructive: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				if !confirmed(args) {
					return warnUnconfirmed(
						"This will remove every manually blocked zone from the blocked list.")
				}
				raw, err := client.CallOK(ctx, "/api/blockedZones/flush", nil, http.MethodPost)
				if err != nil {
					return "", err
				}
				return mergeResult(raw, map[string]any{"success": true, "message": "Blocked zones flushed"})
			},
		},
	}
}
