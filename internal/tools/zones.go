package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"grimm.is/dnsmcp/internal/technitium"
	"grimm.is/dnsmcp/internal/validation"
)

func zoneTools(client *technitium.Client) []Entry {
	return []Entry{
		{
			Tool: &mcp.Tool{
				Name: "dns_list_zones",
				Description: "List all DNS zones configured on the server. Returns zone name, " +
					"type (Primary/Secondary/Stub/Forwarder), status, and record count.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				raw, err := client.CallOK(ctx, "/api/zones/list", nil, http.MethodGet)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
		{
			Tool: &mcp.Tool{
				Name: "dns_create_zone",
				Description: "Create a new DNS zone. Use 'Primary' for hosting records locally, " +
					"'Forwarder' for conditional forwarding.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"zone": stringProp("Zone domain name (e.g. example.com)"),
					"type": enumProp("Zone type (default: Primary)", "Primary", "Secondary", "Stub", "Forwarder"),
				}, "zone"),
			},
			Mutating: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				zone, err := validation.Domain(strArg(args, "zone"))
				if err != nil {
					return "", err
				}
				zoneType := "Primary"
				if t := strArg(args, "type"); t != "" {
					if zoneType, err = validation.ZoneType(t); err != nil {
						return "", err
					}
				}
				raw, err := client.CallOK(ctx, "/api/zones/create",
					url.Values{"zone": {zone}, "type": {zoneType}}, http.MethodPost)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        "dns_delete_zone",
				Description: "Delete a DNS zone and all its records. Requires confirm=true to execute.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"zone":    stringProp("Zone domain name to delete"),
					"confirm": boolProp("Must be true to confirm deletion. Without this, returns a warning instead."),
				}, "zone"),
			},
			Mutating:    true,
			Destructive: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				zone, err := validation.Domain(strArg(args, "zone"))
				if err != nil {
					return "", err
				}
				if !confirmed(args) {
					return warnUnconfirmed(fmt.Sprintf(
						"This will delete the zone '%s' and every record in it.", zone))
				}
				raw, err := client.CallOK(ctx, "/api/zones/delete",
					url.Values{"zone": {zone}}, http.MethodPost)
				if err != nil {
					return "", err
				}
				return mergeResult(raw, map[string]any{"success": true, "deleted": zone})
			},
		},
		{
			Tool: &mcp.Tool{
				Name: "dns_zone_options",
				Description: "Get the configuration options for a specific zone including DNSSEC, " +
					"transfer, and notify settings.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"zone": stringProp("Zone domain name"),
				}, "zone"),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				zone, err := validation.Domain(strArg(args, "zone"))
				if err != nil {
					return "", err
				}
				raw, err := client.CallOK(ctx, "/api/zones/options/get",
					url.Values{"zone": {zone}}, http.MethodGet)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
	}
}
