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

func appTools(client *technitium.Client) []Entry {
	return []Entry{
		{
			Tool: &mcp.Tool{
				Name:        "dns_list_apps",
				Description: "List installed DNS apps on the server and their current status.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				raw, err := client.CallOK(ctx, "/api/apps/list", nil, http.MethodGet)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
		{
			Tool: &mcp.Tool{
				Name: "dns_uninstall_app",
				Description: "Uninstall a DNS app from the server, removing its configuration. " +
					"Requires confirm=true to execute.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"name":    stringProp("Name of the installed app to remove"),
					"confirm": boolProp("Must be true to confirm removal. Without this, returns a warning instead."),
				}, "name"),
			},
			Mutating:    true,
			Destructive: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				name, err := validation.StringLength(strArg(args, "name"), 255, "name")
				if err != nil {
					return "", err
				}
				if !confirmed(args) {
					return warnUnconfirmed(fmt.Sprintf(
						"This will uninstall the app '%s' and delete its configuration.", name))
				}
				raw, err := client.CallOK(ctx, "/api/apps/uninstall",
					url.Values{"name": {name}}, http.MethodPost)
				if err != nil {
					return "", err
				}
				return mergeResult(raw, map[string]any{"success": true, "uninstalled": name})
			},
		},
	}
}
