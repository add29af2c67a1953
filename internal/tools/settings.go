package tools

import (
	"context"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"grimm.is/dnsmcp/internal/technitium"
)

func settingsTools(client *technitium.Client) []Entry {
	return []Entry{
		{
			Tool: &mcp.Tool{
				Name: "dns_get_settings",
				Description: "Get the current DNS server settings including forwarders, blocking " +
					"configuration, protocols, logging, cache settings, and proxy configuration.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				raw, err := client.CallOK(ctx, "/api/settings/get", nil, http.MethodGet)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
	}
}
