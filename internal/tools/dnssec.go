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

func dnssecTools(client *technitium.Client) []Entry {
	return []Entry{
		{
			Tool: &mcp.Tool{
				Name: "dns_dnssec_info",
				Description: "Get DNSSEC properties for a zone including signing status, key details, " +
					"and algorithm info.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"zone": stringProp("Zone domain name"),
				}, "zone"),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				zone, err := validation.Domain(strArg(args, "zone"))
				if err != nil {
					return "", err
				}
				raw, err := client.CallOK(ctx, "/api/zones/dnssec/properties/get",
					url.Values{"zone": {zone}}, http.MethodGet)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
		{
			Tool: &mcp.Tool{
				Name: "dns_get_ds",
				Description: "Get the DS (Delegation Signer) records for a DNSSEC-signed zone. " +
					"These are needed by the parent zone registrar.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"zone": stringProp("Zone domain name"),
				}, "zone"),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				zone, err := validation.Domain(strArg(args, "zone"))
				if err != nil {
					return "", err
				}
				raw, err := client.CallOK(ctx, "/api/zones/dnssec/viewDS",
					url.Values{"zone": {zone}}, http.MethodGet)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
	}
}
