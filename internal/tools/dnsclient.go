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

func dnsClientTools(client *technitium.Client) []Entry {
	return []Entry{
		{
			Tool: &mcp.Tool{
				Name: "dns_resolve",
				Description: "Test DNS resolution for a domain name. Resolves using the Technitium " +
					"server itself or a specified external server.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"domain": stringProp("Domain name to resolve (e.g. google.com)"),
					"type": enumProp("DNS record type (default: A)",
						"A", "AAAA", "CNAME", "MX", "NS", "PTR", "SOA", "SRV", "TXT", "CAA", "ANY"),
					"server":   stringProp("Optional DNS server to query (default: this server). Can be IP or DoH URL."),
					"protocol": enumProp("DNS protocol to use (default: Udp)", "Udp", "Tcp", "Tls", "Https", "Quic"),
				}, "domain"),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				domain, err := validation.Domain(strArg(args, "domain"))
				if err != nil {
					return "", err
				}
				recType := "A"
				if t := strArg(args, "type"); t != "" {
					if recType, err = validation.RecordType(t); err != nil {
						return "", err
					}
				}
				server := "this-server"
				if s := strArg(args, "server"); s != "" {
					if server, err = validation.IPOrHostname(s); err != nil {
						return "", err
					}
				}
				params := url.Values{
					"domain": {domain},
					"type":   {recType},
					"server": {server},
				}
				if p := strArg(args, "protocol"); p != "" {
					protocol, err := validation.Protocol(p)
					if err != nil {
						return "", err
					}
					params.Set("protocol", protocol)
				}
				raw, err := client.CallOK(ctx, "/api/dnsClient/resolve", params, http.MethodGet)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
	}
}
