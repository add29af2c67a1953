package tools

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"grimm.is/dnsmcp/internal/technitium"
	"grimm.is/dnsmcp/internal/validation"
)

// maxLogEntriesPerPage caps log pagination so a single call cannot pull an
// unbounded slice of the query log.
const maxLogEntriesPerPage = 100

func logTools(client *technitium.Client) []Entry {
	return []Entry{
		{
			Tool: &mcp.Tool{
				Name: "dns_query_logs",
				Description: "Query DNS server logs with optional filters. Returns recent DNS queries " +
					"and their responses. Requires the Query Logs app to be installed.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"pageNumber":     numberProp("Page number (default: 1)"),
					"entriesPerPage": numberProp("Entries per page (default: 25, max: 100)"),
					"domain":         stringProp("Filter by domain name (partial match)"),
					"clientIp":       stringProp("Filter by client IP address"),
					"queryType": enumProp("Filter by DNS query type",
						"A", "AAAA", "CNAME", "MX", "NS", "PTR", "SOA", "TXT", "ANY"),
					"responseCode": enumProp("Filter by response code",
						"NoError", "ServerFailure", "NxDomain", "Refused", "FormatError"),
				}),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				page := intArg(args, "pageNumber")
				if page < 1 {
					page = 1
				}
				perPage := intArg(args, "entriesPerPage")
				if perPage < 1 {
					perPage = 25
				}
				if perPage > maxLogEntriesPerPage {
					perPage = maxLogEntriesPerPage
				}

				params := url.Values{
					"pageNumber":     {strconv.Itoa(page)},
					"entriesPerPage": {strconv.Itoa(perPage)},
				}
				if d := strArg(args, "domain"); d != "" {
					params.Set("domain", d)
				}
				if ip := strArg(args, "clientIp"); ip != "" {
					addr, err := validation.IP(ip)
					if err != nil {
						return "", err
					}
					params.Set("clientIpAddress", addr)
				}
				if t := strArg(args, "queryType"); t != "" {
					recType, err := validation.RecordType(t)
					if err != nil {
						return "", err
					}
					params.Set("type", recType)
				}
				if rc := strArg(args, "responseCode"); rc != "" {
					params.Set("rcode", rc)
				}

				raw, err := client.CallOK(ctx, "/api/logs/query", params, http.MethodGet)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
	}
}
