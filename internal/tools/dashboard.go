package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"grimm.is/dnsmcp/internal/technitium"
	"grimm.is/dnsmcp/internal/validation"
)

func dashboardTools(client *technitium.Client) []Entry {
	return []Entry{
		{
			Tool: &mcp.Tool{
				Name: "dns_get_stats",
				Description: "Get DNS query statistics for a time period. Returns total queries, " +
					"cached, blocked, failure counts, plus top clients, top domains, and top blocked domains.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"period": enumProp("Time period for stats (default: LastDay)",
						"LastHour", "LastDay", "LastWeek", "LastMonth", "LastYear"),
				}),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				period := "LastDay"
				if p := strArg(args, "period"); p != "" {
					var err error
					period, err = validation.Period(p)
					if err != nil {
						return "", err
					}
				}
				raw, err := client.CallOK(ctx, "/api/dashboard/stats/get",
					url.Values{"type": {period}}, http.MethodGet)
				if err != nil {
					return "", err
				}
				var data struct {
					Stats             json.RawMessage `json:"stats"`
					TopClients        json.RawMessage `json:"topClients"`
					TopDomains        json.RawMessage `json:"topDomains"`
					TopBlockedDomains json.RawMessage `json:"topBlockedDomains"`
				}
				if err := json.Unmarshal(raw, &data); err != nil {
					return "", fmt.Errorf("decode stats: %w", err)
				}
				return marshal(map[string]any{
					"stats":             data.Stats,
					"topClients":        data.TopClients,
					"topDomains":        data.TopDomains,
					"topBlockedDomains": data.TopBlockedDomains,
				})
			},
		},
		{
			Tool: &mcp.Tool{
				Name: "dns_health_check",
				Description: "Quick health check of the DNS server. Returns version, uptime, " +
					"forwarder config, blocking status, and last hour failure rate.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				settingsRaw, err := client.CallOK(ctx, "/api/settings/get", nil, http.MethodGet)
				if err != nil {
					return "", err
				}
				statsRaw, err := client.CallOK(ctx, "/api/dashboard/stats/get",
					url.Values{"type": {"LastHour"}}, http.MethodGet)
				if err != nil {
					return "", err
				}

				var settings struct {
					Version           json.RawMessage `json:"version"`
					Uptimestamp       json.RawMessage `json:"uptimestamp"`
					DNSServerDomain   json.RawMessage `json:"dnsServerDomain"`
					Forwarders        json.RawMessage `json:"forwarders"`
					ForwarderProtocol json.RawMessage `json:"forwarderProtocol"`
					EnableBlocking    json.RawMessage `json:"enableBlocking"`
				}
				if err := json.Unmarshal(settingsRaw, &settings); err != nil {
					return "", fmt.Errorf("decode settings: %w", err)
				}
				var stats struct {
					Stats struct {
						TotalQueries       float64 `json:"totalQueries"`
						TotalServerFailure float64 `json:"totalServerFailure"`
						TotalBlocked       float64 `json:"totalBlocked"`
						TotalCached        float64 `json:"totalCached"`
					} `json:"stats"`
				}
				if err := json.Unmarshal(statsRaw, &stats); err != nil {
					return "", fmt.Errorf("decode stats: %w", err)
				}

				failureRate := 0.0
				if stats.Stats.TotalQueries > 0 {
					failureRate = stats.Stats.TotalServerFailure / stats.Stats.TotalQueries * 100
				}
				return marshal(map[string]any{
					"version":           settings.Version,
					"uptimestamp":       settings.Uptimestamp,
					"dnsServerDomain":   settings.DNSServerDomain,
					"forwarders":        settings.Forwarders,
					"forwarderProtocol": settings.ForwarderProtocol,
					"enableBlocking":    settings.EnableBlocking,
					"lastHour": map[string]any{
						"totalQueries":   int(stats.Stats.TotalQueries),
						"serverFailures": int(stats.Stats.TotalServerFailure),
						"failureRate":    fmt.Sprintf("%.1f%%", failureRate),
						"blocked":        int(stats.Stats.TotalBlocked),
						"cached":         int(stats.Stats.TotalCached),
					},
				})
			},
		},
	}
}
