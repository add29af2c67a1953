package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"grimm.is/dnsmcp/internal/technitium"
	"grimm.is/dnsmcp/internal/validation"
)

// BindRecord is one record parsed out of a zone-file export.
type BindRecord struct {
	Name  string `json:"name"`
	TTL   int    `json:"ttl"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ParseBind extracts records from a BIND-format zone export. Comment lines,
// directives, and anything not shaped like "<name> <ttl> IN <type> <rdata>"
// are skipped. Names are rewritten to fully qualified form under zone.
func ParseBind(zone, text string) []BindRecord {
	var records []BindRecord
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "$") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 5 {
			continue
		}
		ttl, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		name := parts[0]
		var fqdn string
		switch {
		case name == "@":
			fqdn = zone
		case strings.Contains(name, "."):
			fqdn = strings.TrimSuffix(name, ".")
		default:
			fqdn = name + "." + zone
		}
		records = append(records, BindRecord{
			Name:  fqdn,
			TTL:   ttl,
			Type:  parts[3],
			Value: strings.Join(parts[4:], " "),
		})
	}
	return records
}

// listViaExport fetches one zone's full record set through the zone-file
// export endpoint, which is the only way to see apex and subdomain records
// in a single response.
func listViaExport(ctx context.Context, client *technitium.Client, zone string) ([]BindRecord, error) {
	text, err := client.CallText(ctx, "/api/zones/export", url.Values{"zone": {zone}})
	if err != nil {
		return nil, err
	}
	return ParseBind(zone, text), nil
}

// matchingZones filters the server's zone list down to the requested zone
// and its subzones, skipping internal zones.
func matchingZones(raw json.RawMessage, zone string) ([]string, error) {
	var list struct {
		Zones []struct {
			Name     string `json:"name"`
			Internal bool   `json:"internal"`
		} `json:"zones"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode zone list: %w", err)
	}
	var names []string
	for _, z := range list.Zones {
		if z.Internal {
			continue
		}
		if z.Name == zone || strings.HasSuffix(z.Name, "."+zone) {
			names = append(names, z.Name)
		}
	}
	return names, nil
}

func recordTools(client *technitium.Client) []Entry {
	return []Entry{
		{
			Tool: &mcp.Tool{
				Name: "dns_list_records",
				Description: "List DNS records in a zone. Optionally filter by a specific domain name " +
					"within the zone. When no domain is specified, returns all records across all zones " +
					"matching the zone name, including subzones. When domain is specified, returns " +
					"records for that exact domain only.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"zone":   stringProp("Zone domain name. Can be a parent domain to list all subzones."),
					"domain": stringProp("Optional specific domain to filter. Defaults to the zone name if omitted."),
				}, "zone"),
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				zone, err := validation.Domain(strArg(args, "zone"))
				if err != nil {
					return "", err
				}

				if d := strArg(args, "domain"); d != "" {
					domain, err := validation.Domain(d)
					if err != nil {
						return "", err
					}
					raw, err := client.CallOK(ctx, "/api/zones/records/get",
						url.Values{"zone": {zone}, "domain": {domain}}, http.MethodGet)
					if err != nil {
						return "", err
					}
					return rawResult(raw)
				}

				zoneListRaw, err := client.CallOK(ctx, "/api/zones/list", nil, http.MethodGet)
				if err != nil {
					return "", err
				}
				names, err := matchingZones(zoneListRaw, zone)
				if err != nil {
					return "", err
				}

				switch {
				case len(names) == 0:
					// No matching zone; the direct query surfaces the
					// server's own error for a missing zone.
					raw, err := client.CallOK(ctx, "/api/zones/records/get",
						url.Values{"zone": {zone}, "domain": {zone}}, http.MethodGet)
					if err != nil {
						return "", err
					}
					return rawResult(raw)

				case len(names) == 1 && names[0] == zone:
					records, err := listViaExport(ctx, client, zone)
					if err != nil {
						return "", err
					}
					return marshal(map[string]any{"zone": zone, "records": records})

				default:
					// Parent-level query covering several zones. A zone
					// that fails to export is reported inline so the
					// others still come back.
					results := make([]map[string]any, 0, len(names))
					for _, name := range names {
						records, err := listViaExport(ctx, client, name)
						if err != nil {
							results = append(results, map[string]any{"zone": name, "error": err.Error()})
							continue
						}
						results = append(results, map[string]any{"zone": name, "records": records})
					}
					return marshal(map[string]any{"totalZones": len(results), "zones": results})
				}
			},
		},
		{
			Tool: &mcp.Tool{
				Name: "dns_add_record",
				Description: "Add a DNS record to a zone. Creates the zone automatically if it " +
					"doesn't exist for Primary type.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"zone":   stringProp("Zone domain name"),
					"domain": stringProp("Full domain name for the record"),
					"type": enumProp("Record type",
						"A", "AAAA", "CNAME", "MX", "NS", "PTR", "SOA", "SRV", "TXT", "CAA"),
					"value":     stringProp("Record value (IP for A/AAAA, hostname for CNAME/MX/NS, text for TXT)"),
					"ttl":       numberProp("TTL in seconds (default: 3600)"),
					"overwrite": boolProp("Overwrite existing records of the same type (default: false)"),
					"priority":  numberProp("Priority for MX records"),
				}, "zone", "domain", "type", "value"),
			},
			Mutating: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				zone, err := validation.Domain(strArg(args, "zone"))
				if err != nil {
					return "", err
				}
				domain, err := validation.Domain(strArg(args, "domain"))
				if err != nil {
					return "", err
				}
				recType, err := validation.RecordType(strArg(args, "type"))
				if err != nil {
					return "", err
				}
				value := strArg(args, "value")

				params := url.Values{
					"zone":      {zone},
					"domain":    {domain},
					"type":      {recType},
					"overwrite": {strconv.FormatBool(boolArg(args, "overwrite"))},
				}
				if ttl := intArg(args, "ttl"); ttl > 0 {
					params.Set("ttl", strconv.Itoa(ttl))
				}
				if err := setRecordValue(params, recType, value, intArg(args, "priority"), false); err != nil {
					return "", err
				}

				raw, err := client.CallOK(ctx, "/api/zones/records/add", params, http.MethodPost)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        "dns_update_record",
				Description: "Update an existing DNS record.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"zone":      stringProp("Zone domain name"),
					"domain":    stringProp("Current domain name"),
					"type":      enumProp("Record type", "A", "AAAA", "CNAME", "MX", "NS", "PTR", "TXT"),
					"value":     stringProp("Current record value"),
					"newValue":  stringProp("New record value"),
					"newDomain": stringProp("New domain name (to rename)"),
					"ttl":       numberProp("New TTL in seconds"),
				}, "zone", "domain", "type", "value", "newValue"),
			},
			Mutating: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				zone, err := validation.Domain(strArg(args, "zone"))
				if err != nil {
					return "", err
				}
				domain, err := validation.Domain(strArg(args, "domain"))
				if err != nil {
					return "", err
				}
				recType, err := validation.RecordType(strArg(args, "type"))
				if err != nil {
					return "", err
				}

				params := url.Values{
					"zone":   {zone},
					"domain": {domain},
					"type":   {recType},
				}
				if nd := strArg(args, "newDomain"); nd != "" {
					newDomain, err := validation.Domain(nd)
					if err != nil {
						return "", err
					}
					params.Set("newDomain", newDomain)
				}
				if ttl := intArg(args, "ttl"); ttl > 0 {
					params.Set("ttl", strconv.Itoa(ttl))
				}

				value := strArg(args, "value")
				newValue := strArg(args, "newValue")
				switch recType {
				case "A", "AAAA":
					ip, err := validation.IP(value)
					if err != nil {
						return "", err
					}
					newIP, err := validation.IP(newValue)
					if err != nil {
						return "", err
					}
					params.Set("ipAddress", ip)
					params.Set("newIpAddress", newIP)
				case "CNAME":
					cname, err := validation.Domain(value)
					if err != nil {
						return "", err
					}
					newCname, err := validation.Domain(newValue)
					if err != nil {
						return "", err
					}
					params.Set("cname", cname)
					params.Set("newCname", newCname)
				case "MX":
					exchange, err := validation.Domain(value)
					if err != nil {
						return "", err
					}
					newExchange, err := validation.Domain(newValue)
					if err != nil {
						return "", err
					}
					params.Set("exchange", exchange)
					params.Set("newExchange", newExchange)
				case "TXT":
					params.Set("text", value)
					params.Set("newText", newValue)
				}

				raw, err := client.CallOK(ctx, "/api/zones/records/update", params, http.MethodPost)
				if err != nil {
					return "", err
				}
				return rawResult(raw)
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        "dns_delete_record",
				Description: "Delete a specific DNS record from a zone. Requires confirm=true to execute.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"zone":   stringProp("Zone domain name"),
					"domain": stringProp("Domain name of the record"),
					"type": enumProp("Record type",
						"A", "AAAA", "CNAME", "MX", "NS", "PTR", "TXT", "SRV", "CAA"),
					"value":   stringProp("Record value to delete (IP for A/AAAA, etc)"),
					"confirm": boolProp("Must be true to confirm deletion. Without this, returns a warning instead of deleting."),
				}, "zone", "domain", "type", "value"),
			},
			Mutating:    true,
			Destructive: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				zone, err := validation.Domain(strArg(args, "zone"))
				if err != nil {
					return "", err
				}
				domain, err := validation.Domain(strArg(args, "domain"))
				if err != nil {
					return "", err
				}
				recType, err := validation.RecordType(strArg(args, "type"))
				if err != nil {
					return "", err
				}
				value := strArg(args, "value")

				if !confirmed(args) {
					return warnUnconfirmed(fmt.Sprintf(
						"This will delete the %s record for '%s' (value: %s).", recType, domain, value))
				}

				params := url.Values{
					"zone":   {zone},
					"domain": {domain},
					"type":   {recType},
				}
				if err := setRecordValue(params, recType, value, 0, true); err != nil {
					return "", err
				}

				raw, err := client.CallOK(ctx, "/api/zones/records/delete", params, http.MethodPost)
				if err != nil {
					return "", err
				}
				return mergeResult(raw, map[string]any{
					"success": true,
					"deleted": fmt.Sprintf("%s %s -> %s", recType, domain, value),
				})
			},
		},
	}
}

// setRecordValue maps a record value onto the type-specific parameter the
// remote API expects. Deletion accepts values verbatim where possible so a
// malformed existing record can still be removed.
func setRecordValue(params url.Values, recType, value string, priority int, deleting bool) error {
	switch recType {
	case "A", "AAAA":
		ip, err := validation.IP(value)
		if err != nil {
			return err
		}
		params.Set("ipAddress", ip)
	case "CNAME":
		if deleting {
			params.Set("cname", value)
			return nil
		}
		cname, err := validation.Domain(value)
		if err != nil {
			return err
		}
		params.Set("cname", cname)
	case "NS":
		if deleting {
			params.Set("nameServer", value)
			return nil
		}
		ns, err := validation.Domain(value)
		if err != nil {
			return err
		}
		params.Set("nameServer", ns)
	case "PTR":
		ptr, err := validation.Domain(value)
		if err != nil {
			return err
		}
		params.Set("ptrName", ptr)
	case "MX":
		if deleting {
			params.Set("exchange", value)
			return nil
		}
		exchange, err := validation.Domain(value)
		if err != nil {
			return err
		}
		params.Set("exchange", exchange)
		if priority > 0 {
			params.Set("preference", strconv.Itoa(priority))
		}
	case "TXT":
		params.Set("text", value)
	case "SRV":
		params.Set("target", value)
		if priority > 0 {
			params.Set("priority", strconv.Itoa(priority))
		}
	case "CAA":
		params.Set("value", value)
	}
	return nil
}
