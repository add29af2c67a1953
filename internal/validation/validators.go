// Package validation checks tool arguments before they are forwarded to the
// remote API. All checks are local shape checks; a failure here means no
// network call happens.
package validation

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/miekg/dns"
)

// Error describes an argument that failed a shape check. Never retried.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// maxDomainLen is the DNS limit on a full domain name.
const maxDomainLen = 253

// domainRegex enforces LDH labels: 63 chars max each, no leading/trailing
// hyphen. dns.IsDomainName alone is too lenient (it accepts any octets).
var domainRegex = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// Domain validates and normalizes a domain name: trimmed, lowercased.
func Domain(name string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return "", &Error{Field: "domain", Reason: "required"}
	}
	if len(trimmed) > maxDomainLen {
		return "", &Error{Field: "domain", Reason: fmt.Sprintf("exceeds %d characters", maxDomainLen)}
	}
	if _, ok := dns.IsDomainName(trimmed); !ok {
		return "", &Error{Field: "domain", Reason: "malformed name"}
	}
	if !domainRegex.MatchString(trimmed) {
		return "", &Error{Field: "domain", Reason: "labels must be alphanumeric with interior hyphens"}
	}
	return trimmed, nil
}

// IP validates an IPv4 or IPv6 address.
func IP(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", &Error{Field: "ip", Reason: "required"}
	}
	if net.ParseIP(trimmed) == nil {
		return "", &Error{Field: "ip", Reason: "not an IPv4 or IPv6 address"}
	}
	return trimmed, nil
}

// IPOrHostname validates a resolver target: an IP address, a hostname, or an
// https:// DoH URL.
func IPOrHostname(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", &Error{Field: "server", Reason: "required"}
	}
	if net.ParseIP(trimmed) != nil {
		return trimmed, nil
	}
	if strings.HasPrefix(trimmed, "https://") {
		return trimmed, nil
	}
	if len(trimmed) <= maxDomainLen && domainRegex.MatchString(strings.ToLower(trimmed)) {
		return trimmed, nil
	}
	return "", &Error{Field: "server", Reason: "must be an IP, hostname, or https:// URL"}
}

// recordTypes is the subset of record types the tools accept. Each entry is
// cross-checked against the wire-format type table at init.
var recordTypes = map[string]bool{
	"A": true, "AAAA": true, "CNAME": true, "MX": true, "NS": true,
	"PTR": true, "SOA": true, "SRV": true, "TXT": true, "CAA": true,
	"ANY": true,
}

func init() {
	for t := range recordTypes {
		if _, ok := dns.StringToType[t]; !ok {
			panic("unknown DNS record type in allowlist: " + t)
		}
	}
}

// RecordType validates and uppercases a DNS record type.
func RecordType(t string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(t))
	if upper == "" {
		return "", &Error{Field: "type", Reason: "required"}
	}
	if !recordTypes[upper] {
		return "", &Error{Field: "type", Reason: fmt.Sprintf("unsupported record type %q", upper)}
	}
	return upper, nil
}

var statsPeriods = []string{"LastHour", "LastDay", "LastWeek", "LastMonth", "LastYear"}

// Period validates a dashboard stats period.
func Period(p string) (string, error) {
	if err := allowlist(p, statsPeriods); err != nil {
		return "", &Error{Field: "period", Reason: err.Error()}
	}
	return p, nil
}

var dnsProtocols = []string{"Udp", "Tcp", "Tls", "Https", "Quic"}

// Protocol validates a DNS transport protocol name.
func Protocol(p string) (string, error) {
	if err := allowlist(p, dnsProtocols); err != nil {
		return "", &Error{Field: "protocol", Reason: err.Error()}
	}
	return p, nil
}

var zoneTypes = []string{"Primary", "Secondary", "Stub", "Forwarder"}

// ZoneType validates a zone type.
func ZoneType(t string) (string, error) {
	if err := allowlist(t, zoneTypes); err != nil {
		return "", &Error{Field: "zone type", Reason: err.Error()}
	}
	return t, nil
}

// StringLength bounds a free-text argument.
func StringLength(value string, maxLen int, field string) (string, error) {
	if len(value) > maxLen {
		return "", &Error{Field: field, Reason: fmt.Sprintf("exceeds maximum length of %d", maxLen)}
	}
	return value, nil
}

func allowlist(value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%q not one of: %s", value, strings.Join(allowed, ", "))
}
