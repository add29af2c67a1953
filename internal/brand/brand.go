// Package brand holds the product identity constants shared by the MCP
// server info, the startup audit record, and the outbound user agent.
package brand

// Name is the server name advertised to MCP clients.
const Name = "dnsmcp"

// Version is the release version. Overridable at build time with
// -ldflags "-X grimm.is/dnsmcp/internal/brand.version=...".
var version = "1.0.0"

// Version returns the current version string.
func Version() string {
	return version
}

// UserAgent returns the User-Agent header value for outbound API calls.
func UserAgent() string {
	return Name + "/" + version
}
