// Package server binds the tool set to the MCP runtime and runs every
// invocation through the mediation pipeline: admission control, handler
// execution, response sanitization, audit, metrics.
package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"grimm.is/dnsmcp/internal/audit"
	"grimm.is/dnsmcp/internal/brand"
	"grimm.is/dnsmcp/internal/clock"
	"grimm.is/dnsmcp/internal/logging"
	"grimm.is/dnsmcp/internal/metrics"
	"grimm.is/dnsmcp/internal/ratelimit"
	"grimm.is/dnsmcp/internal/tools"
)

// Options configures a Server. Tools and Limiter are required; the rest
// default to quiet no-op equivalents.
type Options struct {
	Tools   []tools.Entry
	Limiter *ratelimit.Limiter
	Audit   *audit.Logger
	Metrics *metrics.Registry
	Log     *logging.Logger
	Clock   clock.Clock
}

// Server is the MCP-facing surface. All tool traffic passes through
// dispatch.
type Server struct {
	entries map[string]tools.Entry
	limiter *ratelimit.Limiter
	audit   *audit.Logger
	stats   *metrics.Registry
	log     *logging.Logger
	clk     clock.Clock

	mcp *mcp.Server
}

// New builds the server and registers every tool with the MCP runtime.
func New(opts Options) *Server {
	s := &Server{
		entries: make(map[string]tools.Entry, len(opts.Tools)),
		limiter: opts.Limiter,
		audit:   opts.Audit,
		stats:   opts.Metrics,
		log:     opts.Log,
		clk:     opts.Clock,
	}
	if s.audit == nil {
		s.audit = audit.NewLogger()
	}
	if s.log == nil {
		s.log = logging.Default()
	}
	if s.clk == nil {
		s.clk = &clock.RealClock{}
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    brand.Name,
		Version: brand.Version(),
	}, &mcp.ServerOptions{})

	for _, e := range opts.Tools {
		s.entries[e.Tool.Name] = e
		s.mcp.AddTool(e.Tool, s.handlerFor(e))
	}
	return s
}

// Run serves MCP over stdio until the context is canceled or the peer
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Connect attaches the server to an arbitrary transport. Tests use this
// with in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}

func (s *Server) handlerFor(e tools.Entry) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.dispatch(ctx, e, decodeArgs(req.Params.Arguments))
	}
}
