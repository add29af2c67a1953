package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/dnsmcp/internal/audit"
	"grimm.is/dnsmcp/internal/brand"
	"grimm.is/dnsmcp/internal/config"
	"grimm.is/dnsmcp/internal/logging"
	"grimm.is/dnsmcp/internal/metrics"
	"grimm.is/dnsmcp/internal/ratelimit"
	"grimm.is/dnsmcp/internal/server"
	"grimm.is/dnsmcp/internal/technitium"
	"grimm.is/dnsmcp/internal/tools"
)

// RunServe handles the "serve" command: the stdio MCP server.
func RunServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	readonly := fs.Bool("readonly", false, "Expose only read-only tools (overrides TECHNITIUM_READONLY)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *readonly {
		cfg.ReadOnly = true
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Output: os.Stderr,
		JSON:   cfg.LogJSON,
	}).WithComponent("serve")

	if err := cfg.ResolveToken(log); err != nil {
		return err
	}

	auditOpts := []audit.Option{}
	var store *audit.Store
	if cfg.AuditDB != "" {
		store, err = audit.NewStore(cfg.AuditDB)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		auditOpts = append(auditOpts, audit.WithStore(store))
	}
	auditLog := audit.NewLogger(auditOpts...)
	defer auditLog.Close()

	stats := metrics.NewRegistry()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := stats.Serve(cfg.MetricsAddr); err != nil {
				log.Error("metrics listener failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	clientOpts := []technitium.Option{
		technitium.WithTimeout(cfg.HTTPTimeout),
		technitium.WithAudit(auditLog),
		technitium.WithMetrics(stats),
	}
	if cfg.Token != "" {
		clientOpts = append(clientOpts, technitium.WithStaticToken(cfg.Token))
	} else {
		clientOpts = append(clientOpts, technitium.WithPassword(cfg.User, cfg.Password))
	}
	client := technitium.NewClient(cfg.URL, clientOpts...)

	entries := tools.Filter(tools.All(client), cfg.ReadOnly)

	limiter := ratelimit.New(
		ratelimit.Limit{Max: cfg.RateLimit, Window: cfg.RateWindow},
		ratelimit.DefaultOverrides(), nil)

	srv := server.New(server.Options{
		Tools:   entries,
		Limiter: limiter,
		Audit:   auditLog,
		Metrics: stats,
		Log:     log,
	})

	auditLog.Startup(brand.Version(), cfg.URL)
	if cfg.AllowHTTP {
		auditLog.Security("http_transport", "plain http to the remote server explicitly allowed")
	}
	log.Info("serving MCP on stdio",
		"tools", len(entries), "readonly", cfg.ReadOnly, "version", brand.Version())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = srv.Run(ctx)

	auditLog.Shutdown("signal")
	client.ClearToken()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
