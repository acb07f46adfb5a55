package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	pslmcp "github.com/ppiankov/pslang/internal/mcp"
	"github.com/ppiankov/pslang/internal/redact"
	"github.com/ppiankov/pslang/internal/server"
	"github.com/ppiankov/pslang/internal/store"
)

var (
	mcpPolicy   string
	mcpAuditLog string
	mcpNoStore  bool
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpPolicy, "policy", "", "Path to policy YAML (default $PSLANG_POLICY)")
	mcpCmd.Flags().StringVar(&mcpAuditLog, "audit-log", "", "Path to audit log JSONL file (default $PSLANG_AUDIT_LOG)")
	mcpCmd.Flags().BoolVar(&mcpNoStore, "no-store", false, "Run without the document store")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs pslang as an MCP (Model Context Protocol) server over stdio.\nExposes tools: pslang_parse, pslang_filter, pslang_transform, pslang_audiences.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	policyPath := firstNonEmpty(mcpPolicy, env.PolicyPath)

	// stdout carries the protocol; logs go to stderr.
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	rcfg, err := redact.LoadConfig("")
	if err != nil {
		return err
	}

	var st store.Store
	if !mcpNoStore {
		if st, err = openStore(); err != nil {
			return err
		}
		defer st.Close()
	}

	srv, err := pslmcp.New(pslmcp.Config{
		PolicyPath:   policyPath,
		AuditLogPath: firstNonEmpty(mcpAuditLog, env.AuditLog),
		MaxBytes:     env.MaxBytes,
		Redact:       rcfg,
		Store:        st,
		Logger:       log,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if reloader, err := server.NewReloader(srv, []string{policyPath}, log); err != nil {
		log.Warn("hot-reload disabled", zap.Error(err))
	} else {
		g.Go(func() error { return reloader.Run(gctx) })
	}

	fmt.Fprintln(os.Stderr, "pslang MCP server running on stdio")
	g.Go(func() error {
		// The client closing stdin ends the session; stop the reloader too.
		defer stop()
		return srv.Run(gctx)
	})
	return g.Wait()
}
