package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/pslang/internal/metrics"
	"github.com/ppiankov/pslang/internal/ratelimit"
	"github.com/ppiankov/pslang/internal/redact"
	"github.com/ppiankov/pslang/internal/server"
	"github.com/ppiankov/pslang/internal/store"
)

var (
	serveAddr        string
	serveMetricsAddr string
	servePolicy      string
	serveAuditLog    string
	serveNoStore     bool
	serveRateLimit   int
	serveRateWindow  time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "gRPC listen address (default $PSLANG_GRPC_ADDR or 127.0.0.1:50061)")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Prometheus listen address; \"off\" disables (default $PSLANG_METRICS_ADDR)")
	serveCmd.Flags().StringVar(&servePolicy, "policy", "", "Path to policy YAML (default $PSLANG_POLICY)")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Path to audit log JSONL file (default $PSLANG_AUDIT_LOG)")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "Serve without the document store")
	serveCmd.Flags().IntVar(&serveRateLimit, "rate-limit", 0, "Max requests per caller per window (0 disables)")
	serveCmd.Flags().DurationVar(&serveRateWindow, "rate-window", time.Minute, "Rate limit window")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC projection server",
	Long: `Runs pslang as a projection server over gRPC. Agents send documents and get
back projections; private zones never cross the wire in a response.
Hot-reloads the policy file and exposes Prometheus metrics.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := firstNonEmpty(serveAddr, env.GRPCAddr)
	metricsAddr := firstNonEmpty(serveMetricsAddr, env.MetricsAddr)
	policyPath := firstNonEmpty(servePolicy, env.PolicyPath)

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
	if !serveNoStore {
		if st, err = openStore(); err != nil {
			return err
		}
		defer st.Close()
	}

	m := metrics.New()
	srv, err := server.New(server.Config{
		Addr:         addr,
		PolicyPath:   policyPath,
		AuditLogPath: firstNonEmpty(serveAuditLog, env.AuditLog),
		MaxBytes:     env.MaxBytes,
		Redact:       rcfg,
		Store:        st,
		Metrics:      m,
		Logger:       log,
		RateLimit:    ratelimit.Limit{MaxRequests: serveRateLimit, Window: serveRateWindow},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	reloader, err := server.NewReloader(srv, []string{policyPath}, log)
	if err != nil {
		log.Warn("hot-reload disabled", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Serve)

	var httpSrv *http.Server
	if metricsAddr != "off" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		httpSrv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info("metrics listening", zap.String("addr", metricsAddr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if reloader != nil {
		g.Go(func() error { return reloader.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down projection server")
		srv.GracefulStop()
		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	fmt.Fprintf(os.Stderr, "pslang projection server listening on %s\n", addr)
	fmt.Fprintf(os.Stderr, "Policy: %s (hot-reload enabled)\n", policyPath)
	return g.Wait()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
