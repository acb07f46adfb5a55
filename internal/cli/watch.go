package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/pslang/internal/audit"
	"github.com/ppiankov/pslang/internal/daemon"
	"github.com/ppiankov/pslang/internal/metrics"
	"github.com/ppiankov/pslang/internal/projector"
	"github.com/ppiankov/pslang/internal/redact"
	"github.com/ppiankov/pslang/internal/server"
	"github.com/ppiankov/pslang/internal/store"
)

var (
	watchRoot     string
	watchPoll     bool
	watchInterval time.Duration
	watchAuditLog string
	watchNoStore  bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchRoot, "root", "", "Directory holding inbox/, outbox/ and state/ (default $PSLANG_INBOX)")
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "Poll the inbox instead of using file notifications")
	watchCmd.Flags().DurationVar(&watchInterval, "poll-interval", 5*time.Second, "Polling interval with --poll")
	watchCmd.Flags().StringVar(&watchAuditLog, "audit-log", "", "Path to audit log JSONL file (default $PSLANG_AUDIT_LOG)")
	watchCmd.Flags().BoolVar(&watchNoStore, "no-store", false, "Run without the document store")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process projection jobs dropped into an inbox directory",
	Long: `Watches <root>/inbox for job files and writes results to <root>/outbox.

  {"id": "job-1", "kind": "filter", "audience": "publisher", "document": "..."}
  {"id": "job-2", "kind": "transform", "turns": [{"role": "user", "content": "..."}]}

Write jobs atomically (write *.tmp, then rename). Token maps of scrubbed
projections are kept under <root>/state/tokens.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	dirs := daemon.DirsUnder(firstNonEmpty(watchRoot, env.InboxRoot))

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
	if !watchNoStore {
		if st, err = openStore(); err != nil {
			return err
		}
		defer st.Close()
	}

	auditLog, err := audit.Open(firstNonEmpty(watchAuditLog, env.AuditLog))
	if err != nil {
		return err
	}
	defer auditLog.Close()

	proj, err := projector.New(projector.Config{
		Surface:    metrics.SurfaceDaemon,
		PolicyPath: env.PolicyPath,
		MaxBytes:   env.MaxBytes,
		Redact:     rcfg,
		Audit:      auditLog,
		Logger:     log,
		Store:      st,
	})
	if err != nil {
		return err
	}

	d, err := daemon.New(daemon.Config{
		Dirs:         dirs,
		Projector:    proj,
		PollMode:     watchPoll,
		PollInterval: watchInterval,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if reloader, err := server.NewReloader(proj, []string{env.PolicyPath}, log); err != nil {
		log.Warn("hot-reload disabled", zap.Error(err))
	} else {
		g.Go(func() error { return reloader.Run(gctx) })
	}

	g.Go(func() error {
		if err := d.Run(gctx); err != nil {
			return fmt.Errorf("daemon: %w", err)
		}
		return nil
	})
	return g.Wait()
}
