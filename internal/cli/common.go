package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ppiankov/pslang/internal/ingest"
	"github.com/ppiankov/pslang/internal/logging"
	"github.com/ppiankov/pslang/internal/metrics"
	"github.com/ppiankov/pslang/internal/projector"
	"github.com/ppiankov/pslang/internal/redact"
	"github.com/ppiankov/pslang/internal/store"
)

// inputPath returns the single optional file argument, "-" meaning stdin.
func inputPath(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

// readInput reads the document named by args under the configured size cap.
func readInput(args []string) (string, error) {
	return ingest.ReadDocumentFile(inputPath(args), env.MaxBytes)
}

func newLogger() (*zap.Logger, error) {
	return logging.New(verbose)
}

func openStore() (store.Store, error) {
	st, err := store.OpenSQLite(env.StorePath)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// localProjector builds a projector for one-shot commands. A store is
// attached only when the command needs one; the caller closes it.
func localProjector(withStore bool) (*projector.Projector, store.Store, error) {
	rcfg, err := redact.LoadConfig("")
	if err != nil {
		return nil, nil, err
	}
	cfg := projector.Config{
		Surface:    metrics.SurfaceCLI,
		PolicyPath: env.PolicyPath,
		MaxBytes:   env.MaxBytes,
		Redact:     rcfg,
	}
	var st store.Store
	if withStore {
		if st, err = openStore(); err != nil {
			return nil, nil, err
		}
		cfg.Store = st
	}
	p, err := projector.New(cfg)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, nil, err
	}
	return p, st, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
