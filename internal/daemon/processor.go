package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/pslang/internal/ingest"
	"github.com/ppiankov/pslang/internal/logging"
	"github.com/ppiankov/pslang/internal/projector"
)

// jobEnvelope bounds job file size beyond the document cap: JSON escaping can
// double the payload, plus room for the other fields.
const jobEnvelope = 64 * 1024

// ProcessorConfig holds runtime configuration for job processing.
type ProcessorConfig struct {
	Dirs      DirConfig
	Projector *projector.Projector
	Logger    *zap.Logger
}

// Processor handles job lifecycle transitions.
type Processor struct {
	cfg ProcessorConfig
	log *zap.Logger
}

// NewProcessor creates a processor with the given configuration.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{cfg: cfg, log: logging.OrNop(cfg.Logger)}
}

// Process handles a single job file through its full lifecycle:
// read → validate → move to processing → execute → write result to outbox.
// Jobs that fail to parse, validate or execute produce a failed result; an
// error return means no result could be written.
func (p *Processor) Process(ctx context.Context, jobPath string) error {
	// Reject symlinks before reading so an inbox entry cannot point the
	// daemon at an arbitrary file.
	fi, err := os.Lstat(jobPath)
	if err != nil {
		return fmt.Errorf("stat job file: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		_ = os.Remove(jobPath)
		return fmt.Errorf("rejected symlink: %s", filepath.Base(jobPath))
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("rejected non-regular file: %s", filepath.Base(jobPath))
	}

	data, err := readLimited(jobPath, int64(2*p.cfg.Projector.MaxBytes()+jobEnvelope))
	if err != nil {
		_ = os.Remove(jobPath)
		return p.writeFailedResult(jobID(jobPath), err.Error())
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		_ = os.Remove(jobPath)
		return p.writeFailedResult(jobID(jobPath), fmt.Sprintf("invalid JSON: %v", err))
	}

	if err := ValidateJob(&job); err != nil {
		_ = os.Remove(jobPath)
		id := job.ID
		if !validID.MatchString(id) {
			id = jobID(jobPath)
		}
		return p.writeFailedResult(id, fmt.Sprintf("validation failed: %v", err))
	}

	// Move to processing state. Uses moveFile to handle systemd bind mounts (EXDEV).
	processingPath := filepath.Join(p.cfg.Dirs.ProcessingDir(), job.ID+".json")
	if err := moveFile(jobPath, processingPath); err != nil {
		return fmt.Errorf("move to processing: %w", err)
	}

	result, err := p.execute(ctx, &job)
	if err != nil {
		result = &Result{
			ID:          job.ID,
			Kind:        job.Kind,
			Status:      ResultFailed,
			Error:       err.Error(),
			CompletedAt: time.Now().UTC(),
		}
	}

	if err := p.writeResult(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	p.log.Info("job processed",
		zap.String("job", job.ID),
		zap.String("kind", job.Kind),
		zap.String("status", result.Status),
		zap.String("request_id", result.RequestID))

	// Processed jobs are not archived: they carry unfiltered documents.
	_ = os.Remove(processingPath)
	return nil
}

// execute dispatches the job to the appropriate handler.
func (p *Processor) execute(ctx context.Context, job *Job) (*Result, error) {
	switch job.Kind {
	case JobKindFilter:
		return p.runFilter(ctx, job)
	case JobKindTransform:
		return p.runTransform(ctx, job)
	default:
		return nil, fmt.Errorf("unsupported job kind: %s", job.Kind)
	}
}

func (p *Processor) runFilter(ctx context.Context, job *Job) (*Result, error) {
	out, err := p.cfg.Projector.Filter(ctx, projector.FilterRequest{
		Document:   job.Document,
		DocumentID: job.DocumentID,
		Audience:   job.Audience,
		Scrub:      job.Scrub,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		ID:          job.ID,
		Kind:        job.Kind,
		Status:      ResultDone,
		RequestID:   out.RequestID,
		Audience:    out.Audience,
		Filtered:    out.Filtered,
		Zones:       out.Zones,
		Stats:       &out.Stats,
		Scrubbed:    out.Scrubbed,
		CompletedAt: time.Now().UTC(),
	}

	// Persist the token map so agent replies can be restored later.
	if out.Tokens != nil {
		tmPath := filepath.Join(p.cfg.Dirs.TokensDir(), fmt.Sprintf("tokens-%s.json", job.ID))
		if err := ingest.WriteJSON(tmPath, out.Tokens); err != nil {
			return nil, fmt.Errorf("write token map: %w", err)
		}
		result.TokenMapRef = tmPath
	}
	return result, nil
}

func (p *Processor) runTransform(ctx context.Context, job *Job) (*Result, error) {
	out, err := p.cfg.Projector.Transform(ctx, job.Turns)
	if err != nil {
		return nil, err
	}
	return &Result{
		ID:          job.ID,
		Kind:        job.Kind,
		Status:      ResultDone,
		RequestID:   out.RequestID,
		Transform:   &out.Result,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// writeResult writes a result to the outbox directory atomically.
func (p *Processor) writeResult(r *Result) error {
	return ingest.WriteJSON(filepath.Join(p.cfg.Dirs.Outbox, r.ID+".json"), r)
}

// writeFailedResult writes a minimal failed result when the job can't be parsed.
func (p *Processor) writeFailedResult(id string, errMsg string) error {
	if id == "" {
		id = fmt.Sprintf("unknown-%d", time.Now().UnixNano())
	}
	p.log.Warn("job failed", zap.String("job", id), zap.String("error", errMsg))
	r := &Result{
		ID:          id,
		Status:      ResultFailed,
		Error:       errMsg,
		CompletedAt: time.Now().UTC(),
	}
	return p.writeResult(r)
}

// jobID derives an ID from the job file name, or "" when the name is unsafe.
func jobID(path string) string {
	id := filepath.Base(path)
	id = id[:len(id)-len(filepath.Ext(id))]
	if !validID.MatchString(id) {
		return ""
	}
	return id
}

func readLimited(path string, max int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("job file exceeds %d bytes: %w", max, ingest.ErrTooLarge)
	}
	return data, nil
}
