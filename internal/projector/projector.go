// Package projector runs the zone engine on behalf of long-running surfaces.
// It owns the loaded visibility policy, validates input before it reaches the
// engine, scrubs projections on request, and records audit entries and
// metrics for every operation.
package projector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/pslang/internal/audit"
	"github.com/ppiankov/pslang/internal/config"
	"github.com/ppiankov/pslang/internal/ingest"
	"github.com/ppiankov/pslang/internal/logging"
	"github.com/ppiankov/pslang/internal/metrics"
	"github.com/ppiankov/pslang/internal/model"
	"github.com/ppiankov/pslang/internal/policy"
	"github.com/ppiankov/pslang/internal/profile"
	"github.com/ppiankov/pslang/internal/redact"
	"github.com/ppiankov/pslang/internal/store"
	"github.com/ppiankov/pslang/internal/transform"
	"github.com/ppiankov/pslang/internal/zone"
)

// ErrNoStore is returned when a stored document is requested but no store
// is configured.
var ErrNoStore = errors.New("no document store configured")

// ErrInvalidTurn is returned for a conversation turn with an unknown role.
var ErrInvalidTurn = errors.New("invalid conversation turn")

// Config holds projector configuration. Zero values are usable: defaults
// policy, no audit, no metrics, no store.
type Config struct {
	// Surface labels metrics and audit entries (grpc, mcp, daemon, cli).
	Surface    string
	PolicyPath string
	// MaxBytes caps every document and transcript. Zero selects
	// config.DefaultMaxBytes.
	MaxBytes int
	Redact   *redact.Config
	Audit    audit.Recorder
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Store    store.Store
}

// Projector is safe for concurrent use.
type Projector struct {
	mu         sync.RWMutex
	policyCfg  *policy.PolicyConfig
	policyHash string

	surface    string
	policyPath string
	maxBytes   int
	redactCfg  *redact.Config
	extra      []redact.ExtraPattern
	audit      audit.Recorder
	metrics    *metrics.Metrics
	log        *zap.Logger
	store      store.Store
}

// New loads the policy at cfg.PolicyPath and returns a ready projector.
func New(cfg Config) (*Projector, error) {
	policyCfg, policyHash, err := policy.LoadConfigWithHash(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy config: %w", err)
	}

	extra, err := redact.CompilePatterns(cfg.Redact)
	if err != nil {
		return nil, fmt.Errorf("failed to compile redact patterns: %w", err)
	}

	p := &Projector{
		policyCfg:  policyCfg,
		policyHash: policyHash,
		surface:    cfg.Surface,
		policyPath: cfg.PolicyPath,
		maxBytes:   cfg.MaxBytes,
		redactCfg:  cfg.Redact,
		extra:      extra,
		audit:      cfg.Audit,
		metrics:    cfg.Metrics,
		log:        logging.OrNop(cfg.Logger),
		store:      cfg.Store,
	}
	if p.surface == "" {
		p.surface = metrics.SurfaceCLI
	}
	if p.maxBytes <= 0 {
		p.maxBytes = config.DefaultMaxBytes
	}
	if p.audit == nil {
		p.audit = audit.Discard
	}
	return p, nil
}

// ReloadPolicy re-reads the policy file and swaps it in atomically. On error
// the previous policy stays active.
func (p *Projector) ReloadPolicy() error {
	cfg, hash, err := policy.LoadConfigWithHash(p.policyPath)
	p.metrics.ObserveReload(err)
	if err != nil {
		return err
	}

	p.mu.Lock()
	changed := hash != p.policyHash
	p.policyCfg = cfg
	p.policyHash = hash
	p.mu.Unlock()

	p.log.Info("policy reloaded", zap.String("policy_hash", hash), zap.Bool("changed", changed))
	return nil
}

// PolicyHash returns the hash of the active policy file.
func (p *Projector) PolicyHash() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.policyHash
}

// MaxBytes returns the active input cap.
func (p *Projector) MaxBytes() int { return p.maxBytes }

func (p *Projector) snapshot() (*policy.PolicyConfig, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.policyCfg, p.policyHash
}

// ParseResult is the outcome of a Parse call.
type ParseResult struct {
	RequestID string       `json:"request_id"`
	Zones     []model.Zone `json:"zones"`
	// OverlapPairs counts pairs of zones whose spans intersect.
	OverlapPairs int `json:"overlap_pairs,omitempty"`
}

// Parse validates document and returns its zones.
func (p *Projector) Parse(ctx context.Context, document string) (_ *ParseResult, err error) {
	start := time.Now()
	defer func() { p.metrics.ObserveRequest(p.surface, string(audit.OpParse), start, err != nil) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ingest.CheckText(document, p.maxBytes); err != nil {
		return nil, err
	}

	reqID := audit.NewRequestID()
	zones := zone.Parse(document)
	p.metrics.ObserveParse(p.surface, zones)
	p.record(audit.ParseEntry(reqID, document, zones))

	return &ParseResult{RequestID: reqID, Zones: zones, OverlapPairs: len(zone.Overlaps(zones))}, nil
}

// FilterRequest selects a document and an audience. DocumentID, when set,
// loads the document from the store instead of Document.
type FilterRequest struct {
	Document   string `json:"document,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Audience   string `json:"audience,omitempty"`
	// Scrub forces redaction even when the audience does not ask for it.
	Scrub bool `json:"scrub,omitempty"`
}

// ZoneSpan locates a zone without exposing its content.
type ZoneSpan struct {
	Type  model.ZoneType `json:"type"`
	Start int            `json:"start"`
	End   int            `json:"end"`
	Kept  bool           `json:"kept"`
}

// Projection is what an audience receives. It never carries the original
// document or the content of removed zones.
type Projection struct {
	RequestID  string            `json:"request_id"`
	Audience   string            `json:"audience"`
	Source     profile.Source    `json:"source"`
	Filtered   string            `json:"filtered"`
	Zones      []ZoneSpan        `json:"zones"`
	Stats      model.FilterStats `json:"stats"`
	Scrubbed   int               `json:"scrubbed,omitempty"`
	PolicyHash string            `json:"policy_hash"`
	// Tokens maps scrub tokens back to values. Nil when nothing was scrubbed.
	Tokens *redact.TokenMap `json:"-"`
}

// Filter projects a document for an audience.
func (p *Projector) Filter(ctx context.Context, req FilterRequest) (_ *Projection, err error) {
	start := time.Now()
	defer func() { p.metrics.ObserveRequest(p.surface, string(audit.OpFilter), start, err != nil) }()

	document, err := p.document(ctx, req)
	if err != nil {
		return nil, err
	}

	cfg, hash := p.snapshot()
	aud, err := profile.Resolve(req.Audience, cfg)
	if err != nil {
		return nil, err
	}

	reqID := audit.NewRequestID()
	res := zone.Filter(document, aud.Policy)

	out := &Projection{
		RequestID:  reqID,
		Audience:   aud.Name,
		Source:     aud.Source,
		Filtered:   res.Filtered,
		Zones:      spans(res.Zones, aud.Policy),
		Stats:      res.Stats,
		PolicyHash: hash,
	}
	if req.Scrub || aud.Scrub || p.redactCfg.Always(aud.Name) {
		tm := redact.NewTokenMap(reqID)
		out.Filtered = redact.RedactWithConfig(res.Filtered, tm,
			p.redactCfg.ForAudience(aud.Name), redact.PatternsFor(p.extra, aud.Name))
		out.Scrubbed = tm.Len()
		if tm.Len() > 0 {
			out.Tokens = tm
		}
	}

	p.metrics.ObserveFilter(p.surface, aud.Name, res, aud.Policy.Keeps)
	entry := audit.FilterEntry(reqID, aud.Name, res)
	entry.Scrubbed = out.Scrubbed
	entry.PolicyHash = hash
	p.record(entry)

	if res.Stats.Overlapping > 0 {
		p.log.Warn("overlapping zones in document",
			zap.String("request_id", reqID),
			zap.Int("overlapping", res.Stats.Overlapping))
	}
	p.log.Debug("projected document",
		zap.String("request_id", reqID),
		zap.String("audience", aud.Name),
		zap.Int("filtered_count", res.Stats.FilteredCount),
		zap.Int("scrubbed", out.Scrubbed))
	return out, nil
}

func (p *Projector) document(ctx context.Context, req FilterRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	document := req.Document
	if req.DocumentID != "" {
		if p.store == nil {
			return "", ErrNoStore
		}
		doc, err := p.store.Get(ctx, req.DocumentID)
		if err != nil {
			return "", err
		}
		document = doc.Content
	}
	if err := ingest.CheckText(document, p.maxBytes); err != nil {
		return "", err
	}
	return document, nil
}

func spans(zones []model.Zone, pol zone.Policy) []ZoneSpan {
	out := make([]ZoneSpan, len(zones))
	for i, z := range zones {
		out[i] = ZoneSpan{Type: z.Type, Start: z.Start, End: z.End, Kept: pol.Keeps(z.Type)}
	}
	return out
}

// TransformResult pairs a transform with its request ID.
type TransformResult struct {
	RequestID string                `json:"request_id"`
	Result    model.TransformResult `json:"result"`
}

// Transform validates turns and converts them into an annotated document.
func (p *Projector) Transform(ctx context.Context, turns []model.Turn) (_ *TransformResult, err error) {
	start := time.Now()
	defer func() { p.metrics.ObserveRequest(p.surface, string(audit.OpTransform), start, err != nil) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.checkTurns(turns); err != nil {
		return nil, err
	}

	reqID := audit.NewRequestID()
	res := transform.Transform(turns)

	p.metrics.ObserveTransform(p.surface, res)
	entry := audit.TransformEntry(reqID, turns, res)
	_, entry.PolicyHash = p.snapshot()
	p.record(entry)

	p.log.Debug("transformed conversation",
		zap.String("request_id", reqID),
		zap.Int("turns", len(turns)),
		zap.Strings("tags", res.Tags))
	return &TransformResult{RequestID: reqID, Result: res}, nil
}

func (p *Projector) checkTurns(turns []model.Turn) error {
	total := 0
	for i, t := range turns {
		if _, err := model.ParseRole(string(t.Role)); err != nil {
			return fmt.Errorf("%w %d: %v", ErrInvalidTurn, i, err)
		}
		if err := ingest.CheckText(t.Content, p.maxBytes); err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}
		total += len(t.Content)
	}
	if total > p.maxBytes {
		return fmt.Errorf("conversation is %d bytes, limit %d: %w", total, p.maxBytes, ingest.ErrTooLarge)
	}
	return nil
}

// Audiences resolves every audience reachable through the active policy:
// built-in and user profiles plus config overrides, sorted by name.
// Profiles that fail to load are skipped and logged.
func (p *Projector) Audiences() []profile.Resolved {
	cfg, _ := p.snapshot()

	names := make(map[string]bool)
	for _, n := range profile.List() {
		names[n] = true
	}
	for _, n := range cfg.AudienceNames() {
		names[n] = true
	}

	out := make([]profile.Resolved, 0, len(names))
	for n := range names {
		r, err := profile.Resolve(n, cfg)
		if err != nil {
			p.log.Warn("skipping audience", zap.String("audience", n), zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DefaultAudience returns the audience used when a request names none.
func (p *Projector) DefaultAudience() string {
	cfg, _ := p.snapshot()
	if cfg.DefaultAudience != "" {
		return cfg.DefaultAudience
	}
	return policy.DefaultAudience
}

func (p *Projector) record(entry audit.AuditEntry) {
	entry.Source = p.surface
	if err := p.audit.Record(entry); err != nil {
		p.log.Error("audit write failed", zap.String("request_id", entry.RequestID), zap.Error(err))
	}
}
