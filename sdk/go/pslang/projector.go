package pslang

import (
	"context"
	"fmt"

	"github.com/ppiankov/pslang/internal/metrics"
	"github.com/ppiankov/pslang/internal/projector"
)

// Projector projects documents for named audiences. Safe for concurrent use.
type Projector struct {
	p *projector.Projector
}

// New creates a Projector with the given options.
func New(opts ...Option) (*Projector, error) {
	var cfg projectorConfig
	for _, o := range opts {
		o(&cfg)
	}

	p, err := projector.New(projector.Config{
		Surface:    metrics.SurfaceSDK,
		PolicyPath: cfg.policyPath,
		MaxBytes:   cfg.maxBytes,
		Logger:     cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("pslang: %w", err)
	}
	return &Projector{p: p}, nil
}

// FilterFor projects document for audience. An empty audience selects the
// policy's default audience.
func (p *Projector) FilterFor(ctx context.Context, audience, document string) (*Projection, error) {
	return p.p.Filter(ctx, projector.FilterRequest{Document: document, Audience: audience})
}

// FilterScrubbed is FilterFor with credential scrubbing forced on. The
// returned Projection's Tokens restore scrubbed values.
func (p *Projector) FilterScrubbed(ctx context.Context, audience, document string) (*Projection, error) {
	return p.p.Filter(ctx, projector.FilterRequest{Document: document, Audience: audience, Scrub: true})
}

// Transform validates turns and transforms the conversation.
func (p *Projector) Transform(ctx context.Context, turns []Turn) (TransformResult, error) {
	out, err := p.p.Transform(ctx, turns)
	if err != nil {
		return TransformResult{}, err
	}
	return out.Result, nil
}

// Audiences lists every audience the policy and profiles define.
func (p *Projector) Audiences() []Audience {
	return p.p.Audiences()
}

// ReloadPolicy re-reads the policy file. On error the previous policy stays
// active.
func (p *Projector) ReloadPolicy() error {
	return p.p.ReloadPolicy()
}
