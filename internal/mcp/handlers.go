package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/pslang/internal/model"
	"github.com/ppiankov/pslang/internal/projector"
	"github.com/ppiankov/pslang/internal/zone"
)

// --- Input/Output types ---

// ParseInput defines parameters for the pslang_parse tool.
type ParseInput struct {
	Document string `json:"document" jsonschema:"zone-annotated document"`
}

// ParseOutput lists the zones found.
type ParseOutput struct {
	RequestID    string       `json:"request_id,omitempty"`
	Zones        []model.Zone `json:"zones"`
	OverlapPairs int          `json:"overlap_pairs,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// FilterInput defines parameters for the pslang_filter tool.
type FilterInput struct {
	Document   string `json:"document,omitempty" jsonschema:"zone-annotated document"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"ID of a stored document, used instead of document"`
	Audience   string `json:"audience,omitempty" jsonschema:"audience name (agent, publisher, executor, handoff or a configured one); omit for the default"`
	Scrub      bool   `json:"scrub,omitempty" jsonschema:"replace credentials, emails, IPs and home paths with tokens"`
}

// FilterOutput is the projection.
type FilterOutput struct {
	RequestID string               `json:"request_id,omitempty"`
	Audience  string               `json:"audience,omitempty"`
	Filtered  string               `json:"filtered"`
	Zones     []projector.ZoneSpan `json:"zones"`
	Stats     model.FilterStats    `json:"stats"`
	Scrubbed  int                  `json:"scrubbed,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// TransformInput defines parameters for the pslang_transform tool.
type TransformInput struct {
	Turns []model.Turn `json:"turns" jsonschema:"conversation turns in order; role is user, assistant or system"`
}

// TransformOutput is the annotated document with tags and signals.
type TransformOutput struct {
	RequestID string                  `json:"request_id,omitempty"`
	PSLPrompt string                  `json:"psl_prompt"`
	Tags      []string                `json:"tags"`
	Zones     []model.ZoneType        `json:"zones"`
	Signals   *model.EstimatedSignals `json:"signals,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// AudiencesInput is empty.
type AudiencesInput struct{}

// AudienceItem describes one audience.
type AudienceItem struct {
	Name       string      `json:"name"`
	Source     string      `json:"source"`
	Visibility zone.Policy `json:"visibility"`
	Scrub      bool        `json:"scrub"`
}

// AudiencesOutput lists the audiences.
type AudiencesOutput struct {
	DefaultAudience string         `json:"default_audience"`
	Audiences       []AudienceItem `json:"audiences"`
}

// --- Handlers ---

func toolError(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
	}
}

func (s *Server) handleParse(ctx context.Context, req *mcpsdk.CallToolRequest, input ParseInput) (*mcpsdk.CallToolResult, ParseOutput, error) {
	res, err := s.proj.Parse(ctx, input.Document)
	if err != nil {
		return toolError(err), ParseOutput{Zones: []model.Zone{}, Error: err.Error()}, nil
	}
	zones := res.Zones
	if zones == nil {
		zones = []model.Zone{}
	}
	return nil, ParseOutput{
		RequestID:    res.RequestID,
		Zones:        zones,
		OverlapPairs: res.OverlapPairs,
	}, nil
}

func (s *Server) handleFilter(ctx context.Context, req *mcpsdk.CallToolRequest, input FilterInput) (*mcpsdk.CallToolResult, FilterOutput, error) {
	out, err := s.proj.Filter(ctx, projector.FilterRequest{
		Document:   input.Document,
		DocumentID: input.DocumentID,
		Audience:   input.Audience,
		Scrub:      input.Scrub,
	})
	if err != nil {
		return toolError(err), FilterOutput{Zones: []projector.ZoneSpan{}, Error: err.Error()}, nil
	}
	return nil, FilterOutput{
		RequestID: out.RequestID,
		Audience:  out.Audience,
		Filtered:  out.Filtered,
		Zones:     out.Zones,
		Stats:     out.Stats,
		Scrubbed:  out.Scrubbed,
	}, nil
}

func (s *Server) handleTransform(ctx context.Context, req *mcpsdk.CallToolRequest, input TransformInput) (*mcpsdk.CallToolResult, TransformOutput, error) {
	out, err := s.proj.Transform(ctx, input.Turns)
	if err != nil {
		return toolError(err), TransformOutput{Tags: []string{}, Zones: []model.ZoneType{}, Error: err.Error()}, nil
	}
	return nil, TransformOutput{
		RequestID: out.RequestID,
		PSLPrompt: out.Result.PSLPrompt,
		Tags:      out.Result.Tags,
		Zones:     out.Result.Zones,
		Signals:   out.Result.Signals,
	}, nil
}

func (s *Server) handleAudiences(ctx context.Context, req *mcpsdk.CallToolRequest, input AudiencesInput) (*mcpsdk.CallToolResult, AudiencesOutput, error) {
	resolved := s.proj.Audiences()
	items := make([]AudienceItem, len(resolved))
	for i, r := range resolved {
		items[i] = AudienceItem{
			Name:       r.Name,
			Source:     string(r.Source),
			Visibility: r.Policy,
			Scrub:      r.Scrub,
		}
	}
	return nil, AudiencesOutput{
		DefaultAudience: s.proj.DefaultAudience(),
		Audiences:       items,
	}, nil
}
