package pslangv1

import (
	"github.com/ppiankov/pslang/internal/model"
	"github.com/ppiankov/pslang/internal/zone"
)

type ParseRequest struct {
	Document string `json:"document"`
}

type ParseResponse struct {
	RequestID    string       `json:"request_id"`
	Zones        []model.Zone `json:"zones"`
	OverlapPairs int          `json:"overlap_pairs,omitempty"`
}

// FilterRequest projects either Document or the stored document DocumentID.
// An empty Audience selects the server's default audience.
type FilterRequest struct {
	Document   string `json:"document,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Audience   string `json:"audience,omitempty"`
	Scrub      bool   `json:"scrub,omitempty"`
}

// ZoneSpan locates a zone in the original document without its content.
type ZoneSpan struct {
	Type  model.ZoneType `json:"type"`
	Start int            `json:"start"`
	End   int            `json:"end"`
	Kept  bool           `json:"kept"`
}

type FilterResponse struct {
	RequestID  string            `json:"request_id"`
	Audience   string            `json:"audience"`
	Source     string            `json:"source"`
	Filtered   string            `json:"filtered"`
	Zones      []ZoneSpan        `json:"zones"`
	Stats      model.FilterStats `json:"stats"`
	Scrubbed   int               `json:"scrubbed,omitempty"`
	PolicyHash string            `json:"policy_hash"`
}

type TransformRequest struct {
	Turns []model.Turn `json:"turns"`
}

type TransformResponse struct {
	RequestID string                `json:"request_id"`
	Result    model.TransformResult `json:"result"`
}

type ListAudiencesRequest struct{}

type Audience struct {
	Name       string      `json:"name"`
	Source     string      `json:"source"`
	Visibility zone.Policy `json:"visibility"`
	Scrub      bool        `json:"scrub"`
}

type ListAudiencesResponse struct {
	DefaultAudience string     `json:"default_audience"`
	Audiences       []Audience `json:"audiences"`
	PolicyHash      string     `json:"policy_hash"`
}
