// Package daemon implements the inbox/outbox projection service.
// Jobs arrive as JSON files in the inbox directory, are processed by a fixed
// worker pool, and results are written atomically to the outbox directory.
package daemon

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/pslang/internal/model"
	"github.com/ppiankov/pslang/internal/projector"
)

// Job kinds the daemon can process.
const (
	JobKindFilter    = "filter"
	JobKindTransform = "transform"
)

// validJobKinds is the set of accepted job kind values.
var validJobKinds = map[string]bool{
	JobKindFilter:    true,
	JobKindTransform: true,
}

// validID matches alphanumeric characters, dashes, and underscores only.
var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Job is a unit of work dropped into the inbox.
type Job struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	// Filter jobs: Document or DocumentID, and an optional Audience.
	Audience   string `json:"audience,omitempty"`
	Document   string `json:"document,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Scrub      bool   `json:"scrub,omitempty"`
	// Transform jobs.
	Turns     []model.Turn `json:"turns,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// Result is written to the outbox after processing a job.
type Result struct {
	ID        string `json:"id"`
	Kind      string `json:"kind,omitempty"`
	Status    string `json:"status"`
	RequestID string `json:"request_id,omitempty"`

	Audience string               `json:"audience,omitempty"`
	Filtered string               `json:"filtered,omitempty"`
	Zones    []projector.ZoneSpan `json:"zones,omitempty"`
	Stats    *model.FilterStats   `json:"stats,omitempty"`
	Scrubbed int                  `json:"scrubbed,omitempty"`
	// TokenMapRef points at the token map needed to restore scrubbed values.
	TokenMapRef string `json:"token_map_ref,omitempty"`

	Transform *model.TransformResult `json:"transform,omitempty"`

	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Result status values.
const (
	ResultDone   = "done"
	ResultFailed = "failed"
)

// ValidateJob checks that a job has all required fields and safe values.
func ValidateJob(j *Job) error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if strings.Contains(j.ID, "..") {
		return fmt.Errorf("job ID must not contain '..'")
	}
	if !validID.MatchString(j.ID) {
		return fmt.Errorf("job ID contains invalid characters: only alphanumeric, dash, and underscore allowed")
	}
	if j.Kind == "" {
		return fmt.Errorf("job kind is required")
	}
	if !validJobKinds[j.Kind] {
		return fmt.Errorf("invalid job kind %q: must be one of: filter, transform", j.Kind)
	}
	switch j.Kind {
	case JobKindFilter:
		if j.Document != "" && j.DocumentID != "" {
			return fmt.Errorf("filter job takes document or document_id, not both")
		}
		if len(j.Turns) > 0 {
			return fmt.Errorf("filter job must not carry turns")
		}
	case JobKindTransform:
		if len(j.Turns) == 0 {
			return fmt.Errorf("transform job requires turns")
		}
		if j.Document != "" || j.DocumentID != "" {
			return fmt.Errorf("transform job must not carry a document")
		}
	}
	return nil
}
