package audit

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/ppiankov/pslang/internal/model"
)

// Op names the engine operation an entry records.
type Op string

const (
	OpParse     Op = "parse"
	OpFilter    Op = "filter"
	OpTransform Op = "transform"
)

// AuditEntry is one line in the hash-chained JSONL audit log.
// It records what a projection removed, never document content: the
// document is identified by its SHA-256 only.
// All fields are scalars to guarantee deterministic json.Marshal field
// order for reproducible hashing.
type AuditEntry struct {
	Timestamp             string `json:"ts"`
	RequestID             string `json:"request_id"`
	Op                    Op     `json:"op"`
	Source                string `json:"source,omitempty"`
	Audience              string `json:"audience,omitempty"`
	DocSHA256             string `json:"doc_sha256"`
	TotalZones            int    `json:"total_zones"`
	FilteredCount         int    `json:"filtered_count"`
	TokensRemovedEstimate int    `json:"tokens_removed_estimate"`
	Overlapping           int    `json:"overlapping,omitempty"`
	Scrubbed              int    `json:"scrubbed,omitempty"`
	Turns                 int    `json:"turns,omitempty"`
	PolicyHash            string `json:"policy_hash,omitempty"`
	PrevHash              string `json:"prev_hash"`
}

// NewRequestID returns a fresh request identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// DocHash returns "sha256:<hex>" of a document.
func DocHash(doc string) string {
	return HashLine([]byte(doc))
}

// FilterEntry builds the entry for a projection of res for audience.
func FilterEntry(requestID, audience string, res model.FilterResult) AuditEntry {
	return AuditEntry{
		RequestID:             requestID,
		Op:                    OpFilter,
		Audience:              audience,
		DocSHA256:             DocHash(res.Original),
		TotalZones:            res.Stats.TotalZones,
		FilteredCount:         res.Stats.FilteredCount,
		TokensRemovedEstimate: res.Stats.TokensRemovedEstimate,
		Overlapping:           res.Stats.Overlapping,
	}
}

// TransformEntry builds the entry for a transform of turns into res.
// The document hash covers the emitted annotated document.
func TransformEntry(requestID string, turns []model.Turn, res model.TransformResult) AuditEntry {
	return AuditEntry{
		RequestID:  requestID,
		Op:         OpTransform,
		DocSHA256:  DocHash(res.PSLPrompt),
		TotalZones: len(res.Zones),
		Turns:      len(turns),
	}
}

// ParseEntry builds the entry for a parse of doc.
func ParseEntry(requestID, doc string, zones []model.Zone) AuditEntry {
	return AuditEntry{
		RequestID:  requestID,
		Op:         OpParse,
		DocSHA256:  DocHash(doc),
		TotalZones: len(zones),
	}
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
