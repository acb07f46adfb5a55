// Package store persists annotated documents together with the tags and
// signals a transform produced. Zones are never stored: callers re-parse
// the raw document, so a stored document is always projected with the
// current parser and policy.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/pslang/internal/model"
)

// ErrNotFound is returned when no document has the requested ID.
var ErrNotFound = errors.New("document not found")

// Document is a stored annotated document.
type Document struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name,omitempty"`
	Content   string                  `json:"content"`
	SHA256    string                  `json:"sha256"`
	Tags      []string                `json:"tags"`
	Signals   *model.EstimatedSignals `json:"signals,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// Summary is a Document without its content, for listings.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	SHA256    string    `json:"sha256"`
	Size      int       `json:"size"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a document repository.
type Store interface {
	// Put stores doc. ID, SHA256 and CreatedAt are assigned when empty.
	Put(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
	// List returns summaries, newest first.
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// prepare fills the server-assigned fields of doc.
func prepare(doc Document, now time.Time) Document {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.SHA256 = hashContent(doc.Content)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now.UTC()
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	return doc
}

func hashContent(s string) string {
	h := sha256.Sum256([]byte(s))
	return "sha256:" + hex.EncodeToString(h[:])
}

func summarize(d Document) Summary {
	return Summary{
		ID:        d.ID,
		Name:      d.Name,
		SHA256:    d.SHA256,
		Size:      len(d.Content),
		Tags:      d.Tags,
		CreatedAt: d.CreatedAt,
	}
}
