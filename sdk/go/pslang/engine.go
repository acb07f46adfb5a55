package pslang

import (
	"github.com/ppiankov/pslang/internal/transform"
	"github.com/ppiankov/pslang/internal/zone"
)

// Parse returns every zone in document, ordered by start offset.
func Parse(document string) []Zone {
	return zone.Parse(document)
}

// Filter projects document under p. Callers handling untrusted input should
// cap its size first; Projector does.
func Filter(document string, p Policy) FilterResult {
	return zone.Filter(document, p)
}

// DefaultPolicy keeps every zone type that a policy can keep.
func DefaultPolicy() Policy {
	return zone.DefaultPolicy()
}

// Transform builds an annotated prompt, tags and estimated signals from a
// conversation.
func Transform(turns []Turn) TransformResult {
	return transform.Transform(turns)
}
