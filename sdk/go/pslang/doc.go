// Package pslang is the Go API for zone-annotated documents. It parses zones,
// projects documents for an audience, and turns conversations into annotated
// prompts.
//
// Usage:
//
//	zones := pslang.Parse(doc)
//	res := pslang.Filter(doc, pslang.DefaultPolicy())
//
//	p, err := pslang.New(pslang.WithPolicy("policy.yaml"))
//	out, err := p.FilterFor(ctx, "publisher", doc)
//
// Private, question and benchmark zones are removed from every projection;
// no policy can keep them.
//
// The SDK links directly against internal packages. External users import
// github.com/ppiankov/pslang/sdk/go/pslang.
package pslang
