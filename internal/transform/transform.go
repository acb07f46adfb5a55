// Package transform turns a conversation transcript into a zone-annotated
// document plus categorical tags and estimated signals.
//
// Everything here is keyword and length heuristics. Sparse or ambiguous
// input yields default buckets, never an error.
package transform

import (
	"strings"

	"github.com/ppiankov/pslang/internal/model"
)

// Transform derives an annotated document, tags and signals from turns.
// An empty conversation yields an empty prompt, no tags, no zones and nil
// signals.
func Transform(turns []model.Turn) model.TransformResult {
	result := model.TransformResult{
		Tags:  []string{},
		Zones: []model.ZoneType{},
	}
	if len(turns) == 0 {
		return result
	}

	users := userTurns(turns)
	tech := TechStack(users)

	result.Tags = Tags(turns, tech)
	result.PSLPrompt, result.Zones = assemble(users, tech)
	signals := Signals(turns)
	result.Signals = &signals
	return result
}

// Tags returns the intent, tech-stack and complexity tags, in that order.
// tech is the keyword list from TechStack; an empty list emits no tech tag.
func Tags(turns []model.Turn, tech []string) []string {
	tags := []string{"intent:" + Intent(turns)}
	if len(tech) > 0 {
		tags = append(tags, "tech_stack:"+strings.Join(tech, ","))
	}
	return append(tags, "complexity:"+Complexity(turns))
}

// Intent classifies the first user turn against IntentRules.
func Intent(turns []model.Turn) string {
	first, ok := firstUserTurn(turns)
	if !ok {
		return DefaultIntent
	}
	lower := strings.ToLower(first.Content)
	for _, rule := range IntentRules {
		if containsAny(lower, rule.Keywords) {
			return rule.Intent
		}
	}
	return DefaultIntent
}

// TechStack returns the TechKeywords found in the given turns, deduplicated,
// in order of first appearance.
func TechStack(turns []model.Turn) []string {
	seen := make(map[string]bool)
	var found []string
	for _, t := range turns {
		for _, kw := range keywordsByPosition(strings.ToLower(t.Content), TechKeywords) {
			if !seen[kw] {
				seen[kw] = true
				found = append(found, kw)
			}
		}
	}
	return found
}

// Complexity buckets the mean character length of all turns.
func Complexity(turns []model.Turn) string {
	if len(turns) == 0 {
		return "low"
	}
	total := 0
	for _, t := range turns {
		total += charCount(t.Content)
	}
	mean := float64(total) / float64(len(turns))
	switch {
	case mean > 500:
		return "high"
	case mean > 200:
		return "medium"
	default:
		return "low"
	}
}

// HasBenchmarkIntent reports whether any of turns mentions a
// BenchmarkKeywords entry.
func HasBenchmarkIntent(turns []model.Turn) bool {
	for _, t := range turns {
		if containsAny(strings.ToLower(t.Content), BenchmarkKeywords) {
			return true
		}
	}
	return false
}
