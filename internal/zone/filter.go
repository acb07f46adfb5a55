package zone

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/pslang/internal/model"
)

// Policy selects which optional zone types survive a projection.
// Private, question and benchmark zones are removed regardless of policy.
type Policy struct {
	KeepPassThrough bool `yaml:"keep_pass_through" json:"keep_pass_through"`
	KeepPublic      bool `yaml:"keep_public" json:"keep_public"`
	KeepAction      bool `yaml:"keep_action" json:"keep_action"`
}

// DefaultPolicy keeps every zone type a policy is allowed to keep.
func DefaultPolicy() Policy {
	return Policy{KeepPassThrough: true, KeepPublic: true, KeepAction: true}
}

// Keeps reports whether zones of type t survive under p.
func (p Policy) Keeps(t model.ZoneType) bool {
	switch t {
	case model.ZonePassThrough:
		return p.KeepPassThrough
	case model.ZonePublic:
		return p.KeepPublic
	case model.ZoneAction:
		return p.KeepAction
	default:
		return false
	}
}

// EstimateTokens approximates the token count of n bytes as ceil(n/4).
// It is a length proxy only.
func EstimateTokens(n int) int {
	return (n + 3) / 4
}

// span is a half-open byte range [Start, End) of the original document.
type span struct {
	Start int
	End   int
}

// Filter projects document for an audience. Kept zones lose their
// delimiters and surrounding whitespace but keep their content; dropped
// zones disappear entirely. The result is trimmed.
//
// Zones are visited back-to-front and every edit is expressed as a cut in
// original offsets, so no edit invalidates another. For well-formed documents
// this is the same as splicing each zone in turn. Where malformed input yields
// overlapping zones, a byte inside any dropped zone is removed even if a kept
// zone also covers it.
func Filter(document string, p Policy) model.FilterResult {
	zones := Parse(document)
	result := model.FilterResult{
		Original: document,
		Zones:    zones,
	}
	result.Stats.TotalZones = len(zones)
	result.Stats.Overlapping = countOverlapping(zones)

	cuts := make([]span, 0, 2*len(zones))
	for i := len(zones) - 1; i >= 0; i-- {
		z := zones[i]
		if z.Type == model.ZonePassThrough {
			result.Stats.PassThroughCount++
		}
		if p.Keeps(z.Type) {
			cuts = append(cuts, unwrapCuts(z)...)
			continue
		}
		cuts = append(cuts, span{Start: z.Start, End: z.End})
		result.Stats.FilteredCount++
		result.Stats.TokensRemovedEstimate += EstimateTokens(len(z.Raw))
	}

	result.Filtered = strings.TrimSpace(applyCuts(document, cuts))
	return result
}

// unwrapCuts returns the cuts that strip a kept zone down to its trimmed
// inner text.
func unwrapCuts(z model.Zone) []span {
	d := model.Delimiters[z.Type]
	innerStart := z.Start + len(d.Open)
	innerEnd := z.End - len(d.Close)
	inner := z.Raw[len(d.Open) : len(z.Raw)-len(d.Close)]

	left := strings.TrimLeftFunc(inner, unicode.IsSpace)
	if left == "" {
		return []span{{Start: z.Start, End: z.End}}
	}
	lead := len(inner) - len(left)
	trail := len(left) - len(strings.TrimRightFunc(left, unicode.IsSpace))

	return []span{
		{Start: z.Start, End: innerStart + lead},
		{Start: innerEnd - trail, End: z.End},
	}
}

// applyCuts removes the union of cuts from s.
func applyCuts(s string, cuts []span) string {
	if len(cuts) == 0 {
		return s
	}
	sort.Slice(cuts, func(i, j int) bool {
		return cuts[i].Start < cuts[j].Start
	})

	var b strings.Builder
	b.Grow(len(s))
	pos := 0
	for _, c := range cuts {
		if c.Start > pos {
			b.WriteString(s[pos:c.Start])
		}
		if c.End > pos {
			pos = c.End
		}
	}
	b.WriteString(s[pos:])
	return b.String()
}

// countOverlapping returns how many zones intersect at least one other zone.
func countOverlapping(zones []model.Zone) int {
	involved := make(map[int]bool)
	for i := range zones {
		for j := i + 1; j < len(zones); j++ {
			if zones[j].Start >= zones[i].End {
				break
			}
			involved[i] = true
			involved[j] = true
		}
	}
	return len(involved)
}
