// Package zone recognizes zone-delimited spans in annotated documents and
// projects documents down to the zones an audience may see.
//
// Matching is pattern based: each zone type is scanned independently with a
// non-greedy, newline-spanning search. There is no nesting grammar. Malformed
// input can yield overlapping zones; Overlaps reports them, nothing fixes them.
package zone

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/pslang/internal/model"
)

// zonePattern pairs a zone type with its compiled delimiter pattern.
type zonePattern struct {
	Type model.ZoneType
	Re   *regexp.Regexp
}

// zonePatterns holds one compiled pattern per zone type, in scan order.
var zonePatterns = compilePatterns()

func compilePatterns() []zonePattern {
	patterns := make([]zonePattern, 0, len(model.ZoneTypes))
	for _, zt := range model.ZoneTypes {
		d := model.Delimiters[zt]
		expr := `(?s)` + regexp.QuoteMeta(d.Open) + `(.*?)` + regexp.QuoteMeta(d.Close)
		patterns = append(patterns, zonePattern{Type: zt, Re: regexp.MustCompile(expr)})
	}
	return patterns
}

// Parse returns every zone found in document, sorted by start offset.
// Unterminated delimiters are ordinary text. A document with no zones
// yields an empty (nil) slice. Parse never fails.
func Parse(document string) []model.Zone {
	if document == "" {
		return nil
	}

	var zones []model.Zone
	for _, p := range zonePatterns {
		for _, loc := range p.Re.FindAllStringSubmatchIndex(document, -1) {
			zones = append(zones, model.Zone{
				Type:  p.Type,
				Inner: strings.TrimSpace(document[loc[2]:loc[3]]),
				Start: loc[0],
				End:   loc[1],
				Raw:   document[loc[0]:loc[1]],
			})
		}
	}

	// Stable: zones of different types starting at the same offset keep
	// scan order, so output is deterministic.
	sort.SliceStable(zones, func(i, j int) bool {
		return zones[i].Start < zones[j].Start
	})
	return zones
}

// Overlaps returns every pair of zones whose spans intersect. Zones must be
// sorted by start offset, as Parse returns them. Well-formed documents
// produce no pairs.
func Overlaps(zones []model.Zone) [][2]model.Zone {
	var pairs [][2]model.Zone
	for i := range zones {
		for j := i + 1; j < len(zones); j++ {
			if zones[j].Start >= zones[i].End {
				break
			}
			pairs = append(pairs, [2]model.Zone{zones[i], zones[j]})
		}
	}
	return pairs
}

// CountByType tallies zones per type.
func CountByType(zones []model.Zone) map[model.ZoneType]int {
	counts := make(map[model.ZoneType]int)
	for _, z := range zones {
		counts[z.Type]++
	}
	return counts
}
