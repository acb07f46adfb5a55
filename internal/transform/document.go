package transform

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/pslang/internal/model"
)

// assemble builds the annotated document and the list of zone types it
// emitted. The first user request goes in a public zone; derived technical
// context goes in a pass-through zone; a benchmark zone is appended when the
// user asked about performance.
//
// Each later user turn becomes one follow-up bullet: runs of whitespace,
// newlines included, collapse to a single space so the bullet stays on one
// line, and the result is truncated to followUpLimit characters.
func assemble(users []model.Turn, tech []string) (string, []model.ZoneType) {
	var blocks []string
	zones := []model.ZoneType{}
	emit := func(zt model.ZoneType, content string) {
		blocks = append(blocks, zt.Wrap(content))
		for _, z := range zones {
			if z == zt {
				return
			}
		}
		zones = append(zones, zt)
	}

	if len(users) > 0 {
		emit(model.ZonePublic, users[0].Content)
	}

	if len(tech) > 0 {
		var b strings.Builder
		b.WriteString("Tech stack: ")
		b.WriteString(strings.Join(tech, ", "))
		if len(users) > 1 {
			b.WriteString("\nFollow-up requests:")
			for _, u := range users[1:] {
				b.WriteString("\n- ")
				b.WriteString(truncate(strings.Join(strings.Fields(u.Content), " "), followUpLimit))
			}
		}
		emit(model.ZonePassThrough, b.String())
	}

	if HasBenchmarkIntent(users) {
		emit(model.ZoneBenchmark, BenchmarkInstruction)
	}

	return strings.Join(blocks, "\n\n"), zones
}

// truncate shortens s to at most limit characters, marking the cut with "...".
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

func userTurns(turns []model.Turn) []model.Turn {
	var users []model.Turn
	for _, t := range turns {
		if t.Role == model.RoleUser {
			users = append(users, t)
		}
	}
	return users
}

func firstUserTurn(turns []model.Turn) (model.Turn, bool) {
	for _, t := range turns {
		if t.Role == model.RoleUser {
			return t, true
		}
	}
	return model.Turn{}, false
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// keywordsByPosition returns the keywords present in lower, ordered by where
// each first occurs. Ties keep vocabulary order.
func keywordsByPosition(lower string, keywords []string) []string {
	type hit struct {
		kw  string
		pos int
	}
	var hits []hit
	for _, kw := range keywords {
		if i := wordIndex(lower, kw, WholeWordTechKeywords[kw]); i >= 0 {
			hits = append(hits, hit{kw: kw, pos: i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].pos < hits[j].pos
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.kw
	}
	return out
}

// wordIndex returns the first occurrence of kw in lower that starts a word
// and, when whole is set, also ends one. -1 when there is none.
func wordIndex(lower, kw string, whole bool) int {
	for from := 0; from <= len(lower)-len(kw); {
		i := strings.Index(lower[from:], kw)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(kw)
		if !wordRuneBefore(lower, i) && (!whole || !wordRuneAt(lower, end)) {
			return i
		}
		from = i + 1
	}
	return -1
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func charCount(s string) int {
	return utf8.RuneCountInString(s)
}
