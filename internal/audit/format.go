package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a QueryResult as a human-readable text timeline.
func FormatTimeline(result *QueryResult) string {
	if len(result.Entries) == 0 {
		return "No audit entries found.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-10s %-12s %-9s %6s %8s %8s\n",
		"TIME", "OP", "AUDIENCE", "REQUEST", "ZONES", "REMOVED", "TOKENS")
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		audience := e.Audience
		if audience == "" {
			audience = "-"
		}
		fmt.Fprintf(&b, "%-10s %-10s %-12s %-9s %6d %8d %8d%s\n",
			formatTimeOnly(e.Timestamp), e.Op, truncate(audience, 12), shortID(e.RequestID),
			e.TotalZones, e.FilteredCount, e.TokensRemovedEstimate, flags(e))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))
	return b.String()
}

// FormatJSON renders a QueryResult as indented JSON.
func FormatJSON(result *QueryResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal query result: %w", err)
	}
	return string(data), nil
}

func flags(e AuditEntry) string {
	var parts []string
	if e.Overlapping > 0 {
		parts = append(parts, fmt.Sprintf("overlap:%d", e.Overlapping))
	}
	if e.Scrubbed > 0 {
		parts = append(parts, fmt.Sprintf("scrubbed:%d", e.Scrubbed))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  [" + strings.Join(parts, " ") + "]"
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s Summary) string {
	ops := make([]string, 0, len(s.ByOp))
	for op, n := range s.ByOp {
		ops = append(ops, fmt.Sprintf("%d %s", n, op))
	}
	sort.Strings(ops)
	return fmt.Sprintf("Summary: %d entries (%s) | zones %d, removed %d, ~%d tokens\n",
		s.Total, strings.Join(ops, ", "), s.ZonesSeen, s.ZonesFiltered, s.TokensRemoved)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
