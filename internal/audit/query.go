package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Filter selects audit entries. Zero fields match everything.
type Filter struct {
	RequestID string
	Op        Op
	Audience  string
	From      time.Time
	To        time.Time
	// Limit keeps only the last Limit matches when > 0.
	Limit int
}

// Summary aggregates matched entries.
type Summary struct {
	Total          int            `json:"total"`
	ByOp           map[Op]int     `json:"by_op"`
	ByAudience     map[string]int `json:"by_audience"`
	ZonesSeen      int            `json:"zones_seen"`
	ZonesFiltered  int            `json:"zones_filtered"`
	TokensRemoved  int            `json:"tokens_removed_estimate"`
	Overlapping    int            `json:"overlapping"`
	Scrubbed       int            `json:"scrubbed"`
	FirstTimestamp string         `json:"first_timestamp,omitempty"`
	LastTimestamp  string         `json:"last_timestamp,omitempty"`
}

// QueryResult holds matched entries and their summary. The summary covers
// every match, including those dropped by Limit.
type QueryResult struct {
	Entries []AuditEntry `json:"entries"`
	Summary Summary      `json:"summary"`
}

// Query reads the audit log and returns entries matching f.
// Malformed lines are skipped; use Verify to detect them.
func Query(path string, f Filter) (*QueryResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	result := &QueryResult{
		Entries: []AuditEntry{},
		Summary: Summary{ByOp: map[Op]int{}, ByAudience: map[string]int{}},
	}

	scanner := newScanner(file)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if !f.matches(entry) {
			continue
		}
		result.Entries = append(result.Entries, entry)
		result.Summary.add(entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	if f.Limit > 0 && len(result.Entries) > f.Limit {
		result.Entries = result.Entries[len(result.Entries)-f.Limit:]
	}
	return result, nil
}

func (f Filter) matches(e AuditEntry) bool {
	if f.RequestID != "" && e.RequestID != f.RequestID {
		return false
	}
	if f.Op != "" && e.Op != f.Op {
		return false
	}
	if f.Audience != "" && e.Audience != f.Audience {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		ts, err := time.Parse(TimestampFormat, e.Timestamp)
		if err != nil {
			return false
		}
		if !f.From.IsZero() && ts.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && ts.After(f.To) {
			return false
		}
	}
	return true
}

func (s *Summary) add(e AuditEntry) {
	s.Total++
	s.ByOp[e.Op]++
	if e.Audience != "" {
		s.ByAudience[e.Audience]++
	}
	s.ZonesSeen += e.TotalZones
	s.ZonesFiltered += e.FilteredCount
	s.TokensRemoved += e.TokensRemovedEstimate
	s.Overlapping += e.Overlapping
	s.Scrubbed += e.Scrubbed
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}
