package redact

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

var tokenPattern = regexp.MustCompile(`^<<([A-Z]+)_([0-9]+)>>$`)

// TokenMap maps sensitive values to tokens and back for one request.
// Not goroutine-safe.
type TokenMap struct {
	forward  map[string]string // value -> "<<TYPE_N>>"
	reverse  map[string]string // "<<TYPE_N>>" -> value
	counters map[PatternType]int
	// RequestID ties the map to the audit entry of the projection it scrubbed.
	RequestID string
}

// NewTokenMap creates an empty token map.
func NewTokenMap(requestID string) *TokenMap {
	return &TokenMap{
		forward:   make(map[string]string),
		reverse:   make(map[string]string),
		counters:  make(map[PatternType]int),
		RequestID: requestID,
	}
}

// Token returns the token for value, allocating one on first use.
func (tm *TokenMap) Token(typ PatternType, value string) string {
	if tok, ok := tm.forward[value]; ok {
		return tok
	}
	tm.counters[typ]++
	tok := fmt.Sprintf("<<%s_%d>>", typ, tm.counters[typ])
	tm.forward[value] = tok
	tm.reverse[tok] = value
	return tok
}

// Resolve returns the original value for a token.
func (tm *TokenMap) Resolve(token string) (string, bool) {
	v, ok := tm.reverse[token]
	return v, ok
}

// Len returns the number of token mappings.
func (tm *TokenMap) Len() int {
	return len(tm.forward)
}

// Values returns all sensitive values, longest first.
func (tm *TokenMap) Values() []string {
	vals := make([]string, 0, len(tm.forward))
	for v := range tm.forward {
		vals = append(vals, v)
	}
	sort.Slice(vals, func(i, j int) bool {
		if len(vals[i]) != len(vals[j]) {
			return len(vals[i]) > len(vals[j])
		}
		return vals[i] < vals[j]
	})
	return vals
}

// Tokens returns all token strings, sorted.
func (tm *TokenMap) Tokens() []string {
	toks := make([]string, 0, len(tm.reverse))
	for t := range tm.reverse {
		toks = append(toks, t)
	}
	sort.Strings(toks)
	return toks
}

// Counts returns the number of distinct values scrubbed per type.
func (tm *TokenMap) Counts() map[PatternType]int {
	out := make(map[PatternType]int, len(tm.counters))
	for typ, n := range tm.counters {
		out[typ] = n
	}
	return out
}

type tokenMapJSON struct {
	RequestID string            `json:"request_id"`
	Tokens    map[string]string `json:"tokens"`
}

// MarshalJSON writes the map as {request_id, tokens: {token: value}}.
// The output holds the scrubbed values in clear text; store it like a secret.
func (tm *TokenMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(tokenMapJSON{RequestID: tm.RequestID, Tokens: tm.reverse})
}

// UnmarshalJSON restores a map written by MarshalJSON. Per-type counters
// resume after the highest token seen.
func (tm *TokenMap) UnmarshalJSON(data []byte) error {
	var raw tokenMapJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*tm = *NewTokenMap(raw.RequestID)
	for tok, val := range raw.Tokens {
		m := tokenPattern.FindStringSubmatch(tok)
		if m == nil {
			return fmt.Errorf("redact: malformed token %q", tok)
		}
		n, _ := strconv.Atoi(m[2])
		typ := PatternType(m[1])
		if n > tm.counters[typ] {
			tm.counters[typ] = n
		}
		tm.forward[val] = tok
		tm.reverse[tok] = val
	}
	return nil
}
