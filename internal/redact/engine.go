package redact

import "strings"

// Redact scans text with the built-in detectors, allocates tokens in tm and
// returns the text with every sensitive value replaced.
func Redact(text string, tm *TokenMap) string {
	return RedactWithConfig(text, tm, nil, nil)
}

// RedactWithConfig is like Redact but uses custom patterns and safe lists.
// Longer values are replaced first so a value never leaves a partial
// remainder of a longer one.
func RedactWithConfig(text string, tm *TokenMap, cfg *Config, extra []ExtraPattern) string {
	matches := ScanWithConfig(text, cfg, extra)
	if len(matches) == 0 {
		return text
	}

	for _, m := range matches {
		tm.Token(m.Type, m.Value)
	}

	result := text
	for _, val := range tm.Values() {
		result = strings.ReplaceAll(result, val, tm.forward[val])
	}
	return result
}

// Detoken replaces all tokens in text with their original values.
func Detoken(text string, tm *TokenMap) string {
	result := text
	for _, tok := range tm.Tokens() {
		val, _ := tm.Resolve(tok)
		result = strings.ReplaceAll(result, tok, val)
	}
	return result
}

// CheckLeaks returns the values in tm that still appear literally in text.
// An empty result means the text is clean.
func CheckLeaks(text string, tm *TokenMap) []string {
	var leaks []string
	for _, val := range tm.Values() {
		if strings.Contains(text, val) {
			leaks = append(leaks, val)
		}
	}
	return leaks
}
