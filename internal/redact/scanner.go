// Package redact scrubs credentials and personal data out of projections
// before they leave the process. Detected values are replaced with stable
// tokens such as <<KEY_1>>.
package redact

import (
	"regexp"
	"sort"
	"strings"
)

// PatternType identifies the category of sensitive data.
type PatternType string

const (
	PatternKey   PatternType = "KEY"
	PatternCred  PatternType = "CRED"
	PatternEmail PatternType = "EMAIL"
	PatternIP    PatternType = "IP"
	PatternPath  PatternType = "PATH"
	PatternLit   PatternType = "LITERAL"
)

// Match is a single occurrence of sensitive data in text.
type Match struct {
	Type  PatternType
	Value string
	Start int
	End   int
}

type detector struct {
	typ PatternType
	re  *regexp.Regexp
}

// Detectors run in order; an earlier detector claims a value first.
var detectors = []detector{
	// PEM private key blocks.
	{PatternKey, regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`)},
	// Provider API keys with recognisable prefixes.
	{PatternKey, regexp.MustCompile(`\b(?:sk-(?:ant-|proj-)?[A-Za-z0-9_\-]{20,}|AKIA[0-9A-Z]{16}|gh[pousr]_[A-Za-z0-9]{36,}|xox[abposr]-[A-Za-z0-9\-]{10,}|AIza[0-9A-Za-z_\-]{35})\b`)},
	// JSON web tokens.
	{PatternKey, regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}\b`)},
	// key=value pairs where the key suggests a secret.
	{PatternCred, regexp.MustCompile(`(?i)\b(?:password|passwd|secret|token|api_key|apikey|access_key|client_secret)[ \t]*[=:][ \t]*\S+`)},
	{PatternEmail, regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`)},
	{PatternIP, regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)},
	// Home directories name their owner.
	{PatternPath, regexp.MustCompile(`(?:/home/|/Users/|C:\\Users\\)[^\s/\\]+[^\s]*`)},
}

// safeIPs are addresses that identify nobody.
var safeIPs = map[string]bool{
	"127.0.0.1":       true,
	"0.0.0.0":         true,
	"255.255.255.255": true,
}

// Scan finds sensitive values in text using the built-in detectors.
// Matches are deduplicated by value and sorted by position.
func Scan(text string) []Match {
	return ScanWithConfig(text, nil, nil)
}

// ScanWithConfig is Scan plus operator patterns, literals and safe lists.
// Audience sections of cfg are ignored; pass cfg.ForAudience and
// PatternsFor results to scan for a particular reader. A nil cfg and nil
// extra behave like Scan.
func ScanWithConfig(text string, cfg *Config, extra []ExtraPattern) []Match {
	safeIP := make(map[string]bool, len(safeIPs))
	for ip := range safeIPs {
		safeIP[ip] = true
	}
	var safe SafeList
	if cfg != nil {
		safe = cfg.Safe
		for _, ip := range safe.IPs {
			safeIP[ip] = true
		}
	}

	seen := make(map[string]bool)
	var matches []Match
	add := func(typ PatternType, value string, start int) {
		value = strings.TrimRight(value, ".,;:\"'`)}]")
		if value == "" || seen[value] {
			return
		}
		seen[value] = true
		matches = append(matches, Match{Type: typ, Value: value, Start: start, End: start + len(value)})
	}

	if cfg != nil {
		for _, lit := range cfg.Literals {
			if lit == "" {
				continue
			}
			for off := 0; ; {
				i := strings.Index(text[off:], lit)
				if i < 0 {
					break
				}
				add(PatternLit, lit, off+i)
				off += i + len(lit)
			}
		}
	}

	for _, d := range detectors {
		for _, loc := range d.re.FindAllStringIndex(text, -1) {
			v := text[loc[0]:loc[1]]
			switch d.typ {
			case PatternIP:
				if safeIP[v] {
					continue
				}
			case PatternPath:
				if hasAnyPrefix(v, safe.Paths) {
					continue
				}
			case PatternEmail:
				if inDomains(v, safe.Domains) {
					continue
				}
			}
			add(d.typ, v, loc[0])
		}
	}

	for _, p := range extra {
		for _, loc := range p.Regex.FindAllStringIndex(text, -1) {
			add(p.TokenPrefix, text[loc[0]:loc[1]], loc[0])
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Start < matches[j].Start
	})
	return matches
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// inDomains reports whether the address belongs to one of domains or a
// subdomain of one.
func inDomains(addr string, domains []string) bool {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return false
	}
	host := strings.ToLower(strings.TrimRight(addr[at+1:], "."))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(d, "@"))
		if d != "" && (host == d || strings.HasSuffix(host, "."+d)) {
			return true
		}
	}
	return false
}
