package redact

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pslang/internal/config"
)

// Config is the operator's redact.yaml. Top-level entries apply to every
// scrubbed projection; an entry under audiences adds to them when that
// audience is the reader.
//
//	patterns:
//	  - name: TICKET
//	    regex: '\bOPS-\d+\b'
//	    audiences: [publisher]
//	literals: [Project Falcon]
//	safe:
//	  ips: [10.0.0.1]
//	  domains: [example.com]
//	audiences:
//	  handoff:
//	    always: true
//	    literals: [staging-db-2]
type Config struct {
	Patterns []PatternDef `yaml:"patterns"`
	// Literals are exact strings always scrubbed, such as a project codename.
	Literals  []string                 `yaml:"literals"`
	Safe      SafeList                 `yaml:"safe"`
	Audiences map[string]AudienceRules `yaml:"audiences"`
}

// SafeList names values that look sensitive but identify nobody.
type SafeList struct {
	IPs   []string `yaml:"ips"`
	Paths []string `yaml:"paths"`
	// Domains keeps addresses at a listed domain or any subdomain of it.
	Domains []string `yaml:"domains"`
}

// AudienceRules adjust scrubbing for one audience.
type AudienceRules struct {
	// Always scrubs the audience's projections even when its profile does not.
	Always   bool     `yaml:"always"`
	Literals []string `yaml:"literals"`
	Safe     SafeList `yaml:"safe"`
}

// PatternDef defines a custom pattern. Name becomes the token prefix, so a
// TICKET match is replaced with <<TICKET_1>>.
type PatternDef struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex"`
	// Audiences limits the pattern to the listed readers. Empty means all.
	Audiences []string `yaml:"audiences"`
}

// ExtraPattern is a compiled custom pattern ready for scanning.
type ExtraPattern struct {
	Name        string
	Regex       *regexp.Regexp
	TokenPrefix PatternType
	audiences   []string
}

// AppliesTo reports whether the pattern scrubs projections for audience.
func (p ExtraPattern) AppliesTo(audience string) bool {
	return len(p.audiences) == 0 || slices.Contains(p.audiences, audience)
}

// Token prefixes are wrapped as <<NAME_N>>; anything outside this shape
// could spell a zone delimiter such as <$. inside the projection.
var tokenName = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

var builtinTypes = map[PatternType]bool{
	PatternKey: true, PatternCred: true, PatternEmail: true,
	PatternIP: true, PatternPath: true, PatternLit: true,
}

const minLiteralLen = 3

// LoadConfig loads scrub config from path. Empty path means
// $PSLANG_HOME/redact.yaml. A missing file yields a nil config and no error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := config.Home()
		if err != nil {
			return nil, nil
		}
		path = filepath.Join(home, "redact.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read redact config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse redact config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redact config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks pattern names and literals. Regexes are checked by
// CompilePatterns.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool, len(c.Patterns))
	for i, def := range c.Patterns {
		switch {
		case def.Name == "":
			return fmt.Errorf("patterns[%d]: name is required", i)
		case !tokenName.MatchString(def.Name):
			return fmt.Errorf("patterns[%d] %q: name must be upper-case letters, digits and underscores", i, def.Name)
		case builtinTypes[PatternType(def.Name)]:
			return fmt.Errorf("patterns[%d] %q: name is reserved for a built-in detector", i, def.Name)
		case seen[def.Name]:
			return fmt.Errorf("patterns[%d] %q: duplicate name", i, def.Name)
		case def.Regex == "":
			return fmt.Errorf("patterns[%d] %q: regex is required", i, def.Name)
		}
		seen[def.Name] = true
	}
	if err := checkLiterals("literals", c.Literals); err != nil {
		return err
	}
	for name, rules := range c.Audiences {
		if name == "" {
			return fmt.Errorf("audiences: empty audience name")
		}
		if err := checkLiterals("audiences."+name+".literals", rules.Literals); err != nil {
			return err
		}
	}
	return nil
}

func checkLiterals(field string, lits []string) error {
	for i, lit := range lits {
		if len([]rune(strings.TrimSpace(lit))) < minLiteralLen {
			return fmt.Errorf("%s[%d] %q: literal needs at least %d characters", field, i, lit, minLiteralLen)
		}
	}
	return nil
}

// Always reports whether redact.yaml forces scrubbing for audience.
func (c *Config) Always(audience string) bool {
	if c == nil {
		return false
	}
	return c.Audiences[audience].Always
}

// ForAudience returns the literals and safe lists in force for audience:
// the shared entries followed by the audience's own. The result has no
// audience section. A nil config stays nil.
func (c *Config) ForAudience(audience string) *Config {
	if c == nil {
		return nil
	}
	rules := c.Audiences[audience]
	return &Config{
		Patterns: c.Patterns,
		Literals: concat(c.Literals, rules.Literals),
		Safe: SafeList{
			IPs:     concat(c.Safe.IPs, rules.Safe.IPs),
			Paths:   concat(c.Safe.Paths, rules.Safe.Paths),
			Domains: concat(c.Safe.Domains, rules.Safe.Domains),
		},
	}
}

func concat(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	return append(slices.Clip(a), b...)
}

// CompilePatterns validates cfg and compiles its patterns.
func CompilePatterns(cfg *Config) ([]ExtraPattern, error) {
	if cfg == nil {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var patterns []ExtraPattern
	for i, def := range cfg.Patterns {
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, fmt.Errorf("patterns[%d] %q: invalid regex: %w", i, def.Name, err)
		}
		patterns = append(patterns, ExtraPattern{
			Name:        def.Name,
			Regex:       re,
			TokenPrefix: PatternType(def.Name),
			audiences:   def.Audiences,
		})
	}
	return patterns, nil
}

// PatternsFor keeps the patterns that apply to audience.
func PatternsFor(patterns []ExtraPattern, audience string) []ExtraPattern {
	var out []ExtraPattern
	for _, p := range patterns {
		if p.AppliesTo(audience) {
			out = append(out, p)
		}
	}
	return out
}
