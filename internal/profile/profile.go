// Package profile manages audience profiles: named visibility policies that
// decide which zones a consumer of a projection may see.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pslang/internal/config"
	"github.com/ppiankov/pslang/internal/policy"
	"github.com/ppiankov/pslang/internal/zone"
)

// ErrUnknownProfile is returned when an audience resolves to nothing.
var ErrUnknownProfile = errors.New("unknown audience profile")

// Profile is a named, reusable visibility policy.
type Profile struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Visibility  zone.Policy `yaml:"visibility" json:"visibility"`
	// Scrub asks callers to redact credentials from the projection.
	Scrub bool `yaml:"scrub" json:"scrub"`
}

// Source records where a resolved audience came from.
type Source string

const (
	SourceConfig  Source = "config"
	SourceBuiltin Source = "builtin"
	SourceUser    Source = "user"
)

// Resolved is an audience ready to apply.
type Resolved struct {
	Name   string      `json:"name"`
	Policy zone.Policy `json:"policy"`
	Scrub  bool        `json:"scrub"`
	Source Source      `json:"source"`
}

// Load loads a profile by name. Checks built-in profiles first,
// then falls back to $PSLANG_HOME/profiles/<name>.yaml.
func Load(name string) (*Profile, error) {
	p, _, err := load(name)
	return p, err
}

func load(name string) (*Profile, Source, error) {
	if data, ok := builtinProfiles[name]; ok {
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, "", fmt.Errorf("failed to parse built-in profile %q: %w", name, err)
		}
		return &p, SourceBuiltin, nil
	}

	if strings.ContainsAny(name, `/\`) || name == "" || name == "." || name == ".." {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}

	dir, err := config.ProfilesDir()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q (no built-in, %v)", ErrUnknownProfile, name, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, name+".yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %q", ErrUnknownProfile, name)
		}
		return nil, "", fmt.Errorf("failed to read profile %q: %w", name, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, "", fmt.Errorf("failed to parse profile %q: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	return &p, SourceUser, nil
}

// List returns sorted names of all available profiles (built-in + user).
func List() []string {
	seen := make(map[string]bool)
	for name := range builtinProfiles {
		seen[name] = true
	}

	if dir, err := config.ProfilesDir(); err == nil {
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				name := e.Name()
				if filepath.Ext(name) == ".yaml" {
					seen[strings.TrimSuffix(name, ".yaml")] = true
				}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that a profile is well-formed.
func Validate(p *Profile) error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if strings.ContainsAny(p.Name, "/\\ \t") {
		return fmt.Errorf("profile name %q must not contain path separators or spaces", p.Name)
	}
	return nil
}

// Resolve maps an audience name to a policy. An empty name selects the
// config's default audience. Config overrides win over profiles, so an
// operator can narrow a built-in audience without editing code. The
// config's visibility section, when set, applies to the default audience
// if no audiences entry names it.
func Resolve(name string, cfg *policy.PolicyConfig) (Resolved, error) {
	if cfg == nil {
		cfg = policy.DefaultConfig()
	}
	if name == "" {
		name = defaultName(cfg)
	}

	override, ok := cfg.Audience(name)
	if !ok && name == defaultName(cfg) {
		override, ok = cfg.Fallback()
	}
	if ok {
		r := Resolved{Name: name, Policy: override, Source: SourceConfig}
		// A same-named profile still decides scrubbing.
		if p, _, err := load(name); err == nil {
			r.Scrub = p.Scrub
		}
		return r, nil
	}

	p, src, err := load(name)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Name: name, Policy: p.Visibility, Scrub: p.Scrub, Source: src}, nil
}

func defaultName(cfg *policy.PolicyConfig) string {
	if cfg.DefaultAudience != "" {
		return cfg.DefaultAudience
	}
	return policy.DefaultAudience
}
