// Package policy loads the visibility policy: which optional zone types each
// audience may see.
package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pslang/internal/config"
	"github.com/ppiankov/pslang/internal/zone"
)

// DefaultAudience is used when a request names no audience.
const DefaultAudience = "agent"

var audienceName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// PolicyConfig holds the visibility policy and per-audience overrides.
//
// Visibility, when the file sets it, is the policy of the default audience
// unless Audiences has an entry for that audience. Fields left out of
// Visibility keep their defaults (visible). Audiences entries replace any
// policy wholesale for the named audience; a field left out of an audience
// entry is false, so that zone type is hidden from that audience.
type PolicyConfig struct {
	DefaultAudience string                 `yaml:"default_audience"`
	Visibility      zone.Policy            `yaml:"visibility"`
	Audiences       map[string]zone.Policy `yaml:"audiences"`

	// HasVisibility is true when the loaded file contains a visibility key.
	HasVisibility bool `yaml:"-"`
}

// DefaultConfig returns the built-in config: every optional zone visible,
// no audience overrides.
func DefaultConfig() *PolicyConfig {
	return &PolicyConfig{
		DefaultAudience: DefaultAudience,
		Visibility:      zone.DefaultPolicy(),
	}
}

// Fallback returns the visibility section, if the file declared one.
func (c *PolicyConfig) Fallback() (zone.Policy, bool) {
	return c.Visibility, c.HasVisibility
}

// Audience returns the override for name, if the config declares one.
func (c *PolicyConfig) Audience(name string) (zone.Policy, bool) {
	p, ok := c.Audiences[name]
	return p, ok
}

// AudienceNames returns the configured audience names, sorted.
func (c *PolicyConfig) AudienceNames() []string {
	names := make([]string, 0, len(c.Audiences))
	for name := range c.Audiences {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks audience names.
func (c *PolicyConfig) Validate() error {
	if c.DefaultAudience != "" && !audienceName.MatchString(c.DefaultAudience) {
		return fmt.Errorf("default_audience: invalid name %q", c.DefaultAudience)
	}
	for _, name := range c.AudienceNames() {
		if !audienceName.MatchString(name) {
			return fmt.Errorf("audiences: invalid name %q (want lowercase letters, digits, '-' or '_')", name)
		}
	}
	return nil
}

// LoadConfig loads policy configuration from a YAML file.
// Empty path falls back to $PSLANG_POLICY, then $PSLANG_HOME/policy.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func LoadConfig(path string) (*PolicyConfig, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads policy configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk.
// When no file exists (defaults used), the hash is the SHA-256 of empty input.
func LoadConfigWithHash(path string) (*PolicyConfig, string, error) {
	if path == "" {
		env, err := config.Load()
		if err != nil {
			return DefaultConfig(), hashOf(nil), nil
		}
		path = env.PolicyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), hashOf(nil), nil
		}
		return nil, "", fmt.Errorf("failed to read policy config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse policy config: %w", err)
	}
	var keys struct {
		Visibility *yaml.Node `yaml:"visibility"`
	}
	if err := yaml.Unmarshal(data, &keys); err == nil {
		cfg.HasVisibility = keys.Visibility != nil && keys.Visibility.Kind == yaml.MappingNode
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid policy config: %w", err)
	}

	return cfg, hashOf(data), nil
}

func hashOf(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

// DefaultConfigYAML returns a commented YAML string for init-policy.
func DefaultConfigYAML() string {
	return `# pslang visibility policy
# Generated by: pslang init-policy
#
# Private (<. .>), question (<?. ?.>) and benchmark (<.bm .bm>) zones are
# always removed from projections. Nothing here can make them visible.

# Audience used when a request names none.
default_audience: agent

# Policy of the default audience when it has no entry under audiences.
# Remove this section to use the default audience's profile instead.
visibility:
  keep_pass_through: true   # <#. #.>
  keep_public: true         # <$. $.>
  keep_action: true         # <@. @.>

# Per-audience overrides. An entry replaces the fallback entirely;
# omitted fields are false (hidden).
# audiences:
#   publisher:
#     keep_public: true
#   executor:
#     keep_pass_through: true
#     keep_action: true
`
}
