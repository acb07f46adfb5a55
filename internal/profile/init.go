package profile

import "fmt"

// InitProfile returns a commented YAML starter template for a new profile.
func InitProfile(name string) string {
	return fmt.Sprintf(`name: %s
description: Custom audience profile

# Optional zone types this audience may see. Private, question and
# benchmark zones are always removed and cannot be listed here.
visibility:
  keep_pass_through: true   # <#. ... #.>  context for downstream tools
  keep_public: true         # <$. ... $.>  publishable content
  keep_action: false        # <@. ... @.>  executable steps

# Redact credentials (API keys, tokens, passwords) from projections
# for this audience.
scrub: true
`, name)
}
