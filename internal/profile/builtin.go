package profile

import _ "embed"

//go:embed profiles/agent.yaml
var agentYAML []byte

//go:embed profiles/publisher.yaml
var publisherYAML []byte

//go:embed profiles/executor.yaml
var executorYAML []byte

//go:embed profiles/handoff.yaml
var handoffYAML []byte

// builtinProfiles maps profile names to their embedded YAML content.
var builtinProfiles = map[string][]byte{
	"agent":     agentYAML,
	"publisher": publisherYAML,
	"executor":  executorYAML,
	"handoff":   handoffYAML,
}
