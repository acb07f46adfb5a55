package model

import (
	"fmt"
	"strings"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole maps a role name to a Role. Matching is case-insensitive and
// accepts the common transcript spellings ("human", "ai", "model").
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "human":
		return RoleUser, nil
	case "assistant", "ai", "model", "agent":
		return RoleAssistant, nil
	case "system":
		return RoleSystem, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Turn is one message in a conversation.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// ExpertiseLevel is the estimated skill of the user.
type ExpertiseLevel string

const (
	ExpertiseBeginner     ExpertiseLevel = "beginner"
	ExpertiseIntermediate ExpertiseLevel = "intermediate"
	ExpertiseAdvanced     ExpertiseLevel = "advanced"
)

// AssistanceLevel is the estimated amount of agent involvement.
type AssistanceLevel string

const (
	AssistanceLow    AssistanceLevel = "low"
	AssistanceMedium AssistanceLevel = "medium"
	AssistanceHigh   AssistanceLevel = "high"
)

// EstimatedSignals are keyword and length heuristics derived from a
// conversation. None of the fields is a measurement: the turnaround time is a
// linear proxy of turn count and the quality score only checks for code
// fences and the word "test". Never treat these values as ground truth.
type EstimatedSignals struct {
	UserExpertiseLevel      ExpertiseLevel  `json:"user_expertise_level"`
	TimeToResolutionMinutes uint32          `json:"time_to_resolution_minutes"`
	ConversationTurns       uint32          `json:"conversation_turns"`
	CodeQualityScore        float32         `json:"code_quality_score"`
	AgentAssistanceLevel    AssistanceLevel `json:"agent_assistance_level"`
}

// TransformResult is the output of converting a conversation into a
// zone-annotated document. Zones is a coarse presence list in emission order,
// not offset-precise parser output.
type TransformResult struct {
	PSLPrompt string            `json:"psl_prompt"`
	Tags      []string          `json:"tags"`
	Zones     []ZoneType        `json:"zones"`
	Signals   *EstimatedSignals `json:"signals"`
}

// FilterStats summarizes what a projection removed.
type FilterStats struct {
	TotalZones       int `json:"total_zones"`
	PassThroughCount int `json:"pass_through_count"`
	FilteredCount    int `json:"filtered_count"`
	// TokensRemovedEstimate is the sum of ceil(len(raw)/4) over removed
	// zones. It is a byte-length proxy, not a tokenizer count.
	TokensRemovedEstimate int `json:"tokens_removed_estimate"`
	// Overlapping counts zones whose span intersects another zone's span.
	// Overlap is unsupported input; a non-zero value flags a malformed document.
	Overlapping int `json:"overlapping,omitempty"`
}

// FilterResult is the output of projecting a document for an audience.
type FilterResult struct {
	Original string      `json:"original"`
	Filtered string      `json:"filtered"`
	Zones    []Zone      `json:"zones"`
	Stats    FilterStats `json:"stats"`
}
