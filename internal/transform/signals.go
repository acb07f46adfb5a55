package transform

import (
	"strings"

	"github.com/ppiankov/pslang/internal/model"
)

// Signals estimates user expertise, turnaround, code quality and agent
// involvement from turn counts, lengths and keywords. The result is a guess;
// see model.EstimatedSignals.
func Signals(turns []model.Turn) model.EstimatedSignals {
	assistant := 0
	words := 0
	hasCode, hasTest := false, false
	for _, t := range turns {
		if t.Role == model.RoleAssistant {
			assistant++
		}
		words += len(strings.Fields(t.Content))
		if strings.Contains(t.Content, FencedCodeMarker) {
			hasCode = true
		}
		if strings.Contains(strings.ToLower(t.Content), "test") {
			hasTest = true
		}
	}

	var quality float32
	if hasCode {
		quality += 0.5
	}
	if hasTest {
		quality += 0.5
	}

	return model.EstimatedSignals{
		UserExpertiseLevel:      expertise(words, len(turns)),
		TimeToResolutionMinutes: uint32(len(turns) * 2),
		ConversationTurns:       uint32(len(turns)),
		CodeQualityScore:        quality,
		AgentAssistanceLevel:    assistance(assistant),
	}
}

func expertise(words, turns int) model.ExpertiseLevel {
	if turns == 0 {
		return model.ExpertiseBeginner
	}
	mean := float64(words) / float64(turns)
	switch {
	case mean > 100:
		return model.ExpertiseAdvanced
	case mean > 50:
		return model.ExpertiseIntermediate
	default:
		return model.ExpertiseBeginner
	}
}

func assistance(assistantTurns int) model.AssistanceLevel {
	switch {
	case assistantTurns > 5:
		return model.AssistanceHigh
	case assistantTurns > 2:
		return model.AssistanceMedium
	default:
		return model.AssistanceLow
	}
}
