package configurator

import "strings"

// contactPhase is the backend phase that asks for contact details; answering it
// triggers report generation.
const contactPhase = "phase_6_3"

// finalPhaseCues are fragments of the contact-details prompt. Matching is best effort:
// the backend's phase field wins whenever it is present.
var finalPhaseCues = []string{
	"partita iva",
	"p.iva",
	"p. iva",
	"email",
	"e-mail",
	"preventivo",
	"ricontattarti",
	"report",
}

// IsFinalPhase reports whether the next turn is expected to produce the report.
func IsFinalPhase(phase, lastAssistantText string) bool {
	if phase != "" {
		return phase == contactPhase
	}
	text := strings.ToLower(lastAssistantText)
	for _, cue := range finalPhaseCues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}
