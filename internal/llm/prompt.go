package llm

import (
	"fmt"
	"strings"

	"github.com/polimatch/polimatch/internal/match"
	"github.com/polimatch/polimatch/internal/model"
)

const systemPrompt = "You are an entity-resolution assistant for politician records. " +
	"You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, " +
	"markdown formatting, or commentary before or after the JSON. " +
	"Start your response directly with { and end with }."

// buildPrompt renders the candidate context and the shortlist of canonical
// identities into the disambiguation prompt.
func buildPrompt(candidate model.ExtractedCandidate, shortlist []match.ScoredPolitician) string {
	var b strings.Builder

	b.WriteString("Decide which of the known politicians below, if any, the extracted record refers to.\n\n")

	b.WriteString("Extracted record:\n")
	fmt.Fprintf(&b, "- name: %s\n", candidate.Name)
	if candidate.Role != "" {
		fmt.Fprintf(&b, "- role: %s\n", candidate.Role)
	}
	if candidate.PartyRaw != "" {
		fmt.Fprintf(&b, "- party (as extracted): %s\n", candidate.PartyRaw)
	}
	if candidate.RawText != "" {
		fmt.Fprintf(&b, "- surrounding text: %s\n", truncate(candidate.RawText, 500))
	}

	b.WriteString("\nKnown politicians:\n")
	for _, sp := range shortlist {
		p := sp.Politician
		fmt.Fprintf(&b, "- id %d: %s", p.ID, p.Name)
		if p.Party != "" {
			fmt.Fprintf(&b, ", party %s", p.Party)
		}
		if p.District != "" {
			fmt.Fprintf(&b, ", district %s", p.District)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nRespond with JSON: {\"politician_id\": <id or null>, \"confidence\": <0.0-1.0>}\n")
	b.WriteString("Use null when none of the listed politicians is a plausible match.\n")

	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
