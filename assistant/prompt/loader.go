package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/persona.txt
var personaRaw string

const assistantPlaceholder = "{assistant}"

// LoadPersona returns the persona instructions, one per non-empty template
// line, with the assistant name substituted.
func LoadPersona(assistantName string) []string {
	name := strings.TrimSpace(assistantName)
	if name == "" {
		name = DefaultAssistantName
	}

	lines := strings.Split(strings.TrimSpace(personaRaw), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, strings.ReplaceAll(line, assistantPlaceholder, name))
	}
	return out
}
