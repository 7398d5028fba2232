package podcast

import (
	"fmt"
	"strings"

	"github.com/alkime/docucast/internal/prefs"
)

// scriptSystemPrompt is the fixed part of the scriptwriter's instructions.
const scriptSystemPrompt = `You write scripts for a two-person audio show that explains documents.
- HOST guides the conversation, asks questions a curious listener would ask, and summarises
- EXPERT has read the document closely and answers with specifics from it
- Speakers alternate; the HOST opens and closes the episode
- Stay faithful to the document: never invent findings, numbers, or quotes
- Write for the ear: short sentences, no markdown, no stage directions, no URLs
- Save the result with the save_script tool`

// lineTargets maps the requested length to a number of script lines.
var lineTargets = map[prefs.Length]int{
	prefs.LengthShort:  8,
	prefs.LengthMedium: 14,
	prefs.LengthLong:   22,
}

// LineTarget is the number of lines a script of length l aims for.
func LineTarget(l prefs.Length) int {
	if n, ok := lineTargets[l]; ok {
		return n
	}

	return lineTargets[prefs.LengthMedium]
}

// SystemPrompt builds the scriptwriter instructions for p.
func SystemPrompt(p prefs.Preferences) string {
	var sb strings.Builder

	sb.WriteString(scriptSystemPrompt)
	sb.WriteString("\n\n")

	switch p.Tone {
	case prefs.ToneCasual:
		sb.WriteString("Tone: relaxed and friendly, like two colleagues chatting over coffee.\n")
	case prefs.ToneProfessional:
		sb.WriteString("Tone: polished and precise, like a briefing for busy professionals.\n")
	default:
		sb.WriteString("Tone: warm and conversational, with natural back-and-forth.\n")
	}

	switch p.Depth {
	case prefs.DepthOverview:
		sb.WriteString("Depth: cover only the main idea and why it matters.\n")
	case prefs.DepthDeepDive:
		sb.WriteString("Depth: go into methods, evidence, and limitations in detail.\n")
	default:
		sb.WriteString("Depth: cover the main ideas with a few supporting details.\n")
	}

	fmt.Fprintf(&sb, "Length: about %d lines in total.\n", LineTarget(p.Length))

	if p.Humor {
		sb.WriteString("Humor: a light joke or two is welcome, never at the document's expense.\n")
	} else {
		sb.WriteString("Humor: none; keep it straight.\n")
	}

	return sb.String()
}

// userPrompt wraps the document for the scriptwriter.
func userPrompt(src Source) string {
	return fmt.Sprintf("Document title: %s\n\n<document>\n%s\n</document>", src.Title, src.Text)
}
