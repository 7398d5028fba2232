package podcast

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/alkime/docucast/internal/conversion"
	"github.com/alkime/docucast/internal/prefs"
)

// ExcerptWriter builds a script offline by having the EXPERT read excerpts
// of the document in order, introduced by the HOST.
type ExcerptWriter struct{}

var hostPrompts = map[prefs.Tone][]string{
	prefs.ToneCasual: {
		"Okay, so what's going on here?",
		"Huh. Tell me more.",
		"And then what?",
		"Wait, unpack that for me.",
	},
	prefs.ToneConversational: {
		"So where does the document start?",
		"What comes next?",
		"Interesting. How does that connect to the rest?",
		"Can you walk me through the next part?",
	},
	prefs.ToneProfessional: {
		"Let's begin with the central claim.",
		"What is the next key point?",
		"How is that supported?",
		"Please continue.",
	},
}

var quips = []string{
	"I promise this is more exciting than my tax return.",
	"Somebody get this document a podcast of its own. Oh wait.",
}

// sentencesPerLine maps depth to how many sentences each EXPERT turn reads.
var sentencesPerLine = map[prefs.Depth]int{
	prefs.DepthOverview: 1,
	prefs.DepthBalanced: 2,
	prefs.DepthDeepDive: 3,
}

// Write never calls out to a service.
func (ExcerptWriter) Write(ctx context.Context, src Source, p prefs.Preferences) ([]conversion.Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sentences := splitSentences(src.Text)
	if len(sentences) == 0 {
		return nil, ErrNoText
	}

	prompts, ok := hostPrompts[p.Tone]
	if !ok {
		prompts = hostPrompts[prefs.ToneConversational]
	}

	per := max(1, sentencesPerLine[p.Depth])
	target := LineTarget(p.Length)

	title := strings.TrimSpace(src.Title)
	if title == "" {
		title = "today's document"
	}

	lines := []conversion.Line{host(fmt.Sprintf("Welcome in. Today we're talking about %s.", title))}

	for turn := 0; len(sentences) > 0; turn++ {
		// A turn is a host prompt and an expert answer; the first has no
		// prompt. One line stays reserved for the closing.
		need := 2
		if turn == 0 {
			need = 1
		}

		if len(lines)+need+1 > target {
			break
		}

		if turn > 0 {
			lines = append(lines, host(prompts[turn%len(prompts)]))
		}

		n := min(per, len(sentences))
		lines = append(lines, expert(strings.Join(sentences[:n], " ")))
		sentences = sentences[n:]

		if p.Humor && turn == 0 && len(lines)+2 <= target {
			lines = append(lines, host(quips[len(title)%len(quips)]))
		}
	}

	lines = append(lines, host("That's our overview. Thanks for listening."))

	return lines, nil
}

func host(text string) conversion.Line {
	return conversion.Line{Speaker: conversion.SpeakerHost, Text: text}
}

func expert(text string) conversion.Line {
	return conversion.Line{Speaker: conversion.SpeakerExpert, Text: text}
}

// splitSentences breaks text at ., ! or ? followed by whitespace. Fragments
// of fewer than three words are folded into the next sentence.
func splitSentences(text string) []string {
	var (
		out []string
		cur strings.Builder
	)

	runes := []rune(collapseSpace(text))

	flush := func(force bool) {
		s := strings.TrimSpace(cur.String())
		if s == "" {
			return
		}

		if !force && len(strings.Fields(s)) < 3 {
			return
		}

		out = append(out, s)
		cur.Reset()
	}

	for i, r := range runes {
		cur.WriteRune(r)

		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			flush(false)
		}
	}

	flush(true)

	return out
}
