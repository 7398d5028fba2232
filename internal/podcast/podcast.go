// Package podcast turns a document into a two-voice episode: extract the
// text, write a HOST/EXPERT script, then narrate it to MP3.
package podcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alkime/docucast/internal/conversion"
	"github.com/alkime/docucast/internal/prefs"
)

var (
	// ErrNoText is returned when a document has no extractable text.
	ErrNoText = errors.New("document contains no readable text")
	// ErrEmptyScript is returned when a scriptwriter produced no lines.
	ErrEmptyScript = errors.New("script has no lines")
)

// Source is the text a script is written from.
type Source struct {
	Title string
	Text  string
}

// Extractor pulls plain text out of a document on disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Scriptwriter writes the conversation for a source.
type Scriptwriter interface {
	Write(ctx context.Context, src Source, p prefs.Preferences) ([]conversion.Line, error)
}

// Narrator voices a script as MP3 written to w.
type Narrator interface {
	Narrate(ctx context.Context, lines []conversion.Line, w io.Writer) error
}

// Episode is a produced podcast. Filename names the MP3 inside the audio
// directory.
type Episode struct {
	Filename   string            `json:"filename"`
	Transcript []conversion.Line `json:"transcript"`
}

// ValidateScript checks that every line has a known speaker and some text.
func ValidateScript(lines []conversion.Line) error {
	if len(lines) == 0 {
		return ErrEmptyScript
	}

	for i, line := range lines {
		if line.Speaker != conversion.SpeakerHost && line.Speaker != conversion.SpeakerExpert {
			return fmt.Errorf("line %d: unknown speaker %q", i+1, line.Speaker)
		}

		if strings.TrimSpace(line.Text) == "" {
			return fmt.Errorf("line %d: empty text", i+1)
		}
	}

	return nil
}
