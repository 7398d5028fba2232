// Package conversion talks to the document-to-audio conversion service.
package conversion

import (
	"net/url"
	"strings"

	"github.com/alkime/docucast/internal/prefs"
)

// Speaker identifies who says a transcript line.
type Speaker string

const (
	SpeakerHost   Speaker = "HOST"
	SpeakerExpert Speaker = "EXPERT"
)

// Line is one turn of the generated conversation.
type Line struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Request is one submission: a document and the preferences snapshot taken
// at submit time.
type Request struct {
	Document    Document
	Preferences prefs.Preferences
}

// AudioResult is a completed conversion.
type AudioResult struct {
	// ID is the result identifier returned by the service.
	ID string
	// URL addresses the produced audio; derived from ID.
	URL        string
	Transcript []Line
}

// AudioURL derives the audio address for a result identifier.
func AudioURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/audio/" + url.PathEscape(id)
}
