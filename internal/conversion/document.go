package conversion

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// AcceptedMediaType is the only document type accepted at intake.
const AcceptedMediaType = "application/pdf"

// AudioExtension is the extension used when saving a produced episode.
const AudioExtension = ".mp3"

// Document is a file the user selected for conversion.
type Document struct {
	Path      string
	Name      string
	MediaType string
	Size      int64
}

// InvalidInputError reports a selected file that cannot be converted.
type InvalidInputError struct {
	Path      string
	MediaType string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s is %s, only PDF documents can be converted", filepath.Base(e.Path), e.MediaType)
}

// OpenDocument validates the file at path and returns it as a Document.
// The media type is sniffed from the content, not the extension.
func OpenDocument(path string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		return Document{}, &InvalidInputError{Path: path, MediaType: "a directory"}
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to detect media type of %s: %w", path, err)
	}

	if !mt.Is(AcceptedMediaType) {
		return Document{}, &InvalidInputError{Path: path, MediaType: mt.String()}
	}

	return Document{
		Path:      path,
		Name:      filepath.Base(path),
		MediaType: AcceptedMediaType,
		Size:      info.Size(),
	}, nil
}

// DownloadName is the file name a produced episode is saved under: the
// document's name with its extension swapped for the audio extension.
func DownloadName(doc Document) string {
	name := doc.Name
	if name == "" {
		name = filepath.Base(doc.Path)
	}

	return strings.TrimSuffix(name, filepath.Ext(name)) + AudioExtension
}
