package podcast

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxChars bounds how much text is passed on to the scriptwriter.
const DefaultMaxChars = 100_000

// PDFExtractor reads the text layer of a PDF.
type PDFExtractor struct {
	MaxChars int
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{MaxChars: DefaultMaxChars}
}

// Extract returns the document's text with whitespace collapsed.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read PDF %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", path, err)
	}

	limit := e.MaxChars
	if limit <= 0 {
		limit = DefaultMaxChars
	}

	// Reads a little past the limit since collapsing shrinks the text.
	raw, err := io.ReadAll(io.LimitReader(plain, int64(limit)*2))
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", path, err)
	}

	text = collapseSpace(string(raw))
	if text == "" {
		return "", ErrNoText
	}

	if len(text) > limit {
		text = strings.ToValidUTF8(text[:limit], "")
	}

	return text, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
