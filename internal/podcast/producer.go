package podcast

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alkime/docucast/internal/prefs"
	"github.com/google/uuid"
)

// Producer runs the extract, script, narrate pipeline and stores the MP3.
type Producer struct {
	extractor Extractor
	writer    Scriptwriter
	narrator  Narrator
	audioDir  string
}

func NewProducer(extractor Extractor, writer Scriptwriter, narrator Narrator, audioDir string) *Producer {
	return &Producer{
		extractor: extractor,
		writer:    writer,
		narrator:  narrator,
		audioDir:  audioDir,
	}
}

// NewFromKeys uses the hosted writer and narrator for whichever keys are
// set and the offline ones otherwise.
func NewFromKeys(anthropicKey, openAIKey, audioDir string) *Producer {
	var writer Scriptwriter = ExcerptWriter{}
	if anthropicKey != "" {
		writer = NewAnthropicWriter(anthropicKey)
	}

	var narrator Narrator = NewToneNarrator()
	if openAIKey != "" {
		narrator = NewOpenAINarrator(openAIKey)
	}

	slog.Info("Configured producer",
		"scriptwriter", fmt.Sprintf("%T", writer),
		"narrator", fmt.Sprintf("%T", narrator),
		"audio_dir", audioDir,
	)

	return NewProducer(NewPDFExtractor(), writer, narrator, audioDir)
}

// AudioDir is where episodes are stored.
func (p *Producer) AudioDir() string { return p.audioDir }

// StagingDir holds episodes while they are narrated. It sits beside AudioDir,
// on the same filesystem but outside the served tree.
func (p *Producer) StagingDir() string {
	dir := filepath.Clean(p.audioDir)
	return filepath.Join(filepath.Dir(dir), "."+filepath.Base(dir)+"-staging")
}

// Produce converts the document at path. name is the document's original
// file name, used as the episode title.
func (p *Producer) Produce(ctx context.Context, path, name string, pr prefs.Preferences) (Episode, error) {
	start := time.Now()

	text, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return Episode{}, err
	}

	title := strings.TrimSuffix(name, filepath.Ext(name))

	lines, err := p.writer.Write(ctx, Source{Title: title, Text: text}, pr)
	if err != nil {
		return Episode{}, err
	}

	if err := ValidateScript(lines); err != nil {
		return Episode{}, fmt.Errorf("invalid script: %w", err)
	}

	filename := uuid.NewString() + ".mp3"
	if err := p.store(ctx, filename, func(w *bufio.Writer) error {
		return p.narrator.Narrate(ctx, lines, w)
	}); err != nil {
		return Episode{}, err
	}

	slog.Info("Produced episode",
		"file", filename,
		"title", title,
		"lines", len(lines),
		"chars", len(text),
		"elapsed", time.Since(start),
	)

	return Episode{Filename: filename, Transcript: lines}, nil
}

// store writes through a staged file so a failed narration never leaves a
// partial episode behind and a running one is never visible under AudioDir.
func (p *Producer) store(ctx context.Context, filename string, write func(*bufio.Writer) error) error {
	if err := os.MkdirAll(p.audioDir, 0o755); err != nil {
		return fmt.Errorf("failed to create audio directory: %w", err)
	}

	if err := os.MkdirAll(p.StagingDir(), 0o700); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	tmp, err := os.CreateTemp(p.StagingDir(), "episode-*.mp3")
	if err != nil {
		return fmt.Errorf("failed to create episode file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	buf := bufio.NewWriter(tmp)

	if err := write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to narrate episode: %w", err)
	}

	if err := buf.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write episode: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write episode: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	//nolint:gosec // served as a public static file
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set episode permissions: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(p.audioDir, filename)); err != nil {
		return fmt.Errorf("failed to store episode: %w", err)
	}

	return nil
}
