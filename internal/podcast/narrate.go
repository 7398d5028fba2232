package podcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/alkime/docucast/internal/audio"
	"github.com/alkime/docucast/internal/conversion"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAINarrator voices each line with OpenAI text-to-speech. The MP3 of
// each line is appended to the output.
type OpenAINarrator struct {
	apiKey string
	voices map[conversion.Speaker]openai.AudioSpeechNewParamsVoice
}

func NewOpenAINarrator(apiKey string) *OpenAINarrator {
	return &OpenAINarrator{
		apiKey: apiKey,
		voices: map[conversion.Speaker]openai.AudioSpeechNewParamsVoice{
			conversion.SpeakerHost:   openai.AudioSpeechNewParamsVoiceAlloy,
			conversion.SpeakerExpert: openai.AudioSpeechNewParamsVoice("onyx"),
		},
	}
}

func (n *OpenAINarrator) Narrate(ctx context.Context, lines []conversion.Line, w io.Writer) error {
	if n.apiKey == "" {
		return errors.New("API key required: set OPENAI_API_KEY or run docucast config set-key openai")
	}

	client := openai.NewClient(option.WithAPIKey(n.apiKey))

	for i, line := range lines {
		params := openai.AudioSpeechNewParams{
			Input:          line.Text,
			Model:          openai.SpeechModelTTS1,
			Voice:          n.voices[line.Speaker],
			ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		}

		resp, err := client.Audio.Speech.New(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to synthesize line %d via OpenAI API: %w", i+1, err)
		}

		_, err = io.Copy(w, resp.Body)
		resp.Body.Close()

		if err != nil {
			return fmt.Errorf("failed to write line %d audio: %w", i+1, err)
		}

		slog.Debug("Narrated line", "line", i+1, "speaker", line.Speaker)
	}

	return nil
}

// ToneNarrator stands in for speech offline: each line becomes a tone whose
// pitch identifies the speaker and whose length follows the word count.
type ToneNarrator struct {
	SampleRate int
	PerWord    time.Duration
	Gap        time.Duration
}

func NewToneNarrator() *ToneNarrator {
	return &ToneNarrator{
		SampleRate: audio.DefaultSampleRate,
		PerWord:    180 * time.Millisecond,
		Gap:        200 * time.Millisecond,
	}
}

var toneFrequency = map[conversion.Speaker]float64{
	conversion.SpeakerHost:   220,
	conversion.SpeakerExpert: 330,
}

const (
	minLineDuration = 400 * time.Millisecond
	maxLineDuration = 6 * time.Second
	toneAmplitude   = 0.3
	fadeDuration    = 10 * time.Millisecond
)

// LineDuration is how long a line sounds, excluding the gap after it.
func (n *ToneNarrator) LineDuration(line conversion.Line) time.Duration {
	words := len(strings.Fields(line.Text))
	return min(max(time.Duration(words)*n.PerWord, minLineDuration), maxLineDuration)
}

func (n *ToneNarrator) Narrate(ctx context.Context, lines []conversion.Line, w io.Writer) error {
	var samples []int16

	for _, line := range lines {
		samples = n.appendTone(samples, toneFrequency[line.Speaker], n.LineDuration(line))
		samples = append(samples, make([]int16, n.count(n.Gap))...)
	}

	return audio.EncodePCM(ctx, w, samples, n.SampleRate)
}

func (n *ToneNarrator) count(d time.Duration) int {
	return int(d.Seconds() * float64(n.SampleRate))
}

func (n *ToneNarrator) appendTone(samples []int16, freq float64, d time.Duration) []int16 {
	total := n.count(d)
	fade := max(1, n.count(fadeDuration))

	for i := range total {
		gain := toneAmplitude * min(1, float64(i)/float64(fade), float64(total-1-i)/float64(fade))
		v := gain * math.Sin(2*math.Pi*freq*float64(i)/float64(n.SampleRate))
		samples = append(samples, int16(v*math.MaxInt16))
	}

	return samples
}
