// Package prefs holds the user-selected generation options sent with a conversion.
package prefs

import (
	"errors"
	"fmt"
	"slices"
)

// Tone controls the register of the generated conversation.
type Tone string

const (
	ToneCasual         Tone = "casual"
	ToneConversational Tone = "conversational"
	ToneProfessional   Tone = "professional"
)

// Length controls how long the generated audio is.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Depth controls how much detail the hosts go into.
type Depth string

const (
	DepthOverview Depth = "overview"
	DepthBalanced Depth = "balanced"
	DepthDeepDive Depth = "deep-dive"
)

var (
	tones   = []Tone{ToneCasual, ToneConversational, ToneProfessional}
	lengths = []Length{LengthShort, LengthMedium, LengthLong}
	depths  = []Depth{DepthOverview, DepthBalanced, DepthDeepDive}
)

// Preferences is the snapshot of options sent along with a document.
type Preferences struct {
	Tone   Tone   `json:"tone"`
	Length Length `json:"length"`
	Depth  Depth  `json:"depth"`
	Humor  bool   `json:"humor"`
}

// Default returns the options used when the user changes nothing.
func Default() Preferences {
	return Preferences{
		Tone:   ToneConversational,
		Length: LengthMedium,
		Depth:  DepthBalanced,
		Humor:  false,
	}
}

// Validate returns an error if any option is outside its allowed set.
func (p Preferences) Validate() error {
	var errs []error

	if !slices.Contains(tones, p.Tone) {
		errs = append(errs, fmt.Errorf("invalid tone %q", p.Tone))
	}

	if !slices.Contains(lengths, p.Length) {
		errs = append(errs, fmt.Errorf("invalid length %q", p.Length))
	}

	if !slices.Contains(depths, p.Depth) {
		errs = append(errs, fmt.Errorf("invalid depth %q", p.Depth))
	}

	return errors.Join(errs...)
}

// ParseTone maps a flag value to a Tone.
func ParseTone(s string) (Tone, error) {
	return parse(tones, s, "tone")
}

// ParseLength maps a flag value to a Length.
func ParseLength(s string) (Length, error) {
	return parse(lengths, s, "length")
}

// ParseDepth maps a flag value to a Depth.
func ParseDepth(s string) (Depth, error) {
	return parse(depths, s, "depth")
}

func parse[T ~string](allowed []T, s, what string) (T, error) {
	v := T(s)
	if !slices.Contains(allowed, v) {
		var zero T
		return zero, fmt.Errorf("unknown %s %q", what, s)
	}

	return v, nil
}

// Next returns the tone after t, wrapping around.
func (t Tone) Next() Tone { return next(tones, t) }

// Next returns the length after l, wrapping around.
func (l Length) Next() Length { return next(lengths, l) }

// Next returns the depth after d, wrapping around.
func (d Depth) Next() Depth { return next(depths, d) }

func next[T comparable](all []T, cur T) T {
	i := slices.Index(all, cur)
	return all[(i+1)%len(all)]
}
