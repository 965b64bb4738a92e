// Package scale maps scale degrees to MIDI pitches for a tonic and mode.
package scale

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownMode  = errors.New("unknown scale")
	ErrUnknownTonic = errors.New("unknown tonic")
	ErrOctave       = errors.New("octave must be between -1 and 8")
)

// Mode is a named set of semitone offsets from the tonic within one octave
type Mode struct {
	Name    string
	Offsets []int
}

// Scale definitions - intervals from root (semitones)
var modes = []Mode{
	{"Major", []int{0, 2, 4, 5, 7, 9, 11}},
	{"Minor", []int{0, 2, 3, 5, 7, 8, 10}},
	{"Dorian", []int{0, 2, 3, 5, 7, 9, 10}},
	{"Phrygian", []int{0, 1, 3, 5, 7, 8, 10}},
	{"Lydian", []int{0, 2, 4, 6, 7, 9, 11}},
	{"Mixolydian", []int{0, 2, 4, 5, 7, 9, 10}},
	{"Locrian", []int{0, 1, 3, 5, 6, 8, 10}},
	{"HarmonicMinor", []int{0, 2, 3, 5, 7, 8, 11}},
	{"MelodicMinor", []int{0, 2, 3, 5, 7, 9, 11}},
	{"MajorPentatonic", []int{0, 2, 4, 7, 9}},
	{"MinorPentatonic", []int{0, 3, 5, 7, 10}},
	{"Blues", []int{0, 3, 5, 6, 7, 10}},
	{"WholeTone", []int{0, 2, 4, 6, 8, 10}},
	{"Hirajoshi", []int{0, 2, 3, 7, 8}},
	{"PhrygianDominant", []int{0, 1, 4, 5, 7, 8, 10}},
	{"Chromatic", []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
}

var tonics = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flats = map[string]string{"Db": "C#", "Eb": "D#", "Gb": "F#", "Ab": "G#", "Bb": "A#"}

// Modes returns all mode names in display order
func Modes() []string {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.Name
	}
	return names
}

// Tonics returns the twelve pitch-class names
func Tonics() []string {
	return append([]string(nil), tonics...)
}

// FindMode looks up a mode by case-insensitive name
func FindMode(name string) (Mode, error) {
	for _, m := range modes {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return Mode{}, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// PitchClass returns 0-11 for a tonic name like "C#" or "Eb"
func PitchClass(name string) (int, error) {
	n := strings.TrimSpace(name)
	if len(n) > 0 {
		n = strings.ToUpper(n[:1]) + n[1:]
	}
	if sharp, ok := flats[n]; ok {
		n = sharp
	}
	for i, t := range tonics {
		if t == n {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTonic, name)
}

// Key resolves scale degrees for a tonic and mode
type Key struct {
	Tonic string
	Root  int // MIDI note of degree 1
	Mode  Mode
}

// DefaultOctave puts degree 1 of a C key on MIDI 60
const DefaultOctave = 4

// Parse builds a key with degree 1 in the given octave (C4 = 60)
func Parse(tonic, mode string, octave int) (Key, error) {
	pc, err := PitchClass(tonic)
	if err != nil {
		return Key{}, err
	}
	m, err := FindMode(mode)
	if err != nil {
		return Key{}, err
	}
	if octave < -1 || octave > 8 {
		return Key{}, fmt.Errorf("%w: %d", ErrOctave, octave)
	}
	return Key{
		Tonic: tonics[pc],
		Root:  (octave+1)*12 + pc,
		Mode:  m,
	}, nil
}

// MustParse is Parse for known-good constants
func MustParse(tonic, mode string, octave int) Key {
	k, err := Parse(tonic, mode, octave)
	if err != nil {
		panic(fmt.Sprintf("scale.MustParse: %v", err))
	}
	return k
}

// NumDegrees returns the number of degrees in one octave of the mode
func (k Key) NumDegrees() int {
	return len(k.Mode.Offsets)
}

// DegreeToPitch maps a 1-based degree to a MIDI note. Degrees past the
// mode length continue into the next octave; degrees below 1 go down.
func (k Key) DegreeToPitch(degree int) int {
	n := len(k.Mode.Offsets)
	if n == 0 {
		return k.Root
	}
	idx := degree - 1
	octave := idx / n
	noteIdx := idx % n
	if noteIdx < 0 {
		noteIdx += n
		octave--
	}
	return k.Root + k.Mode.Offsets[noteIdx] + 12*octave
}

func (k Key) String() string {
	return k.Tonic + " " + k.Mode.Name
}

// NextMode returns the key with the following mode (wrapping)
func (k Key) NextMode() Key {
	for i, m := range modes {
		if m.Name == k.Mode.Name {
			k.Mode = modes[(i+1)%len(modes)]
			return k
		}
	}
	k.Mode = modes[0]
	return k
}

// NextTonic moves the tonic up a semitone, wrapping within the octave
func (k Key) NextTonic() Key {
	pc, err := PitchClass(k.Tonic)
	if err != nil {
		return k
	}
	next := (pc + 1) % 12
	k.Root = k.Root - pc + next
	k.Tonic = tonics[next]
	return k
}
