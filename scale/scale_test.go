package scale

import (
	"errors"
	"testing"
)

func TestDegreeToPitch(t *testing.T) {
	cMinor := MustParse("C", "Minor", DefaultOctave)

	tests := []struct {
		degree int
		want   int
	}{
		{1, 60},
		{2, 62},
		{3, 63},
		{7, 70},
		{8, 72}, // wraps to next octave
		{9, 74},
		{0, 58},  // below the tonic
		{-6, 48}, // one octave down
	}

	for _, tt := range tests {
		if got := cMinor.DegreeToPitch(tt.degree); got != tt.want {
			t.Errorf("DegreeToPitch(%d) = %d, want %d", tt.degree, got, tt.want)
		}
	}
	if cMinor.NumDegrees() != 7 {
		t.Errorf("NumDegrees() = %d, want 7", cMinor.NumDegrees())
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		tonic, mode string
		octave      int
		root        int
		err         error
	}{
		{"C", "Major", 4, 60, nil},
		{"a", "minor", 3, 57, nil},
		{"Eb", "Dorian", 4, 63, nil},
		{"F#", "MinorPentatonic", 2, 42, nil},
		{"H", "Major", 4, 0, ErrUnknownTonic},
		{"C", "Klingon", 4, 0, ErrUnknownMode},
		{"G", "Major", 9, 0, ErrOctave},
	}

	for _, tt := range tests {
		t.Run(tt.tonic+" "+tt.mode, func(t *testing.T) {
			k, err := Parse(tt.tonic, tt.mode, tt.octave)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("err = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if k.Root != tt.root {
				t.Errorf("Root = %d, want %d", k.Root, tt.root)
			}
		})
	}
}

func TestNextTonicAndMode(t *testing.T) {
	k := MustParse("B", "Major", DefaultOctave)
	next := k.NextTonic()
	if next.Tonic != "C" || next.Root != 60 {
		t.Errorf("NextTonic() = %s root %d, want C root 60", next.Tonic, next.Root)
	}

	m := MustParse("C", "Chromatic", DefaultOctave).NextMode()
	if m.Mode.Name != "Major" {
		t.Errorf("NextMode() from last = %s, want Major", m.Mode.Name)
	}
}
