package theme

import (
	"strings"
	"testing"
)

func TestParseGPL(t *testing.T) {
	src := `GIMP Palette
Name: two
Columns: 2
# comment
  0   0   0	black
255 255 255	white
`
	p, err := ParseGPL(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "two" || len(p.Colors) != 2 {
		t.Fatalf("palette = %+v", p)
	}

	tests := []struct {
		norm float64
		want RGB
	}{
		{-1, RGB{0, 0, 0}},
		{0, RGB{0, 0, 0}},
		{0.5, RGB{127, 127, 127}},
		{1, RGB{255, 255, 255}},
		{2, RGB{255, 255, 255}},
	}
	for _, tt := range tests {
		if got := p.Lookup(tt.norm); got != tt.want {
			t.Errorf("Lookup(%v) = %v, want %v", tt.norm, got, tt.want)
		}
	}

	if _, err := ParseGPL(strings.NewReader("GIMP Palette\n")); err == nil {
		t.Error("empty palette accepted")
	}
}

func TestLoadPalette(t *testing.T) {
	for _, name := range []string{"", "plasma", "mono"} {
		p, err := LoadPalette(name)
		if err != nil {
			t.Errorf("LoadPalette(%q): %v", name, err)
			continue
		}
		if len(p.Colors) < 2 {
			t.Errorf("LoadPalette(%q): %d colors", name, len(p.Colors))
		}
	}
	if _, err := LoadPalette("nope"); err == nil {
		t.Error("unknown palette accepted")
	}
	if got := Builtin(); len(got) != 2 || got[0] != "mono" {
		t.Errorf("Builtin() = %v", got)
	}
}

func TestVoiceRGB(t *testing.T) {
	th := New(MustLoadPalette("plasma"))
	if th.VoiceRGB(0, 2) != th.RGB(RoleAccent) {
		t.Error("voice 0 is not the accent color")
	}
	if th.VoiceRGB(0, 2) == th.VoiceRGB(1, 2) {
		t.Error("two voices share a color")
	}
	if th.VoiceRGB(0, 1) != th.VoiceRGB(0, 2) {
		t.Error("single voice moved off the accent color")
	}
}
