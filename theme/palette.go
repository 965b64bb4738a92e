package theme

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
)

//go:embed palettes/*.gpl
var builtin embed.FS

// DefaultPalette is used when no palette is configured
const DefaultPalette = "plasma"

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

// ParseGPL reads a GIMP palette: a "GIMP Palette" header, optional
// Name/Columns lines and comments, then one "R G B [label]" line per color
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if name, ok := strings.CutPrefix(line, "Name:"); ok {
			p.Name = strings.TrimSpace(name)
			continue
		}
		if c, ok := parseGPLColor(line); ok {
			p.Colors = append(p.Colors, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.Colors) == 0 {
		return nil, fmt.Errorf("no colors found in palette %q", p.Name)
	}
	return p, nil
}

func parseGPLColor(line string) (RGB, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return RGB{}, false
	}
	var c RGB
	for i := range c {
		v, err := strconv.ParseUint(fields[i], 10, 8)
		if err != nil {
			return RGB{}, false
		}
		c[i] = uint8(v)
	}
	return c, true
}

// LoadGPL reads a palette file
func LoadGPL(path string) (*Palette, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseGPL(f)
}

// Builtin returns the names of the embedded palettes
func Builtin() []string {
	entries, _ := builtin.ReadDir("palettes")
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".gpl"))
	}
	sort.Strings(names)
	return names
}

// LoadPalette resolves a built-in palette name or a .gpl path. Empty means
// DefaultPalette.
func LoadPalette(name string) (*Palette, error) {
	if name == "" {
		name = DefaultPalette
	}
	if strings.HasSuffix(name, ".gpl") {
		return LoadGPL(name)
	}
	f, err := builtin.Open("palettes/" + name + ".gpl")
	if err != nil {
		return nil, fmt.Errorf("unknown palette %q (built in: %s)", name, strings.Join(Builtin(), ", "))
	}
	defer f.Close()
	return ParseGPL(f)
}

// MustLoadPalette is LoadPalette for built-in names
func MustLoadPalette(name string) *Palette {
	p, err := LoadPalette(name)
	if err != nil {
		panic(fmt.Sprintf("failed to load palette %s: %v", name, err))
	}
	return p
}

// Lookup returns the color at position norm (0-1), blending neighbours
func (p *Palette) Lookup(norm float64) RGB {
	last := len(p.Colors) - 1
	switch {
	case norm <= 0 || last == 0:
		return p.Colors[0]
	case norm >= 1:
		return p.Colors[last]
	}

	i, frac := math.Modf(norm * float64(last))
	lo, hi := p.Colors[int(i)], p.Colors[int(i)+1]
	var out RGB
	for ch := range out {
		out[ch] = uint8(float64(lo[ch])*(1-frac) + float64(hi[ch])*frac)
	}
	return out
}

// Scale dims a color by f (0-1) for unlit pads
func (c RGB) Scale(f float64) RGB {
	return RGB{uint8(float64(c[0]) * f), uint8(float64(c[1]) * f), uint8(float64(c[2]) * f)}
}
