package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme maps UI roles onto positions of a palette. The terminal UI and the
// Launchpad LEDs draw from the same palette.
type Theme struct {
	Palette *Palette
	Symbols Symbols
}

// Symbols are the glyphs of the step grid and the parameter sliders
type Symbols struct {
	StepEmpty    rune // gate off
	StepActive   rune // gate on
	StepPlayhead rune // step now sounding
	StepBeyond   rune // stored but past the step count

	// Same states under the edit cursor
	CursorEmpty    rune
	CursorActive   rune
	CursorPlayhead rune
	CursorBeyond   rune

	SliderFull  rune
	SliderEmpty rune
}

// DefaultSymbols are the glyphs used unless a caller overrides them
var DefaultSymbols = Symbols{
	StepEmpty:      '·',
	StepActive:     '●',
	StepPlayhead:   '▶',
	StepBeyond:     '-',
	CursorEmpty:    '○',
	CursorActive:   '◉',
	CursorPlayhead: '▷',
	CursorBeyond:   '□',
	SliderFull:     '█',
	SliderEmpty:    '░',
}

func New(palette *Palette) *Theme {
	return &Theme{Palette: palette, Symbols: DefaultSymbols}
}

// Palette positions (0-1) of each role
const (
	RoleMuted    = 0.2
	RoleFG       = 0.4
	RoleAccent   = 0.5
	RoleCursor   = 0.6
	RoleActive   = 0.7
	RoleWarning  = 0.8
	RoleSuccess  = 1.0
	roleVoiceLo  = 0.5 // first voice
	roleVoiceGap = 0.4 // spread across the remaining voices
)

// Color returns the terminal color at a palette position
func (t *Theme) Color(role float64) lipgloss.Color {
	c := t.Palette.Lookup(role)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}

func (t *Theme) FG() lipgloss.Color      { return t.Color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) Active() lipgloss.Color  { return t.Color(RoleActive) }
func (t *Theme) Cursor() lipgloss.Color  { return t.Color(RoleCursor) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }

// RGB returns raw RGB for any palette position (for Launchpad LEDs)
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}

// VoiceRGB gives each of n voices its own color; voice 0 sits at the
// accent role
func (t *Theme) VoiceRGB(voice, n int) RGB {
	if n <= 1 {
		return t.RGB(roleVoiceLo)
	}
	return t.RGB(roleVoiceLo + roleVoiceGap*float64(voice)/float64(n-1))
}
