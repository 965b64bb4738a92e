package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-stepseq/theme"
)

// StepRow is one voice lane as drawn in the terminal
type StepRow struct {
	Gates     []bool // all stored gates, including those past StepCount
	StepCount int
	Playhead  int // -1 hides the playhead
	Cursor    int // -1 hides the cursor
}

// Symbol picks the glyph for one step
func (r StepRow) Symbol(sym theme.Symbols, step int) rune {
	cursor := step == r.Cursor
	switch {
	case step >= r.StepCount:
		if cursor {
			return sym.CursorBeyond
		}
		return sym.StepBeyond
	case step == r.Playhead:
		if cursor {
			return sym.CursorPlayhead
		}
		return sym.StepPlayhead
	case step < len(r.Gates) && r.Gates[step]:
		if cursor {
			return sym.CursorActive
		}
		return sym.StepActive
	default:
		if cursor {
			return sym.CursorEmpty
		}
		return sym.StepEmpty
	}
}

// Render draws the row, grouping steps in fours
func (r StepRow) Render(th *theme.Theme) string {
	var out strings.Builder
	for step := range r.Gates {
		if step > 0 && step%4 == 0 {
			out.WriteString(" ")
		}
		out.WriteString(r.style(th, step).Render(string(r.Symbol(th.Symbols, step))))
	}
	return out.String()
}

func (r StepRow) style(th *theme.Theme, step int) lipgloss.Style {
	s := lipgloss.NewStyle()
	switch {
	case step == r.Cursor:
		return s.Foreground(th.Cursor()).Bold(true)
	case step >= r.StepCount:
		return s.Foreground(th.Muted())
	case step == r.Playhead:
		return s.Foreground(th.Success())
	case r.Gates[step]:
		return s.Foreground(th.Active())
	}
	return s.Foreground(th.FG())
}
