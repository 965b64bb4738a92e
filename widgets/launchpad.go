package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PadPreview is an on-screen copy of the Launchpad LEDs: the 8x8 grid
// (row 0 at the bottom) and the round buttons above it
type PadPreview struct {
	Grid   [8][8][3]uint8
	Top    [8][3]uint8
	Legend []LegendItem
}

// LegendItem explains one pad or group of pads
type LegendItem struct {
	Color [3]uint8
	Name  string
	Desc  string
}

// RenderPad renders a single colored pad; unlit pads draw as an outline
func RenderPad(color [3]uint8) string {
	if color == ([3]uint8{}) {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#303030")).Render("□")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color))).Render("■")
}

func renderPadLine(colors [8][3]uint8) string {
	cells := make([]string, len(colors))
	for i, c := range colors {
		cells[i] = RenderPad(c)
	}
	return strings.Join(cells, " ")
}

// Render draws the pads with the legend to their right
func (p PadPreview) Render() string {
	lines := []string{renderPadLine(p.Top), ""}
	for row := 7; row >= 0; row-- {
		lines = append(lines, renderPadLine(p.Grid[row]))
	}
	pads := strings.Join(lines, "\n")
	if len(p.Legend) == 0 {
		return pads
	}

	legend := make([]string, len(p.Legend))
	for i, item := range p.Legend {
		legend[i] = fmt.Sprintf("%s %s - %s", RenderPad(item.Color), item.Name, item.Desc)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, pads, "    ", strings.Join(legend, "\n"))
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
