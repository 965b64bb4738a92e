package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-stepseq/device"
	"go-stepseq/theme"
)

// ParamControl is a slider for one device parameter. While Editing, the
// draft belongs to the user and Sync leaves it alone.
type ParamControl struct {
	Param   device.Param
	Editing bool
	Draft   float64
}

// NewParamControl starts a control at the parameter's current value
func NewParamControl(p device.Param) ParamControl {
	return ParamControl{Param: p, Draft: p.Value}
}

// Sync takes a fresh parameter value from the device
func (c *ParamControl) Sync(p device.Param) {
	c.Param = p
	if !c.Editing {
		c.Draft = p.Value
	}
}

// Begin starts an edit from the current value
func (c *ParamControl) Begin() {
	c.Editing = true
	c.Draft = c.Param.Value
}

// Nudge moves the draft by n resolution steps
func (c *ParamControl) Nudge(n int) {
	if !c.Editing {
		c.Begin()
	}
	c.Draft = c.Param.Quantize(c.Draft + float64(n)*c.Param.Resolution())
}

// Commit ends the edit and returns the value to write to the device
func (c *ParamControl) Commit() (float64, bool) {
	if !c.Editing {
		return 0, false
	}
	c.Editing = false
	return c.Draft, true
}

// Cancel drops the draft
func (c *ParamControl) Cancel() {
	c.Editing = false
	c.Draft = c.Param.Value
}

// View renders "name [████░░░░] value" with width slider cells
func (c ParamControl) View(th *theme.Theme, width int, focused bool) string {
	p := c.Param
	norm := 0.0
	if p.Max > p.Min {
		norm = (c.Draft - p.Min) / (p.Max - p.Min)
	}
	filled := int(math.Round(norm * float64(width)))
	filled = max(0, min(width, filled))

	bar := strings.Repeat(string(th.Symbols.SliderFull), filled) +
		strings.Repeat(string(th.Symbols.SliderEmpty), width-filled)

	barColor := th.Accent()
	if c.Editing {
		barColor = th.Warning()
	}
	label := lipgloss.NewStyle().Foreground(th.FG())
	if focused {
		label = label.Foreground(th.Cursor()).Bold(true)
	}
	return fmt.Sprintf("%s [%s] %s",
		label.Render(fmt.Sprintf("%-10s", p.Name)),
		lipgloss.NewStyle().Foreground(barColor).Render(bar),
		formatValue(p, c.Draft))
}

func formatValue(p device.Param, v float64) string {
	if p.Steps > 1 && p.Resolution() >= 1 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
