package widgets

import (
	"strings"
	"testing"

	"go-stepseq/device"
	"go-stepseq/theme"
)

func testTheme(t *testing.T) *theme.Theme {
	t.Helper()
	p, err := theme.LoadPalette("")
	if err != nil {
		t.Fatal(err)
	}
	return theme.New(p)
}

func TestStepRowSymbol(t *testing.T) {
	sym := testTheme(t).Symbols
	row := StepRow{
		Gates:     []bool{true, false, true, false, true, false},
		StepCount: 4,
		Playhead:  2,
		Cursor:    1,
	}
	want := []rune{sym.StepActive, sym.CursorEmpty, sym.StepPlayhead, sym.StepEmpty, sym.StepBeyond, sym.StepBeyond}
	for step, w := range want {
		if got := row.Symbol(sym, step); got != w {
			t.Errorf("Symbol(%d) = %c, want %c", step, got, w)
		}
	}

	tests := []struct {
		name   string
		cursor int
		want   rune
	}{
		{"cursor on gate", 0, sym.CursorActive},
		{"cursor on playhead", 2, sym.CursorPlayhead},
		{"cursor beyond", 5, sym.CursorBeyond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := row
			r.Cursor = tt.cursor
			if got := r.Symbol(sym, tt.cursor); got != tt.want {
				t.Errorf("got %c, want %c", got, tt.want)
			}
		})
	}
}

func TestStepRowRender(t *testing.T) {
	th := testTheme(t)
	row := StepRow{Gates: make([]bool, 8), StepCount: 8, Playhead: -1, Cursor: -1}
	out := row.Render(th)
	if n := strings.Count(out, string(th.Symbols.StepEmpty)); n != 8 {
		t.Errorf("rendered %d empty steps, want 8", n)
	}
}

func TestParamControlEditing(t *testing.T) {
	p := device.Param{Name: "index", Min: 0, Max: 10, Steps: 11, Value: 2}
	c := NewParamControl(p)

	c.Begin()
	c.Nudge(3)
	if c.Draft != 5 {
		t.Fatalf("Draft = %v, want 5", c.Draft)
	}

	// Device updates while editing must not clobber the draft
	p.Value = 9
	c.Sync(p)
	if c.Draft != 5 {
		t.Errorf("Sync while editing changed draft to %v", c.Draft)
	}
	if c.Param.Value != 9 {
		t.Errorf("Sync did not record new value")
	}

	v, ok := c.Commit()
	if !ok || v != 5 {
		t.Errorf("Commit() = %v, %v", v, ok)
	}
	if _, ok := c.Commit(); ok {
		t.Error("second Commit reported a value")
	}

	p.Value = 7
	c.Sync(p)
	if c.Draft != 7 {
		t.Errorf("Sync while idle: Draft = %v, want 7", c.Draft)
	}
}

func TestParamControlNudgeClamps(t *testing.T) {
	c := NewParamControl(device.Param{Name: "mod", Min: 1, Max: 4, Steps: 4, Value: 3})
	c.Nudge(5)
	if c.Draft != 4 {
		t.Errorf("Draft = %v, want 4", c.Draft)
	}
	c.Nudge(-10)
	if c.Draft != 1 {
		t.Errorf("Draft = %v, want 1", c.Draft)
	}
	c.Cancel()
	if c.Editing || c.Draft != 3 {
		t.Errorf("after Cancel: %+v", c)
	}
}

func TestParamControlView(t *testing.T) {
	th := testTheme(t)
	c := NewParamControl(device.Param{Name: "index", Min: 0, Max: 10, Steps: 101, Value: 5})
	out := c.View(th, 10, false)
	if n := strings.Count(out, string(th.Symbols.SliderFull)); n != 5 {
		t.Errorf("filled cells = %d, want 5: %q", n, out)
	}
	if !strings.Contains(out, "5.00") {
		t.Errorf("value missing: %q", out)
	}
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{
		{Title: "Pads", Keys: []KeyBinding{{"top 1", "play/stop"}, {"rows 8-7", "voice 1"}}},
		{Title: "Keyboard", Keys: []KeyBinding{{"any", "play"}}},
	})
	want := "Pads\n  top 1     play/stop\n  rows 8-7  voice 1\n\nKeyboard\n  any       play"
	if out != want {
		t.Errorf("RenderKeyHelp =\n%s\nwant\n%s", out, want)
	}
}

func TestPadPreview(t *testing.T) {
	var p PadPreview
	p.Grid[7][0] = [3]uint8{255, 0, 0}
	p.Top[0] = [3]uint8{0, 255, 0}

	out := p.Render()
	if lines := strings.Split(out, "\n"); len(lines) != 10 {
		t.Fatalf("got %d lines, want top row, gap and 8 grid rows", len(lines))
	}
	if n := strings.Count(out, "■"); n != 2 {
		t.Errorf("lit pads = %d, want 2", n)
	}

	p.Legend = []LegendItem{{Color: p.Top[0], Name: "top 1", Desc: "play/stop"}}
	if !strings.Contains(p.Render(), "top 1 - play/stop") {
		t.Error("legend missing")
	}
}
