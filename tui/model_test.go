package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"go-stepseq/config"
	"go-stepseq/scale"
	"go-stepseq/studio"
	"go-stepseq/theme"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	th := theme.New(theme.MustLoadPalette(""))
	st, err := studio.New(config.DefaultConfig(), th)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)
	return NewModel(st, th, 0)
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestGridEditing(t *testing.T) {
	m := newTestModel(t)
	seq := m.Studio.Sequencer()

	m = press(t, m, "l", "l", "space")
	if !seq.Gate(0, 2) {
		t.Error("space did not toggle voice 0 step 2")
	}

	m = press(t, m, "j", "space")
	if !seq.Gate(1, 2) {
		t.Error("voice cursor did not move down")
	}
	if m.Studio.Selected() != 1 {
		t.Errorf("selected = %d", m.Studio.Selected())
	}

	m = press(t, m, "h", "h", "h", "space")
	if !seq.Gate(1, 0) {
		t.Error("cursor did not clamp at step 0")
	}
}

func TestTempoAndSteps(t *testing.T) {
	m := newTestModel(t)
	seq := m.Studio.Sequencer()

	m = press(t, m, "+", "+")
	if seq.Tempo() != 130 {
		t.Errorf("tempo = %v, want 130", seq.Tempo())
	}
	m = press(t, m, "-")
	if seq.Tempo() != 125 {
		t.Errorf("tempo = %v, want 125", seq.Tempo())
	}
	for range 60 {
		m = press(t, m, "-")
	}
	if seq.Tempo() != minTempo {
		t.Errorf("tempo = %v, want clamp at %d", seq.Tempo(), minTempo)
	}

	m = press(t, m, "[", "[")
	if seq.StepCount() != 14 {
		t.Errorf("steps = %d, want 14", seq.StepCount())
	}
	press(t, m, "]", "]", "]")
	if seq.StepCount() != 16 {
		t.Errorf("steps = %d, want clamp at 16", seq.StepCount())
	}
}

func TestScaleAndTonic(t *testing.T) {
	m := newTestModel(t)
	seq := m.Studio.Sequencer()

	m = press(t, m, "s")
	if k := seq.Key().(scale.Key); k.Mode.Name != "Dorian" {
		t.Errorf("mode = %s, want Dorian", k.Mode.Name)
	}
	press(t, m, "t")
	if k := seq.Key().(scale.Key); k.Tonic != "C#" {
		t.Errorf("tonic = %s, want C#", k.Tonic)
	}
}

func TestParamEdit(t *testing.T) {
	m := newTestModel(t)
	dev := m.Studio.Sequencer().Voices()[0].Device
	before, _ := dev.Param("modulator")

	m = press(t, m, "e", ".")
	if c := m.focusedParam(); !c.Editing {
		t.Fatal("nudge did not start an edit")
	}
	if p, _ := dev.Param("modulator"); p.Value != before.Value {
		t.Error("draft reached the device before commit")
	}

	m = press(t, m, "enter")
	after, _ := dev.Param("modulator")
	if after.Value != before.Value+1 {
		t.Errorf("modulator = %v, want %v", after.Value, before.Value+1)
	}

	m = press(t, m, "down", ",", "esc")
	if m.editing {
		t.Error("esc did not leave the parameter panel")
	}
	if p, _ := dev.Param("carrier"); p.Value != 1 {
		t.Errorf("cancelled edit changed carrier to %v", p.Value)
	}
}

func TestPlayAndView(t *testing.T) {
	m := newTestModel(t)
	seq := m.Studio.Sequencer()

	m = press(t, m, "p")
	if !seq.Playing() {
		t.Fatal("p did not start playback")
	}
	if !strings.Contains(m.View(), "PLAY") {
		t.Error("header does not show PLAY")
	}
	m = press(t, m, "p", "v")
	view := m.View()
	if !strings.Contains(view, "STOP") || !strings.Contains(view, "play/stop") {
		t.Errorf("view missing stop state or pad legend:\n%s", view)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Error("q returned no quit command")
	}
}
