package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-stepseq/debug"
	"go-stepseq/scale"
	"go-stepseq/sequencer"
	"go-stepseq/studio"
	"go-stepseq/theme"
	"go-stepseq/widgets"
)

// Tempo limits for keyboard nudges
const (
	minTempo  = 20
	maxTempo  = 300
	tempoStep = 5
)

type Model struct {
	Studio *studio.Studio
	Theme  *theme.Theme

	keys keyMap
	help help.Model
	fps  int

	cursor   int                      // step under the cursor
	params   [][]widgets.ParamControl // per voice
	paramIdx int
	editing  bool // parameter panel has focus
	showPads bool
	status   string
	quitting bool
}

type UpdateMsg struct{}

type frameMsg time.Time

func NewModel(st *studio.Studio, th *theme.Theme, fps int) Model {
	if fps <= 0 {
		fps = sequencer.DefaultFPS
	}
	m := Model{
		Studio: st,
		Theme:  th,
		keys:   defaultKeys(),
		help:   help.New(),
		fps:    fps,
	}
	m.syncParams()
	return m
}

func ListenForUpdates(st *studio.Studio) tea.Cmd {
	return func() tea.Msg {
		<-st.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) frame() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Studio),
		m.frame(),
	)
}

func (m Model) seq() *sequencer.Sequencer {
	return m.Studio.Sequencer()
}

// syncParams pulls device values into the controls; drafts being edited
// are left alone
func (m *Model) syncParams() {
	voices := m.seq().Voices()
	if len(m.params) != len(voices) {
		m.params = make([][]widgets.ParamControl, len(voices))
	}
	for v, voice := range voices {
		if voice.Device == nil {
			continue
		}
		ps := voice.Device.Params()
		if len(m.params[v]) != len(ps) {
			m.params[v] = make([]widgets.ParamControl, len(ps))
			for i, p := range ps {
				m.params[v][i] = widgets.NewParamControl(p)
			}
			continue
		}
		for i, p := range ps {
			m.params[v][i].Sync(p)
		}
	}
}

// focusedParam returns the control under the parameter cursor, or nil
func (m *Model) focusedParam() *widgets.ParamControl {
	ctrls := m.params[m.Studio.Selected()]
	if len(ctrls) == 0 {
		return nil
	}
	m.paramIdx = min(m.paramIdx, len(ctrls)-1)
	return &ctrls[m.paramIdx]
}

func (m *Model) setStatus(err error) {
	if err == nil {
		m.status = ""
		return
	}
	debug.Log("ui", "%v", err)
	m.status = err.Error()
}

func (m Model) currentKey() scale.Key {
	if k, ok := m.seq().Key().(scale.Key); ok {
		return k
	}
	return scale.MustParse("C", "Minor", scale.DefaultOctave)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case frameMsg:
		m.syncParams()
		return m, m.frame()

	case UpdateMsg:
		m.syncParams()
		return m, ListenForUpdates(m.Studio)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	seq := m.seq()
	voice := m.Studio.Selected()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		seq.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Pads):
		m.showPads = !m.showPads

	case key.Matches(msg, m.keys.Edit):
		m.editing = !m.editing
		if !m.editing {
			if c := m.focusedParam(); c != nil {
				c.Cancel()
			}
		}

	// Parameter panel
	case m.editing && key.Matches(msg, m.keys.Up):
		m.paramIdx = max(0, m.paramIdx-1)
	case m.editing && key.Matches(msg, m.keys.Down):
		m.paramIdx++
		m.focusedParam()
	case key.Matches(msg, m.keys.NudgeDown, m.keys.NudgeUp):
		if c := m.focusedParam(); c != nil {
			dir := 1
			if key.Matches(msg, m.keys.NudgeDown) {
				dir = -1
			}
			c.Nudge(dir)
		}
	case key.Matches(msg, m.keys.Commit):
		if c := m.focusedParam(); c != nil {
			if v, ok := c.Commit(); ok {
				dev := seq.Voices()[voice].Device
				m.setStatus(dev.SetParam(c.Param.Name, v))
				m.syncParams()
			}
		}
	case key.Matches(msg, m.keys.Cancel):
		if c := m.focusedParam(); c != nil {
			c.Cancel()
		}
		m.editing = false

	// Grid
	case key.Matches(msg, m.keys.Up):
		m.Studio.SelectVoice(voice - 1)
	case key.Matches(msg, m.keys.Down):
		m.Studio.SelectVoice(voice + 1)
	case key.Matches(msg, m.keys.Left):
		m.cursor = max(0, m.cursor-1)
	case key.Matches(msg, m.keys.Right):
		m.cursor = min(sequencer.MaxSteps-1, m.cursor+1)
	case key.Matches(msg, m.keys.Toggle):
		_, err := seq.ToggleGate(voice, m.cursor)
		m.setStatus(err)

	// Transport and timing
	case key.Matches(msg, m.keys.Play):
		seq.TogglePlayback()
	case key.Matches(msg, m.keys.TempoUp):
		m.setStatus(seq.SetTempo(min(maxTempo, seq.Tempo()+tempoStep)))
	case key.Matches(msg, m.keys.TempoDown):
		m.setStatus(seq.SetTempo(max(minTempo, seq.Tempo()-tempoStep)))
	case key.Matches(msg, m.keys.StepsUp):
		m.setStatus(seq.SetStepCount(min(sequencer.MaxSteps, seq.StepCount()+1)))
	case key.Matches(msg, m.keys.StepsDown):
		m.setStatus(seq.SetStepCount(max(1, seq.StepCount()-1)))

	// Pitch
	case key.Matches(msg, m.keys.Scale):
		seq.SetKey(m.currentKey().NextMode())
	case key.Matches(msg, m.keys.Tonic):
		seq.SetKey(m.currentKey().NextTonic())
	case key.Matches(msg, m.keys.Audition):
		degree := int(msg.String()[0] - '0')
		m.setStatus(seq.Audition(voice, degree))
	case key.Matches(msg, m.keys.Randomize):
		m.setStatus(seq.RandomizeParams(voice))
		m.syncParams()
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.seq().Snapshot()
	selected := m.Studio.Selected()

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	nameStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())
	selStyle := lipgloss.NewStyle().Foreground(m.Theme.Cursor()).Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	// Header with device status
	playState := "STOP"
	if st.Playing {
		playState = "PLAY"
	}
	deviceStatus := ""
	if ids := m.Studio.Controllers(); len(ids) > 0 {
		deviceStatus = fmt.Sprintf("  ctrl:%d", len(ids))
	}
	header := headerStyle.Render(fmt.Sprintf("go-stepseq  %s  %3.0fbpm  step:%02d/%02d  %s%s",
		playState, st.Tempo, st.Playhead+1, st.StepCount, st.Key, deviceStatus))

	// Grid
	var grid strings.Builder
	for v, vs := range st.Voices {
		gates := m.seq().Grid().Row(v)
		row := widgets.StepRow{
			Gates:     gates[:],
			StepCount: st.StepCount,
			Playhead:  -1,
			Cursor:    -1,
		}
		if st.Playing {
			row.Playhead = st.Playhead
		}
		name := nameStyle.Render(fmt.Sprintf("  %-10s", vs.Name))
		if v == selected {
			row.Cursor = m.cursor
			name = selStyle.Render(fmt.Sprintf("> %-10s", vs.Name))
		}
		grid.WriteString(name)
		grid.WriteString(row.Render(m.Theme))
		grid.WriteString("\n")
	}

	// Parameters of the selected voice
	var params strings.Builder
	if selected < len(m.params) {
		for i, c := range m.params[selected] {
			params.WriteString("  ")
			params.WriteString(c.View(m.Theme, 20, m.editing && i == m.paramIdx))
			params.WriteString("\n")
		}
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(grid.String())
	out.WriteString("\n")
	out.WriteString(params.String())

	if m.showPads {
		out.WriteString("\n")
		out.WriteString(m.padsView())
		out.WriteString("\n")
	}

	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(warnStyle.Render(m.status))
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render(m.help.View(m.keys)))
	return out.String()
}

// padsView mirrors the Launchpad LEDs next to their legend
func (m Model) padsView() string {
	grid, top := m.Studio.PadGrid()
	return widgets.PadPreview{
		Grid: grid,
		Top:  top,
		Legend: []widgets.LegendItem{
			{Color: top[0], Name: "top 1", Desc: "play/stop"},
			{Color: top[1], Name: "top 2", Desc: "randomize params"},
			{Color: grid[7][0], Name: "rows 8-7", Desc: "voice 1 steps"},
			{Color: grid[5][0], Name: "rows 6-5", Desc: "voice 2 steps"},
			{Color: grid[0][0], Name: "row 1", Desc: "audition degrees 1-8"},
		},
	}.Render()
}
